package scheduler

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/arnavshah/leave-scheduler-go/pkg/metrics"
	"github.com/arnavshah/leave-scheduler-go/pkg/models"
)

// DayWeightFunc returns the demand weight of a date; ordinary days weigh 1
type DayWeightFunc func(date string) float64

// Option configures a Scheduler
type Option func(*Scheduler)

// WithLogger sets the logger used for run diagnostics
func WithLogger(logger *zap.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDayWeights plugs in an external calendar weight provider
func WithDayWeights(f DayWeightFunc) Option {
	return func(s *Scheduler) {
		if f != nil {
			s.dayWeight = f
		}
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(r metrics.Recorder) Option {
	return func(s *Scheduler) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithClock overrides the clock used for conflict timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// Scheduler assigns soldiers to home or base for every day of a horizon
type Scheduler struct {
	Soldiers []*models.Soldier
	Config   models.Configuration

	logger    *zap.Logger
	dayWeight DayWeightFunc
	recorder  metrics.Recorder
	now       func() time.Time
}

// NewScheduler creates a new scheduler instance
func NewScheduler(soldiers []*models.Soldier, cfg models.Configuration, opts ...Option) *Scheduler {
	s := &Scheduler{
		Soldiers: soldiers,
		Config:   cfg,
		logger:   zap.NewNop(),
		recorder: metrics.NewNop(),
		now:      time.Now,
	}
	s.dayWeight = s.Config.DayWeight
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result is the output of a successful generate run
type Result struct {
	Schedule     models.Schedule         `json:"schedule"`
	Conflicts    []models.Conflict       `json:"conflicts"`
	Stats        models.Stats            `json:"stats"`
	Validation   models.ValidationResult `json:"validation"`
	SoldierStats []models.SoldierStats   `json:"soldier_stats"`
	Quotas       []Quota                 `json:"quotas"`
	Fairness     models.FairnessReport   `json:"fairness"`
	// Unrepaired lists dates left without a commander at base
	Unrepaired []string `json:"unrepaired,omitempty"`

	ledger *Ledger
}

// runState is the per-run projection of a soldier. It is rebuilt on every
// Generate call so nothing leaks between runs.
type runState struct {
	soldier   *models.Soldier
	scheduled []string
	streak    int
	target    int
	weight    float64
	// premium is the demand weight of high-demand home days received this run
	premium float64
}

func (r *runState) accumulated() int {
	return len(r.scheduled) + r.soldier.HistoricalHomeDays
}

func (r *runState) requestPriority(date string) models.Priority {
	if req := r.soldier.RequestFor(date); req != nil {
		return req.Priority
	}
	return ""
}

// Generate builds a complete schedule. It either returns the whole schedule or
// an error; there is no partial result.
func (s *Scheduler) Generate() (*Result, error) {
	started := time.Now()

	if err := ValidateConfiguration(s.Soldiers, s.Config); err != nil {
		s.recorder.ObserveGenerate("configuration_error", time.Since(started))
		s.logger.Info("configuration rejected", zap.Error(err))
		return nil, err
	}

	dates, err := s.Config.Horizon()
	if err != nil {
		s.recorder.ObserveGenerate("configuration_error", time.Since(started))
		return nil, err
	}

	quotas := AllocateQuotas(s.Soldiers, len(dates), s.Config.SoldiersInBase)
	states := make([]*runState, len(s.Soldiers))
	for i, soldier := range s.Soldiers {
		states[i] = &runState{
			soldier: soldier,
			target:  quotas[i].Target,
			weight:  quotas[i].Weight,
		}
	}

	s.logger.Debug("starting schedule generation",
		zap.String("start", s.Config.StartDate),
		zap.String("end", s.Config.EndDate),
		zap.Int("soldiers", len(s.Soldiers)),
		zap.Int("soldiers_in_base", s.Config.SoldiersInBase))

	ledger := NewLedger(s.now)
	schedule := make(models.Schedule, len(dates))
	var unrepaired []string

	for _, date := range dates {
		day, repaired, err := s.assignDay(date, states, ledger)
		if err != nil {
			s.recorder.ObserveGenerate("infeasible", time.Since(started))
			s.logger.Warn("schedule generation infeasible", zap.String("date", date), zap.Error(err))
			return nil, err
		}
		if !repaired {
			unrepaired = append(unrepaired, date)
		}
		schedule[date] = day
	}

	result := &Result{
		Schedule:   schedule,
		Conflicts:  ledger.Conflicts(),
		Quotas:     quotas,
		Unrepaired: unrepaired,
		ledger:     ledger,
	}
	result.Validation = Validate(schedule, s.Config, s.Soldiers)
	result.SoldierStats = BuildSoldierStats(schedule, s.Soldiers, quotas)
	result.Fairness = Analyze(homeDayCounts(result.SoldierStats), len(dates))
	result.Stats = buildStats(len(dates), result.Fairness, ledger.Resolved())

	for reason, n := range ledger.countByReason() {
		s.recorder.AddConflicts(string(reason), n)
	}
	s.recorder.SetFairnessScore(result.Stats.FairnessScore)
	s.recorder.ObserveGenerate("success", time.Since(started))

	s.logger.Info("schedule generated",
		zap.Int("days", len(dates)),
		zap.Int("conflicts", len(result.Conflicts)),
		zap.Int("unrepaired_days", len(unrepaired)),
		zap.Float64("fairness_score", result.Stats.FairnessScore),
		zap.Bool("valid", result.Validation.IsValid))

	return result, nil
}

// assignDay picks the home set for one date and advances the run state. The
// returned flag is false when no commander could be kept at base.
func (s *Scheduler) assignDay(date string, states []*runState, ledger *Ledger) (*models.DaySchedule, bool, error) {
	maxHome := len(states) - s.Config.SoldiersInBase
	maxStreak := s.Config.MaxConsecutiveDaysInOneTrip

	forced := make(map[string]bool)
	eligible := make([]*runState, 0, len(states))
	for _, st := range states {
		if st.streak >= maxStreak {
			forced[st.soldier.ID] = true
			continue
		}
		eligible = append(eligible, st)
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return s.ranksBefore(eligible[i], eligible[j], date)
	})

	home := make(map[string]bool, maxHome)
	for _, st := range eligible {
		if len(home) == maxHome {
			break
		}
		if st.requestPriority(date) == models.PriorityMandatory || len(st.scheduled) < st.target {
			home[st.soldier.ID] = true
		}
	}
	// Quota relaxation: fill the rest in rank order.
	for _, st := range eligible {
		if len(home) == maxHome {
			break
		}
		home[st.soldier.ID] = true
	}
	if len(home) < maxHome {
		return nil, false, &AssignmentInfeasibleError{
			Date:      date,
			Needed:    maxHome,
			Available: len(eligible),
			MaxStreak: maxStreak,
		}
	}

	displaced := make(map[string]bool)
	repaired := s.repairCommandPresence(date, states, home, forced, displaced)
	if repaired {
		s.rotateSurplusCommand(date, states, home, forced, displaced)
	}

	day := splitDay(states, home)

	for _, st := range states {
		id := st.soldier.ID
		if home[id] {
			st.streak++
			st.scheduled = append(st.scheduled, date)
			if w := s.dayWeight(date); w > 1 {
				st.premium += w
			}
			continue
		}
		st.streak = 0

		req := st.soldier.RequestFor(date)
		if req == nil || req.Priority == models.PriorityFlexible {
			continue
		}
		reason := deniedReason(req.Priority)
		switch {
		case forced[id]:
			reason = models.ReasonStreakLimit
		case displaced[id]:
			reason = models.ReasonCommanderRepair
		}
		ledger.Record(date, id, reason, req)
		day.Conflicts = append(day.Conflicts, models.DayConflict{SoldierID: id, Reason: string(reason)})
	}

	return day, repaired, nil
}

// ranksBefore orders home candidates: mandatory requests, preferred requests,
// least accumulated leave, regulars before commanders, least high-demand leave,
// then id.
func (s *Scheduler) ranksBefore(a, b *runState, date string) bool {
	pa, pb := a.requestPriority(date), b.requestPriority(date)
	if ma, mb := pa == models.PriorityMandatory, pb == models.PriorityMandatory; ma != mb {
		return ma
	}
	if fa, fb := pa == models.PriorityPreferred, pb == models.PriorityPreferred; fa != fb {
		return fa
	}
	if ca, cb := a.accumulated(), b.accumulated(); ca != cb {
		return ca < cb
	}
	if ca, cb := a.soldier.IsCommander(), b.soldier.IsCommander(); ca != cb {
		return !ca
	}
	if a.premium != b.premium {
		return a.premium < b.premium
	}
	return a.soldier.ID < b.soldier.ID
}

// repairCommandPresence makes one attempt to put a commander back at base.
// It reports false only when base is non-empty, has no commander, and no
// legal swap exists.
func (s *Scheduler) repairCommandPresence(date string, states []*runState, home, forced, displaced map[string]bool) bool {
	var homeCommanders, baseRegulars []*runState
	baseSize := 0
	for _, st := range states {
		id := st.soldier.ID
		if home[id] {
			if st.soldier.IsCommander() {
				homeCommanders = append(homeCommanders, st)
			}
			continue
		}
		baseSize++
		if st.soldier.IsCommander() {
			return true
		}
		if !forced[id] {
			baseRegulars = append(baseRegulars, st)
		}
	}
	if baseSize == 0 {
		return true
	}
	if len(homeCommanders) == 0 || len(baseRegulars) == 0 {
		s.recorder.IncRepair("unrepairable")
		s.logger.Warn("no commander available for base", zap.String("date", date))
		return false
	}

	commander := pick(homeCommanders, func(a, b *runState) bool {
		if a.accumulated() != b.accumulated() {
			return a.accumulated() > b.accumulated()
		}
		return a.soldier.ID < b.soldier.ID
	})
	regular := pick(baseRegulars, lessLeave)

	delete(home, commander.soldier.ID)
	home[regular.soldier.ID] = true
	displaced[commander.soldier.ID] = true
	s.recorder.IncRepair("swapped")
	s.logger.Debug("commander swapped back to base",
		zap.String("date", date),
		zap.String("commander", commander.soldier.ID),
		zap.String("regular", regular.soldier.ID))
	return true
}

// rotateSurplusCommand sends one extra commander home when base holds more
// than one and a regular with at least as much leave, and no mandatory or
// preferred request for the date, can take the place.
func (s *Scheduler) rotateSurplusCommand(date string, states []*runState, home, forced, displaced map[string]bool) {
	var baseCommanders, homeRegulars []*runState
	commandersAtBase := 0
	for _, st := range states {
		id := st.soldier.ID
		switch {
		case !home[id] && st.soldier.IsCommander():
			commandersAtBase++
			if !forced[id] {
				baseCommanders = append(baseCommanders, st)
			}
		case home[id] && !st.soldier.IsCommander():
			// Only leave nobody asked for may be traded for command rotation
			if p := st.requestPriority(date); p == "" || p == models.PriorityFlexible {
				homeRegulars = append(homeRegulars, st)
			}
		}
	}
	if commandersAtBase < 2 || len(baseCommanders) == 0 || len(homeRegulars) == 0 {
		return
	}

	commander := pick(baseCommanders, lessLeave)
	regular := pick(homeRegulars, func(a, b *runState) bool {
		if a.accumulated() != b.accumulated() {
			return a.accumulated() > b.accumulated()
		}
		return a.soldier.ID < b.soldier.ID
	})
	if regular.accumulated() < commander.accumulated() {
		return
	}

	delete(home, regular.soldier.ID)
	home[commander.soldier.ID] = true
	displaced[regular.soldier.ID] = true
	s.recorder.IncRepair("rotated")
}

func lessLeave(a, b *runState) bool {
	if a.accumulated() != b.accumulated() {
		return a.accumulated() < b.accumulated()
	}
	return a.soldier.ID < b.soldier.ID
}

func pick(states []*runState, less func(a, b *runState) bool) *runState {
	best := states[0]
	for _, st := range states[1:] {
		if less(st, best) {
			best = st
		}
	}
	return best
}

func deniedReason(p models.Priority) models.ConflictReason {
	if p == models.PriorityMandatory {
		return models.ReasonMandatoryDenied
	}
	return models.ReasonPreferredDenied
}

// splitDay lists home and base in roster order
func splitDay(states []*runState, home map[string]bool) *models.DaySchedule {
	day := &models.DaySchedule{Home: []string{}, Base: []string{}}
	for _, st := range states {
		if home[st.soldier.ID] {
			day.Home = append(day.Home, st.soldier.ID)
		} else {
			day.Base = append(day.Base, st.soldier.ID)
		}
	}
	return day
}

// BuildSoldierStats derives per-soldier results from a schedule
func BuildSoldierStats(schedule models.Schedule, soldiers []*models.Soldier, quotas []Quota) []models.SoldierStats {
	targets := make(map[string]int, len(quotas))
	for _, q := range quotas {
		targets[q.SoldierID] = q.Target
	}
	stats := make([]models.SoldierStats, 0, len(soldiers))
	for _, soldier := range soldiers {
		days := schedule.HomeDates(soldier.ID)
		if days == nil {
			days = []string{}
		}
		stats = append(stats, models.SoldierStats{
			ID:                 soldier.ID,
			Name:               soldier.Name,
			HomeDays:           len(days),
			ScheduledDays:      days,
			TargetHomeDays:     targets[soldier.ID],
			HistoricalHomeDays: soldier.HistoricalHomeDays,
			RequestedDays:      len(soldier.Requests),
			MandatoryRequests:  soldier.MandatoryRequests(),
			IsEmergencyReserve: soldier.IsEmergencyReserve,
		})
	}
	return stats
}

func homeDayCounts(stats []models.SoldierStats) []int {
	counts := make([]int, len(stats))
	for i, st := range stats {
		counts[i] = st.HomeDays
	}
	return counts
}

func buildStats(totalDays int, report models.FairnessReport, resolved int) models.Stats {
	return models.Stats{
		TotalDays:         totalDays,
		AverageHomeDays:   report.Mean,
		FairnessScore:     report.FairnessScore,
		ConflictsResolved: resolved,
	}
}
