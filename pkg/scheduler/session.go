package scheduler

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arnavshah/leave-scheduler-go/pkg/models"
)

// Session owns one roster, its configuration and the current schedule.
// It is not safe for concurrent use; callers serialize access.
type Session struct {
	soldiers []*models.Soldier
	config   models.Configuration
	opts     []Option

	schedule models.Schedule
	quotas   []Quota
	ledger   *Ledger
}

// NewSession creates a session without a schedule
func NewSession(soldiers []*models.Soldier, cfg models.Configuration, opts ...Option) *Session {
	s := &Session{config: cfg, opts: opts}
	s.SetRoster(soldiers)
	return s
}

func (s *Session) engine() *Scheduler {
	return NewScheduler(s.soldiers, s.config, s.opts...)
}

// Roster returns the soldiers the session schedules
func (s *Session) Roster() []*models.Soldier {
	return s.soldiers
}

// SetRoster replaces the roster. Requests without an id get one.
func (s *Session) SetRoster(soldiers []*models.Soldier) {
	for _, soldier := range soldiers {
		for i := range soldier.Requests {
			if soldier.Requests[i].ID == "" {
				soldier.Requests[i].ID = uuid.NewString()
			}
			if soldier.Requests[i].Status == "" {
				soldier.Requests[i].Status = models.StatusPending
			}
		}
	}
	s.soldiers = soldiers
}

// Configuration returns the active policy
func (s *Session) Configuration() models.Configuration {
	return s.config
}

// SetConfiguration replaces the policy used by the next Generate
func (s *Session) SetConfiguration(cfg models.Configuration) {
	s.config = cfg
}

// HasSchedule reports whether a schedule is loaded
func (s *Session) HasSchedule() bool {
	return s.schedule != nil
}

// Generate builds a new schedule. On failure the previous schedule is kept.
func (s *Session) Generate() (*Result, error) {
	result, err := s.engine().Generate()
	if err != nil {
		return nil, err
	}
	s.schedule = result.Schedule.Clone()
	s.quotas = result.Quotas
	s.ledger = result.ledger
	return result, nil
}

// Restore loads a previously generated schedule and its open conflicts
func (s *Session) Restore(schedule models.Schedule, conflicts []models.Conflict, resolved int) {
	s.schedule = schedule.Clone()
	s.ledger = NewLedger(s.engine().now)
	s.ledger.conflicts = append(s.ledger.conflicts, conflicts...)
	s.ledger.resolved = resolved
	s.quotas = AllocateQuotas(s.soldiers, len(schedule), s.config.SoldiersInBase)
}

// Clear drops the current schedule and its conflicts
func (s *Session) Clear() {
	s.schedule = nil
	s.quotas = nil
	s.ledger = nil
}

// Schedule returns a copy of the current schedule
func (s *Session) Schedule() (models.Schedule, error) {
	if s.schedule == nil {
		return nil, ErrNoSchedule
	}
	return s.schedule.Clone(), nil
}

// Optimize runs the fairness pass over the current schedule and returns the
// number of swaps made.
func (s *Session) Optimize() (int, error) {
	if s.schedule == nil {
		return 0, ErrNoSchedule
	}
	engine := s.engine()
	swaps := engine.Optimize(s.schedule)
	engine.logger.Info("schedule optimized", zap.Int("swaps", swaps),
		zap.Bool("valid", Validate(s.schedule, s.config, s.soldiers).IsValid))
	return swaps, nil
}

// Assign applies a manual single-day edit
func (s *Session) Assign(soldierID, date string, action EditAction, swapWith string) (models.Schedule, error) {
	if s.schedule == nil {
		return nil, ErrNoSchedule
	}
	if err := applyEdit(s.schedule, s.soldiers, s.config, soldierID, date, action, swapWith); err != nil {
		return nil, err
	}
	return s.schedule.Clone(), nil
}

// ResolveConflict closes one conflict
func (s *Session) ResolveConflict(id string, res Resolution) (models.Schedule, error) {
	if s.schedule == nil {
		return nil, ErrNoSchedule
	}
	engine := s.engine()
	next, err := s.ledger.Resolve(s.schedule, s.soldiers, s.config, id, res)
	if err != nil {
		engine.recorder.IncResolution(string(res.Action), "rejected")
		engine.logger.Info("conflict resolution rejected",
			zap.String("conflict", id), zap.String("action", string(res.Action)), zap.Error(err))
		return nil, err
	}
	engine.recorder.IncResolution(string(res.Action), "applied")
	s.schedule = next
	return next.Clone(), nil
}

// Conflicts returns the open conflicts
func (s *Session) Conflicts() []models.Conflict {
	if s.ledger == nil {
		return []models.Conflict{}
	}
	return s.ledger.Conflicts()
}

// ConflictSummary groups the open conflicts
func (s *Session) ConflictSummary() ConflictSummary {
	if s.ledger == nil {
		return NewLedger(time.Now).Summary()
	}
	return s.ledger.Summary()
}

// Resolved is the number of conflicts closed against the current schedule
func (s *Session) Resolved() int {
	if s.ledger == nil {
		return 0
	}
	return s.ledger.Resolved()
}

// Validation re-validates the current schedule
func (s *Session) Validation() (models.ValidationResult, error) {
	if s.schedule == nil {
		return models.ValidationResult{}, ErrNoSchedule
	}
	return Validate(s.schedule, s.config, s.soldiers), nil
}

// SoldierStats summarizes each soldier against the current schedule
func (s *Session) SoldierStats() ([]models.SoldierStats, error) {
	if s.schedule == nil {
		return nil, ErrNoSchedule
	}
	return BuildSoldierStats(s.schedule, s.soldiers, s.quotas), nil
}

// Fairness reports the home-day distribution of the current schedule
func (s *Session) Fairness() (models.FairnessReport, error) {
	stats, err := s.SoldierStats()
	if err != nil {
		return models.FairnessReport{}, err
	}
	return Analyze(homeDayCounts(stats), len(s.schedule)), nil
}

// Stats is the headline summary of the current schedule
func (s *Session) Stats() (models.Stats, error) {
	report, err := s.Fairness()
	if err != nil {
		return models.Stats{}, err
	}
	return buildStats(len(s.schedule), report, s.Resolved()), nil
}

// AdvancedStats is the detailed report of the current schedule, split by
// the session's day weights
func (s *Session) AdvancedStats() (AdvancedStats, error) {
	stats, err := s.SoldierStats()
	if err != nil {
		return AdvancedStats{}, err
	}
	return BuildAdvancedStats(s.schedule, stats, s.engine().dayWeight), nil
}
