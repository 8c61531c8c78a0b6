package models

import (
	"sort"
	"time"
)

// DateLayout is the ISO-8601 calendar date format used for every schedule key
const DateLayout = "2006-01-02"

// Role distinguishes soldiers who must keep command presence at base
type Role string

const (
	RoleCommander Role = "commander"
	RoleRegular   Role = "regular"
)

// Priority of a leave request
type Priority string

const (
	PriorityMandatory Priority = "mandatory"
	PriorityPreferred Priority = "preferred"
	PriorityFlexible  Priority = "flexible"
)

// RequestStatus tracks a request through conflict resolution
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// Request is a soldier's wish to be home on a given date
type Request struct {
	ID       string        `json:"id" yaml:"id"`
	Date     string        `json:"date" yaml:"date"`
	Priority Priority      `json:"priority" yaml:"priority"`
	Reason   string        `json:"reason,omitempty" yaml:"reason,omitempty"`
	Status   RequestStatus `json:"status" yaml:"status,omitempty"`
}

// Active reports whether the request still takes part in scheduling
func (r Request) Active() bool {
	return r.Status != StatusRejected
}

// Soldier represents a person on the roster
type Soldier struct {
	ID                 string    `json:"id" yaml:"id"`
	Name               string    `json:"name" yaml:"name"`
	Role               Role      `json:"role" yaml:"role"`
	Phone              string    `json:"phone,omitempty" yaml:"phone,omitempty"`
	Email              string    `json:"email,omitempty" yaml:"email,omitempty"`
	DistanceFromBase   float64   `json:"distance_from_base" yaml:"distance_from_base"`
	IsEmergencyReserve bool      `json:"is_emergency_reserve" yaml:"is_emergency_reserve"`
	Requests           []Request `json:"requests" yaml:"requests"`
	HistoricalHomeDays int       `json:"historical_home_days" yaml:"historical_home_days"`
}

// IsCommander reports whether the soldier holds the commander role
func (s *Soldier) IsCommander() bool {
	return s.Role == RoleCommander
}

// RequestFor returns the strongest active request for the date, if any
func (s *Soldier) RequestFor(date string) *Request {
	var best *Request
	for i := range s.Requests {
		req := &s.Requests[i]
		if req.Date != date || !req.Active() {
			continue
		}
		if best == nil || req.Priority.rank() < best.Priority.rank() {
			best = req
		}
	}
	return best
}

// MandatoryRequests counts requests with mandatory priority
func (s *Soldier) MandatoryRequests() int {
	count := 0
	for _, r := range s.Requests {
		if r.Priority == PriorityMandatory {
			count++
		}
	}
	return count
}

func (p Priority) rank() int {
	switch p {
	case PriorityMandatory:
		return 0
	case PriorityPreferred:
		return 1
	default:
		return 2
	}
}

// DayWeight marks a holiday or high-demand date
type DayWeight struct {
	Date   string  `json:"date" yaml:"date"`
	Name   string  `json:"name,omitempty" yaml:"name,omitempty"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// Default policy values
const (
	DefaultMaxConsecutiveDays = 7
	DefaultSoldiersInBase     = 2
	DefaultMinConsecutiveDays = 3
	HighDemandWeight          = 5.0
	HolidayWeight             = 7.5
)

// Configuration holds the policy for one scheduling horizon
type Configuration struct {
	StartDate                   string      `json:"start_date" yaml:"start_date"`
	EndDate                     string      `json:"end_date" yaml:"end_date"`
	SoldiersInBase              int         `json:"soldiers_in_base" yaml:"soldiers_in_base"`
	MinConsecutiveDays          int         `json:"min_consecutive_days" yaml:"min_consecutive_days"`
	MaxConsecutiveDaysInOneTrip int         `json:"max_consecutive_days_in_one_trip" yaml:"max_consecutive_days_in_one_trip"`
	HighDemandDays              []DayWeight `json:"high_demand_days" yaml:"high_demand_days"`
	Holidays                    []DayWeight `json:"holidays" yaml:"holidays"`
	EmergencyReserve            []string    `json:"emergency_reserve" yaml:"emergency_reserve"`
}

// DefaultConfiguration returns a configuration with the standard policy values
func DefaultConfiguration() Configuration {
	return Configuration{
		SoldiersInBase:              DefaultSoldiersInBase,
		MinConsecutiveDays:          DefaultMinConsecutiveDays,
		MaxConsecutiveDaysInOneTrip: DefaultMaxConsecutiveDays,
	}
}

// DayWeight returns the demand weight of a date. Holidays outrank
// high-demand days; ordinary days weigh 1. A marked day without a positive
// weight takes the default of its kind.
func (c *Configuration) DayWeight(date string) float64 {
	for _, h := range c.Holidays {
		if h.Date == date {
			return weightOr(h.Weight, HolidayWeight)
		}
	}
	for _, d := range c.HighDemandDays {
		if d.Date == date {
			return weightOr(d.Weight, HighDemandWeight)
		}
	}
	return 1
}

func weightOr(w, fallback float64) float64 {
	if w <= 0 {
		return fallback
	}
	return w
}

// IsHighDemandDay reports whether the date is a holiday or high-demand day
func (c *Configuration) IsHighDemandDay(date string) bool {
	return c.DayWeight(date) > 1
}

// Horizon returns every date in [StartDate, EndDate]
func (c *Configuration) Horizon() ([]string, error) {
	start, err := time.Parse(DateLayout, c.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := time.Parse(DateLayout, c.EndDate)
	if err != nil {
		return nil, err
	}
	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(DateLayout))
	}
	return dates, nil
}

// DayConflict is the per-day view of a conflict
type DayConflict struct {
	SoldierID string `json:"soldier_id"`
	Reason    string `json:"reason"`
}

// DaySchedule splits the roster for one date
type DaySchedule struct {
	Home      []string      `json:"home"`
	Base      []string      `json:"base"`
	Conflicts []DayConflict `json:"conflicts,omitempty"`
}

// IsHome reports whether the soldier is on leave that day
func (d *DaySchedule) IsHome(id string) bool {
	if d == nil {
		return false
	}
	for _, h := range d.Home {
		if h == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy
func (d *DaySchedule) Clone() *DaySchedule {
	if d == nil {
		return nil
	}
	return &DaySchedule{
		Home:      append([]string{}, d.Home...),
		Base:      append([]string{}, d.Base...),
		Conflicts: append([]DayConflict(nil), d.Conflicts...),
	}
}

// Schedule maps ISO dates to the day split
type Schedule map[string]*DaySchedule

// Dates returns the schedule's dates in ascending order
func (s Schedule) Dates() []string {
	dates := make([]string, 0, len(s))
	for d := range s {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// Clone returns a deep copy
func (s Schedule) Clone() Schedule {
	out := make(Schedule, len(s))
	for d, day := range s {
		out[d] = day.Clone()
	}
	return out
}

// HomeDates returns the sorted dates a soldier spends at home
func (s Schedule) HomeDates(id string) []string {
	var dates []string
	for _, d := range s.Dates() {
		if s[d].IsHome(id) {
			dates = append(dates, d)
		}
	}
	return dates
}

// ConflictReason is a machine-readable conflict cause
type ConflictReason string

const (
	ReasonMandatoryDenied    ConflictReason = "mandatory_request_denied"
	ReasonPreferredDenied    ConflictReason = "preferred_request_denied"
	ReasonStreakLimit        ConflictReason = "streak_limit"
	ReasonCommanderRepair    ConflictReason = "commander_repair"
	ReasonManualDisplacement ConflictReason = "manual_displacement"
)

// Conflict records a request the schedule could not honor
type Conflict struct {
	ID        string         `json:"id"`
	Date      string         `json:"date"`
	SoldierID string         `json:"soldier_id"`
	Reason    ConflictReason `json:"reason"`
	Request   *Request       `json:"request,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Stats is the headline summary of a schedule
type Stats struct {
	TotalDays         int     `json:"total_days"`
	AverageHomeDays   float64 `json:"average_home_days"`
	FairnessScore     float64 `json:"fairness_score"`
	ConflictsResolved int     `json:"conflicts_resolved"`
}

// ValidationResult carries hard errors and soft warnings
type ValidationResult struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// SoldierStats summarizes one soldier's outcome
type SoldierStats struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	HomeDays           int      `json:"home_days"`
	ScheduledDays      []string `json:"scheduled_days"`
	TargetHomeDays     int      `json:"target_home_days"`
	HistoricalHomeDays int      `json:"historical_home_days"`
	RequestedDays      int      `json:"requested_days"`
	MandatoryRequests  int      `json:"mandatory_requests"`
	IsEmergencyReserve bool     `json:"is_emergency_reserve"`
}

// FairnessReport is the full distribution summary of home days
type FairnessReport struct {
	Min                    int     `json:"min"`
	Max                    int     `json:"max"`
	Mean                   float64 `json:"mean"`
	Variance               float64 `json:"variance"`
	StdDev                 float64 `json:"std_dev"`
	CoefficientOfVariation float64 `json:"coefficient_of_variation"`
	FairnessScore          float64 `json:"fairness_score"`
	Distribution           []int   `json:"distribution"`
}
