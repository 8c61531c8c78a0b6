package scheduler

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/arnavshah/leave-scheduler-go/pkg/models"
)

// ResolveAction is how a conflict gets closed
type ResolveAction string

const (
	ResolveApprove  ResolveAction = "approve"
	ResolveReassign ResolveAction = "reassign"
	ResolveReject   ResolveAction = "reject"
)

// Resolution is a resolve request. NewDate is only used by reassign.
type Resolution struct {
	Action  ResolveAction `json:"action"`
	NewDate string        `json:"new_date,omitempty"`
}

// ConflictSummary groups open conflicts for reporting
type ConflictSummary struct {
	Total  int            `json:"total"`
	ByType map[string]int `json:"by_type"`
	ByDate map[string]int `json:"by_date"`
}

// Ledger keeps open conflicts in creation order
type Ledger struct {
	conflicts []models.Conflict
	resolved  int
	now       func() time.Time
}

// NewLedger creates an empty ledger
func NewLedger(now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{conflicts: []models.Conflict{}, now: now}
}

// Record opens a conflict. The request is copied so later status changes on
// the roster do not leak into the record.
func (l *Ledger) Record(date, soldierID string, reason models.ConflictReason, req *models.Request) models.Conflict {
	c := models.Conflict{
		ID:        uuid.NewString(),
		Date:      date,
		SoldierID: soldierID,
		Reason:    reason,
		CreatedAt: l.now().UTC(),
	}
	if req != nil {
		r := *req
		c.Request = &r
	}
	l.conflicts = append(l.conflicts, c)
	return c
}

// Conflicts returns a copy of the open conflicts
func (l *Ledger) Conflicts() []models.Conflict {
	return append([]models.Conflict{}, l.conflicts...)
}

// Get looks up an open conflict by id
func (l *Ledger) Get(id string) (models.Conflict, error) {
	for _, c := range l.conflicts {
		if c.ID == id {
			return c, nil
		}
	}
	return models.Conflict{}, fmt.Errorf("conflict %s: %w", id, ErrNotFound)
}

// Resolved is the number of conflicts closed so far
func (l *Ledger) Resolved() int {
	return l.resolved
}

// Summary counts open conflicts by reason and by date
func (l *Ledger) Summary() ConflictSummary {
	summary := ConflictSummary{
		Total:  len(l.conflicts),
		ByType: map[string]int{},
		ByDate: map[string]int{},
	}
	for _, c := range l.conflicts {
		summary.ByType[string(c.Reason)]++
		summary.ByDate[c.Date]++
	}
	return summary
}

func (l *Ledger) countByReason() map[models.ConflictReason]int {
	counts := make(map[models.ConflictReason]int)
	for _, c := range l.conflicts {
		counts[c.Reason]++
	}
	return counts
}

func (l *Ledger) remove(id string) {
	for i, c := range l.conflicts {
		if c.ID == id {
			l.conflicts = append(l.conflicts[:i], l.conflicts[i+1:]...)
			return
		}
	}
}

// Resolve closes a conflict and returns the resulting schedule. The input
// schedule and roster are left untouched when an error is returned.
func (l *Ledger) Resolve(schedule models.Schedule, soldiers []*models.Soldier, cfg models.Configuration,
	id string, res Resolution,
) (models.Schedule, error) {
	conflict, err := l.Get(id)
	if err != nil {
		return nil, err
	}
	soldier, ok := rosterIndex(soldiers)[conflict.SoldierID]
	if !ok {
		return nil, fmt.Errorf("soldier %s: %w", conflict.SoldierID, ErrNotFound)
	}

	next := schedule.Clone()
	var (
		date      string
		displaced *models.Soldier
	)
	switch res.Action {
	case ResolveApprove:
		date = conflict.Date
	case ResolveReassign:
		if res.NewDate == "" {
			return nil, &InvariantViolationError{Date: conflict.Date, Reason: "reassign needs a new date"}
		}
		date = res.NewDate
	case ResolveReject:
	default:
		return nil, fmt.Errorf("%q: %w", res.Action, ErrUnknownAction)
	}

	if date != "" {
		if displaced, err = forceHome(next, soldiers, cfg, soldier, date); err != nil {
			return nil, err
		}
	}
	if day, ok := next[conflict.Date]; ok {
		dropDayConflict(day, conflict.SoldierID, string(conflict.Reason))
	}

	// Nothing below can fail; commit.
	original := findRequest(soldier, conflict.Request)
	switch res.Action {
	case ResolveApprove:
		if original != nil {
			original.Status = models.StatusApproved
		}
	case ResolveReassign:
		priority, reason := models.PriorityPreferred, ""
		if original != nil {
			original.Status = models.StatusRejected
			priority, reason = original.Priority, original.Reason
		}
		soldier.Requests = append(soldier.Requests, models.Request{
			ID:       uuid.NewString(),
			Date:     date,
			Priority: priority,
			Reason:   reason,
			Status:   models.StatusApproved,
		})
	case ResolveReject:
		if original != nil {
			original.Status = models.StatusRejected
		}
	}

	l.remove(conflict.ID)
	l.resolved++

	if displaced != nil {
		if req := displaced.RequestFor(date); req != nil && req.Priority != models.PriorityFlexible {
			l.Record(date, displaced.ID, models.ReasonManualDisplacement, req)
			next[date].Conflicts = append(next[date].Conflicts, models.DayConflict{
				SoldierID: displaced.ID,
				Reason:    string(models.ReasonManualDisplacement),
			})
		}
	}
	return next, nil
}

// findRequest returns the roster's copy of a conflict's request
func findRequest(soldier *models.Soldier, req *models.Request) *models.Request {
	if req == nil {
		return nil
	}
	for i := range soldier.Requests {
		if soldier.Requests[i].ID == req.ID {
			return &soldier.Requests[i]
		}
	}
	return nil
}

func dropDayConflict(day *models.DaySchedule, soldierID, reason string) {
	for i, c := range day.Conflicts {
		if c.SoldierID == soldierID && c.Reason == reason {
			day.Conflicts = append(day.Conflicts[:i:i], day.Conflicts[i+1:]...)
			return
		}
	}
}
