package scheduler

import (
	"fmt"
	"sort"

	"github.com/arnavshah/leave-scheduler-go/pkg/models"
)

// EditAction is a manual single-day change
type EditAction string

const (
	EditAdd    EditAction = "add"
	EditRemove EditAction = "remove"
)

// moveSoldiers returns a copy of day with the given soldiers placed home (true)
// or at base (false). Lists stay in roster order.
func moveSoldiers(day *models.DaySchedule, soldiers []*models.Soldier, moves map[string]bool) *models.DaySchedule {
	out := &models.DaySchedule{
		Home:      []string{},
		Base:      []string{},
		Conflicts: append([]models.DayConflict(nil), day.Conflicts...),
	}
	for _, s := range soldiers {
		home, moved := moves[s.ID]
		if !moved {
			home = day.IsHome(s.ID)
		}
		if home {
			out.Home = append(out.Home, s.ID)
		} else {
			out.Base = append(out.Base, s.ID)
		}
	}
	return out
}

// applyEdit moves a soldier home (add) or to base (remove) on one date,
// optionally moving swapWith the other way. The schedule is only changed if
// the edited day keeps every invariant.
func applyEdit(schedule models.Schedule, soldiers []*models.Soldier, cfg models.Configuration,
	soldierID, date string, action EditAction, swapWith string,
) error {
	day, ok := schedule[date]
	if !ok {
		return fmt.Errorf("date %s: %w", date, ErrNotFound)
	}
	roster := rosterIndex(soldiers)
	if _, ok := roster[soldierID]; !ok {
		return fmt.Errorf("soldier %s: %w", soldierID, ErrNotFound)
	}
	if swapWith != "" {
		if _, ok := roster[swapWith]; !ok {
			return fmt.Errorf("soldier %s: %w", swapWith, ErrNotFound)
		}
		if swapWith == soldierID {
			return &InvariantViolationError{Date: date, Reason: "cannot swap a soldier with themselves"}
		}
	}

	var toHome bool
	switch action {
	case EditAdd:
		toHome = true
		if day.IsHome(soldierID) {
			return &InvariantViolationError{Date: date, Reason: fmt.Sprintf("soldier %s is already home", soldierID)}
		}
	case EditRemove:
		if !day.IsHome(soldierID) {
			return &InvariantViolationError{Date: date, Reason: fmt.Sprintf("soldier %s is not home", soldierID)}
		}
	default:
		return fmt.Errorf("%q: %w", action, ErrUnknownAction)
	}

	moves := map[string]bool{soldierID: toHome}
	movedHome := []string{}
	if toHome {
		movedHome = append(movedHome, soldierID)
	}
	if swapWith != "" {
		if day.IsHome(swapWith) != toHome {
			return &InvariantViolationError{Date: date,
				Reason: fmt.Sprintf("soldier %s is not in a position to swap with %s", swapWith, soldierID)}
		}
		moves[swapWith] = !toHome
		if !toHome {
			movedHome = append(movedHome, swapWith)
		}
	}

	trial := moveSoldiers(day, soldiers, moves)
	if reason := checkDay(schedule, schedule.Dates(), date, trial, roster, cfg, movedHome); reason != "" {
		return &InvariantViolationError{Date: date, Reason: reason}
	}
	schedule[date] = trial
	return nil
}

// forceHome sends the soldier home on date, sending the lowest-priority home
// soldier whose move keeps every invariant to base instead. It returns the
// displaced soldier, or nil when the soldier was already home.
func forceHome(schedule models.Schedule, soldiers []*models.Soldier, cfg models.Configuration,
	soldier *models.Soldier, date string,
) (*models.Soldier, error) {
	day, ok := schedule[date]
	if !ok {
		return nil, fmt.Errorf("date %s: %w", date, ErrNotFound)
	}
	if day.IsHome(soldier.ID) {
		return nil, nil
	}

	roster := rosterIndex(soldiers)
	dates := schedule.Dates()

	accumulated := make(map[string]int, len(day.Home))
	candidates := make([]*models.Soldier, 0, len(day.Home))
	for _, id := range day.Home {
		if s, ok := roster[id]; ok {
			candidates = append(candidates, s)
			accumulated[id] = s.HistoricalHomeDays + len(schedule.HomeDates(id))
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if ra, rb := displacementRank(a, date), displacementRank(b, date); ra != rb {
			return ra < rb
		}
		if accumulated[a.ID] != accumulated[b.ID] {
			return accumulated[a.ID] > accumulated[b.ID]
		}
		return a.ID < b.ID
	})

	for _, candidate := range candidates {
		trial := moveSoldiers(day, soldiers, map[string]bool{soldier.ID: true, candidate.ID: false})
		if checkDay(schedule, dates, date, trial, roster, cfg, []string{soldier.ID}) != "" {
			continue
		}
		schedule[date] = trial
		return candidate, nil
	}
	return nil, &InvariantViolationError{Date: date,
		Reason: fmt.Sprintf("no soldier can make room for %s without breaking an invariant", soldier.ID)}
}

// displacementRank orders home soldiers from cheapest to costliest to send
// back: no request, flexible, preferred, mandatory.
func displacementRank(s *models.Soldier, date string) int {
	req := s.RequestFor(date)
	if req == nil {
		return 0
	}
	switch req.Priority {
	case models.PriorityMandatory:
		return 3
	case models.PriorityPreferred:
		return 2
	default:
		return 1
	}
}
