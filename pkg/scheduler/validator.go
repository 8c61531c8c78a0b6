package scheduler

import (
	"fmt"
	"sort"

	"github.com/arnavshah/leave-scheduler-go/pkg/models"
)

// Validate re-examines a finished schedule. Errors mark the schedule as
// invalid; warnings are informational.
func Validate(schedule models.Schedule, cfg models.Configuration, soldiers []*models.Soldier) models.ValidationResult {
	result := models.ValidationResult{Errors: []string{}, Warnings: []string{}}

	missing := make(map[string]bool)
	if horizon, err := cfg.Horizon(); err == nil {
		for _, date := range horizon {
			if schedule[date] == nil {
				missing[date] = true
				result.Errors = append(result.Errors, fmt.Sprintf("day %s: missing from schedule", date))
			}
		}
	}

	roles := rosterIndex(soldiers)

	dates := schedule.Dates()
	for _, date := range dates {
		day := schedule[date]
		if day == nil {
			if !missing[date] {
				result.Errors = append(result.Errors, fmt.Sprintf("day %s: missing from schedule", date))
			}
			continue
		}
		result.Errors = append(result.Errors, dayErrors(date, day, roles, cfg)...)
	}

	for _, soldier := range soldiers {
		runs := homeRuns(schedule, dates, soldier.ID)
		if len(runs) == 0 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("soldier %s (%s): no home days in the whole horizon", soldier.Name, soldier.ID))
			continue
		}
		for _, run := range runs {
			switch {
			case run.length < cfg.MinConsecutiveDays:
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("soldier %s (%s): home trip starting %s lasts %d days, minimum is %d",
						soldier.Name, soldier.ID, run.start, run.length, cfg.MinConsecutiveDays))
			case run.length > cfg.MaxConsecutiveDaysInOneTrip:
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("soldier %s (%s): home trip starting %s lasts %d days, maximum is %d",
						soldier.Name, soldier.ID, run.start, run.length, cfg.MaxConsecutiveDaysInOneTrip))
			}
		}
	}

	result.IsValid = len(result.Errors) == 0
	return result
}

// dayErrors checks the hard invariants of one day
func dayErrors(date string, day *models.DaySchedule, roster map[string]*models.Soldier, cfg models.Configuration) []string {
	var errs []string

	if len(day.Base) != cfg.SoldiersInBase {
		errs = append(errs, fmt.Sprintf("day %s: %d soldiers at base instead of %d",
			date, len(day.Base), cfg.SoldiersInBase))
	}

	placed := make(map[string]int, len(roster))
	commanders := 0
	for i, id := range append(append([]string{}, day.Home...), day.Base...) {
		placed[id]++
		s, known := roster[id]
		switch {
		case !known:
			if placed[id] == 1 {
				errs = append(errs, fmt.Sprintf("day %s: unknown soldier %s", date, id))
			}
		case placed[id] == 2:
			errs = append(errs, fmt.Sprintf("day %s: soldier %s is listed more than once", date, id))
		}
		if known && i >= len(day.Home) && s.IsCommander() {
			commanders++
		}
	}
	if commanders == 0 && len(day.Base) > 0 {
		errs = append(errs, fmt.Sprintf("day %s: no commander at base", date))
	}

	ids := make([]string, 0, len(roster))
	for id := range roster {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if placed[id] == 0 {
			errs = append(errs, fmt.Sprintf("day %s: soldier %s is neither home nor at base", date, id))
		}
	}
	return errs
}

type homeRun struct {
	start  string
	length int
}

// homeRuns returns the maximal runs of consecutive home days
func homeRuns(schedule models.Schedule, dates []string, id string) []homeRun {
	var runs []homeRun
	var current *homeRun
	for _, date := range dates {
		if schedule[date].IsHome(id) {
			if current == nil {
				runs = append(runs, homeRun{start: date})
				current = &runs[len(runs)-1]
			}
			current.length++
			continue
		}
		current = nil
	}
	return runs
}

// runLengthAt is the length of the home run through date if the soldier is
// home that day, using day in place of the scheduled entry for date.
func runLengthAt(schedule models.Schedule, dates []string, id, date string, day *models.DaySchedule) int {
	idx := -1
	for i, d := range dates {
		if d == date {
			idx = i
			break
		}
	}
	if idx < 0 || !day.IsHome(id) {
		return 0
	}
	length := 1
	for i := idx - 1; i >= 0 && schedule[dates[i]].IsHome(id); i-- {
		length++
	}
	for i := idx + 1; i < len(dates) && schedule[dates[i]].IsHome(id); i++ {
		length++
	}
	return length
}

// checkDay returns the first reason the day breaks an invariant, or ""
func checkDay(schedule models.Schedule, dates []string, date string, day *models.DaySchedule,
	roster map[string]*models.Soldier, cfg models.Configuration, movedHome []string,
) string {
	if errs := dayErrors(date, day, roster, cfg); len(errs) > 0 {
		return errs[0]
	}
	for _, id := range movedHome {
		if n := runLengthAt(schedule, dates, id, date, day); n > cfg.MaxConsecutiveDaysInOneTrip {
			return fmt.Sprintf("soldier %s would be home %d consecutive days, maximum is %d",
				id, n, cfg.MaxConsecutiveDaysInOneTrip)
		}
	}
	return ""
}

func rosterIndex(soldiers []*models.Soldier) map[string]*models.Soldier {
	index := make(map[string]*models.Soldier, len(soldiers))
	for _, s := range soldiers {
		index[s.ID] = s
	}
	return index
}
