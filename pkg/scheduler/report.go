package scheduler

import (
	"github.com/arnavshah/leave-scheduler-go/pkg/models"
)

// DayTypeStats aggregates the days of one demand class
type DayTypeStats struct {
	Total                 int     `json:"total"`
	AverageSoldiersAtHome float64 `json:"average_soldiers_at_home"`
	AverageSoldiersInBase float64 `json:"average_soldiers_in_base"`
	TotalConflicts        int     `json:"total_conflicts"`
}

// ReserveStats covers the emergency reserve soldiers
type ReserveStats struct {
	Total           int     `json:"total"`
	AverageHomeDays float64 `json:"average_home_days"`
}

// AdvancedStats is the detailed report of a schedule
type AdvancedStats struct {
	Fairness         models.FairnessReport `json:"fairness"`
	HighDemandDays   DayTypeStats          `json:"high_demand_days"`
	RegularDays      DayTypeStats          `json:"regular_days"`
	EmergencyReserve ReserveStats          `json:"emergency_reserve"`
}

type dayTotals struct {
	days, home, base, conflicts int
}

func (t dayTotals) stats() DayTypeStats {
	out := DayTypeStats{Total: t.days, TotalConflicts: t.conflicts}
	if t.days > 0 {
		out.AverageSoldiersAtHome = float64(t.home) / float64(t.days)
		out.AverageSoldiersInBase = float64(t.base) / float64(t.days)
	}
	return out
}

// SplitByDemand aggregates high-demand and regular days separately. A nil
// weight treats every day as regular.
func SplitByDemand(schedule models.Schedule, weight DayWeightFunc) (high, regular DayTypeStats) {
	var h, r dayTotals
	for _, date := range schedule.Dates() {
		day := schedule[date]
		t := &r
		if weight != nil && weight(date) > 1 {
			t = &h
		}
		t.days++
		t.home += len(day.Home)
		t.base += len(day.Base)
		t.conflicts += len(day.Conflicts)
	}
	return h.stats(), r.stats()
}

// BuildAdvancedStats assembles the detailed report from per-soldier stats
func BuildAdvancedStats(schedule models.Schedule, stats []models.SoldierStats, weight DayWeightFunc) AdvancedStats {
	report := AdvancedStats{Fairness: Analyze(homeDayCounts(stats), len(schedule))}
	report.HighDemandDays, report.RegularDays = SplitByDemand(schedule, weight)

	home := 0
	for _, s := range stats {
		if s.IsEmergencyReserve {
			report.EmergencyReserve.Total++
			home += s.HomeDays
		}
	}
	if report.EmergencyReserve.Total > 0 {
		report.EmergencyReserve.AverageHomeDays = float64(home) / float64(report.EmergencyReserve.Total)
	}
	return report
}
