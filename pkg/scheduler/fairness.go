package scheduler

import (
	"math"
	"sort"

	"github.com/arnavshah/leave-scheduler-go/pkg/models"
)

// Analyze summarizes how evenly home days are spread. horizonDays bounds each
// value and sets the scale of the fairness score.
func Analyze(values []int, horizonDays int) models.FairnessReport {
	report := models.FairnessReport{FairnessScore: 100, Distribution: []int{}}
	if len(values) == 0 {
		return report
	}

	report.Distribution = append(report.Distribution, values...)
	sort.Ints(report.Distribution)
	report.Min = report.Distribution[0]
	report.Max = report.Distribution[len(values)-1]

	var sum float64
	for _, v := range values {
		sum += float64(v)
	}
	report.Mean = sum / float64(len(values))

	var squares float64
	for _, v := range values {
		diff := float64(v) - report.Mean
		squares += diff * diff
	}
	report.Variance = squares / float64(len(values))
	report.StdDev = math.Sqrt(report.Variance)
	if report.Mean > 0 {
		report.CoefficientOfVariation = report.StdDev / report.Mean
	}
	report.FairnessScore = FairnessScore(report.Variance, report.Mean, horizonDays)
	return report
}

// FairnessScore maps a variance onto 0-100. 100 means every soldier got the
// same number of home days; 0 means the variance reached the largest value any
// distribution with this mean can have when each value lies in [0, horizonDays].
func FairnessScore(variance, mean float64, horizonDays int) float64 {
	maxVariance := mean * (float64(horizonDays) - mean)
	if maxVariance <= 0 {
		return 100
	}
	score := 100 * (1 - variance/maxVariance)
	return math.Max(0, math.Min(100, score))
}

// Optimize trades home days from the soldiers with the most accumulated leave
// to those with the least, one day at a time, as long as every invariant
// still holds. It returns the number of swaps made.
func (s *Scheduler) Optimize(schedule models.Schedule) int {
	roster := rosterIndex(s.Soldiers)
	dates := schedule.Dates()
	limit := len(dates) * len(s.Soldiers)

	accumulated := make(map[string]int, len(s.Soldiers))
	for _, soldier := range s.Soldiers {
		accumulated[soldier.ID] = soldier.HistoricalHomeDays + len(schedule.HomeDates(soldier.ID))
	}

	swaps := 0
	for swaps < limit {
		if !s.swapOnce(schedule, dates, roster, accumulated) {
			break
		}
		swaps++
	}

	s.recorder.ObserveOptimize(swaps)
	return swaps
}

func (s *Scheduler) swapOnce(schedule models.Schedule, dates []string, roster map[string]*models.Soldier, accumulated map[string]int) bool {
	byLeave := make([]*models.Soldier, len(s.Soldiers))
	copy(byLeave, s.Soldiers)
	sort.SliceStable(byLeave, func(i, j int) bool {
		a, b := byLeave[i], byLeave[j]
		if accumulated[a.ID] != accumulated[b.ID] {
			return accumulated[a.ID] > accumulated[b.ID]
		}
		return a.ID < b.ID
	})

	for _, donor := range byLeave {
		for r := len(byLeave) - 1; r >= 0; r-- {
			receiver := byLeave[r]
			if accumulated[donor.ID]-accumulated[receiver.ID] < 2 {
				break
			}
			for _, date := range dates {
				day := schedule[date]
				if !day.IsHome(donor.ID) || day.IsHome(receiver.ID) {
					continue
				}
				if req := donor.RequestFor(date); req != nil && req.Priority == models.PriorityMandatory {
					continue
				}
				trial := moveSoldiers(day, s.Soldiers, map[string]bool{receiver.ID: true, donor.ID: false})
				if checkDay(schedule, dates, date, trial, roster, s.Config, []string{receiver.ID}) != "" {
					continue
				}
				schedule[date] = trial
				accumulated[donor.ID]--
				accumulated[receiver.ID]++
				return true
			}
		}
	}
	return false
}
