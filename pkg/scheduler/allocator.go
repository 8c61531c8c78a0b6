package scheduler

import (
	"math"
	"sort"

	"github.com/arnavshah/leave-scheduler-go/pkg/models"
)

// Quota is a soldier's leave target for one horizon
type Quota struct {
	SoldierID string  `json:"soldier_id"`
	Weight    float64 `json:"weight"`
	Target    int     `json:"target"`
}

// TotalHomeSlots is the number of home days a horizon hands out
func TotalHomeSlots(rosterSize, horizonDays, soldiersInBase int) int {
	slots := horizonDays * (rosterSize - soldiersInBase)
	if slots < 0 {
		return 0
	}
	return slots
}

// AllocateQuotas splits the horizon's home slots across the roster. Soldiers
// with less historical leave get a larger weight and so a larger share. The
// returned quotas are in roster order and sum to TotalHomeSlots exactly.
func AllocateQuotas(soldiers []*models.Soldier, horizonDays, soldiersInBase int) []Quota {
	quotas := make([]Quota, len(soldiers))
	if len(soldiers) == 0 {
		return quotas
	}
	total := TotalHomeSlots(len(soldiers), horizonDays, soldiersInBase)

	var historySum float64
	for _, s := range soldiers {
		historySum += float64(s.HistoricalHomeDays)
	}
	average := historySum / float64(len(soldiers))

	var weightSum float64
	for i, s := range soldiers {
		w := math.Max(1, average-float64(s.HistoricalHomeDays)+1)
		quotas[i] = Quota{SoldierID: s.ID, Weight: w}
		weightSum += w
	}

	assigned := 0
	for i := range quotas {
		quotas[i].Target = int(math.Round(quotas[i].Weight / weightSum * float64(total)))
		assigned += quotas[i].Target
	}

	// Residual units go to the heaviest weights first and come back from the
	// lightest first, so quotas stay monotone in history.
	order := make([]int, len(quotas))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		qa, qb := quotas[order[a]], quotas[order[b]]
		if qa.Weight != qb.Weight {
			return qa.Weight > qb.Weight
		}
		ha, hb := soldiers[order[a]].HistoricalHomeDays, soldiers[order[b]].HistoricalHomeDays
		if ha != hb {
			return ha < hb
		}
		return qa.SoldierID < qb.SoldierID
	})

	residual := total - assigned
	for residual > 0 {
		for _, i := range order {
			if residual == 0 {
				break
			}
			quotas[i].Target++
			residual--
		}
	}
	for residual < 0 {
		moved := false
		for j := len(order) - 1; j >= 0 && residual < 0; j-- {
			i := order[j]
			if quotas[i].Target > 0 {
				quotas[i].Target--
				residual++
				moved = true
			}
		}
		if !moved {
			break
		}
	}

	return quotas
}
