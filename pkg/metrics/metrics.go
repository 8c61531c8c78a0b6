package metrics

import "time"

// Recorder receives scheduling events. Implementations must be cheap; the
// scheduler calls them inline.
type Recorder interface {
	// ObserveGenerate records one generate run by outcome (success, configuration_error, infeasible).
	ObserveGenerate(outcome string, duration time.Duration)

	// SetFairnessScore publishes the fairness score of the current schedule.
	SetFairnessScore(score float64)

	// AddConflicts counts conflicts recorded for a reason code.
	AddConflicts(reason string, n int)

	// IncRepair counts command-presence repairs by result (swapped, rotated, unrepairable).
	IncRepair(result string)

	// ObserveOptimize records the swaps made by one optimize pass.
	ObserveOptimize(swaps int)

	// IncResolution counts conflict resolutions by action and outcome.
	IncResolution(action, outcome string)
}

// Nop discards every metric.
type Nop struct{}

var _ Recorder = Nop{}

// NewNop creates a new no-op recorder.
func NewNop() Nop {
	return Nop{}
}

func (Nop) ObserveGenerate(string, time.Duration) {}
func (Nop) SetFairnessScore(float64)              {}
func (Nop) AddConflicts(string, int)              {}
func (Nop) IncRepair(string)                      {}
func (Nop) ObserveOptimize(int)                   {}
func (Nop) IncResolution(string, string)          {}
