package scheduler

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// Sentinel errors returned by the scheduler. Typed errors below match them with errors.Is.
var (
	// ErrConfiguration is returned when the roster or policy cannot produce a schedule.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrAssignmentInfeasible is returned when a date cannot be staffed.
	ErrAssignmentInfeasible = errors.New("assignment infeasible")

	// ErrInvariantViolation is returned when an edit would break a schedule invariant.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrNotFound is returned for unknown soldiers, dates or conflicts.
	ErrNotFound = errors.New("not found")

	// ErrUnknownAction is returned for unsupported edit or resolution actions.
	ErrUnknownAction = errors.New("unknown action")

	// ErrNoSchedule is returned when a session has no current schedule.
	ErrNoSchedule = errors.New("no current schedule")
)

// ConfigurationError lists every problem found before a run starts
type ConfigurationError struct {
	err error
}

func newConfigurationError(err error) *ConfigurationError {
	return &ConfigurationError{err: err}
}

// Problems returns the individual configuration problems
func (e *ConfigurationError) Problems() []string {
	errs := multierr.Errors(e.err)
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		out = append(out, err.Error())
	}
	return out
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrConfiguration, strings.Join(e.Problems(), "; "))
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// AssignmentInfeasibleError reports the date that could not be staffed
type AssignmentInfeasibleError struct {
	Date      string
	Needed    int
	Available int
	MaxStreak int
}

func (e *AssignmentInfeasibleError) Error() string {
	return fmt.Sprintf("%s: %s needs %d soldiers home but only %d are eligible under the %d-day trip limit",
		ErrAssignmentInfeasible, e.Date, e.Needed, e.Available, e.MaxStreak)
}

func (e *AssignmentInfeasibleError) Is(target error) bool {
	return target == ErrAssignmentInfeasible
}

// Shortfall is how many home slots could not be filled
func (e *AssignmentInfeasibleError) Shortfall() int {
	return e.Needed - e.Available
}

// InvariantViolationError explains why an edit was rejected
type InvariantViolationError struct {
	Date   string
	Reason string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("%s on %s: %s", ErrInvariantViolation, e.Date, e.Reason)
}

func (e *InvariantViolationError) Is(target error) bool {
	return target == ErrInvariantViolation
}
