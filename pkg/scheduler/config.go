package scheduler

import (
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/arnavshah/leave-scheduler-go/pkg/models"
)

// ValidateConfiguration checks the roster and policy before a run. It collects
// every problem rather than stopping at the first.
func ValidateConfiguration(soldiers []*models.Soldier, cfg models.Configuration) error {
	var errs error

	if len(soldiers) < cfg.SoldiersInBase {
		errs = multierr.Append(errs, fmt.Errorf("not enough soldiers: %d required at base, roster has %d",
			cfg.SoldiersInBase, len(soldiers)))
	}

	commanders := 0
	seen := make(map[string]bool, len(soldiers))
	for _, s := range soldiers {
		if s.IsCommander() {
			commanders++
		}
		if s.ID == "" {
			errs = multierr.Append(errs, fmt.Errorf("soldier %q has an empty id", s.Name))
			continue
		}
		if seen[s.ID] {
			errs = multierr.Append(errs, fmt.Errorf("duplicate soldier id %s", s.ID))
		}
		seen[s.ID] = true
		if s.HistoricalHomeDays < 0 {
			errs = multierr.Append(errs, fmt.Errorf("soldier %s has negative historical home days", s.ID))
		}
	}
	if commanders == 0 {
		errs = multierr.Append(errs, fmt.Errorf("roster has no commanders, at least one is required"))
	}

	errs = multierr.Append(errs, policyProblems(cfg))

	if errs != nil {
		return newConfigurationError(errs)
	}
	return nil
}

// ValidatePolicy checks the policy fields alone, without a roster
func ValidatePolicy(cfg models.Configuration) error {
	if errs := policyProblems(cfg); errs != nil {
		return newConfigurationError(errs)
	}
	return nil
}

func policyProblems(cfg models.Configuration) error {
	var errs error

	start, startErr := time.Parse(models.DateLayout, cfg.StartDate)
	end, endErr := time.Parse(models.DateLayout, cfg.EndDate)
	if startErr != nil || endErr != nil {
		errs = multierr.Append(errs, fmt.Errorf("start or end date is not a valid YYYY-MM-DD date"))
	} else if start.After(end) {
		errs = multierr.Append(errs, fmt.Errorf("start date %s is after end date %s", cfg.StartDate, cfg.EndDate))
	}

	if cfg.MaxConsecutiveDaysInOneTrip <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("max consecutive days in one trip must be greater than 0"))
	}
	if cfg.MinConsecutiveDays <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("min consecutive days must be greater than 0"))
	}
	if cfg.SoldiersInBase <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("soldiers in base must be greater than 0"))
	}

	if startErr == nil && endErr == nil && !start.After(end) && cfg.MinConsecutiveDays > 0 {
		days := int(end.Sub(start).Hours()/24) + 1
		if days < cfg.MinConsecutiveDays {
			errs = multierr.Append(errs, fmt.Errorf("horizon too short: %d days, at least %d required",
				days, cfg.MinConsecutiveDays))
		}
	}

	return errs
}
