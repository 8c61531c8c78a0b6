package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/arnavshah/leave-scheduler-go/pkg/models"
)

// rosterFile is the on-disk input of the offline commands
type rosterFile struct {
	Configuration models.Configuration `yaml:"configuration"`
	Soldiers      []*models.Soldier    `yaml:"soldiers"`
}

// readRoster decodes a roster file. Unknown keys are rejected and zero policy
// values take the defaults.
func readRoster(r io.Reader) (*rosterFile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file rosterFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("roster file is empty")
		}
		return nil, fmt.Errorf("decode roster: %w", err)
	}

	defaults := models.DefaultConfiguration()
	cfg := &file.Configuration
	if cfg.SoldiersInBase == 0 {
		cfg.SoldiersInBase = defaults.SoldiersInBase
	}
	if cfg.MinConsecutiveDays == 0 {
		cfg.MinConsecutiveDays = defaults.MinConsecutiveDays
	}
	if cfg.MaxConsecutiveDaysInOneTrip == 0 {
		cfg.MaxConsecutiveDaysInOneTrip = defaults.MaxConsecutiveDaysInOneTrip
	}
	for _, s := range file.Soldiers {
		if s.Role == "" {
			s.Role = models.RoleRegular
		}
		if s.IsEmergencyReserve {
			cfg.EmergencyReserve = append(cfg.EmergencyReserve, s.ID)
		}
	}
	return &file, nil
}

func loadRoster(path string) (*rosterFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readRoster(f)
}
