// Package export renders schedules as text and CSV and reads historical
// leave from CSV.
package export

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"github.com/arnavshah/leave-scheduler-go/pkg/models"
)

// ListSeparator joins soldier ids inside one CSV cell
const ListSeparator = "|"

func names(soldiers []*models.Soldier) map[string]string {
	out := make(map[string]string, len(soldiers))
	for _, s := range soldiers {
		out[s.ID] = s.Name
	}
	return out
}

func displayName(byID map[string]string, id string) string {
	if name := byID[id]; name != "" {
		return name
	}
	return "soldier " + id
}

// WriteText renders the schedule as a plain-text report, one block per date
func WriteText(w io.Writer, schedule models.Schedule, soldiers []*models.Soldier) error {
	byID := names(soldiers)
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "Leave schedule")
	fmt.Fprintln(bw, "==============")
	fmt.Fprintln(bw)
	for _, date := range schedule.Dates() {
		day := schedule[date]
		home := "none"
		if len(day.Home) > 0 {
			list := make([]string, 0, len(day.Home))
			for _, id := range day.Home {
				list = append(list, displayName(byID, id))
			}
			home = strings.Join(list, ", ")
		}

		fmt.Fprintf(bw, "Date: %s\n", date)
		fmt.Fprintf(bw, "Home: %s\n", home)
		fmt.Fprintf(bw, "At base: %d soldiers\n", len(day.Base))
		if len(day.Conflicts) > 0 {
			fmt.Fprintf(bw, "Conflicts: %d\n", len(day.Conflicts))
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

// WriteCSV writes one row per date
func WriteCSV(w io.Writer, schedule models.Schedule) error {
	writer := csv.NewWriter(w)
	_ = writer.Write([]string{"date", "home", "base", "home_count", "base_count", "conflicts"})
	for _, date := range schedule.Dates() {
		day := schedule[date]
		_ = writer.Write([]string{
			date,
			strings.Join(day.Home, ListSeparator),
			strings.Join(day.Base, ListSeparator),
			strconv.Itoa(len(day.Home)),
			strconv.Itoa(len(day.Base)),
			strconv.Itoa(len(day.Conflicts)),
		})
	}
	writer.Flush()
	return writer.Error()
}

// WriteSoldierStatsCSV writes one row per soldier
func WriteSoldierStatsCSV(w io.Writer, stats []models.SoldierStats) error {
	writer := csv.NewWriter(w)
	_ = writer.Write([]string{
		"id", "name", "home_days", "target_home_days", "historical_home_days",
		"requested_days", "mandatory_requests", "is_emergency_reserve",
	})
	for _, s := range stats {
		_ = writer.Write([]string{
			s.ID,
			s.Name,
			strconv.Itoa(s.HomeDays),
			strconv.Itoa(s.TargetHomeDays),
			strconv.Itoa(s.HistoricalHomeDays),
			strconv.Itoa(s.RequestedDays),
			strconv.Itoa(s.MandatoryRequests),
			strconv.FormatBool(s.IsEmergencyReserve),
		})
	}
	writer.Flush()
	return writer.Error()
}

// HistoryEntry is one row of a history import
type HistoryEntry struct {
	SoldierID string `json:"soldier_id"`
	HomeDays  int    `json:"home_days"`
}

// ErrMissingColumn is returned when a history file lacks a required column
var ErrMissingColumn = errors.New("missing column")

// ReadHistory parses a CSV of past home days. The header must name a
// soldier_id (or id) column and a home_days column; other columns are
// ignored. Every bad row is reported, with its line number.
func ReadHistory(r io.Reader) ([]HistoryEntry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols := make(map[string]int)
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	idCol, ok := cols["soldier_id"]
	if !ok {
		if idCol, ok = cols["id"]; !ok {
			return nil, fmt.Errorf("soldier_id: %w", ErrMissingColumn)
		}
	}
	daysCol, ok := cols["home_days"]
	if !ok {
		return nil, fmt.Errorf("home_days: %w", ErrMissingColumn)
	}

	var (
		entries []HistoryEntry
		errs    error
	)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			errs = multierr.Append(errs, err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read history: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if idCol >= len(record) || daysCol >= len(record) {
			errs = multierr.Append(errs, fmt.Errorf("line %d: expected %d fields, got %d", line, len(header), len(record)))
			continue
		}
		id := strings.TrimSpace(record[idCol])
		if id == "" {
			errs = multierr.Append(errs, fmt.Errorf("line %d: empty soldier id", line))
			continue
		}
		days, err := strconv.Atoi(strings.TrimSpace(record[daysCol]))
		if err != nil || days < 0 {
			errs = multierr.Append(errs, fmt.Errorf("line %d: invalid home_days %q", line, record[daysCol]))
			continue
		}
		entries = append(entries, HistoryEntry{SoldierID: id, HomeDays: days})
	}
	if errs != nil {
		return nil, errs
	}
	return entries, nil
}
