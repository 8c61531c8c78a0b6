// Package calendar classifies dates as holidays, high-demand days, weekends
// or ordinary days and assigns each a demand weight.
package calendar

import (
	"fmt"
	"sort"
	"time"

	"github.com/arnavshah/leave-scheduler-go/pkg/models"
)

// Kind of a calendar day
type Kind string

const (
	KindHoliday    Kind = "holiday"
	KindHighDemand Kind = "high_demand"
	KindWeekend    Kind = "weekend"
	KindRegular    Kind = "regular"
)

// WeekendWeight is the weight of a Friday or Saturday with no other marking
const WeekendWeight = models.HighDemandWeight

// Day describes one date
type Day struct {
	Date    string  `json:"date"`
	Name    string  `json:"name,omitempty"`
	Kind    Kind    `json:"kind"`
	Weight  float64 `json:"weight"`
	Weekday string  `json:"weekday"`
}

// HighDemand reports whether the day weighs more than an ordinary day
func (d Day) HighDemand() bool {
	return d.Weight > 1
}

// Calendar answers weight lookups for a set of marked dates
type Calendar struct {
	holidays   map[string]models.DayWeight
	highDemand map[string]models.DayWeight
	weekends   bool
}

// New builds a calendar. Entries with no weight get the default weight of
// their kind. With weekends set, Fridays and Saturdays count as high demand.
func New(holidays, highDemand []models.DayWeight, weekends bool) *Calendar {
	c := &Calendar{
		holidays:   make(map[string]models.DayWeight, len(holidays)),
		highDemand: make(map[string]models.DayWeight, len(highDemand)),
		weekends:   weekends,
	}
	for _, h := range holidays {
		if h.Weight <= 0 {
			h.Weight = models.HolidayWeight
		}
		c.holidays[h.Date] = h
	}
	for _, d := range highDemand {
		if d.Weight <= 0 {
			d.Weight = models.HighDemandWeight
		}
		c.highDemand[d.Date] = d
	}
	return c
}

// FromConfiguration builds a calendar from a policy's marked days
func FromConfiguration(cfg models.Configuration, weekends bool) *Calendar {
	return New(cfg.Holidays, cfg.HighDemandDays, weekends)
}

// Info classifies a date. Holidays outrank high-demand days, which outrank
// weekends.
func (c *Calendar) Info(date string) (Day, error) {
	t, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return Day{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return c.classify(t), nil
}

func (c *Calendar) classify(t time.Time) Day {
	date := t.Format(models.DateLayout)
	day := Day{Date: date, Kind: KindRegular, Weight: 1, Weekday: t.Weekday().String()}
	if h, ok := c.holidays[date]; ok {
		day.Kind, day.Name, day.Weight = KindHoliday, h.Name, h.Weight
		return day
	}
	if d, ok := c.highDemand[date]; ok {
		day.Kind, day.Name, day.Weight = KindHighDemand, d.Name, d.Weight
		return day
	}
	if c.weekends && IsWeekend(t) {
		day.Kind, day.Weight = KindWeekend, WeekendWeight
	}
	return day
}

// Weight returns the demand weight of a date; unparseable dates weigh 1.
// It has the shape of scheduler.DayWeightFunc.
func (c *Calendar) Weight(date string) float64 {
	day, err := c.Info(date)
	if err != nil {
		return 1
	}
	return day.Weight
}

// IsHighDemand reports whether the date weighs more than an ordinary day
func (c *Calendar) IsHighDemand(date string) bool {
	return c.Weight(date) > 1
}

// Range returns every day in [start, end]
func (c *Calendar) Range(start, end string) ([]Day, error) {
	from, to, err := parseRange(start, end)
	if err != nil {
		return nil, err
	}
	var days []Day
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, c.classify(d))
	}
	return days, nil
}

// HighDemandRange returns the high-demand days in [start, end], one entry per
// date in date order
func (c *Calendar) HighDemandRange(start, end string) ([]Day, error) {
	days, err := c.Range(start, end)
	if err != nil {
		return nil, err
	}
	out := days[:0]
	for _, d := range days {
		if d.HighDemand() {
			out = append(out, d)
		}
	}
	return out, nil
}

// Holidays returns the marked holidays in [start, end] by date
func (c *Calendar) Holidays(start, end string) ([]models.DayWeight, error) {
	if _, _, err := parseRange(start, end); err != nil {
		return nil, err
	}
	var out []models.DayWeight
	for date, h := range c.holidays {
		if date >= start && date <= end {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// Weekends lists the Fridays and Saturdays in [start, end]
func Weekends(start, end string) ([]string, error) {
	from, to, err := parseRange(start, end)
	if err != nil {
		return nil, err
	}
	var dates []string
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if IsWeekend(d) {
			dates = append(dates, d.Format(models.DateLayout))
		}
	}
	return dates, nil
}

// IsWeekend reports whether t falls on Friday or Saturday
func IsWeekend(t time.Time) bool {
	return t.Weekday() == time.Friday || t.Weekday() == time.Saturday
}

func parseRange(start, end string) (time.Time, time.Time, error) {
	from, err := time.Parse(models.DateLayout, start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	to, err := time.Parse(models.DateLayout, end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: %w", end, err)
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("start date %s is after end date %s", start, end)
	}
	return from, to, nil
}
