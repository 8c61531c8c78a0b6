package calendar

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/leave-scheduler-go/pkg/models"
)

func testCalendar(weekends bool) *Calendar {
	return New(
		[]models.DayWeight{{Date: "2025-01-04", Name: "Festival"}, {Date: "2025-01-06", Name: "Fast", Weight: 9}},
		[]models.DayWeight{{Date: "2025-01-01", Name: "New year"}, {Date: "2025-01-06", Weight: 2}},
		weekends,
	)
}

func TestInfo(t *testing.T) {
	cal := testCalendar(true)

	tests := []struct {
		date string
		want Day
	}{
		{"2025-01-01", Day{Date: "2025-01-01", Name: "New year", Kind: KindHighDemand, Weight: 5, Weekday: "Wednesday"}},
		{"2025-01-02", Day{Date: "2025-01-02", Kind: KindRegular, Weight: 1, Weekday: "Thursday"}},
		{"2025-01-03", Day{Date: "2025-01-03", Kind: KindWeekend, Weight: 5, Weekday: "Friday"}},
		{"2025-01-04", Day{Date: "2025-01-04", Name: "Festival", Kind: KindHoliday, Weight: 7.5, Weekday: "Saturday"}},
		{"2025-01-06", Day{Date: "2025-01-06", Name: "Fast", Kind: KindHoliday, Weight: 9, Weekday: "Monday"}},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			got, err := cal.Info(tt.date)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Info(%s) mismatch (-want +got):\n%s", tt.date, diff)
			}
		})
	}

	_, err := cal.Info("01/02/2025")
	assert.Error(t, err)
}

func TestWeight_WeekendsOff(t *testing.T) {
	cal := testCalendar(false)
	assert.Equal(t, 1.0, cal.Weight("2025-01-03"))
	assert.False(t, cal.IsHighDemand("2025-01-03"))
	assert.Equal(t, 7.5, cal.Weight("2025-01-04"))
	assert.Equal(t, 1.0, cal.Weight("garbage"))
}

func TestHighDemandRange(t *testing.T) {
	cal := testCalendar(true)

	days, err := cal.HighDemandRange("2025-01-01", "2025-01-07")
	require.NoError(t, err)

	var dates []string
	for _, d := range days {
		dates = append(dates, d.Date)
	}
	assert.Equal(t, []string{"2025-01-01", "2025-01-03", "2025-01-04", "2025-01-06"}, dates)

	_, err = cal.HighDemandRange("2025-01-07", "2025-01-01")
	assert.Error(t, err)
}

func TestHolidays(t *testing.T) {
	cal := testCalendar(true)
	got, err := cal.Holidays("2025-01-05", "2025-01-31")
	require.NoError(t, err)
	assert.Equal(t, []models.DayWeight{{Date: "2025-01-06", Name: "Fast", Weight: 9}}, got)
}

func TestWeekends(t *testing.T) {
	dates, err := Weekends("2025-01-01", "2025-01-11")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-03", "2025-01-04", "2025-01-10", "2025-01-11"}, dates)

	_, err = Weekends("bad", "2025-01-11")
	assert.Error(t, err)
}

func TestWeight_MatchesConfiguration(t *testing.T) {
	cfg := models.Configuration{
		Holidays:       []models.DayWeight{{Date: "2025-01-04", Name: "Festival"}, {Date: "2025-01-06", Name: "Fast", Weight: 9}},
		HighDemandDays: []models.DayWeight{{Date: "2025-01-01", Name: "New year"}, {Date: "2025-01-06", Weight: 2}},
	}
	cal := FromConfiguration(cfg, false)
	for _, date := range []string{"2025-01-01", "2025-01-02", "2025-01-04", "2025-01-06"} {
		assert.Equal(t, cal.Weight(date), cfg.DayWeight(date), date)
	}
}
