package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/arnavshah/leave-scheduler-go/pkg/models"
)

func testSchedule() models.Schedule {
	return models.Schedule{
		"2025-01-02": {Home: []string{}, Base: []string{"c1", "r1", "r2"},
			Conflicts: []models.DayConflict{{SoldierID: "r1", Reason: "preferred_request_denied"}}},
		"2025-01-01": {Home: []string{"r1", "x9"}, Base: []string{"c1"}},
	}
}

func TestWriteText(t *testing.T) {
	soldiers := []*models.Soldier{{ID: "c1", Name: "Dana"}, {ID: "r1", Name: "Avi"}, {ID: "r2", Name: "Noa"}}

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, testSchedule(), soldiers))

	want := "Leave schedule\n" +
		"==============\n" +
		"\n" +
		"Date: 2025-01-01\n" +
		"Home: Avi, soldier x9\n" +
		"At base: 1 soldiers\n" +
		"\n" +
		"Date: 2025-01-02\n" +
		"Home: none\n" +
		"At base: 3 soldiers\n" +
		"Conflicts: 1\n" +
		"\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, testSchedule()))

	want := "date,home,base,home_count,base_count,conflicts\n" +
		"2025-01-01,r1|x9,c1,2,1,0\n" +
		"2025-01-02,,c1|r1|r2,0,3,1\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteSoldierStatsCSV(t *testing.T) {
	var buf bytes.Buffer
	stats := []models.SoldierStats{{ID: "r1", Name: "Avi, Jr", HomeDays: 3, TargetHomeDays: 4, IsEmergencyReserve: true}}
	require.NoError(t, WriteSoldierStatsCSV(&buf, stats))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `r1,"Avi, Jr",3,4,0,0,0,true`, lines[1])
}

func TestReadHistory(t *testing.T) {
	in := "name,soldier_id,home_days\nAvi,r1,4\nNoa, r2 ,0\n"
	entries, err := ReadHistory(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []HistoryEntry{{SoldierID: "r1", HomeDays: 4}, {SoldierID: "r2", HomeDays: 0}}, entries)

	entries, err = ReadHistory(strings.NewReader("id,home_days\nc1,2\n"))
	require.NoError(t, err)
	assert.Equal(t, []HistoryEntry{{SoldierID: "c1", HomeDays: 2}}, entries)
}

func TestReadHistory_Errors(t *testing.T) {
	_, err := ReadHistory(strings.NewReader("name,home_days\nAvi,4\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = ReadHistory(strings.NewReader("soldier_id,days\nr1,4\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = ReadHistory(strings.NewReader(""))
	assert.Error(t, err)

	in := "soldier_id,home_days\nr1,4\nr2,many\n,3\nr4,-1\nr5\n"
	_, err = ReadHistory(strings.NewReader(in))
	require.Error(t, err)
	errs := multierr.Errors(err)
	require.Len(t, errs, 4)
	assert.EqualError(t, errs[0], `line 3: invalid home_days "many"`)
	assert.EqualError(t, errs[1], "line 4: empty soldier id")
	assert.EqualError(t, errs[2], `line 5: invalid home_days "-1"`)
	assert.EqualError(t, errs[3], "line 6: expected 2 fields, got 1")
}

func TestReadHistory_ReaderFailure(t *testing.T) {
	errDisk := errors.New("disk gone")
	r := io.MultiReader(strings.NewReader("soldier_id,home_days\nr1,4\n"), iotest.ErrReader(errDisk))

	entries, err := ReadHistory(r)
	assert.ErrorIs(t, err, errDisk)
	assert.Nil(t, entries)
}

func TestReadHistory_SkipsMalformedRows(t *testing.T) {
	_, err := ReadHistory(strings.NewReader("soldier_id,home_days\nr1,4\nr\"2,1\nr3,2\n"))
	require.Error(t, err)
	errs := multierr.Errors(err)
	require.Len(t, errs, 1)
	var parseErr *csv.ParseError
	assert.ErrorAs(t, errs[0], &parseErr)
}
