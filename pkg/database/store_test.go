package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/leave-scheduler-go/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open("", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	return store
}

func TestSoldiers(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.CreateSoldier(&models.Soldier{ID: "c1", Name: "Dana", Role: models.RoleCommander}))
	require.NoError(t, store.CreateSoldier(&models.Soldier{
		ID:   "a1",
		Name: "Avi",
		Role: models.RoleRegular,
		Requests: []models.Request{
			{Date: "2025-01-03", Priority: models.PriorityPreferred},
			{Date: "2025-01-02", Priority: models.PriorityMandatory},
		},
	}))

	soldiers, err := store.ListSoldiers()
	require.NoError(t, err)
	require.Len(t, soldiers, 2)
	assert.Equal(t, "c1", soldiers[0].ID, "insertion order, not id order")
	assert.Equal(t, "a1", soldiers[1].ID)
	require.Len(t, soldiers[1].Requests, 2)
	assert.Equal(t, "2025-01-02", soldiers[1].Requests[0].Date)
	assert.Equal(t, models.StatusPending, soldiers[1].Requests[0].Status)
	assert.NotEmpty(t, soldiers[1].Requests[0].ID)

	a1 := soldiers[1]
	a1.HistoricalHomeDays = 4
	a1.Phone = "050-1234567"
	require.NoError(t, store.UpdateSoldier(a1))
	require.NoError(t, store.AddHistory("a1", 3))

	got, err := store.GetSoldier("a1")
	require.NoError(t, err)
	assert.Equal(t, 7, got.HistoricalHomeDays)
	assert.Equal(t, "050-1234567", got.Phone)

	err = store.AddHistories(map[string]int{"a1": 1, "nobody": 2})
	assert.ErrorIs(t, err, ErrNotFound)
	got, err = store.GetSoldier("a1")
	require.NoError(t, err)
	assert.Equal(t, 7, got.HistoricalHomeDays, "failed import leaves history alone")
	require.NoError(t, store.AddHistories(map[string]int{"a1": 2, "c1": 1}))
	got, err = store.GetSoldier("a1")
	require.NoError(t, err)
	assert.Equal(t, 9, got.HistoricalHomeDays)

	require.NoError(t, store.DeleteSoldier("a1"))
	_, err = store.GetSoldier("a1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.DeleteSoldier("a1"), ErrNotFound)
	assert.ErrorIs(t, store.UpdateSoldier(&models.Soldier{ID: "nobody"}), ErrNotFound)
	assert.ErrorIs(t, store.AddHistory("nobody", 1), ErrNotFound)
}

func TestRequests(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.CreateSoldier(&models.Soldier{ID: "r1", Name: "Noa", Role: models.RoleRegular}))

	req := &models.Request{Date: "2025-01-05", Priority: models.PriorityMandatory, Reason: "wedding"}
	require.NoError(t, store.AddRequest("r1", req))
	assert.NotEmpty(t, req.ID)
	assert.ErrorIs(t, store.AddRequest("nobody", &models.Request{Date: "2025-01-05"}), ErrNotFound)

	soldiers, err := store.ListSoldiers()
	require.NoError(t, err)
	soldiers[0].Requests[0].Status = models.StatusApproved
	soldiers[0].Requests = append(soldiers[0].Requests, models.Request{
		Date: "2025-01-09", Priority: models.PriorityMandatory, Status: models.StatusApproved,
	})
	require.NoError(t, store.SaveRequests(soldiers))

	got, err := store.GetSoldier("r1")
	require.NoError(t, err)
	require.Len(t, got.Requests, 2)
	assert.Equal(t, models.StatusApproved, got.Requests[0].Status)
	assert.Equal(t, "wedding", got.Requests[0].Reason)
	assert.Equal(t, "2025-01-09", got.Requests[1].Date)

	require.NoError(t, store.DeleteRequest("r1", req.ID))
	assert.ErrorIs(t, store.DeleteRequest("r1", req.ID), ErrNotFound)
}

func TestConfiguration(t *testing.T) {
	store := newTestStore(t)
	defaults := models.DefaultConfiguration()

	cfg, err := store.LoadConfiguration(defaults)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.SoldiersInBase)
	assert.Empty(t, cfg.Holidays)

	cfg.StartDate, cfg.EndDate = "2025-01-01", "2025-01-31"
	cfg.SoldiersInBase = 3
	require.NoError(t, store.SaveConfiguration(cfg))
	require.NoError(t, store.SaveConfiguration(cfg))

	require.NoError(t, store.AddDayWeight(KindHoliday, models.DayWeight{Date: "2025-01-10", Name: "Festival", Weight: 7.5}))
	require.NoError(t, store.AddDayWeight(KindHoliday, models.DayWeight{Date: "2025-01-10", Name: "Festival day", Weight: 8}))
	require.NoError(t, store.AddDayWeight(KindHighDemand, models.DayWeight{Date: "2025-01-04", Weight: 5}))

	require.NoError(t, store.CreateSoldier(&models.Soldier{ID: "r1", Name: "Noa", Role: models.RoleRegular}))
	require.NoError(t, store.SetEmergencyReserve("r1", true))
	assert.ErrorIs(t, store.SetEmergencyReserve("nobody", true), ErrNotFound)

	cfg, err = store.LoadConfiguration(defaults)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01", cfg.StartDate)
	assert.Equal(t, 3, cfg.SoldiersInBase)
	assert.Equal(t, []models.DayWeight{{Date: "2025-01-10", Name: "Festival day", Weight: 8}}, cfg.Holidays)
	assert.Equal(t, []models.DayWeight{{Date: "2025-01-04", Weight: 5}}, cfg.HighDemandDays)
	assert.Equal(t, []string{"r1"}, cfg.EmergencyReserve)

	require.NoError(t, store.DeleteDayWeight(KindHighDemand, "2025-01-04"))
	assert.ErrorIs(t, store.DeleteDayWeight(KindHighDemand, "2025-01-04"), ErrNotFound)
}

func TestSnapshotAndRuns(t *testing.T) {
	store := newTestStore(t)

	_, err := store.LoadSnapshot()
	assert.ErrorIs(t, err, ErrNotFound)

	schedule := models.Schedule{
		"2025-01-01": {Home: []string{"r1"}, Base: []string{"c1", "r2"}},
	}
	conflicts := []models.Conflict{{ID: "x", Date: "2025-01-01", SoldierID: "r2", Reason: models.ReasonPreferredDenied}}
	require.NoError(t, store.SaveSnapshot(schedule, conflicts, 2))

	snap, err := store.LoadSnapshot()
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, snap.Schedule["2025-01-01"].Home)
	assert.Equal(t, 2, snap.Resolved)
	require.Len(t, snap.Conflicts, 1)
	assert.Equal(t, models.ReasonPreferredDenied, snap.Conflicts[0].Reason)

	require.NoError(t, store.DeleteSnapshot())
	_, err = store.LoadSnapshot()
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.RecordRun(&ScheduleRun{Days: 7, Soldiers: 6, FairnessScore: 90}))
	require.NoError(t, store.RecordRun(&ScheduleRun{Days: 14, Soldiers: 6, FairnessScore: 95}))
	runs, err := store.ListRuns(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 14, runs[0].Days)
}

func TestAPIKeysAndUsers(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

	key, err := store.TouchAPIKey("ops.abcdef0123456789", "ops", now)
	require.NoError(t, err)
	assert.Equal(t, "ops", key.Name)
	assert.Equal(t, "ops...6789", key.KeyPreview)

	again, err := store.TouchAPIKey("ops.abcdef0123456789", "ops", now)
	require.NoError(t, err)
	assert.Equal(t, key.ID, again.ID)

	n, err := store.RecordKeyUsage(key.ID, "2025-01-01")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = store.RecordKeyUsage(key.ID, "2025-01-01")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	usage, err := store.KeyUsageHistory(key.ID)
	require.NoError(t, err)
	require.Len(t, usage, 1)

	require.NoError(t, store.UpdateKeyLimit(key.ID, 50))
	keys, err := store.ListAPIKeys()
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, 50, keys[0].RateLimit)

	require.NoError(t, store.RevokeAPIKey(key.ID))
	assert.ErrorIs(t, store.RevokeAPIKey(key.ID), ErrNotFound)
	assert.ErrorIs(t, store.UpdateKeyLimit(key.ID, 5), ErrNotFound)

	count, err := store.CountUsers()
	require.NoError(t, err)
	assert.Zero(t, count)
	require.NoError(t, store.CreateUser(&MasterUser{Username: "admin", PasswordHash: "x"}))
	user, err := store.FindUser("admin")
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Username)
	_, err = store.FindUser("ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, "****", Preview("short"))
}

func TestSaveResolutionIsAtomic(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.CreateSoldier(&models.Soldier{ID: "r1", Name: "Noa", Role: models.RoleRegular}))
	require.NoError(t, store.AddRequest("r1", &models.Request{Date: "2025-01-02", Priority: models.PriorityMandatory}))

	soldiers, err := store.ListSoldiers()
	require.NoError(t, err)
	soldiers[0].Requests[0].Status = models.StatusRejected
	schedule := models.Schedule{"2025-01-02": {Home: []string{"r1"}}}

	require.NoError(t, store.DB().Migrator().DropTable(&ScheduleSnapshot{}))
	assert.Error(t, store.SaveResolution(soldiers, schedule, nil, 1))

	got, err := store.GetSoldier("r1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Requests[0].Status)

	require.NoError(t, store.DB().AutoMigrate(&ScheduleSnapshot{}))
	require.NoError(t, store.SaveResolution(soldiers, schedule, nil, 1))
	got, err = store.GetSoldier("r1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, got.Requests[0].Status)
	snap, err := store.LoadSnapshot()
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Resolved)
}
