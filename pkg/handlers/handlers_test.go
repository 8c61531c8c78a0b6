package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/arnavshah/leave-scheduler-go/pkg/auth"
	"github.com/arnavshah/leave-scheduler-go/pkg/config"
	"github.com/arnavshah/leave-scheduler-go/pkg/database"
	"github.com/arnavshah/leave-scheduler-go/pkg/metrics"
	"github.com/arnavshah/leave-scheduler-go/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
	auth.PasswordCost = bcrypt.MinCost
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details"`
}

type testEnv struct {
	t      *testing.T
	store  *database.Store
	cfg    *config.Config
	auth   *auth.Manager
	router *gin.Engine
	token  string
}

func newHandler(t *testing.T, store *database.Store, cfg *config.Config, mgr *auth.Manager) (*Handler, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	h, err := New(store, mgr, cfg, zap.NewNop(), metrics.NewPrometheus(reg, ""), reg)
	require.NoError(t, err)
	return h, reg
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := database.Open("", filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	cfg, err := config.FromViper(config.NewViper())
	require.NoError(t, err)
	mgr := auth.NewManager("jwt-secret", "master-secret", time.Hour)
	require.NoError(t, auth.EnsureAdminExists(store, "admin", "admin123", zap.NewNop()))

	h, _ := newHandler(t, store, cfg, mgr)
	env := &testEnv{t: t, store: store, cfg: cfg, auth: mgr, router: NewRouter(h)}

	w, body := env.do(http.MethodPost, "/api/auth/login", gin.H{"username": "admin", "password": "admin123"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &login))
	env.token = login.AccessToken
	return env
}

func (e *testEnv) do(method, path string, payload interface{}, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	e.t.Helper()
	var reader *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(e.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var body envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(e.t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	}
	return w, body
}

func (e *testEnv) admin(method, path string, payload interface{}) (*httptest.ResponseRecorder, envelope) {
	e.t.Helper()
	return e.do(method, path, payload, map[string]string{"Authorization": "Bearer " + e.token})
}

func (e *testEnv) seedSixSoldiers() {
	e.t.Helper()
	for _, s := range []struct{ id, name, role string }{
		{"c1", "Dana", "commander"}, {"c2", "Omer", "commander"},
		{"r1", "Avi", "regular"}, {"r2", "Noa", "regular"}, {"r3", "Lior", "regular"}, {"r4", "Maya", "regular"},
	} {
		w, _ := e.admin(http.MethodPost, "/api/soldiers", gin.H{"id": s.id, "name": s.name, "role": s.role})
		require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	}
}

func (e *testEnv) setPolicy(start, end string, base, minDays, maxDays int) {
	e.t.Helper()
	w, _ := e.admin(http.MethodPut, "/api/scheduling/configuration", gin.H{
		"start_date":                       start,
		"end_date":                         end,
		"soldiers_in_base":                 base,
		"min_consecutive_days":             minDays,
		"max_consecutive_days_in_one_trip": maxDays,
	})
	require.Equal(e.t, http.StatusOK, w.Code, w.Body.String())
}

func TestHealth(t *testing.T) {
	env := newEnv(t)
	w, body := env.do(http.MethodGet, "/api/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, body.Success)
	assert.Contains(t, string(body.Data), `"has_schedule":false`)
}

func TestAuth(t *testing.T) {
	env := newEnv(t)

	w, body := env.do(http.MethodGet, "/api/soldiers", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, body.Success)

	w, _ = env.do(http.MethodPost, "/api/soldiers", gin.H{"name": "x"}, map[string]string{"Authorization": "Bearer junk"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = env.do(http.MethodPost, "/api/auth/login", gin.H{"username": "admin", "password": "nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = env.do(http.MethodPost, "/api/auth/login", gin.H{"username": "ghost", "password": "nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = env.do(http.MethodPost, "/api/auth/login", gin.H{"username": "admin"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = env.admin(http.MethodGet, "/api/soldiers", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(body.Data))
}

func TestSoldierCRUD(t *testing.T) {
	env := newEnv(t)

	w, body := env.admin(http.MethodPost, "/api/soldiers", gin.H{"name": "Avi"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.Soldier
	require.NoError(t, json.Unmarshal(body.Data, &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.RoleRegular, created.Role)

	w, _ = env.admin(http.MethodPost, "/api/soldiers", gin.H{"name": "Bad", "role": "general"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = env.admin(http.MethodPost, "/api/soldiers", gin.H{"id": created.ID, "name": "Dup"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = env.admin(http.MethodPut, "/api/soldiers/"+created.ID, gin.H{"phone": "050-1111111", "historical_home_days": 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated models.Soldier
	require.NoError(t, json.Unmarshal(body.Data, &updated))
	assert.Equal(t, "Avi", updated.Name)
	assert.Equal(t, "050-1111111", updated.Phone)
	assert.Equal(t, 3, updated.HistoricalHomeDays)

	w, _ = env.admin(http.MethodPost, "/api/soldiers/"+created.ID+"/requests", gin.H{"date": "2025-01-02", "priority": "urgent"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, body = env.admin(http.MethodPost, "/api/soldiers/"+created.ID+"/requests", gin.H{"date": "2025-01-02", "priority": "mandatory", "reason": "wedding"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var req models.Request
	require.NoError(t, json.Unmarshal(body.Data, &req))
	assert.Equal(t, models.StatusPending, req.Status)

	w, body = env.admin(http.MethodGet, "/api/soldiers/"+created.ID+"/stats", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var stats models.SoldierStats
	require.NoError(t, json.Unmarshal(body.Data, &stats))
	assert.Equal(t, 1, stats.MandatoryRequests)
	assert.Zero(t, stats.HomeDays)

	w, _ = env.admin(http.MethodDelete, "/api/soldiers/"+created.ID+"/requests/"+req.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = env.admin(http.MethodDelete, "/api/soldiers/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, body = env.admin(http.MethodGet, "/api/soldiers/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, body.Success)
}

func TestScheduleLifecycle(t *testing.T) {
	env := newEnv(t)
	env.seedSixSoldiers()
	env.setPolicy("2025-01-01", "2025-01-07", 2, 2, 7)

	w, _ := env.admin(http.MethodGet, "/api/scheduling/current", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body := env.admin(http.MethodPost, "/api/scheduling/generate", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result struct {
		Schedule   models.Schedule         `json:"schedule"`
		Validation models.ValidationResult `json:"validation"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &result))
	require.Len(t, result.Schedule, 7)
	assert.True(t, result.Validation.IsValid, result.Validation.Errors)
	for _, date := range result.Schedule.Dates() {
		assert.Len(t, result.Schedule[date].Base, 2, date)
	}

	w, _ = env.admin(http.MethodGet, "/api/scheduling/current", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, body = env.admin(http.MethodGet, "/api/scheduling/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(body.Data), `"total_days":7`)

	w, _ = env.admin(http.MethodGet, "/api/scheduling/export/txt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "Leave schedule\n"))
	assert.Contains(t, w.Body.String(), "Date: 2025-01-07\n")

	w, _ = env.admin(http.MethodGet, "/api/scheduling/export/csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "date,home,base,home_count,base_count,conflicts\n"))
	w, _ = env.admin(http.MethodGet, "/api/scheduling/export/csv?type=soldiers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 7, strings.Count(w.Body.String(), "\n"))
	w, _ = env.admin(http.MethodGet, "/api/scheduling/export/csv?type=xlsx", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = env.admin(http.MethodGet, "/admin/advanced-stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(body.Data), `"high_demand_days"`)

	w, body = env.admin(http.MethodGet, "/admin/runs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var runs []database.ScheduleRun
	require.NoError(t, json.Unmarshal(body.Data, &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "admin", runs[0].TriggeredBy)
	assert.Equal(t, 6, runs[0].Soldiers)

	w, body = env.admin(http.MethodPost, "/api/scheduling/optimize", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(body.Data), `"swaps"`)

	// A reloaded handler picks up the saved schedule
	h2, _ := newHandler(t, env.store, env.cfg, env.auth)
	env2 := &testEnv{t: t, router: NewRouter(h2), token: env.token}
	w, body = env2.do(http.MethodGet, "/api/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(body.Data), `"has_schedule":true`)

	w, _ = env.admin(http.MethodDelete, "/api/scheduling/current", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = env.admin(http.MethodDelete, "/api/scheduling/current", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenerateErrors(t *testing.T) {
	env := newEnv(t)

	w, _ := env.admin(http.MethodPut, "/api/scheduling/configuration", gin.H{
		"start_date": "2025-02-10", "end_date": "2025-02-01",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for _, id := range []string{"r1", "r2", "r3"} {
		w, _ := env.admin(http.MethodPost, "/api/soldiers", gin.H{"id": id, "name": id})
		require.Equal(t, http.StatusCreated, w.Code)
	}
	env.setPolicy("2025-01-01", "2025-01-07", 1, 1, 7)

	w, body := env.admin(http.MethodPost, "/api/scheduling/generate", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, body.Success)
	var problems []string
	require.NoError(t, json.Unmarshal(body.Details, &problems))
	assert.Contains(t, problems, "roster has no commanders, at least one is required")

	req := httptest.NewRequest(http.MethodPost, "/api/scheduling/validate", nil)
	req.Header.Set("Authorization", "Bearer "+env.token)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var validation struct {
		Valid    bool     `json:"valid"`
		Problems []string `json:"problems"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &validation))
	assert.False(t, validation.Valid)
	assert.Contains(t, validation.Problems, "roster has no commanders, at least one is required")
}

func TestInfeasibleGenerate(t *testing.T) {
	env := newEnv(t)
	for _, s := range []struct{ id, role string }{{"c1", "commander"}, {"r1", "regular"}, {"r2", "regular"}} {
		w, _ := env.admin(http.MethodPost, "/api/soldiers", gin.H{"id": s.id, "name": s.id, "role": s.role})
		require.Equal(t, http.StatusCreated, w.Code)
	}
	env.setPolicy("2025-01-01", "2025-01-03", 1, 1, 1)

	w, body := env.admin(http.MethodPost, "/api/scheduling/generate", nil)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Contains(t, string(body.Details), `"date":"2025-01-02"`)
}

func TestManualUpdate(t *testing.T) {
	env := newEnv(t)
	env.seedSixSoldiers()
	env.setPolicy("2025-01-01", "2025-01-07", 2, 2, 7)

	w, _ := env.admin(http.MethodPut, "/api/scheduling/manual-update", gin.H{"date": "2025-01-01", "soldier_id": "r1", "action": "add"})
	assert.Equal(t, http.StatusNotFound, w.Code, "no schedule yet")

	w, _ = env.admin(http.MethodPost, "/api/scheduling/generate", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = env.admin(http.MethodPut, "/api/scheduling/manual-update", gin.H{"date": "2025-01-01", "soldier_id": "r1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = env.admin(http.MethodPut, "/api/scheduling/manual-update", gin.H{"date": "2025-01-01", "soldier_id": "r1", "action": "teleport"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = env.admin(http.MethodPut, "/api/scheduling/manual-update", gin.H{"date": "2030-01-01", "soldier_id": "r1", "action": "add"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Moving a soldier home without a swap would leave base short
	w, body := env.admin(http.MethodGet, "/api/scheduling/current", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view scheduleView
	require.NoError(t, json.Unmarshal(body.Data, &view))
	day := view.Schedule["2025-01-01"]
	var atBase string
	for _, id := range day.Base {
		if id != "c1" && id != "c2" {
			atBase = id
		}
	}
	require.NotEmpty(t, atBase)
	w, body = env.admin(http.MethodPut, "/api/scheduling/manual-update", gin.H{"date": "2025-01-01", "soldier_id": atBase, "action": "add"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body.Error, "invariant violation")
}

func TestConflictResolution(t *testing.T) {
	env := newEnv(t)
	w, _ := env.admin(http.MethodPost, "/api/soldiers", gin.H{"id": "c1", "name": "c1", "role": "commander"})
	require.Equal(t, http.StatusCreated, w.Code)
	for _, id := range []string{"r1", "r2", "r3"} {
		w, _ := env.admin(http.MethodPost, "/api/soldiers", gin.H{"id": id, "name": id})
		require.Equal(t, http.StatusCreated, w.Code)
		w, _ = env.admin(http.MethodPost, "/api/soldiers/"+id+"/requests", gin.H{"date": "2025-01-02", "priority": "mandatory"})
		require.Equal(t, http.StatusCreated, w.Code)
	}
	env.setPolicy("2025-01-01", "2025-01-03", 2, 1, 7)

	w, body := env.admin(http.MethodGet, "/admin/conflicts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(body.Data), `"conflicts":[]`)

	w, _ = env.admin(http.MethodPost, "/api/scheduling/generate", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, body = env.admin(http.MethodGet, "/admin/conflicts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Conflicts []models.Conflict `json:"conflicts"`
		Summary   struct {
			Total  int            `json:"total"`
			ByType map[string]int `json:"by_type"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &listed))
	require.NotEmpty(t, listed.Conflicts)
	assert.Equal(t, len(listed.Conflicts), listed.Summary.Total)

	var denied *models.Conflict
	for i := range listed.Conflicts {
		if listed.Conflicts[i].Reason == models.ReasonMandatoryDenied {
			denied = &listed.Conflicts[i]
		}
	}
	require.NotNil(t, denied)

	w, _ = env.admin(http.MethodPost, "/admin/resolve-conflict", gin.H{"conflict_id": "missing", "action": "reject"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = env.admin(http.MethodPost, "/admin/resolve-conflict", gin.H{"conflict_id": denied.ID, "action": "reassign"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = env.admin(http.MethodPost, "/admin/resolve-conflict", gin.H{"conflict_id": denied.ID, "action": "reject"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, body = env.admin(http.MethodGet, "/admin/conflicts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var after struct {
		Conflicts []models.Conflict `json:"conflicts"`
		Resolved  int               `json:"resolved"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &after))
	assert.Len(t, after.Conflicts, len(listed.Conflicts)-1)
	assert.Equal(t, 1, after.Resolved)

	soldier, err := env.store.GetSoldier(denied.SoldierID)
	require.NoError(t, err)
	require.Len(t, soldier.Requests, 1)
	assert.Equal(t, models.StatusRejected, soldier.Requests[0].Status)
}

func TestConflictResolutionRollsBackOnSaveFailure(t *testing.T) {
	env := newEnv(t)
	w, _ := env.admin(http.MethodPost, "/api/soldiers", gin.H{"id": "c1", "name": "c1", "role": "commander"})
	require.Equal(t, http.StatusCreated, w.Code)
	for _, id := range []string{"r1", "r2", "r3"} {
		w, _ := env.admin(http.MethodPost, "/api/soldiers", gin.H{"id": id, "name": id})
		require.Equal(t, http.StatusCreated, w.Code)
		w, _ = env.admin(http.MethodPost, "/api/soldiers/"+id+"/requests", gin.H{"date": "2025-01-02", "priority": "mandatory"})
		require.Equal(t, http.StatusCreated, w.Code)
	}
	env.setPolicy("2025-01-01", "2025-01-03", 2, 1, 7)
	w, _ = env.admin(http.MethodPost, "/api/scheduling/generate", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	type conflictList struct {
		Conflicts []models.Conflict `json:"conflicts"`
		Resolved  int               `json:"resolved"`
	}
	w, body := env.admin(http.MethodGet, "/admin/conflicts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var before conflictList
	require.NoError(t, json.Unmarshal(body.Data, &before))
	require.NotEmpty(t, before.Conflicts)
	target := before.Conflicts[0]

	require.NoError(t, env.store.DB().Migrator().DropTable(&database.ScheduleSnapshot{}))
	w, _ = env.admin(http.MethodPost, "/admin/resolve-conflict", gin.H{"conflict_id": target.ID, "action": "reject"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w, body = env.admin(http.MethodGet, "/admin/conflicts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var after conflictList
	require.NoError(t, json.Unmarshal(body.Data, &after))
	assert.Equal(t, before, after)

	soldier, err := env.store.GetSoldier(target.SoldierID)
	require.NoError(t, err)
	for _, req := range soldier.Requests {
		assert.Equal(t, models.StatusPending, req.Status)
	}

	require.NoError(t, env.store.DB().AutoMigrate(&database.ScheduleSnapshot{}))
	w, _ = env.admin(http.MethodPost, "/admin/resolve-conflict", gin.H{"conflict_id": target.ID, "action": "reject"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestDayWeightsAndCalendar(t *testing.T) {
	env := newEnv(t)

	w, body := env.admin(http.MethodPost, "/admin/holidays", gin.H{"date": "2025-01-01", "name": "New year"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, string(body.Data), `"weight":7.5`)
	w, _ = env.admin(http.MethodPost, "/admin/high-demand-days", gin.H{"date": "01/02/2025"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = env.admin(http.MethodPost, "/admin/high-demand-days", gin.H{"date": "2025-01-02"})
	require.Equal(t, http.StatusCreated, w.Code)

	w, body = env.admin(http.MethodGet, "/admin/holidays", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"date":"2025-01-01","name":"New year","weight":7.5}]`, string(body.Data))

	w, body = env.admin(http.MethodGet, "/api/calendar/date-info/2025-01-01", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(body.Data), `"kind":"holiday"`)

	w, body = env.admin(http.MethodGet, "/api/calendar/range?start=2025-01-01&end=2025-01-07&high_demand=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var days []struct {
		Date string `json:"date"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &days))
	require.Len(t, days, 4)
	assert.Equal(t, "2025-01-03", days[2].Date)

	w, _ = env.admin(http.MethodGet, "/api/calendar/range?start=2025-01-07", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = env.admin(http.MethodDelete, "/admin/holidays/2025-01-01", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = env.admin(http.MethodDelete, "/admin/holidays/2025-01-01", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEmergencyReserve(t *testing.T) {
	env := newEnv(t)
	w, _ := env.admin(http.MethodPost, "/api/soldiers", gin.H{"id": "r1", "name": "Avi"})
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = env.admin(http.MethodPost, "/admin/emergency-reserve/r1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = env.admin(http.MethodPost, "/admin/emergency-reserve/ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body := env.admin(http.MethodGet, "/admin/emergency-reserve", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(body.Data), `"id":"r1"`)

	w, body = env.admin(http.MethodGet, "/api/scheduling/configuration", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(body.Data), `"emergency_reserve":["r1"]`)

	w, _ = env.admin(http.MethodDelete, "/admin/emergency-reserve/r1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, body = env.admin(http.MethodGet, "/admin/emergency-reserve", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(body.Data))
}

func TestImportHistory(t *testing.T) {
	env := newEnv(t)
	w, _ := env.admin(http.MethodPost, "/api/soldiers", gin.H{"id": "r1", "name": "Avi"})
	require.Equal(t, http.StatusCreated, w.Code)

	upload := func(content string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("history_file", "history.csv")
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/scheduling/import/history", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+env.token)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusBadRequest, upload("soldier_id,home_days\nr1,many\n").Code)
	assert.Equal(t, http.StatusNotFound, upload("soldier_id,home_days\nr1,2\nghost,1\n").Code)

	rec := upload("soldier_id,home_days\nr1,2\nr1,3\n")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	soldier, err := env.store.GetSoldier("r1")
	require.NoError(t, err)
	assert.Equal(t, 5, soldier.HistoricalHomeDays)
}

func TestAPIKeys(t *testing.T) {
	env := newEnv(t)

	w, body := env.admin(http.MethodPost, "/admin/keys", gin.H{"name": "bi"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		ID  uint   `json:"id"`
		Key string `json:"key"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &created))
	require.True(t, strings.HasPrefix(created.Key, "bi."))

	w, _ = env.do(http.MethodGet, "/api/soldiers", nil, map[string]string{"X-API-Key": created.Key})
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = env.do(http.MethodGet, "/api/soldiers", nil, map[string]string{"X-API-Key": "bi.deadbeef"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Integration keys cannot write
	w, _ = env.do(http.MethodPost, "/api/soldiers", gin.H{"name": "x"}, map[string]string{"Authorization": "Bearer " + created.Key})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, body = env.do(http.MethodGet, "/api/usage", nil, map[string]string{"Authorization": "Bearer " + created.Key})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(body.Data), `"total_requests":2`)
	assert.Contains(t, string(body.Data), `"key_name":"bi"`)

	w, body = env.admin(http.MethodGet, "/admin/keys", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, string(body.Data), created.Key)
	assert.Contains(t, string(body.Data), `"key_preview":"bi....`)

	w, _ = env.admin(http.MethodPut, "/admin/keys/abc", gin.H{"rate_limit": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = env.admin(http.MethodPut, "/admin/keys/"+jsonNumber(created.ID), gin.H{"rate_limit": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Two requests already counted today
	w, _ = env.do(http.MethodGet, "/api/soldiers", nil, map[string]string{"X-API-Key": created.Key})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w, _ = env.admin(http.MethodGet, "/admin/usage/"+jsonNumber(created.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = env.admin(http.MethodDelete, "/admin/keys/"+jsonNumber(created.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = env.admin(http.MethodDelete, "/admin/keys/"+jsonNumber(created.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func jsonNumber(id uint) string {
	data, _ := json.Marshal(id)
	return string(data)
}

func TestMetricsAndAdminPage(t *testing.T) {
	env := newEnv(t)
	env.seedSixSoldiers()
	env.setPolicy("2025-01-01", "2025-01-07", 2, 2, 7)
	w, _ := env.admin(http.MethodPost, "/api/scheduling/generate", nil)
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `leave_scheduler_generate_runs_total{outcome="success"} 1`)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<title>Leave Scheduler Admin</title>")
}
