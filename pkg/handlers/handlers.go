package handlers

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/arnavshah/leave-scheduler-go/pkg/auth"
	"github.com/arnavshah/leave-scheduler-go/pkg/calendar"
	"github.com/arnavshah/leave-scheduler-go/pkg/config"
	"github.com/arnavshah/leave-scheduler-go/pkg/database"
	"github.com/arnavshah/leave-scheduler-go/pkg/metrics"
	"github.com/arnavshah/leave-scheduler-go/pkg/scheduler"
)

//go:embed static/*
var staticEmbed embed.FS

// errBadRequest marks malformed input
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// Handler contains dependencies for the route handlers
type Handler struct {
	Store    *database.Store
	Auth     *auth.Manager
	Config   *config.Config
	Logger   *zap.Logger
	Recorder metrics.Recorder
	// Gatherer backs /metrics; nil disables the endpoint
	Gatherer prometheus.Gatherer

	now func() time.Time

	// mu serializes every use of session and cal
	mu      sync.Mutex
	session *scheduler.Session
	cal     *calendar.Calendar
}

// New wires a Handler and restores the last saved schedule, if any
func New(store *database.Store, authManager *auth.Manager, cfg *config.Config, logger *zap.Logger,
	recorder metrics.Recorder, gatherer prometheus.Gatherer,
) (*Handler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = metrics.NewNop()
	}
	h := &Handler{
		Store:    store,
		Auth:     authManager,
		Config:   cfg,
		Logger:   logger,
		Recorder: recorder,
		Gatherer: gatherer,
		now:      time.Now,
		cal:      calendar.New(nil, nil, cfg.WeekendsHighDemand),
	}
	h.session = scheduler.NewSession(nil, cfg.Defaults,
		scheduler.WithLogger(logger.Named("scheduler")),
		scheduler.WithMetrics(recorder),
		scheduler.WithDayWeights(h.dayWeight),
	)

	if err := h.restore(); err != nil {
		return nil, err
	}
	return h, nil
}

// dayWeight is only called by the session, under mu
func (h *Handler) dayWeight(date string) float64 {
	return h.cal.Weight(date)
}

func (h *Handler) restore() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.refresh(); err != nil {
		return err
	}
	snap, err := h.Store.LoadSnapshot()
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	h.session.Restore(snap.Schedule, snap.Conflicts, snap.Resolved)
	h.Logger.Info("restored saved schedule",
		zap.Int("days", len(snap.Schedule)), zap.Int("conflicts", len(snap.Conflicts)))
	return nil
}

// refresh loads the roster and policy from the store into the session.
// Callers hold mu.
func (h *Handler) refresh() error {
	soldiers, err := h.Store.ListSoldiers()
	if err != nil {
		return err
	}
	cfg, err := h.Store.LoadConfiguration(h.Config.Defaults)
	if err != nil {
		return err
	}
	h.session.SetRoster(soldiers)
	h.session.SetConfiguration(cfg)
	h.cal = calendar.FromConfiguration(cfg, h.Config.WeekendsHighDemand)
	return nil
}

// persist saves the session's schedule and open conflicts. Callers hold mu.
func (h *Handler) persist() error {
	schedule, err := h.session.Schedule()
	if err != nil {
		return err
	}
	return h.Store.SaveSnapshot(schedule, h.session.Conflicts(), h.session.Resolved())
}

// withSession runs fn under the session lock after a refresh from the store
func (h *Handler) withSession(fn func(s *scheduler.Session) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.refresh(); err != nil {
		return err
	}
	return fn(h.session)
}

func (h *Handler) today() string {
	return h.now().UTC().Format("2006-01-02")
}

// respond writes the success envelope
func respond(c *gin.Context, status int, data interface{}, message string) {
	body := gin.H{"success": true, "data": data}
	if message != "" {
		body["message"] = message
	}
	c.JSON(status, body)
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, scheduler.ErrConfiguration),
		errors.Is(err, scheduler.ErrAssignmentInfeasible),
		errors.Is(err, scheduler.ErrInvariantViolation),
		errors.Is(err, scheduler.ErrUnknownAction):
		return http.StatusBadRequest
	case errors.Is(err, scheduler.ErrNotFound),
		errors.Is(err, scheduler.ErrNoSchedule),
		errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// fail writes the error envelope. Server errors are logged and not echoed.
func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"success": false, "error": err.Error()}

	var cfgErr *scheduler.ConfigurationError
	var infeasible *scheduler.AssignmentInfeasibleError
	switch {
	case errors.As(err, &cfgErr):
		body["details"] = cfgErr.Problems()
	case errors.As(err, &infeasible):
		body["details"] = gin.H{
			"date":      infeasible.Date,
			"needed":    infeasible.Needed,
			"available": infeasible.Available,
			"shortfall": infeasible.Shortfall(),
		}
	}

	if status == http.StatusInternalServerError {
		h.Logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		body["error"] = "internal server error"
	}
	c.AbortWithStatusJSON(status, body)
}

// bind decodes a JSON body and wraps decode errors as bad requests
func bind(c *gin.Context, v interface{}) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return badRequest("%s", err.Error())
	}
	return nil
}

// Health reports liveness and whether a schedule is loaded
func (h *Handler) Health(c *gin.Context) {
	h.mu.Lock()
	loaded := h.session.HasSchedule()
	h.mu.Unlock()

	respond(c, http.StatusOK, gin.H{
		"status":       "ok",
		"has_schedule": loaded,
		"time":         h.now().UTC(),
	}, "")
}

// AdminInterface serves the admin web interface from embedded files
func (h *Handler) AdminInterface(c *gin.Context) {
	data, err := staticEmbed.ReadFile("static/index.html")
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "static/index.html not found in embedded FS"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", data)
}

// GetStaticFS returns the embedded filesystem for static assets
func (h *Handler) GetStaticFS() http.FileSystem {
	sub, err := fs.Sub(staticEmbed, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}
