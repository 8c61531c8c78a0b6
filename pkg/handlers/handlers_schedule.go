package handlers

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arnavshah/leave-scheduler-go/pkg/database"
	"github.com/arnavshah/leave-scheduler-go/pkg/export"
	"github.com/arnavshah/leave-scheduler-go/pkg/models"
	"github.com/arnavshah/leave-scheduler-go/pkg/scheduler"
)

// scheduleView is the response body for the current schedule
type scheduleView struct {
	Schedule     models.Schedule         `json:"schedule"`
	Conflicts    []models.Conflict       `json:"conflicts"`
	Stats        models.Stats            `json:"stats"`
	SoldierStats []models.SoldierStats   `json:"soldier_stats"`
	Validation   models.ValidationResult `json:"validation"`
}

func currentView(s *scheduler.Session) (*scheduleView, error) {
	schedule, err := s.Schedule()
	if err != nil {
		return nil, err
	}
	stats, err := s.Stats()
	if err != nil {
		return nil, err
	}
	soldierStats, err := s.SoldierStats()
	if err != nil {
		return nil, err
	}
	validation, err := s.Validation()
	if err != nil {
		return nil, err
	}
	return &scheduleView{
		Schedule:     schedule,
		Conflicts:    s.Conflicts(),
		Stats:        stats,
		SoldierStats: soldierStats,
		Validation:   validation,
	}, nil
}

// GetConfiguration returns the active policy
func (h *Handler) GetConfiguration(c *gin.Context) {
	var cfg models.Configuration
	err := h.withSession(func(s *scheduler.Session) error {
		cfg = s.Configuration()
		return nil
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, cfg, "")
}

// UpdateConfiguration changes the policy fields present in the body.
// Holidays, high-demand days and the emergency reserve have their own routes.
func (h *Handler) UpdateConfiguration(c *gin.Context) {
	var cfg models.Configuration
	err := h.withSession(func(s *scheduler.Session) error {
		cfg = s.Configuration()
		if err := bind(c, &cfg); err != nil {
			return err
		}
		if err := scheduler.ValidatePolicy(cfg); err != nil {
			return err
		}
		return h.Store.SaveConfiguration(cfg)
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, cfg, "Configuration updated")
}

// Generate builds a new schedule from the stored roster and policy
func (h *Handler) Generate(c *gin.Context) {
	var result *scheduler.Result
	err := h.withSession(func(s *scheduler.Session) error {
		var err error
		if result, err = s.Generate(); err != nil {
			return err
		}
		if err := h.persist(); err != nil {
			return err
		}
		cfg := s.Configuration()
		run := &database.ScheduleRun{
			StartDate:     cfg.StartDate,
			EndDate:       cfg.EndDate,
			Days:          result.Stats.TotalDays,
			Soldiers:      len(s.Roster()),
			FairnessScore: result.Stats.FairnessScore,
			Conflicts:     len(result.Conflicts),
			Valid:         result.Validation.IsValid,
			TriggeredBy:   c.GetString(ctxUsername),
		}
		if err := h.Store.RecordRun(run); err != nil {
			h.Logger.Warn("could not record schedule run", zap.Error(err))
		}
		return nil
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, result, "Schedule generated")
}

// GetCurrent returns the current schedule with its stats
func (h *Handler) GetCurrent(c *gin.Context) {
	var view *scheduleView
	err := h.withSession(func(s *scheduler.Session) error {
		var err error
		view, err = currentView(s)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, view, "")
}

// DeleteCurrent drops the current schedule
func (h *Handler) DeleteCurrent(c *gin.Context) {
	err := h.withSession(func(s *scheduler.Session) error {
		if !s.HasSchedule() {
			return scheduler.ErrNoSchedule
		}
		if err := h.Store.DeleteSnapshot(); err != nil {
			return err
		}
		s.Clear()
		return nil
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, nil, "Schedule deleted")
}

// ManualUpdate applies a single-day edit
func (h *Handler) ManualUpdate(c *gin.Context) {
	var req struct {
		Date      string `json:"date" binding:"required"`
		SoldierID string `json:"soldier_id" binding:"required"`
		Action    string `json:"action" binding:"required"`
		SwapWith  string `json:"swap_with"`
	}
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}

	var view *scheduleView
	err := h.withSession(func(s *scheduler.Session) error {
		if _, err := s.Assign(req.SoldierID, req.Date, scheduler.EditAction(req.Action), req.SwapWith); err != nil {
			return err
		}
		if err := h.persist(); err != nil {
			return err
		}
		var err error
		view, err = currentView(s)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, view, "Schedule updated")
}

// Optimize runs the fairness pass over the current schedule
func (h *Handler) Optimize(c *gin.Context) {
	var (
		swaps int
		view  *scheduleView
	)
	err := h.withSession(func(s *scheduler.Session) error {
		var err error
		if swaps, err = s.Optimize(); err != nil {
			return err
		}
		if err := h.persist(); err != nil {
			return err
		}
		view, err = currentView(s)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"swaps": swaps, "current": view}, "Schedule optimized")
}

// GetStats returns the headline stats and fairness report
func (h *Handler) GetStats(c *gin.Context) {
	var body gin.H
	err := h.withSession(func(s *scheduler.Session) error {
		stats, err := s.Stats()
		if err != nil {
			return err
		}
		fairness, err := s.Fairness()
		if err != nil {
			return err
		}
		soldierStats, err := s.SoldierStats()
		if err != nil {
			return err
		}
		body = gin.H{
			"stats":             stats,
			"fairness":          fairness,
			"soldier_stats":     soldierStats,
			"conflicts_open":    len(s.Conflicts()),
			"conflicts_summary": s.ConflictSummary(),
		}
		return nil
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, body, "")
}

// GetValidation re-validates the current schedule
func (h *Handler) GetValidation(c *gin.Context) {
	var result models.ValidationResult
	err := h.withSession(func(s *scheduler.Session) error {
		var err error
		result, err = s.Validation()
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, result, "")
}

// ExportText renders the current schedule as a text report
func (h *Handler) ExportText(c *gin.Context) {
	var buf bytes.Buffer
	err := h.withSession(func(s *scheduler.Session) error {
		schedule, err := s.Schedule()
		if err != nil {
			return err
		}
		return export.WriteText(&buf, schedule, s.Roster())
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="schedule.txt"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", buf.Bytes())
}

// ExportCSV writes the schedule, or with ?type=soldiers the per-soldier
// stats, as CSV
func (h *Handler) ExportCSV(c *gin.Context) {
	kind := c.DefaultQuery("type", "schedule")
	if kind != "schedule" && kind != "soldiers" {
		h.fail(c, badRequest("type must be schedule or soldiers"))
		return
	}

	var buf bytes.Buffer
	err := h.withSession(func(s *scheduler.Session) error {
		if kind == "soldiers" {
			stats, err := s.SoldierStats()
			if err != nil {
				return err
			}
			return export.WriteSoldierStatsCSV(&buf, stats)
		}
		schedule, err := s.Schedule()
		if err != nil {
			return err
		}
		return export.WriteCSV(&buf, schedule)
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+kind+`.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ImportHistory adds past home days from an uploaded CSV file
func (h *Handler) ImportHistory(c *gin.Context) {
	file, err := c.FormFile("history_file")
	if err != nil {
		h.fail(c, badRequest("history_file is required"))
		return
	}
	f, err := file.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer f.Close()

	entries, err := export.ReadHistory(f)
	if err != nil {
		h.fail(c, badRequest("%s", err.Error()))
		return
	}
	days := make(map[string]int, len(entries))
	for _, e := range entries {
		days[e.SoldierID] += e.HomeDays
	}
	if err := h.Store.AddHistories(days); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"imported": len(entries), "soldiers": len(days)}, "History imported")
}
