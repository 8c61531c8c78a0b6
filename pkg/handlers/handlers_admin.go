package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/leave-scheduler-go/pkg/calendar"
	"github.com/arnavshah/leave-scheduler-go/pkg/database"
	"github.com/arnavshah/leave-scheduler-go/pkg/models"
	"github.com/arnavshah/leave-scheduler-go/pkg/scheduler"
)

// ListConflicts returns the open conflicts with a summary. Without a
// schedule the list is empty.
func (h *Handler) ListConflicts(c *gin.Context) {
	var (
		conflicts []models.Conflict
		summary   scheduler.ConflictSummary
		resolved  int
	)
	err := h.withSession(func(s *scheduler.Session) error {
		conflicts, summary, resolved = s.Conflicts(), s.ConflictSummary(), s.Resolved()
		return nil
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"conflicts": conflicts, "summary": summary, "resolved": resolved}, "")
}

// ResolveConflict closes a conflict by approving, reassigning or rejecting it
func (h *Handler) ResolveConflict(c *gin.Context) {
	var req struct {
		ConflictID string                  `json:"conflict_id" binding:"required"`
		Action     scheduler.ResolveAction `json:"action" binding:"required"`
		NewDate    string                  `json:"new_date"`
	}
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}

	var view *scheduleView
	err := h.withSession(func(s *scheduler.Session) error {
		prev, err := s.Schedule()
		if err != nil {
			return err
		}
		prevConflicts, prevResolved := s.Conflicts(), s.Resolved()

		schedule, err := s.ResolveConflict(req.ConflictID, scheduler.Resolution{Action: req.Action, NewDate: req.NewDate})
		if err != nil {
			return err
		}
		// The roster is reloaded on the next refresh; only the schedule needs rolling back.
		if err := h.Store.SaveResolution(s.Roster(), schedule, s.Conflicts(), s.Resolved()); err != nil {
			s.Restore(prev, prevConflicts, prevResolved)
			return err
		}
		view, err = currentView(s)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, view, "Conflict resolved")
}

// ListDayWeights returns the stored days of one kind
func (h *Handler) ListDayWeights(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		days, err := h.Store.ListDayWeights(kind)
		if err != nil {
			h.fail(c, err)
			return
		}
		respond(c, http.StatusOK, days, "")
	}
}

// AddDayWeight stores a day of one kind. A missing weight takes the default
// of the kind.
func (h *Handler) AddDayWeight(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.addDayWeight(c, kind)
	}
}

func (h *Handler) addDayWeight(c *gin.Context, kind string) {
	var day models.DayWeight
	if err := bind(c, &day); err != nil {
		h.fail(c, err)
		return
	}
	if _, err := time.Parse(models.DateLayout, day.Date); err != nil {
		h.fail(c, badRequest("date must be YYYY-MM-DD"))
		return
	}
	if day.Weight < 0 {
		h.fail(c, badRequest("weight must not be negative"))
		return
	}

	if day.Weight == 0 {
		day.Weight = models.HighDemandWeight
		if kind == database.KindHoliday {
			day.Weight = models.HolidayWeight
		}
	}
	if err := h.Store.AddDayWeight(kind, day); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, day, "Day saved")
}

// DeleteDayWeight removes a day of one kind
func (h *Handler) DeleteDayWeight(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.Store.DeleteDayWeight(kind, c.Param("date")); err != nil {
			h.fail(c, err)
			return
		}
		respond(c, http.StatusOK, nil, "Day removed")
	}
}

// ListEmergencyReserve returns the soldiers flagged as emergency reserve
func (h *Handler) ListEmergencyReserve(c *gin.Context) {
	soldiers, err := h.Store.ListSoldiers()
	if err != nil {
		h.fail(c, err)
		return
	}
	reserve := []*models.Soldier{}
	for _, s := range soldiers {
		if s.IsEmergencyReserve {
			reserve = append(reserve, s)
		}
	}
	respond(c, http.StatusOK, reserve, "")
}

// AddEmergencyReserve flags a soldier as emergency reserve
func (h *Handler) AddEmergencyReserve(c *gin.Context) {
	h.setReserve(c, true)
}

// RemoveEmergencyReserve clears a soldier's emergency reserve flag
func (h *Handler) RemoveEmergencyReserve(c *gin.Context) {
	h.setReserve(c, false)
}

func (h *Handler) setReserve(c *gin.Context, reserve bool) {
	if err := h.Store.SetEmergencyReserve(c.Param("soldierId"), reserve); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"soldier_id": c.Param("soldierId"), "is_emergency_reserve": reserve}, "")
}

// AdvancedStats reports fairness, high-demand versus regular days and the
// emergency reserve for the current schedule
func (h *Handler) AdvancedStats(c *gin.Context) {
	var report scheduler.AdvancedStats
	err := h.withSession(func(s *scheduler.Session) error {
		var err error
		report, err = s.AdvancedStats()
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, report, "")
}

// CalendarRange lists the days of [start, end] with their weights. With
// ?high_demand=true only days weighing more than 1 are returned.
func (h *Handler) CalendarRange(c *gin.Context) {
	start, end := c.Query("start"), c.Query("end")
	if start == "" || end == "" {
		h.fail(c, badRequest("start and end are required"))
		return
	}

	var days []calendar.Day
	err := h.withSession(func(*scheduler.Session) error {
		var err error
		if c.Query("high_demand") == "true" {
			days, err = h.cal.HighDemandRange(start, end)
		} else {
			days, err = h.cal.Range(start, end)
		}
		if err != nil {
			return badRequest("%s", err.Error())
		}
		return nil
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if days == nil {
		days = []calendar.Day{}
	}
	respond(c, http.StatusOK, days, "")
}

// DateInfo classifies a single date
func (h *Handler) DateInfo(c *gin.Context) {
	var day calendar.Day
	err := h.withSession(func(*scheduler.Session) error {
		var err error
		if day, err = h.cal.Info(c.Param("date")); err != nil {
			return badRequest("%s", err.Error())
		}
		return nil
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, day, "")
}
