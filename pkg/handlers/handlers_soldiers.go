package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/leave-scheduler-go/pkg/models"
	"github.com/arnavshah/leave-scheduler-go/pkg/scheduler"
)

type soldierInput struct {
	ID                 string   `json:"id"`
	Name               *string  `json:"name"`
	Role               *string  `json:"role"`
	Phone              *string  `json:"phone"`
	Email              *string  `json:"email"`
	DistanceFromBase   *float64 `json:"distance_from_base"`
	IsEmergencyReserve *bool    `json:"is_emergency_reserve"`
	HistoricalHomeDays *int     `json:"historical_home_days"`
}

// apply copies the set fields onto s
func (in soldierInput) apply(s *models.Soldier) error {
	if in.Name != nil {
		s.Name = *in.Name
	}
	if in.Role != nil {
		s.Role = models.Role(*in.Role)
	}
	if in.Phone != nil {
		s.Phone = *in.Phone
	}
	if in.Email != nil {
		s.Email = *in.Email
	}
	if in.DistanceFromBase != nil {
		s.DistanceFromBase = *in.DistanceFromBase
	}
	if in.IsEmergencyReserve != nil {
		s.IsEmergencyReserve = *in.IsEmergencyReserve
	}
	if in.HistoricalHomeDays != nil {
		s.HistoricalHomeDays = *in.HistoricalHomeDays
	}

	switch {
	case s.Name == "":
		return badRequest("name is required")
	case s.Role != models.RoleCommander && s.Role != models.RoleRegular:
		return badRequest("role must be commander or regular")
	case s.HistoricalHomeDays < 0:
		return badRequest("historical_home_days must not be negative")
	case s.DistanceFromBase < 0:
		return badRequest("distance_from_base must not be negative")
	}
	return nil
}

// ListSoldiers returns the roster
func (h *Handler) ListSoldiers(c *gin.Context) {
	soldiers, err := h.Store.ListSoldiers()
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, soldiers, "")
}

// GetSoldier returns one soldier
func (h *Handler) GetSoldier(c *gin.Context) {
	soldier, err := h.Store.GetSoldier(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, soldier, "")
}

// CreateSoldier adds a soldier to the end of the roster
func (h *Handler) CreateSoldier(c *gin.Context) {
	var in soldierInput
	if err := bind(c, &in); err != nil {
		h.fail(c, err)
		return
	}
	soldier := &models.Soldier{ID: in.ID, Role: models.RoleRegular}
	if err := in.apply(soldier); err != nil {
		h.fail(c, err)
		return
	}
	if in.ID != "" {
		if _, err := h.Store.GetSoldier(in.ID); err == nil {
			h.fail(c, badRequest("soldier %s already exists", in.ID))
			return
		}
	}
	if err := h.Store.CreateSoldier(soldier); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, soldier, "Soldier created")
}

// UpdateSoldier changes the fields present in the body
func (h *Handler) UpdateSoldier(c *gin.Context) {
	soldier, err := h.Store.GetSoldier(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	var in soldierInput
	if err := bind(c, &in); err != nil {
		h.fail(c, err)
		return
	}
	if err := in.apply(soldier); err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Store.UpdateSoldier(soldier); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, soldier, "Soldier updated")
}

// DeleteSoldier removes a soldier and their requests
func (h *Handler) DeleteSoldier(c *gin.Context) {
	if err := h.Store.DeleteSoldier(c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, nil, "Soldier deleted")
}

// AddRequest records a leave request
func (h *Handler) AddRequest(c *gin.Context) {
	var req models.Request
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	if _, err := time.Parse(models.DateLayout, req.Date); err != nil {
		h.fail(c, badRequest("date must be YYYY-MM-DD"))
		return
	}
	switch req.Priority {
	case models.PriorityMandatory, models.PriorityPreferred, models.PriorityFlexible:
	default:
		h.fail(c, badRequest("priority must be mandatory, preferred or flexible"))
		return
	}
	req.ID, req.Status = "", models.StatusPending

	if err := h.Store.AddRequest(c.Param("id"), &req); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, req, "Request added")
}

// ListRequests returns a soldier's requests by date
func (h *Handler) ListRequests(c *gin.Context) {
	soldier, err := h.Store.GetSoldier(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, soldier.Requests, "")
}

// DeleteRequest removes one request
func (h *Handler) DeleteRequest(c *gin.Context) {
	if err := h.Store.DeleteRequest(c.Param("id"), c.Param("requestId")); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, nil, "Request deleted")
}

// SoldierStats returns one soldier's outcome in the current schedule, or
// their roster totals when no schedule exists
func (h *Handler) SoldierStats(c *gin.Context) {
	id := c.Param("id")
	var out *models.SoldierStats
	err := h.withSession(func(s *scheduler.Session) error {
		var stats []models.SoldierStats
		var err error
		if s.HasSchedule() {
			if stats, err = s.SoldierStats(); err != nil {
				return err
			}
		} else {
			stats = scheduler.BuildSoldierStats(models.Schedule{}, s.Roster(), nil)
		}
		for i := range stats {
			if stats[i].ID == id {
				out = &stats[i]
				return nil
			}
		}
		return fmt.Errorf("soldier %s: %w", id, scheduler.ErrNotFound)
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, out, "")
}

