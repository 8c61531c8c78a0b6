package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/leave-scheduler-go/pkg/models"
	"github.com/arnavshah/leave-scheduler-go/pkg/scheduler"
)

// ValidateInput checks a roster and policy without generating. With an empty
// body the stored roster and policy are checked.
func (h *Handler) ValidateInput(c *gin.Context) {
	var input struct {
		Soldiers      []*models.Soldier     `json:"soldiers"`
		Configuration *models.Configuration `json:"configuration"`
	}
	if c.Request.ContentLength != 0 {
		if err := bind(c, &input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"valid": false, "error": err.Error()})
			return
		}
	}

	err := h.withSession(func(s *scheduler.Session) error {
		if input.Soldiers == nil {
			input.Soldiers = s.Roster()
		}
		if input.Configuration == nil {
			cfg := s.Configuration()
			input.Configuration = &cfg
		}
		return nil
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	commanders := 0
	for _, soldier := range input.Soldiers {
		if soldier.IsCommander() {
			commanders++
		}
	}
	days, _ := input.Configuration.Horizon()
	stats := gin.H{
		"soldier_count":    len(input.Soldiers),
		"commander_count":  commanders,
		"day_count":        len(days),
		"total_home_slots": scheduler.TotalHomeSlots(len(input.Soldiers), len(days), input.Configuration.SoldiersInBase),
	}

	var cfgErr *scheduler.ConfigurationError
	if err := scheduler.ValidateConfiguration(input.Soldiers, *input.Configuration); errors.As(err, &cfgErr) {
		c.JSON(http.StatusOK, gin.H{"valid": false, "problems": cfgErr.Problems(), "stats": stats})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "problems": []string{}, "stats": stats})
}
