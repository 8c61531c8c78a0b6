package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/leave-scheduler-go/pkg/database"
)

func usageTotals(usage []database.KeyUsage) int64 {
	var total int64
	for _, u := range usage {
		total += int64(u.RequestCount)
	}
	return total
}

// GetMyUsage returns usage stats for the calling integration key
func (h *Handler) GetMyUsage(c *gin.Context) {
	apiKey, ok := apiKeyFrom(c)
	if !ok {
		h.fail(c, badRequest("usage is only available to API key callers"))
		return
	}

	usage, err := h.Store.KeyUsageHistory(apiKey.ID)
	if err != nil {
		h.fail(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{
		"key_name":       apiKey.Name,
		"rate_limit":     apiKey.RateLimit,
		"usage_history":  usage,
		"total_requests": usageTotals(usage),
	}, "")
}

// GetUsage returns usage stats for any key
func (h *Handler) GetUsage(c *gin.Context) {
	id, err := keyID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	usage, err := h.Store.KeyUsageHistory(id)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"usage_history": usage, "total_requests": usageTotals(usage)}, "")
}

// ListRuns returns the generate history, newest first
func (h *Handler) ListRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		h.fail(c, badRequest("invalid limit %q", c.Query("limit")))
		return
	}
	runs, err := h.Store.ListRuns(limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, runs, "")
}
