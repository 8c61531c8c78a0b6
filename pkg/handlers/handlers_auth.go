package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/leave-scheduler-go/pkg/auth"
	"github.com/arnavshah/leave-scheduler-go/pkg/database"
)

// Login handles admin login
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}

	user, err := h.Store.FindUser(req.Username)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		h.fail(c, err)
		return
	}
	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		unauthorized(c, "Invalid credentials")
		return
	}

	token, err := h.Auth.CreateToken(user.Username)
	if err != nil {
		h.fail(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   int(h.Auth.TTL().Seconds()),
	}, "")
}

// GenerateKey creates a new integration key
func (h *Handler) GenerateKey(c *gin.Context) {
	var req struct {
		Name      string `json:"name"`
		RateLimit int    `json:"rate_limit"`
	}
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	if req.Name == "" {
		h.fail(c, badRequest("name is required"))
		return
	}
	if req.RateLimit == 0 {
		req.RateLimit = 10000
	}

	key, err := h.Auth.GenerateAPIKey(req.Name)
	if err != nil {
		h.fail(c, badRequest("%s", err.Error()))
		return
	}

	apiKey := database.APIKey{
		Key:        key,
		Name:       req.Name,
		KeyPreview: database.Preview(key),
		RateLimit:  req.RateLimit,
	}
	if err := h.Store.CreateAPIKey(&apiKey); err != nil {
		h.fail(c, err)
		return
	}

	respond(c, http.StatusCreated, gin.H{"id": apiKey.ID, "name": req.Name, "key": key}, "Key created")
}

// ListKeys returns all integration keys
func (h *Handler) ListKeys(c *gin.Context) {
	keys, err := h.Store.ListAPIKeys()
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, keys, "")
}

func keyID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, badRequest("invalid key id %q", c.Param("id"))
	}
	return uint(id), nil
}

// RevokeKey deletes an integration key
func (h *Handler) RevokeKey(c *gin.Context) {
	id, err := keyID(c)
	if err == nil {
		err = h.Store.RevokeAPIKey(id)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, nil, "Key revoked")
}

// UpdateKeyLimit updates the daily request limit for a key
func (h *Handler) UpdateKeyLimit(c *gin.Context) {
	id, err := keyID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var req struct {
		RateLimit int `json:"rate_limit" form:"rate_limit"`
	}

	// Try JSON first, then the query string
	if err := c.ShouldBindJSON(&req); err != nil {
		if err := c.ShouldBindQuery(&req); err != nil {
			h.fail(c, badRequest("rate_limit is required"))
			return
		}
	}
	if req.RateLimit <= 0 {
		h.fail(c, badRequest("invalid rate limit"))
		return
	}

	if err := h.Store.UpdateKeyLimit(id, req.RateLimit); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, nil, "Rate limit updated successfully")
}
