package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arnavshah/leave-scheduler-go/pkg/database"
)

// Context keys set by the auth middlewares
const (
	ctxUsername = "username"
	ctxAPIKey   = "apiKey"
	ctxClient   = "client"
)

// RequestLogger logs one line per request
func (h *Handler) RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if user := c.GetString(ctxUsername); user != "" {
			fields = append(fields, zap.String("user", user))
		}
		if client := c.GetString(ctxClient); client != "" {
			fields = append(fields, zap.String("api_client", client))
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			h.Logger.Error("request", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			h.Logger.Warn("request", fields...)
		default:
			h.Logger.Info("request", fields...)
		}
	}
}

func bearer(c *gin.Context) string {
	token := c.GetHeader("Authorization")
	if len(token) > 7 && strings.EqualFold(token[:7], "Bearer ") {
		return token[7:]
	}
	return token
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": msg})
}

// AuthMiddleware verifies the admin JWT
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c)
		if token == "" {
			unauthorized(c, "Authorization header required")
			return
		}

		claims, err := h.Auth.VerifyToken(token)
		if err != nil {
			unauthorized(c, "Invalid token")
			return
		}

		c.Set(ctxUsername, claims.Username)
		c.Next()
	}
}

// APIKeyMiddleware verifies an integration key from X-API-Key or the
// Authorization header and counts it against the key's daily limit
func (h *Handler) APIKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-API-Key")
		if key == "" {
			key = bearer(c)
		}
		if key == "" {
			unauthorized(c, "API Key required")
			return
		}
		h.checkAPIKey(c, key)
	}
}

// ReadAccess accepts either an admin token or an integration key
func (h *Handler) ReadAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := c.GetHeader("X-API-Key"); key != "" {
			h.checkAPIKey(c, key)
			return
		}
		token := bearer(c)
		if token == "" {
			unauthorized(c, "Authorization header required")
			return
		}
		if claims, err := h.Auth.VerifyToken(token); err == nil {
			c.Set(ctxUsername, claims.Username)
			c.Next()
			return
		}
		h.checkAPIKey(c, token)
	}
}

func (h *Handler) checkAPIKey(c *gin.Context, key string) {
	client, err := h.Auth.VerifyAPIKey(key)
	if err != nil {
		unauthorized(c, "Invalid API Key signature")
		return
	}

	// Fetch or create the key record to track usage
	apiKey, err := h.Store.TouchAPIKey(key, client, h.now())
	if err != nil {
		h.fail(c, err)
		return
	}
	count, err := h.Store.RecordKeyUsage(apiKey.ID, h.today())
	if err != nil {
		h.fail(c, err)
		return
	}
	if apiKey.RateLimit > 0 && count > apiKey.RateLimit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"success": false,
			"error":   "daily request limit reached",
		})
		return
	}

	c.Set(ctxAPIKey, apiKey)
	c.Set(ctxClient, client)
	c.Next()
}

func apiKeyFrom(c *gin.Context) (*database.APIKey, bool) {
	raw, ok := c.Get(ctxAPIKey)
	if !ok {
		return nil, false
	}
	key, ok := raw.(*database.APIKey)
	return key, ok
}
