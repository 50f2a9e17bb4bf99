// Package http exposes the small operational surface of the realtime
// service: health, presence listing and the Prometheus scrape endpoint
// wired in main.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"meshline-backend/internal/database"
)

// OnlineDirectory lists the users currently online across all instances.
type OnlineDirectory interface {
	GetOnlineUsers(ctx context.Context) ([]uuid.UUID, error)
}

// StatusHandler serves health and presence queries
type StatusHandler struct {
	serviceName string
	online      OnlineDirectory
	cockroach   *database.CockroachDB
	redis       *database.RedisClient
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(serviceName string, online OnlineDirectory, cockroach *database.CockroachDB, redis *database.RedisClient) *StatusHandler {
	return &StatusHandler{
		serviceName: serviceName,
		online:      online,
		cockroach:   cockroach,
		redis:       redis,
	}
}

// Healthz reports service liveness and dependency reachability
func (h *StatusHandler) Healthz(c *gin.Context) {
	deps := gin.H{}
	healthy := true

	if h.cockroach != nil {
		if err := h.cockroach.Pool.Ping(c.Request.Context()); err != nil {
			deps["cockroach"] = "unreachable"
			healthy = false
		} else {
			deps["cockroach"] = "ok"
		}
	}

	if h.redis != nil {
		if err := h.redis.HealthCheck(c.Request.Context()); err != nil {
			deps["redis"] = "unreachable"
			healthy = false
		} else {
			deps["redis"] = "ok"
		}
	}

	status := http.StatusOK
	state := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}

	c.JSON(status, gin.H{
		"status":       state,
		"service":      h.serviceName,
		"dependencies": deps,
		"time":         time.Now().UTC(),
	})
}

// Online lists users currently online, served from the shared presence
// mirror so the answer covers every instance, not just this one
func (h *StatusHandler) Online(c *gin.Context) {
	users, err := h.online.GetOnlineUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list online users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count": len(users),
		"users": users,
	})
}
