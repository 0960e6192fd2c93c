package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlers handles health check and monitoring endpoints
type HealthHandlers struct {
	db      Pinger
	redis   redis.UniversalClient
	started time.Time
	timeout time.Duration
}

// NewHealthHandlers accepts a nil redis client when redis is not configured.
func NewHealthHandlers(db Pinger, redisClient redis.UniversalClient) *HealthHandlers {
	return &HealthHandlers{
		db:      db,
		redis:   redisClient,
		started: time.Now(),
		timeout: 2 * time.Second,
	}
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services,omitempty"`
	Uptime    string            `json:"uptime"`
}

// LivenessCheck only reports that the process is serving.
func (h *HealthHandlers) LivenessCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthStatus{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
	})
}

// ReadinessCheck fails when a critical dependency cannot be reached.
func (h *HealthHandlers) ReadinessCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  make(map[string]string),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
	}

	if err := h.db.Ping(ctx); err != nil {
		status.Services["database"] = "unhealthy"
		status.Status = "not_ready"
	} else {
		status.Services["database"] = "healthy"
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			status.Services["redis"] = "unhealthy"
			status.Status = "not_ready"
		} else {
			status.Services["redis"] = "healthy"
		}
	}

	code := http.StatusOK
	if status.Status != "ready" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, status)
}
