package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"guestfeedback/pkg/logger"
)

const (
	serviceName        = "feedback-service"
	healthCheckTimeout = 3 * time.Second
)

// Pinger - всё, что умеет проверить доступность хранилища
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store Pinger
}

func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

// Health - 200 ok или 503 degraded, если MongoDB недоступна
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		logger.Warn().Err(err).Msg("Health check: store unreachable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "degraded",
			"service": serviceName,
			"checks":  gin.H{"mongodb": "unreachable"},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": serviceName,
	})
}
