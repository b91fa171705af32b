package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/review-insight-backend/internal/middleware"
)

// PingFunc checks a dependency. db.Ping satisfies it.
type PingFunc func(ctx context.Context) error

type HealthController struct {
	ping PingFunc
}

func NewHealthController(ping PingFunc) *HealthController {
	return &HealthController{ping: ping}
}

// Health liveness + DB 연결 확인
func (ctrl *HealthController) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := ctrl.ping(ctx); err != nil {
		middleware.GetLoggerFromContext(c).Error("Health check failed", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": "ok",
		"message":  "Review Insight API is running",
	})
}
