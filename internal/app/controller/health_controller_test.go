package controller

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestHealthController(t *testing.T) {
	gin.SetMode(gin.TestMode)

	healthy := gin.New()
	healthy.GET("/health", NewHealthController(func(context.Context) error { return nil }).Health)
	w := doJSON(healthy, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)

	down := gin.New()
	down.GET("/health", NewHealthController(func(context.Context) error { return errors.New("dial tcp: refused") }).Health)
	w = doJSON(down, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "unhealthy")
}
