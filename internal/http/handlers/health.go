package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler mirrors the teacher's internal/http/handlers/health.go:
// a liveness probe with no dependencies, intentionally dumb.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler { return &HealthHandler{} }

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}
