package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sparkcoin-backend/internal/session"
	"sparkcoin-backend/internal/store"
)

// AdminHandler serves the health and introspection endpoints.
type AdminHandler struct {
	store    store.Store
	registry *session.Registry
	log      *zap.Logger
}

func NewAdminHandler(s store.Store, registry *session.Registry, log *zap.Logger) *AdminHandler {
	return &AdminHandler{store: s, registry: registry, log: log}
}

// HandleHealth is GET /api/health.
func (h *AdminHandler) HandleHealth(c *gin.Context) {
	stats := h.registry.Stats()

	players, err := h.store.Count(c.Request.Context())
	if err != nil {
		h.log.Error("health check store probe failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "degraded",
			"error":  "storage unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
		"players":   players,
		"sessions": gin.H{
			"total_sessions":  stats.Total,
			"active_sessions": stats.Active,
			"session_timeout": stats.Timeout.Seconds(),
		},
	})
}

// HandleSessionStats is GET /api/session/stats (JWT-protected).
func (h *AdminHandler) HandleSessionStats(c *gin.Context) {
	stats := h.registry.Stats()
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"total_sessions":  stats.Total,
		"active_sessions": stats.Active,
		"session_timeout": stats.Timeout.Seconds(),
	})
}
