package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sparkcoin-backend/internal/models"
	"sparkcoin-backend/internal/services"
	"sparkcoin-backend/internal/store"
)

// SyncHandler exposes the synchronization core over HTTP.
type SyncHandler struct {
	syncService *services.SyncService
	log         *zap.Logger
}

func NewSyncHandler(syncService *services.SyncService, log *zap.Logger) *SyncHandler {
	return &SyncHandler{syncService: syncService, log: log}
}

// HandleSync is POST /api/sync/unified.
func (h *SyncHandler) HandleSync(c *gin.Context) {
	var req models.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   models.ErrCodeValidation,
			"message": "Invalid request body",
		})
		return
	}

	resp, err := h.syncService.Sync(c.Request.Context(), &req)
	if err != nil {
		h.writeSyncError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *SyncHandler) writeSyncError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrInvalidIdentity):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   models.ErrCodeValidation,
			"message": err.Error(),
		})
	case errors.Is(err, services.ErrMultisessionBlocked):
		c.JSON(http.StatusForbidden, gin.H{
			"success":              false,
			"error":                models.ErrCodeMultisession,
			"message":              "Active session detected on another device",
			"multisessionDetected": true,
		})
	case errors.Is(err, services.ErrStoreBusy):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   models.ErrCodeStorage,
			"message": "Busy, retry shortly",
			"retry":   true,
		})
	default:
		h.log.Error("sync failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   models.ErrCodeStorage,
			"message": "Storage unavailable",
			"retry":   true,
		})
	}
}

// HandleSessionCheck is POST /api/session/check.
func (h *SyncHandler) HandleSessionCheck(c *gin.Context) {
	var req models.SessionCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TelegramID == "" || req.DeviceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"allowed": false,
			"error":   "Missing telegramId or deviceId",
		})
		return
	}

	resp := h.syncService.CheckSession(&req)
	status := http.StatusOK
	if !resp.Allowed {
		status = http.StatusForbidden
	}
	c.JSON(status, resp)
}

// HandleGetPlayer is GET /api/sync/unified/:userId.
func (h *SyncHandler) HandleGetPlayer(c *gin.Context) {
	h.respondWithPlayer(c, c.Param("userId"), "")
}

// HandleGetPlayerByTelegramID is GET /api/sync/telegram/:telegramId.
func (h *SyncHandler) HandleGetPlayerByTelegramID(c *gin.Context) {
	h.respondWithPlayer(c, "", c.Param("telegramId"))
}

func (h *SyncHandler) respondWithPlayer(c *gin.Context, primaryID, telegramID string) {
	record, err := h.syncService.GetPlayer(c.Request.Context(), primaryID, telegramID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Player not found"})
			return
		}
		h.log.Error("player lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": models.ErrCodeStorage})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user": gin.H{
			"userId":      record.PrimaryID,
			"telegramId":  record.TelegramID,
			"username":    record.Username,
			"balance":     record.Balance,
			"totalEarned": record.TotalEarned,
			"totalClicks": record.TotalClicks,
			"upgrades":    record.Upgrades,
			"lastUpdate":  record.LastUpdate,
		},
	})
}
