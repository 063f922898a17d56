package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sparkcoin-backend/internal/models"
	"sparkcoin-backend/internal/services"
	"sparkcoin-backend/internal/store"
)

// PlayerHandler serves the leaderboard, referral and transfer endpoints.
type PlayerHandler struct {
	store           store.Store
	transferService *services.TransferService
	log             *zap.Logger
}

func NewPlayerHandler(s store.Store, transferService *services.TransferService, log *zap.Logger) *PlayerHandler {
	return &PlayerHandler{store: s, transferService: transferService, log: log}
}

// HandleLeaderboard is GET /api/leaderboard?type=balance|earned&limit=N.
func (h *PlayerHandler) HandleLeaderboard(c *gin.Context) {
	leaderboardType := c.DefaultQuery("type", store.ByBalance)
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)

	records, err := h.store.Top(c.Request.Context(), leaderboardType, limit)
	if err != nil {
		h.log.Error("leaderboard query failed", zap.Error(err))
		// The board is presentation glue; an empty one beats an error page.
		c.JSON(http.StatusOK, gin.H{"success": true, "leaderboard": []models.LeaderboardEntry{}, "type": leaderboardType})
		return
	}

	leaders := make([]models.LeaderboardEntry, 0, len(records))
	for i, record := range records {
		leaders = append(leaders, models.LeaderboardEntry{
			Rank:        i + 1,
			UserID:      record.PrimaryID,
			Username:    record.Username,
			Balance:     record.Balance,
			TotalEarned: record.TotalEarned,
			TotalClicks: record.TotalClicks,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"leaderboard": leaders,
		"type":        leaderboardType,
	})
}

// HandleTransfer is POST /api/transfer.
func (h *PlayerHandler) HandleTransfer(c *gin.Context) {
	var req models.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}

	if err := h.transferService.Transfer(c.Request.Context(), &req); err != nil {
		if errors.Is(err, services.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
		h.log.Error("transfer failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Transfer failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Transfer complete"})
}

// HandleReferralStats is GET /api/referral/stats/:userId.
func (h *PlayerHandler) HandleReferralStats(c *gin.Context) {
	userID := c.Param("userId")

	record, err := h.store.Get(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Player not found"})
			return
		}
		h.log.Error("referral stats query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": models.ErrCodeStorage})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats": gin.H{
			"referralsCount": record.ReferralCount,
			"totalEarnings":  record.ReferralEarnings,
		},
		"referralCode": record.ReferralCode,
	})
}
