package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sparkcoin-backend/internal/models"
	"sparkcoin-backend/internal/services"
)

// AuthHandler validates Telegram WebApp init data and issues JWTs for the
// protected API group.
type AuthHandler struct {
	jwtService *services.JWTService
	botToken   string
	log        *zap.Logger
}

func NewAuthHandler(jwtService *services.JWTService, botToken string, log *zap.Logger) *AuthHandler {
	return &AuthHandler{jwtService: jwtService, botToken: botToken, log: log}
}

// HandleAuthenticate is GET /auth/telegram?initData=...
func (h *AuthHandler) HandleAuthenticate(c *gin.Context) {
	initData := c.Query("initData")
	if initData == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing initData"})
		return
	}

	user, err := services.ValidateInitData(initData, h.botToken)
	if err != nil {
		h.log.Warn("telegram auth rejected", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid init data"})
		return
	}

	telegramID := strconv.FormatInt(user.ID, 10)
	token, err := h.jwtService.GenerateToken(models.TelegramPrimaryID(telegramID), telegramID)
	if err != nil {
		h.log.Error("token generation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"user": gin.H{
			"telegramId": telegramID,
			"username":   user.DisplayName(),
		},
	})
}
