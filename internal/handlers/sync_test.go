package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sparkcoin-backend/internal/config"
	"sparkcoin-backend/internal/handlers"
	"sparkcoin-backend/internal/models"
	"sparkcoin-backend/internal/services"
	"sparkcoin-backend/internal/session"
	"sparkcoin-backend/internal/store"
)

func setupTestRouter(t *testing.T) (*gin.Engine, *store.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := store.NewMemoryStore()
	registry := session.NewRegistry(15*time.Second, time.Hour, zap.NewNop())

	cfg := config.Game{
		MaxBalance:  1000,
		MaxEarned:   10000,
		MaxClicks:   10000000,
		MaxUpgrade:  1000,
		LockTimeout: time.Second,
	}

	syncService := services.NewSyncService(s, registry, cfg, zap.NewNop(), services.NoopMetrics{}, services.NoopBroadcaster{})
	transferService := services.NewTransferService(s, zap.NewNop(), services.NoopMetrics{}, services.NoopBroadcaster{})

	syncHandler := handlers.NewSyncHandler(syncService, zap.NewNop())
	playerHandler := handlers.NewPlayerHandler(s, transferService, zap.NewNop())
	adminHandler := handlers.NewAdminHandler(s, registry, zap.NewNop())

	router := gin.New()
	api := router.Group("/api")
	api.POST("/sync/unified", syncHandler.HandleSync)
	api.GET("/sync/unified/:userId", syncHandler.HandleGetPlayer)
	api.GET("/sync/telegram/:telegramId", syncHandler.HandleGetPlayerByTelegramID)
	api.POST("/session/check", syncHandler.HandleSessionCheck)
	api.GET("/leaderboard", playerHandler.HandleLeaderboard)
	api.POST("/transfer", playerHandler.HandleTransfer)
	api.GET("/referral/stats/:userId", playerHandler.HandleReferralStats)
	api.GET("/health", adminHandler.HandleHealth)

	return router, s
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHandleSyncCreatesAndMerges(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/sync/unified", gin.H{
		"telegramId": "1",
		"username":   "alice",
		"balance":    5,
		"deviceId":   "dA",
		"upgrades":   gin.H{"click_power": 2},
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "telegram:1", body["userId"])
	assert.Equal(t, 5.0, body["bestBalance"])
	assert.Equal(t, 1.0, body["upgradesCount"])

	// Re-sync from the same device with lower balance: best-of keeps 5.
	w = doJSON(t, router, http.MethodPost, "/api/sync/unified", gin.H{
		"telegramId": "1",
		"username":   "alice",
		"balance":    3,
		"deviceId":   "dA",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5.0, decode(t, w)["bestBalance"])
}

func TestHandleSyncValidationError(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/sync/unified", gin.H{
		"telegramId": "1",
		"username":   "alice",
		"balance":    5000,
		"deviceId":   "dA",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.ErrCodeValidation, decode(t, w)["error"])
}

func TestHandleSyncMultisessionBlocked(t *testing.T) {
	router, s := setupTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/sync/unified", gin.H{
		"telegramId": "1",
		"username":   "alice",
		"balance":    5,
		"deviceId":   "dA",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/sync/unified", gin.H{
		"telegramId": "1",
		"username":   "alice",
		"balance":    3,
		"deviceId":   "dB",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	body := decode(t, w)
	assert.Equal(t, models.ErrCodeMultisession, body["error"])
	assert.Equal(t, true, body["multisessionDetected"])

	// The blocked call persisted nothing.
	record, err := s.Get(context.Background(), "telegram:1")
	require.NoError(t, err)
	assert.Equal(t, 5.0, record.Balance)
}

func TestHandleSessionCheck(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/session/check", gin.H{
		"telegramId": "1",
		"deviceId":   "dA",
		"username":   "alice",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["allowed"])

	w = doJSON(t, router, http.MethodPost, "/api/session/check", gin.H{
		"telegramId": "1",
		"deviceId":   "dB",
		"username":   "alice",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, false, decode(t, w)["allowed"])

	w = doJSON(t, router, http.MethodPost, "/api/session/check", gin.H{"telegramId": "1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGetPlayer(t *testing.T) {
	router, s := setupTestRouter(t)

	require.NoError(t, s.UpsertAll(context.Background(), []*models.PlayerRecord{
		{PrimaryID: "u1", TelegramID: "42", Username: "alice", Balance: 7},
	}))

	w := doJSON(t, router, http.MethodGet, "/api/sync/unified/u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	user := decode(t, w)["user"].(map[string]any)
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, 7.0, user["balance"])

	w = doJSON(t, router, http.MethodGet, "/api/sync/telegram/42", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/sync/unified/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleLeaderboard(t *testing.T) {
	router, s := setupTestRouter(t)

	require.NoError(t, s.UpsertAll(context.Background(), []*models.PlayerRecord{
		{PrimaryID: "u1", Username: "alice", Balance: 5},
		{PrimaryID: "u2", Username: "bob", Balance: 50},
	}))

	w := doJSON(t, router, http.MethodGet, "/api/leaderboard?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	leaders := body["leaderboard"].([]any)
	require.Len(t, leaders, 2)
	first := leaders[0].(map[string]any)
	assert.Equal(t, "bob", first["username"])
	assert.Equal(t, 1.0, first["rank"])
}

func TestHandleTransfer(t *testing.T) {
	router, s := setupTestRouter(t)

	require.NoError(t, s.UpsertAll(context.Background(), []*models.PlayerRecord{
		{PrimaryID: "u1", Username: "alice", Balance: 10},
		{PrimaryID: "u2", Username: "bob", Balance: 1},
	}))

	w := doJSON(t, router, http.MethodPost, "/api/transfer", gin.H{
		"fromUserId":   "u1",
		"toUserId":     "u2",
		"amount":       4,
		"fromUsername": "alice",
	})
	require.Equal(t, http.StatusOK, w.Code)

	sender, _ := s.Get(context.Background(), "u1")
	assert.Equal(t, 6.0, sender.Balance)

	// Overdraft is rejected without touching balances.
	w = doJSON(t, router, http.MethodPost, "/api/transfer", gin.H{
		"fromUserId":   "u1",
		"toUserId":     "u2",
		"amount":       100,
		"fromUsername": "alice",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	sender, _ = s.Get(context.Background(), "u1")
	assert.Equal(t, 6.0, sender.Balance)
}

func TestHandleHealth(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body, "sessions")
}
