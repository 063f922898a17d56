package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"sparkcoin-backend/internal/config"
	"sparkcoin-backend/internal/handlers"
	"sparkcoin-backend/internal/logger"
	"sparkcoin-backend/internal/middleware"
	"sparkcoin-backend/internal/services"
	"sparkcoin-backend/internal/session"
	"sparkcoin-backend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	var playerStore store.Store
	redisStore, err := store.NewRedisStore(cfg.Redis, zlog)
	if err != nil {
		zlog.Warn("redis unavailable, falling back to in-memory store", zap.Error(err))
		playerStore = store.NewMemoryStore()
	} else {
		playerStore = redisStore
	}
	defer playerStore.Close()

	registry := session.NewRegistry(cfg.Session.Timeout, cfg.Session.SweepInterval, zlog)
	registry.Start()
	defer registry.Stop()

	metrics := services.NewMetrics(registry)

	wsHandler := handlers.NewWebSocketHandler(zlog)

	syncService := services.NewSyncService(playerStore, registry, cfg.Game, zlog, metrics, wsHandler)
	transferService := services.NewTransferService(playerStore, zlog, metrics, wsHandler)
	jwtService := services.NewJWTService(cfg.JWTKey)

	syncHandler := handlers.NewSyncHandler(syncService, zlog)
	playerHandler := handlers.NewPlayerHandler(playerStore, transferService, zlog)
	adminHandler := handlers.NewAdminHandler(playerStore, registry, zlog)
	authHandler := handlers.NewAuthHandler(jwtService, cfg.BotToken, zlog)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/auth/telegram", authHandler.HandleAuthenticate)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.Use(middleware.RateLimitMiddleware(playerStore))
	{
		api.POST("/sync/unified", syncHandler.HandleSync)
		api.GET("/sync/unified/:userId", syncHandler.HandleGetPlayer)
		api.GET("/sync/telegram/:telegramId", syncHandler.HandleGetPlayerByTelegramID)
		api.POST("/session/check", syncHandler.HandleSessionCheck)

		api.GET("/leaderboard", playerHandler.HandleLeaderboard)
		api.POST("/transfer", playerHandler.HandleTransfer)
		api.GET("/referral/stats/:userId", playerHandler.HandleReferralStats)

		api.GET("/health", adminHandler.HandleHealth)
		api.GET("/ws", wsHandler.HandleWebSocket)

		admin := api.Group("/")
		admin.Use(middleware.AuthMiddleware(jwtService))
		{
			admin.GET("/session/stats", adminHandler.HandleSessionStats)
		}
	}

	zlog.Info("server starting", zap.String("port", cfg.Port))
	if err := router.Run(":" + cfg.Port); err != nil {
		zlog.Fatal("server exited", zap.Error(err))
	}
}
