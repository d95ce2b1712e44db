package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dealdesk/dealdesk/internal/api"
	"github.com/dealdesk/dealdesk/internal/chat"
	"github.com/dealdesk/dealdesk/internal/config"
	"github.com/dealdesk/dealdesk/internal/db"
	"github.com/dealdesk/dealdesk/internal/hub"
	"github.com/dealdesk/dealdesk/internal/middleware"
	"github.com/dealdesk/dealdesk/internal/observ"
	"github.com/dealdesk/dealdesk/internal/repository/postgres"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// ---------------------------------------------------------------
	// 1. Config and logger
	// ---------------------------------------------------------------
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---------------------------------------------------------------
	// 2. Postgres pool + schema
	// ---------------------------------------------------------------
	database, err := db.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	pool := database.Pool()
	userRepo := postgres.NewUserStore(pool)
	channelRepo := postgres.NewChannelStore(pool)
	membershipRepo := postgres.NewMembershipStore(pool)
	threadRepo := postgres.NewDMThreadStore(pool)
	messageRepo := postgres.NewMessageStore(pool)
	conversationRepo := postgres.NewConversationStore(pool)

	// ---------------------------------------------------------------
	// 3. Realtime hub, with a Redis bridge when REDIS_URL is set so
	//    fanout reaches clients connected to peer instances.
	// ---------------------------------------------------------------
	realtimeHub := hub.New(logger)

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		bridge := hub.NewBridge(rdb, realtimeHub, logger)
		go func() {
			if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("fanout bridge stopped", zap.Error(err))
			}
		}()
	} else {
		logger.Info("no REDIS_URL set, running single-instance fanout")
	}

	// ---------------------------------------------------------------
	// 4. Chat service + HTTP surface
	// ---------------------------------------------------------------
	chatSvc := chat.NewService(
		userRepo,
		channelRepo,
		membershipRepo,
		threadRepo,
		messageRepo,
		conversationRepo,
		realtimeHub,
		logger,
	)

	channelHandler := api.NewChannelHandler(chatSvc, logger)
	membershipHandler := api.NewMembershipHandler(chatSvc, logger)
	messageHandler := api.NewMessageHandler(chatSvc, logger)
	dmHandler := api.NewDMHandler(chatSvc, logger)
	conversationHandler := api.NewConversationHandler(chatSvc, logger)

	srv := gin.New()
	srv.Use(gin.Logger(), gin.Recovery())

	// Public: load balancers health-check without credentials, and the
	// websocket upgrade authenticates via token query param.
	srv.GET("/v1/health", func(c *gin.Context) {
		if err := database.Health(c.Request.Context()); err != nil {
			c.JSON(503, gin.H{"status": "degraded"})
			return
		}
		c.JSON(200, gin.H{"status": "ok"})
	})
	srv.GET("/v1/ws", hub.ServeWS(realtimeHub, cfg.JWTSecret, logger))

	v1 := srv.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg.JWTSecret))

	v1.POST("/channels", channelHandler.Create)
	v1.POST("/channels/:id/rename", channelHandler.Rename)
	v1.GET("/channels/:id/members", membershipHandler.List)
	v1.POST("/channels/:id/members", membershipHandler.Add)
	v1.DELETE("/channels/:id/members/:userID", membershipHandler.Remove)
	v1.POST("/channels/:id/messages", messageHandler.Send)
	v1.GET("/channels/:id/messages", messageHandler.List)
	v1.POST("/dms", dmHandler.Open)
	v1.POST("/dms/:id/messages", dmHandler.Send)
	v1.GET("/dms/:id/messages", dmHandler.List)
	v1.GET("/conversations", conversationHandler.List)

	logger.Info("starting dealdesk",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
	)

	return srv.Run(":" + cfg.Port)
}
