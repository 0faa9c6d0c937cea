package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"giveaway-engine/internal/common/config"
	"giveaway-engine/internal/common/logger"
	"giveaway-engine/internal/common/middleware"
	"giveaway-engine/internal/giveaway/models"
	"giveaway-engine/internal/giveaway/service"
	"giveaway-engine/internal/giveaway/store"
	filestore "giveaway-engine/internal/giveaway/store/file"
	redisstore "giveaway-engine/internal/giveaway/store/redis"
	giveawayhttp "giveaway-engine/internal/http"
	"giveaway-engine/internal/platform/gateway"
)

func main() {
	cfg := config.Load()
	logger.Init("giveaway-engine", cfg.Debug)

	st, err := newStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize store")
	}

	client := gateway.NewClient(gateway.Config{
		BaseURL: cfg.Gateway.BaseURL,
		Token:   cfg.Gateway.Token,
	})

	manager, err := service.New(&service.Config{
		Client: client,
		Store:  st,
		Defaults: models.Defaults{
			Reaction:      cfg.Giveaway.Reaction,
			BotsCanWin:    cfg.Giveaway.BotsCanWin,
			EmbedColor:    cfg.Giveaway.EmbedColor,
			EmbedColorEnd: cfg.Giveaway.EmbedColorEnd,
		},
		CountdownInterval:   cfg.Giveaway.CountdownInterval,
		RequirementInterval: cfg.Giveaway.RequirementInterval,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize giveaway manager")
	}

	hydrateCtx, cancelHydrate := context.WithTimeout(context.Background(), 30*time.Second)
	if err := manager.Hydrate(hydrateCtx); err != nil {
		cancelHydrate()
		// A corrupt store is fatal: there is no safe partial-recovery policy.
		logger.Fatal().Err(err).Msg("Failed to load persisted giveaways")
	}
	cancelHydrate()

	if err := manager.Run(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.Origin}
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", "Accept"}
	router.Use(cors.New(corsConfig))

	v1 := router.Group("/api/v1")
	giveawayhttp.NewGiveawayHandler(manager).RegisterRoutes(v1)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	manager.Stop()
	logger.Info().Msg("Exited")
}

func newStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Storage.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return redisstore.NewStore(&redisstore.Config{RedisClient: client})
	case "file", "":
		return filestore.NewStore(&filestore.Config{Path: cfg.Storage.Path})
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}
