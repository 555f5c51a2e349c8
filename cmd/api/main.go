package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron/v2"

	"github.com/Haiikyu/reveelbox-sub002/internal/common/config"
	"github.com/Haiikyu/reveelbox-sub002/internal/common/logger"
	"github.com/Haiikyu/reveelbox-sub002/internal/common/middleware"
	"github.com/Haiikyu/reveelbox-sub002/internal/common/ratelimit"
	auditpg "github.com/Haiikyu/reveelbox-sub002/internal/features/audit/repository/postgres"
	auditservice "github.com/Haiikyu/reveelbox-sub002/internal/features/audit/service"
	chathttp "github.com/Haiikyu/reveelbox-sub002/internal/features/chat/delivery/http"
	chatpg "github.com/Haiikyu/reveelbox-sub002/internal/features/chat/repository/postgres"
	chatservice "github.com/Haiikyu/reveelbox-sub002/internal/features/chat/service"
	giveawayhttp "github.com/Haiikyu/reveelbox-sub002/internal/features/giveaway/delivery/http"
	giveawaypg "github.com/Haiikyu/reveelbox-sub002/internal/features/giveaway/repository/postgres"
	giveawayservice "github.com/Haiikyu/reveelbox-sub002/internal/features/giveaway/service"
	userpg "github.com/Haiikyu/reveelbox-sub002/internal/features/user/repository/postgres"
	"github.com/Haiikyu/reveelbox-sub002/internal/platform/captcha"
	"github.com/Haiikyu/reveelbox-sub002/internal/platform/db"
	redisplatform "github.com/Haiikyu/reveelbox-sub002/internal/platform/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad()
	logger.Init("giveaway-engine", cfg.Debug)

	pg, err := db.Open(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pg.Close()

	limiter := ratelimit.NewMemoryLimiter(ratelimit.DefaultRules)
	if cfg.Redis.Enabled {
		rdb, err := redisplatform.New(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		limiter = ratelimit.NewRedisLimiter(rdb, ratelimit.DefaultRules)
	}

	profileRepo := userpg.NewProfileRepository(pg)
	auditRepo := auditpg.NewAuditRepository(pg)
	chatRepo := chatpg.NewChatRepository(pg)
	giveawayRepo := giveawaypg.NewGiveawayRepository(pg)

	recorder := auditservice.NewRecorder(auditRepo)
	chatSvc := chatservice.NewChatService(chatRepo, limiter)
	giveawaySvc := giveawayservice.NewGiveawayService(
		giveawayRepo,
		profileRepo,
		chatSvc,
		recorder,
		auditRepo,
		captcha.NewClient(cfg),
		limiter,
	)
	sweeper := giveawayservice.NewSweeper(giveawaySvc, giveawayRepo)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.Server.Origin},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-User-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	api.Use(middleware.Identity(profileRepo))
	giveawayhttp.NewGiveawayHandler(giveawaySvc, sweeper).RegisterRoutes(api)
	chathttp.NewChatHandler(chatSvc).RegisterRoutes(api)

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create scheduler")
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(cfg.Sweeper.Interval),
		gocron.NewTask(func() {
			sweepCtx, cancel := context.WithTimeout(context.Background(), cfg.Sweeper.Interval)
			defer cancel()
			outcomes := sweeper.Sweep(sweepCtx)
			if len(outcomes) > 0 {
				logger.Info().Int("count", len(outcomes)).Msg("Sweep pass finalized giveaways")
			}
		}),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to schedule sweep job")
	}
	if c, ok := limiter.(interface{ Cleanup() }); ok {
		_, err = scheduler.NewJob(
			gocron.DurationJob(time.Hour),
			gocron.NewTask(c.Cleanup),
		)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to schedule limiter cleanup")
		}
	}
	scheduler.Start()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	if err := scheduler.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("Scheduler shutdown failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	logger.Info().Msg("Server stopped")
}
