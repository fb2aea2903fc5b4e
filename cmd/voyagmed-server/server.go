package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/krauzhul/VoyagMED/internal/config"
	"github.com/krauzhul/VoyagMED/internal/domain/dashboard"
	"github.com/krauzhul/VoyagMED/internal/domain/drug"
	"github.com/krauzhul/VoyagMED/internal/domain/journal"
	"github.com/krauzhul/VoyagMED/internal/domain/medicaldata"
	"github.com/krauzhul/VoyagMED/internal/domain/notification"
	"github.com/krauzhul/VoyagMED/internal/domain/patient"
	"github.com/krauzhul/VoyagMED/internal/domain/relay"
	"github.com/krauzhul/VoyagMED/internal/domain/task"
	"github.com/krauzhul/VoyagMED/internal/platform/auth"
	"github.com/krauzhul/VoyagMED/internal/platform/db"
	"github.com/krauzhul/VoyagMED/internal/platform/metrics"
	"github.com/krauzhul/VoyagMED/internal/platform/middleware"
	"github.com/krauzhul/VoyagMED/internal/platform/telegram"
)

const webhookPath = "/telegram/webhook"

func runServer(cfg *config.Config, logger zerolog.Logger) error {
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return err
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	collector := metrics.NewCollector("voyagmed", prometheus.DefaultRegisterer)

	bot, err := telegram.New(telegram.Config{
		Token:       cfg.TelegramBotToken,
		APIEndpoint: cfg.TelegramAPIEndpoint,
	}, logger, collector)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to telegram")
		return err
	}
	logger.Info().Str("bot", bot.Username()).Msg("connected to telegram")

	e := newServer(cfg, logger, collector)
	registerRoutes(e, cfg, logger, pool, newRelayStore(cfg, pool), bot, collector)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("relay_store", cfg.RelayStore).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func newRelayStore(cfg *config.Config, pool *pgxpool.Pool) relay.Store {
	if cfg.RelayStore == config.StorePostgREST {
		return relay.NewStorePostgREST(cfg.SupabaseURL, cfg.SupabaseServiceKey)
	}
	return relay.NewStorePG(pool)
}

// newServer builds the echo instance with the global middleware chain.
func newServer(cfg *config.Config, logger zerolog.Logger, collector *metrics.Collector) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Metrics(collector))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		Skip:              skipRateLimit,
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	return e
}

// skipRateLimit exempts Telegram's deliveries and the probes.
func skipRateLimit(c echo.Context) bool {
	p := c.Request().URL.Path
	return p == webhookPath || p == "/metrics" || strings.HasPrefix(p, "/health")
}

func staffAuth(cfg *config.Config) echo.MiddlewareFunc {
	jwtCfg := auth.JWTConfig{SigningKey: []byte(cfg.AuthJWTSecret)}
	if cfg.IsDev() {
		return auth.DevAuthMiddleware(jwtCfg)
	}
	return auth.JWTMiddleware(jwtCfg)
}

func registerRoutes(e *echo.Echo, cfg *config.Config, logger zerolog.Logger, pool *pgxpool.Pool,
	store relay.Store, bot relay.Messenger, collector *metrics.Collector) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(pool))
	e.GET("/metrics", echo.WrapHandler(collector.Handler()))

	dispatcher := relay.NewDispatcher(store, bot, logger, collector)
	relayHandler := relay.NewHandler(relay.HandlerDeps{
		Dispatcher:    dispatcher,
		Receiver:      relay.NewReceiver(store, bot, logger, collector),
		Onboarding:    relay.NewOnboarding(store, bot, logger, collector),
		Directory:     store,
		Acks:          store,
		WebhookSecret: cfg.TelegramWebhookSecret,
		Logger:        logger,
	})
	relayHandler.RegisterWebhook(e.Group(""))

	apiV1 := e.Group("/api/v1", staffAuth(cfg))
	relayHandler.RegisterRoutes(apiV1)

	patient.NewHandler(patient.NewService(patient.NewPatientRepoPG(pool))).RegisterRoutes(apiV1)
	task.NewHandler(task.NewService(task.NewTaskRepoPG(pool))).RegisterRoutes(apiV1)
	journal.NewHandler(journal.NewService(journal.NewEntryRepoPG(pool))).RegisterRoutes(apiV1)
	drug.NewHandler(drug.NewService(drug.NewPrescriptionRepoPG(pool))).RegisterRoutes(apiV1)
	medicaldata.NewHandler(medicaldata.NewService(medicaldata.NewRecordRepoPG(pool))).RegisterRoutes(apiV1)
	dashboard.NewHandler(dashboard.NewSourcePG(pool)).RegisterRoutes(apiV1)

	notification.NewHandler(notification.NewService(notification.ServiceDeps{
		Notifications: notification.NewNotificationRepoPG(pool),
		Sender:        dispatcher,
		Acks:          store,
		MaxAttempts:   cfg.NotifyMaxAttempts,
		Logger:        logger,
		Metrics:       collector,
	})).RegisterRoutes(apiV1)
}
