package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/swasthya/healthcard/internal/config"
	"github.com/swasthya/healthcard/internal/domain/admin"
	"github.com/swasthya/healthcard/internal/domain/emergency"
	"github.com/swasthya/healthcard/internal/domain/healthprofile"
	"github.com/swasthya/healthcard/internal/domain/identity"
	"github.com/swasthya/healthcard/internal/domain/record"
	"github.com/swasthya/healthcard/internal/platform/auth"
	"github.com/swasthya/healthcard/internal/platform/blobstore"
	"github.com/swasthya/healthcard/internal/platform/db"
	"github.com/swasthya/healthcard/internal/platform/middleware"
	"github.com/swasthya/healthcard/internal/platform/telemetry"
)

const (
	requestTimeout    = 30 * time.Second
	publicLimitKeys   = "healthcard:public"
	jsonBodyLimit     = 1 << 20
	multipartOverhead = 64 << 10
)

// newServer wires every service onto an echo instance. It does not start
// listening.
func newServer(ctx context.Context, cfg *config.Config, st *stores, logger zerolog.Logger) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Rate limit keys and audit IPs come from c.RealIP().
	extractIP, err := middleware.ClientIPExtractor(cfg.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}
	e.IPExtractor = extractIP

	metrics := telemetry.New(prometheus.NewRegistry()).WithRuntimeCollectors()

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(metrics.Middleware())
	e.Use(middleware.SecurityHeaders(cfg.TLSEnabled))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.BodyLimit(jsonBodyLimit, cfg.MaxUploadBytes()+multipartOverhead))
	e.Use(middleware.RequestTimeout(requestTimeout))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(st.pinger()))
	e.GET("/metrics", metrics.Handler())

	// Services
	tokens := auth.NewTokenIssuer(jwtConfig(cfg))
	identitySvc := identity.NewService(st.users, tokens)
	profileSvc := healthprofile.NewService(st.profiles, logger)
	recordSvc := record.NewService(st.records, identitySvc, logger)
	recorder := emergency.NewRecorder(st.logs)
	emergencySvc := emergency.NewService(emergency.Deps{
		Tokens:   st.tokens,
		Recorder: recorder,
		Profiles: st.profiles,
		Users:    st.users,
		Records:  st.records,
		Tx:       st.tx,
		Logger:   logger,
	})
	emergencySvc.SetObserver(metrics)
	fileSvc := blobstore.NewService(st.blobs, st.files, cfg.MaxUploadBytes(), "/api/v1/files", logger)
	adminSvc := admin.NewService(identitySvc, profileSvc, recordSvc, recorder)

	// Public emergency surface: no authentication, per-client rate limit.
	limiter, err := publicLimiter(ctx, e, cfg, logger)
	if err != nil {
		return nil, err
	}
	public := e.Group("", middleware.PublicRateLimit(limiter, cfg.PublicRateLimitPerMin, logger))
	emergencyHandler := emergency.NewHandler(emergencySvc)
	emergencyHandler.RegisterPublicRoutes(public)

	// Authenticated API
	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))
	apiV1.Use(auth.JWTMiddleware(jwtConfig(cfg)))

	identity.NewHandler(identitySvc).RegisterRoutes(apiV1)
	healthprofile.NewHandler(profileSvc, identitySvc, cfg.PublicBaseURL).RegisterRoutes(apiV1)
	record.NewHandler(recordSvc).RegisterRoutes(apiV1)
	emergencyHandler.RegisterRoutes(apiV1)
	blobstore.NewHandler(fileSvc).RegisterRoutes(apiV1)
	admin.NewHandler(adminSvc, logger).RegisterRoutes(apiV1)

	return e, nil
}

// publicLimiter shares counters through Redis when REDIS_URL is set and
// falls back to a per-process limiter otherwise.
func publicLimiter(ctx context.Context, e *echo.Echo, cfg *config.Config, logger zerolog.Logger) (middleware.Limiter, error) {
	if cfg.RedisURL == "" {
		return middleware.NewPerMinuteLimiter(cfg.PublicRateLimitPerMin), nil
	}
	client, err := middleware.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	e.Server.RegisterOnShutdown(func() {
		if err := client.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing redis client")
		}
	})
	logger.Info().Msg("public rate limit backed by redis")
	return middleware.NewRedisLimiter(client, publicLimitKeys, cfg.PublicRateLimitPerMin, time.Minute), nil
}
