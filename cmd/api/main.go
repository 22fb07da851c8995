package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"studentrecords/internal/accounts"
	"studentrecords/internal/analytics"
	"studentrecords/internal/attendance"
	"studentrecords/internal/auth"
	"studentrecords/internal/authz"
	"studentrecords/internal/config"
	"studentrecords/internal/department"
	"studentrecords/internal/httpapi"
	"studentrecords/internal/httpmiddleware"
	"studentrecords/internal/logging"
	"studentrecords/internal/store"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Env)
	slog.SetDefault(logger)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, logger); err != nil {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
}

func runHTTP(cfg config.App, logger *slog.Logger) error {
	ctx := context.Background()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if db == nil {
		return err
	}
	if err != nil {
		logger.Warn("db not reachable", "error", err)
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		if err := store.Migrate(ctx, db.Client); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	redisClient := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
	defer redisClient.Close()

	accountRepo := accounts.NewRepository(db.Client)
	registry := auth.NewCachedRegistry(auth.NewPostgresRegistry(db.Client), redisClient.Client, cfg.RefreshTTL, logger)

	srv := httpapi.New(httpapi.Deps{
		Log:        logger,
		Issuer:     auth.NewIssuer(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.AccessTTL, cfg.RefreshTTL, accountRepo),
		Verifier:   auth.NewVerifier(cfg.JWTSigningKey, cfg.JWTIssuer, registry, logger),
		Registry:   registry,
		Guard:      authz.NewGuard(accountRepo, logger),
		Accounts:   accounts.NewService(accountRepo, logger),
		Depts:      department.NewService(department.NewRepository(db.Client), logger),
		Attendance: attendance.NewService(attendance.NewRepository(db.Client), logger),
		Analytics:  analytics.NewEngine(analytics.NewPostgresSource(db.Client), cfg.ReportTimeout, logger),
		Health: map[string]httpapi.HealthChecker{
			"db":    db,
			"redis": redisClient,
		},
	})

	var limiter httpmiddleware.Limiter
	if cfg.RateLimitBackend == "redis" {
		limiter = httpmiddleware.NewRedisWindow(redisClient.Client, cfg.RateLimitPerMin)
	} else {
		limiter = httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	}

	router := srv.Router(
		cors.New(corsConfig(cfg.CORSOrigins)),
		httpmiddleware.SecurityHeaders(),
		httpmiddleware.Metrics(),
		httpmiddleware.RateLimit(limiter, logger),
	)

	httpSrv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.ReportTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.HTTPPort, "env", cfg.Env)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	logger.Info("shutting down server")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced shutdown", "error", err)
	}
	logger.Info("server exited")
	return nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	cfg.MaxAge = 24 * time.Hour
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
