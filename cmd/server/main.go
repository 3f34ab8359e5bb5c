package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/cache"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/config"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/httpapi"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/logging"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/service"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/store"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/store/memory"
	pgstore "github.com/HahshmataLI/Hamza-trader-pos-f/internal/store/postgres"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/upstream"
)

var version = "dev"

const sessionPurgeInterval = 10 * time.Minute

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("could not read .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(logging.Config{
		Level:       cfg.LogLevel,
		Service:     "hamza-trader-gateway",
		Environment: cfg.Environment,
	})
	slog.SetDefault(logger)

	if err := validateSecurityConfig(cfg); err != nil {
		logger.Error("invalid security configuration", "error", err)
		os.Exit(1)
	}
	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)
	defer func() {
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				logger.Warn("close error", "error", err)
			}
		}
	}()

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("postgres unavailable and DATABASE_URL is set: %w", err)
		}
		closers = append(closers, pg.Close)
		if err := pg.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		repo = pg
		logger.Info("draft store ready", "backend", "postgres")
	} else {
		repo = memory.New()
		logger.Info("draft store ready", "backend", "memory")
	}

	healthChecks := []httpapi.HealthCheck{{Name: "draft-store", Check: repo.Ping}}

	var snapshots cache.SnapshotCache = cache.NoopSnapshotCache{}
	if cfg.RedisAddr != "" {
		redisCache := cache.Dial(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, snapshots are not cached", "error", err)
			_ = redisCache.Close()
		} else {
			snapshots = redisCache
			closers = append(closers, redisCache.Close)
			healthChecks = append(healthChecks, httpapi.HealthCheck{Name: "redis", Check: redisCache.Ping, Optional: true})
			logger.Info("snapshot cache ready", "backend", "redis")
		}
	}

	breaker := upstream.DefaultBreakerConfig()
	breaker.FailureThreshold = cfg.BreakerFailures
	breaker.Timeout = cfg.BreakerCooldown
	backend := upstream.New(upstream.Config{
		BaseURL: cfg.UpstreamURL,
		Timeout: cfg.UpstreamTimeout,
		Breaker: breaker,
	}, logger)
	healthChecks = append(healthChecks, httpapi.HealthCheck{Name: "backend-api", Check: backend.Healthy})

	auth, err := httpapi.NewAuthManager(cfg.AuthSecret, cfg.SessionTTL, cfg.ManagerPIN)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	opts := service.Options{
		Logger:      logger,
		Cache:       snapshots,
		SnapshotTTL: cfg.SnapshotTTL,
		SessionTTL:  cfg.SessionTTL,
	}
	if auth.PINRequired() {
		opts.VerifyPIN = auth.ValidateManagerPIN
	}
	svc := service.New(repo, backend, opts)

	api, err := httpapi.New(svc, auth, httpapi.Options{
		AllowedOrigin: cfg.AllowedOrigin,
		Logger:        logger,
		Version:       version,
		HealthChecks:  healthChecks,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.UpstreamTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go purgeSessions(runCtx, svc, logger)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("gateway listening", "addr", cfg.Address(), "upstream", cfg.UpstreamURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-runCtx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", "error", err)
	}
	logger.Info("server stopped")
	return nil
}

func purgeSessions(ctx context.Context, svc *service.Service, logger *slog.Logger) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.PurgeExpiredSessions(ctx)
			if err != nil {
				logger.Warn("session purge failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("expired sessions purged", "count", n)
			}
		}
	}
}

func validateSecurityConfig(cfg config.Config) error {
	if cfg.Environment != "development" && len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.ManagerPIN == "" {
		return nil
	}
	if len(cfg.ManagerPIN) < 6 {
		return fmt.Errorf("MANAGER_PIN must be at least 6 digits")
	}
	if err := validatePINStrength(cfg.ManagerPIN); err != nil {
		return fmt.Errorf("MANAGER_PIN is too weak: %w", err)
	}
	return nil
}

// validatePINStrength rejects PINs that repeat one digit, run in sequence or
// appear on the common list.
func validatePINStrength(pin string) error {
	common := map[string]bool{
		"123456": true, "654321": true, "121212": true, "112233": true, "123123": true,
	}
	if common[pin] {
		return fmt.Errorf("common PIN not allowed")
	}

	same, ascending, descending := true, true, true
	for i := 1; i < len(pin); i++ {
		diff := int(pin[i]) - int(pin[i-1])
		same = same && diff == 0
		ascending = ascending && diff == 1
		descending = descending && diff == -1
	}
	switch {
	case same:
		return fmt.Errorf("all-same-digit PIN not allowed")
	case ascending, descending:
		return fmt.Errorf("sequential PIN not allowed")
	}
	return nil
}
