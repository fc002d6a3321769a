package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ayo6706/custodial-ledger/internal/api"
	"github.com/ayo6706/custodial-ledger/internal/auth"
	"github.com/ayo6706/custodial-ledger/internal/clock"
	"github.com/ayo6706/custodial-ledger/internal/config"
	"github.com/ayo6706/custodial-ledger/internal/custody"
	"github.com/ayo6706/custodial-ledger/internal/db"
	"github.com/ayo6706/custodial-ledger/internal/observability"
	"github.com/ayo6706/custodial-ledger/internal/repository"
	"github.com/ayo6706/custodial-ledger/internal/service"
	"github.com/ayo6706/custodial-ledger/internal/worker"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Run bootstraps the ledger, the HTTP server and the reconciliation worker,
// blocking until shutdown.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	observability.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, redisClient, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("ledger store ready", zap.String("driver", cfg.StoreDriver))

	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)
	if err != nil {
		return fmt.Errorf("init credential issuer: %w", err)
	}

	ledger := service.NewLedger(store, clock.NewWall(cfg.EpochGenesis, cfg.EpochDuration), issuer, cfg.Defaults, logger)
	adminCredential, err := ledger.Open(ctx, custody.NewBucket(cfg.InitialFund))
	if err != nil {
		return err
	}
	if err := writeCredential(cfg.AdminCredentialPath, adminCredential); err != nil {
		return fmt.Errorf("write admin credential: %w", err)
	}
	logger.Info("admin credential written", zap.String("path", cfg.AdminCredentialPath))

	reconciler := worker.NewReconciliationWorker(service.NewReconciliationService(store)).
		WithInterval(cfg.ReconciliationInterval)
	stopWorker := reconciler.Run(ctx)
	logger.Info("reconciliation worker started", zap.Duration("interval", cfg.ReconciliationInterval))

	var readiness redis.Cmdable
	if redisClient != nil {
		readiness = redisClient
	}
	router := api.NewRouter(cfg, logger, ledger, issuer, store, readiness)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("port", cfg.HTTPPort))
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			stopWorker()
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("stopping reconciliation worker")
	stopWorker()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

// openStore builds the configured registry backend. The returned Redis
// client is non-nil only for the redis driver.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, *redis.Client, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate database: %w", err)
		}
		return repository.NewPostgresStore(pool), nil, nil
	case config.StoreRedis:
		client, err := newRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return repository.NewRedisStore(client), client, nil
	default:
		return repository.NewMemoryStore(), nil, nil
	}
}

func writeCredential(path, credential string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(credential+"\n"), 0o600)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info", "":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
