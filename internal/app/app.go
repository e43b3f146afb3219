package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ayo6706/trading-backoffice/internal/api"
	"github.com/ayo6706/trading-backoffice/internal/auth"
	"github.com/ayo6706/trading-backoffice/internal/config"
	"github.com/ayo6706/trading-backoffice/internal/db"
	"github.com/ayo6706/trading-backoffice/internal/idempotency"
	"github.com/ayo6706/trading-backoffice/internal/market"
	"github.com/ayo6706/trading-backoffice/internal/observability"
	"github.com/ayo6706/trading-backoffice/internal/policy"
	"github.com/ayo6706/trading-backoffice/internal/repository"
	"github.com/ayo6706/trading-backoffice/internal/repository/memstore"
	"github.com/ayo6706/trading-backoffice/internal/service"
	"github.com/ayo6706/trading-backoffice/internal/worker"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Run bootstraps the HTTP server and reconciliation worker, blocking until
// shutdown.
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	var cache redis.Cmdable
	refreshStore := auth.RefreshStore(auth.NewMemoryRefreshStore())
	if cfg.RedisURL != "" {
		redisClient, err := newRedisClient(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
		cache = redisClient
		refreshStore = auth.NewRedisRefreshStore(redisClient)
		logger.Info("redis connected")
	} else {
		logger.Info("redis disabled, using in-process refresh tokens and database idempotency")
	}

	tokens := auth.NewManager(auth.Config{
		Secret:     cfg.JWTSecret,
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}, refreshStore)

	if err := bootstrapManager(ctx, cfg, service.NewAuthService(store, tokens), logger); err != nil {
		return fmt.Errorf("bootstrap manager: %w", err)
	}

	idemStore := idempotency.NewStore(cache, store.Idempotency(), cfg.IdempotencyTTL)
	feed := market.NewFeed(uint64(time.Now().UnixNano()))
	defer feed.Close()

	reconciler := worker.NewReconciliationWorker(service.NewReconciliationService(store)).
		WithInterval(cfg.ReconciliationInterval)

	server := api.NewRouter(cfg, logger, store, tokens, idemStore, cache, feed).
		WithReconciliation(reconciler).
		Server()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		reconciler.Start(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("http server starting", zap.String("port", cfg.HTTPPort), zap.String("storage", cfg.StorageDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")
		reconciler.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown failed", zap.Error(err))
		}
		return nil
	})

	err = g.Wait()
	logger.Info("shutdown complete")
	return err
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (api.Store, func(), error) {
	if cfg.StorageDriver == config.StorageMemory {
		logger.Warn("using in-memory storage, data is lost on restart")
		return memstore.New(), func() {}, nil
	}
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate database: %w", err)
	}
	logger.Info("connected to database")
	return repository.NewStore(pool), pool.Close, nil
}

func bootstrapManager(ctx context.Context, cfg *config.Config, svc *service.AuthService, logger *zap.Logger) error {
	if cfg.BootstrapManagerEmail == "" {
		return nil
	}
	user, created, err := svc.EnsureUser(ctx, service.ProvisionInput{
		RegisterInput: service.RegisterInput{
			Name:     cfg.BootstrapManagerName,
			Email:    cfg.BootstrapManagerEmail,
			Password: cfg.BootstrapManagerPassword,
		},
		Role: policy.RoleManager,
	})
	if err != nil {
		return err
	}
	if created {
		logger.Info("bootstrap manager created", zap.String("user_id", user.ID.String()))
	}
	return nil
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
