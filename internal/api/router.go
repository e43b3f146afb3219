package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ayo6706/trading-backoffice/internal/api/handler"
	"github.com/ayo6706/trading-backoffice/internal/api/middleware"
	"github.com/ayo6706/trading-backoffice/internal/api/problem"
	"github.com/ayo6706/trading-backoffice/internal/api/spec"
	"github.com/ayo6706/trading-backoffice/internal/auth"
	"github.com/ayo6706/trading-backoffice/internal/config"
	"github.com/ayo6706/trading-backoffice/internal/domain"
	"github.com/ayo6706/trading-backoffice/internal/idempotency"
	"github.com/ayo6706/trading-backoffice/internal/market"
	"github.com/ayo6706/trading-backoffice/internal/policy"
	"github.com/ayo6706/trading-backoffice/internal/repository"
	"github.com/ayo6706/trading-backoffice/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

// Store is the system of record seen by the HTTP layer.
type Store interface {
	service.QueryStore
	Idempotency() repository.IdempotencyQuerier
	Ping(ctx context.Context) error
}

type Router struct {
	cfg    *config.Config
	logger *zap.Logger
	store  Store
	tokens *auth.Manager
	idem   *idempotency.Store
	redis  redis.Cmdable
	feed   *market.Feed

	reconciliation handler.ReconciliationStatus
}

// NewRouter wires handlers over store. redisClient may be nil.
func NewRouter(cfg *config.Config, logger *zap.Logger, store Store, tokens *auth.Manager, idemStore *idempotency.Store, redisClient redis.Cmdable, feed *market.Feed) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		cfg:    cfg,
		logger: logger,
		store:  store,
		tokens: tokens,
		idem:   idemStore,
		redis:  redisClient,
		feed:   feed,
	}
}

// WithReconciliation reports the background balance check on /health/ready.
func (api *Router) WithReconciliation(status handler.ReconciliationStatus) *Router {
	api.reconciliation = status
	return api
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   api.cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.IdempotencyKeyHeader, problem.TraceHeader, "X-Request-ID"},
		ExposedHeaders:   []string{problem.TraceHeader, middleware.ReplayHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Services
	requestSvc := service.NewRequestService(api.store)
	accountSvc := service.NewAccountService(api.store, api.cfg.HistoryMaxLimit)
	authSvc := service.NewAuthService(api.store, api.tokens)
	directorySvc := service.NewDirectoryService(api.store)

	// Handlers
	healthHandler := handler.NewHealthHandler(api.store, api.redis, api.reconciliation)
	authHandler := handler.NewAuthHandler(authSvc)
	accountHandler := handler.NewAccountHandler(accountSvc)
	requestHandler := handler.NewRequestHandler(requestSvc)
	directHandler := handler.NewDirectHandler(accountSvc)
	directoryHandler := handler.NewDirectoryHandler(directorySvc)
	marketHandler := handler.NewMarketHandler(api.feed)

	idem := middleware.IdempotencyMiddleware(api.idem, api.logger)

	// Operational routes
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", spec.OpenAPIHandler())
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))

	// Public routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))
		r.Post("/v1/auth/register", authHandler.Register)
		r.Post("/v1/auth/login", authHandler.Login)
		r.Post("/v1/auth/refresh", authHandler.Refresh)
		r.Get("/v1/market/quotes", marketHandler.Quotes)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(api.tokens))
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))

		r.Get("/v1/auth/me", authHandler.Me)
		r.Get("/v1/accounts/me", accountHandler.GetMyAccount)

		// Transactions
		r.Get("/v1/transactions/requests", requestHandler.ListRequests)
		r.Get("/v1/transactions/history", accountHandler.History)
		r.With(idem).Post("/v1/transactions/request", requestHandler.CreateRequest)
		r.With(idem).Post("/v1/transactions/approve-request", requestHandler.ApproveRequest)
		r.With(idem).Post("/v1/transactions/transfer-profit", accountHandler.TransferProfit)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(policy.RoleManager))
			r.With(idem).Post("/v1/transactions/manager/deposit-admin", directHandler.Handle(domain.LedgerDeposit, policy.RoleAdmin))
			r.With(idem).Post("/v1/transactions/manager/withdraw-admin", directHandler.Handle(domain.LedgerWithdraw, policy.RoleAdmin))
			r.With(idem).Post("/v1/transactions/manager/deposit-client", directHandler.Handle(domain.LedgerDeposit, policy.RoleClient))
			r.With(idem).Post("/v1/transactions/manager/withdraw-client", directHandler.Handle(domain.LedgerWithdraw, policy.RoleClient))
			r.Get("/v1/manager/admins", directoryHandler.Admins)
			r.Get("/v1/manager/clients", directoryHandler.Clients)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(policy.RoleAdmin))
			r.With(idem).Post("/v1/transactions/admin/deposit-client", directHandler.Handle(domain.LedgerDeposit, policy.RoleClient))
			r.With(idem).Post("/v1/transactions/admin/withdraw-client", directHandler.Handle(domain.LedgerWithdraw, policy.RoleClient))
			r.Get("/v1/admin/branch-clients", directoryHandler.BranchClients)
			r.Get("/v1/admin/branch-info", directoryHandler.BranchInfo)
		})
	})

	return r
}

// Server returns an http.Server for the routes with the service timeouts.
func (api *Router) Server() *http.Server {
	return &http.Server{
		Addr:         ":" + api.cfg.HTTPPort,
		Handler:      api.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
