package api

import (
	"net/http"

	"github.com/ayo6706/custodial-ledger/internal/access"
	"github.com/ayo6706/custodial-ledger/internal/api/handler"
	"github.com/ayo6706/custodial-ledger/internal/api/middleware"
	"github.com/ayo6706/custodial-ledger/internal/api/spec"
	"github.com/ayo6706/custodial-ledger/internal/config"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

type Router struct {
	cfg      *config.Config
	logger   *zap.Logger
	ledger   handler.Ledger
	resolver middleware.PrincipalResolver
	store    handler.Pinger
	redis    redis.Cmdable
}

// NewRouter wires the HTTP surface. redis may be nil.
func NewRouter(cfg *config.Config, logger *zap.Logger, ledger handler.Ledger, resolver middleware.PrincipalResolver, store handler.Pinger, redis redis.Cmdable) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		cfg:      cfg,
		logger:   logger,
		ledger:   ledger,
		resolver: resolver,
		store:    store,
		redis:    redis,
	}
}

// Routes is the dispatch table: every ledger route names the operation the
// access policy checks before the handler runs.
func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)

	healthHandler := handler.NewHealthHandler(api.store, api.redis)
	customerHandler := handler.NewCustomerHandler(api.ledger)
	fundsHandler := handler.NewFundsHandler(api.ledger)

	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", spec.OpenAPIHandler())
	r.Head("/openapi.yaml", spec.OpenAPIHandler())
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))

	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))
		r.Use(middleware.Authenticate(api.resolver))
		r.With(middleware.Authorize(access.OpRegister)).Post("/v1/customers", customerHandler.Register)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(api.resolver))
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))

		r.With(middleware.Authorize(access.OpDeposit)).Post("/v1/deposits", fundsHandler.Deposit)
		r.With(middleware.Authorize(access.OpWithdraw)).Post("/v1/withdrawals", fundsHandler.Withdraw)

		r.With(middleware.Authorize(access.OpDescribe)).Get("/v1/customers/{id}", customerHandler.Describe)
		r.With(middleware.Authorize(access.OpMarkKnown)).Post("/v1/customers/{id}/verify", customerHandler.Verify)
		r.With(middleware.Authorize(access.OpPooledFund)).Get("/v1/fund", fundsHandler.PooledFund)
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		handler.RespondError(w, req, http.StatusNotFound, "request/not-found", "route not found")
	})

	return r
}
