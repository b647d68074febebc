// Package httpapi assembles the HTTP surface: global middleware, the public
// auth and operational routes, and the authenticated team and DNS routes.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authhandler "teamdns/internal/auth/handler"
	dnshandler "teamdns/internal/dns/handler"
	"teamdns/internal/platform/metrics"
	ratelimit "teamdns/internal/ratelimit/middleware"
	"teamdns/internal/ratelimit/models"
	teamhandler "teamdns/internal/team/handler"
	"teamdns/pkg/platform/httputil"
	authmw "teamdns/pkg/platform/middleware/auth"
	"teamdns/pkg/platform/middleware/metadata"
	request "teamdns/pkg/platform/middleware/request"
	"teamdns/pkg/platform/middleware/requesttime"
)

// HealthCheck reports whether one backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Dependencies are the collaborators the router mounts. Metrics, RateLimiter
// and HealthChecks are optional.
type Dependencies struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	RequestTimeout time.Duration

	Tokens      authmw.JWTValidator
	Revocations authmw.TokenRevocationChecker
	RateLimiter *ratelimit.Middleware

	Auth  *authhandler.Handler
	Teams *teamhandler.Handler
	DNS   *dnshandler.Handler

	HealthChecks map[string]HealthCheck
}

// NewRouter wires every route behind the shared middleware chain.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(request.Recovery(logger))
	r.Use(request.Logger(logger))
	if deps.Metrics != nil {
		r.Use(request.Latency(deps.Metrics))
	}
	if deps.RequestTimeout > 0 {
		r.Use(request.Timeout(deps.RequestTimeout))
	}
	r.Use(request.ContentTypeJSON)

	r.Get("/health", healthHandler(deps.HealthChecks, logger))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.RateLimit(models.ClassAuth))
		}
		deps.Auth.Register(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(deps.Tokens, deps.Revocations, logger))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.RateLimitByMethod())
		}
		deps.Auth.RegisterAuthenticated(r)
		deps.Teams.Register(r)
		deps.DNS.Register(r)
	})

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				logger.WarnContext(r.Context(), "health check failed",
					"dependency", name,
					"error", err,
					"request_id", request.GetRequestID(r.Context()),
				)
				resp.Checks[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
