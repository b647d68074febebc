package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"teamdns/internal/platform/metrics"
	"teamdns/internal/ratelimit/models"
	"teamdns/pkg/platform/httputil"
	"teamdns/pkg/requestcontext"
)

// Store admits or rejects one request against a keyed window.
type Store interface {
	Allow(ctx context.Context, key string, limit models.Limit) (*models.Result, error)
}

type Middleware struct {
	store    Store
	limits   map[models.EndpointClass]models.Limit
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
}

type Option func(*Middleware)

// WithDisabled turns every check into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func WithMetrics(metrics *metrics.Metrics) Option {
	return func(m *Middleware) {
		m.metrics = metrics
	}
}

// WithLimit overrides the budget for one class.
func WithLimit(class models.EndpointClass, limit models.Limit) Option {
	return func(m *Middleware) {
		if class.IsValid() && limit.Requests > 0 && limit.Window > 0 {
			m.limits[class] = limit
		}
	}
}

func New(store Store, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		store:  store,
		logger: logger,
		limits: DefaultLimits(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// RateLimit keys the budget by client IP. Used on unauthenticated routes.
func (m *Middleware) RateLimit(class models.EndpointClass) func(http.Handler) http.Handler {
	return m.limit(class, func(r *http.Request) (string, string) {
		return "ip", requestcontext.ClientIP(r.Context())
	})
}

// RateLimitAuthenticated keys the budget by principal, falling back to the
// client IP when the request carries none.
func (m *Middleware) RateLimitAuthenticated(class models.EndpointClass) func(http.Handler) http.Handler {
	return m.limit(class, func(r *http.Request) (string, string) {
		if userID := requestcontext.UserID(r.Context()); !userID.IsNil() {
			return "user", userID.String()
		}
		return "ip", requestcontext.ClientIP(r.Context())
	})
}

// RateLimitByMethod charges safe methods to ClassRead and mutations to
// ClassWrite, keyed by principal.
func (m *Middleware) RateLimitByMethod() func(http.Handler) http.Handler {
	read := m.RateLimitAuthenticated(models.ClassRead)
	write := m.RateLimitAuthenticated(models.ClassWrite)
	return func(next http.Handler) http.Handler {
		readNext, writeNext := read(next), write(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				readNext.ServeHTTP(w, r)
			default:
				writeNext.ServeHTTP(w, r)
			}
		})
	}
}

func (m *Middleware) limit(class models.EndpointClass, subject func(*http.Request) (string, string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			kind, value := subject(r)
			result, err := m.store.Allow(ctx, models.Key(class, kind, value), m.limits[class])
			if err != nil {
				// fail open
				m.logger.ErrorContext(ctx, "rate limit check failed",
					"error", err,
					"class", class,
					"request_id", requestcontext.RequestID(ctx),
				)
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)
			if !result.Allowed {
				m.logger.WarnContext(ctx, "rate limit exceeded",
					"class", class,
					"subject", kind,
					"request_id", requestcontext.RequestID(ctx),
				)
				if m.metrics != nil {
					m.metrics.IncrementRateLimited(string(class))
				}
				writeRateLimitExceeded(w, result)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// DefaultLimits are per-minute budgets for each class.
func DefaultLimits() map[models.EndpointClass]models.Limit {
	return map[models.EndpointClass]models.Limit{
		models.ClassAuth:  {Requests: 10, Window: time.Minute},
		models.ClassRead:  {Requests: 300, Window: time.Minute},
		models.ClassWrite: {Requests: 60, Window: time.Minute},
	}
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.ExceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    "Too many requests. Please try again later.",
		RetryAfter: result.RetryAfter,
	})
}
