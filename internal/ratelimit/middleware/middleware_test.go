package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"teamdns/internal/platform/metrics"
	"teamdns/internal/ratelimit/models"
	"teamdns/internal/ratelimit/store"
	id "teamdns/pkg/domain"
	"teamdns/pkg/platform/middleware/metadata"
	"teamdns/pkg/requestcontext"
)

type MiddlewareSuite struct {
	suite.Suite
	metrics *metrics.Metrics
	logger  *slog.Logger
	calls   int
}

func TestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareSuite))
}

func (s *MiddlewareSuite) SetupTest() {
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.calls = 0
}

func (s *MiddlewareSuite) handler(mw func(http.Handler) http.Handler) http.Handler {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.calls++
		w.WriteHeader(http.StatusOK)
	})
	return metadata.ClientMetadata(mw(next))
}

func (s *MiddlewareSuite) request(remoteAddr string, userID id.UserID) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = remoteAddr
	if !userID.IsNil() {
		req = req.WithContext(requestcontext.WithUserID(req.Context(), userID))
	}
	return req
}

func (s *MiddlewareSuite) TestRejectsOverBudgetByIP() {
	m := New(store.NewInMemory(), s.logger,
		WithMetrics(s.metrics),
		WithLimit(models.ClassAuth, models.Limit{Requests: 2, Window: time.Minute}),
	)
	h := s.handler(m.RateLimit(models.ClassAuth))

	for range 2 {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, s.request("10.0.0.1:5000", id.UserID{}))
		s.Equal(http.StatusOK, rr.Code)
		s.Equal("2", rr.Header().Get("X-RateLimit-Limit"))
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, s.request("10.0.0.1:5001", id.UserID{}))
	s.Equal(http.StatusTooManyRequests, rr.Code)
	s.Equal("60", rr.Header().Get("Retry-After"))
	s.Equal("0", rr.Header().Get("X-RateLimit-Remaining"))
	s.Contains(rr.Body.String(), `"rate_limit_exceeded"`)
	s.Equal(2, s.calls)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.RateLimited.WithLabelValues("auth")))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, s.request("10.0.0.2:5000", id.UserID{}))
	s.Equal(http.StatusOK, rr.Code, "other addresses keep their own budget")
}

func (s *MiddlewareSuite) TestAuthenticatedKeysByUser() {
	m := New(store.NewInMemory(), s.logger,
		WithLimit(models.ClassWrite, models.Limit{Requests: 1, Window: time.Minute}),
	)
	h := s.handler(m.RateLimitAuthenticated(models.ClassWrite))
	alice, bob := id.NewUserID(), id.NewUserID()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, s.request("10.0.0.1:1", alice))
	s.Equal(http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, s.request("10.0.0.1:1", bob))
	s.Equal(http.StatusOK, rr.Code, "same address, different principal")

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, s.request("10.0.0.9:1", alice))
	s.Equal(http.StatusTooManyRequests, rr.Code)
}

func (s *MiddlewareSuite) TestDisabledPassesThrough() {
	m := New(store.NewInMemory(), s.logger,
		WithDisabled(true),
		WithLimit(models.ClassAuth, models.Limit{Requests: 1, Window: time.Minute}),
	)
	h := s.handler(m.RateLimit(models.ClassAuth))

	for range 3 {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, s.request("10.0.0.1:1", id.UserID{}))
		s.Equal(http.StatusOK, rr.Code)
		s.Empty(rr.Header().Get("X-RateLimit-Limit"))
	}
}

func (s *MiddlewareSuite) TestStoreFailureFailsOpen() {
	m := New(failingStore{}, s.logger)
	h := s.handler(m.RateLimit(models.ClassAuth))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, s.request("10.0.0.1:1", id.UserID{}))
	s.Equal(http.StatusOK, rr.Code)
	s.Equal(1, s.calls)
}

func (s *MiddlewareSuite) TestInvalidLimitOverrideIgnored() {
	m := New(store.NewInMemory(), s.logger,
		WithLimit(models.ClassAuth, models.Limit{Requests: 0, Window: time.Minute}),
		WithLimit(models.EndpointClass("bogus"), models.Limit{Requests: 1, Window: time.Minute}),
	)
	s.Equal(DefaultLimits()[models.ClassAuth], m.limits[models.ClassAuth])
	s.NotContains(m.limits, models.EndpointClass("bogus"))
}

type failingStore struct{}

func (failingStore) Allow(context.Context, string, models.Limit) (*models.Result, error) {
	return nil, errors.New("redis down")
}

func (s *MiddlewareSuite) TestByMethodSplitsReadAndWriteBudgets() {
	m := New(store.NewInMemory(), s.logger,
		WithLimit(models.ClassRead, models.Limit{Requests: 2, Window: time.Minute}),
		WithLimit(models.ClassWrite, models.Limit{Requests: 1, Window: time.Minute}),
	)
	h := s.handler(m.RateLimitByMethod())
	user := id.NewUserID()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, s.request("10.0.0.1:1", user))
	s.Equal(http.StatusOK, rr.Code, "first write")

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, s.request("10.0.0.1:1", user))
	s.Equal(http.StatusTooManyRequests, rr.Code, "second write")

	for range 2 {
		get := httptest.NewRequest(http.MethodGet, "/domains", nil)
		get = get.WithContext(requestcontext.WithUserID(get.Context(), user))
		rr = httptest.NewRecorder()
		h.ServeHTTP(rr, get)
		s.Equal(http.StatusOK, rr.Code, "reads have their own budget")
		s.Equal("2", rr.Header().Get("X-RateLimit-Limit"))
	}
}
