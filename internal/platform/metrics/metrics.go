package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	UsersRegistered   prometheus.Counter
	LoginAttempts     *prometheus.CounterVec
	TokensRevoked     prometheus.Counter
	TeamsCreated      prometheus.Counter
	MembershipChanges *prometheus.CounterVec
	AuthzDenied       *prometheus.CounterVec
	RecordMutations   *prometheus.CounterVec
	RegistrarRequests *prometheus.CounterVec
	RegistrarLatency  *prometheus.HistogramVec
	BreakerOpen       *prometheus.GaugeVec
	EndpointLatency   *prometheus.HistogramVec
	RateLimited       *prometheus.CounterVec
}

// New registers metrics on the default Prometheus registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers metrics on reg; tests pass a fresh registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UsersRegistered: f.NewCounter(prometheus.CounterOpts{
			Name: "teamdns_users_registered_total",
			Help: "Total number of users registered",
		}),
		LoginAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "teamdns_login_attempts_total",
			Help: "Login attempts by result",
		}, []string{"result"}),
		TokensRevoked: f.NewCounter(prometheus.CounterOpts{
			Name: "teamdns_tokens_revoked_total",
			Help: "Access tokens added to the revocation list",
		}),
		TeamsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "teamdns_teams_created_total",
			Help: "Total number of teams created",
		}),
		MembershipChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "teamdns_membership_changes_total",
			Help: "Membership mutations by operation",
		}, []string{"operation"}),
		AuthzDenied: f.NewCounterVec(prometheus.CounterOpts{
			Name: "teamdns_authorization_denied_total",
			Help: "Requests rejected by team role checks",
		}, []string{"required_role"}),
		RecordMutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "teamdns_record_mutations_total",
			Help: "DNS record mutations by operation and outcome",
		}, []string{"operation", "outcome"}),
		RegistrarRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "teamdns_registrar_requests_total",
			Help: "Registrar calls by operation and outcome",
		}, []string{"operation", "outcome"}),
		RegistrarLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "teamdns_registrar_request_duration_seconds",
			Help:    "Registrar call latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
		BreakerOpen: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "teamdns_circuit_breaker_open",
			Help: "1 while the named circuit breaker is open",
		}, []string{"name"}),
		EndpointLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "teamdns_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		RateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Name: "teamdns_rate_limited_total",
			Help: "Requests rejected with 429 by endpoint class",
		}, []string{"class"}),
	}
}

func (m *Metrics) IncrementUsersRegistered() {
	m.UsersRegistered.Inc()
}

func (m *Metrics) IncrementLoginAttempt(result string) {
	m.LoginAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementTokensRevoked() {
	m.TokensRevoked.Inc()
}

func (m *Metrics) IncrementTeamsCreated() {
	m.TeamsCreated.Inc()
}

func (m *Metrics) IncrementMembershipChange(operation string) {
	m.MembershipChanges.WithLabelValues(operation).Inc()
}

func (m *Metrics) IncrementAuthzDenied(requiredRole string) {
	m.AuthzDenied.WithLabelValues(requiredRole).Inc()
}

func (m *Metrics) IncrementRecordMutation(operation, outcome string) {
	m.RecordMutations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ObserveRegistrarCall(operation, outcome string, seconds float64) {
	m.RegistrarRequests.WithLabelValues(operation, outcome).Inc()
	m.RegistrarLatency.WithLabelValues(operation).Observe(seconds)
}

func (m *Metrics) SetBreakerOpen(name string, open bool) {
	v := 0.0
	if open {
		v = 1
	}
	m.BreakerOpen.WithLabelValues(name).Set(v)
}

// ObserveEndpointLatency satisfies the request latency middleware.
func (m *Metrics) ObserveEndpointLatency(method, route string, status int, seconds float64) {
	m.EndpointLatency.WithLabelValues(method, route, strconv.Itoa(status)).Observe(seconds)
}

func (m *Metrics) IncrementRateLimited(class string) {
	m.RateLimited.WithLabelValues(class).Inc()
}
