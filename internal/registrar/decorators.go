package registrar

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"teamdns/internal/platform/metrics"
	"teamdns/pkg/platform/circuit"
)

// call runs one gateway operation through a decorator hook.
func call[T any](ctx context.Context, op string, hook func(context.Context, string, func(context.Context) error) error, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := hook(ctx, op, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}

// retrying retries transient failures of read operations. Writes pass
// through once: a timed out create may have been applied upstream.
type retrying struct {
	next     Gateway
	attempts int
	backoff  time.Duration
	logger   *slog.Logger
}

// WithRetry wraps next so reads are attempted up to 1+retries times with
// exponential backoff starting at backoff.
func WithRetry(next Gateway, retries int, backoff time.Duration, logger *slog.Logger) Gateway {
	if retries <= 0 {
		return next
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &retrying{next: next, attempts: retries + 1, backoff: backoff, logger: logger}
}

func (r *retrying) run(ctx context.Context, op string, fn func(context.Context) error) error {
	delay := r.backoff
	var err error
	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil || !IsTransient(err) || attempt >= r.attempts {
			return err
		}
		r.logger.WarnContext(ctx, "retrying registrar read",
			"op", op,
			"attempt", attempt,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return err
		case <-time.After(delay):
		}
		delay *= 2
	}
}

func (r *retrying) ListDomains(ctx context.Context) ([]Domain, error) {
	return call(ctx, "list_domains", r.run, r.next.ListDomains)
}

func (r *retrying) GetDomain(ctx context.Context, name string) (*Domain, error) {
	return call(ctx, "get_domain", r.run, func(ctx context.Context) (*Domain, error) {
		return r.next.GetDomain(ctx, name)
	})
}

func (r *retrying) ListRecords(ctx context.Context, domain string) ([]Record, error) {
	return call(ctx, "list_records", r.run, func(ctx context.Context) ([]Record, error) {
		return r.next.ListRecords(ctx, domain)
	})
}

func (r *retrying) GetRecord(ctx context.Context, domain string, recordID int64) (*Record, error) {
	return call(ctx, "get_record", r.run, func(ctx context.Context) (*Record, error) {
		return r.next.GetRecord(ctx, domain, recordID)
	})
}

func (r *retrying) CreateRecord(ctx context.Context, domain string, in CreateRecordInput) (*Record, error) {
	return r.next.CreateRecord(ctx, domain, in)
}

func (r *retrying) UpdateRecord(ctx context.Context, domain string, recordID int64, patch RecordPatch) (*Record, error) {
	return r.next.UpdateRecord(ctx, domain, recordID, patch)
}

func (r *retrying) DeleteRecord(ctx context.Context, domain string, recordID int64) error {
	return r.next.DeleteRecord(ctx, domain, recordID)
}

// breaking short-circuits calls while the registrar is failing. Only
// transient failures count; a 404 means the registrar is healthy.
type breaking struct {
	next    Gateway
	breaker *circuit.Breaker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func WithCircuitBreaker(next Gateway, breaker *circuit.Breaker, m *metrics.Metrics, logger *slog.Logger) Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &breaking{next: next, breaker: breaker, metrics: m, logger: logger}
}

func (b *breaking) run(ctx context.Context, op string, fn func(context.Context) error) error {
	if !b.breaker.Allow() {
		return &Error{Op: op, Status: http.StatusServiceUnavailable, Message: "registrar unavailable (circuit open)"}
	}
	err := fn(ctx)
	if err != nil && IsTransient(err) {
		if _, change := b.breaker.RecordFailure(); change.Opened {
			b.logger.ErrorContext(ctx, "registrar circuit opened", "breaker", b.breaker.Name(), "op", op, "error", err)
			b.setOpen(true)
		}
		return err
	}
	if _, change := b.breaker.RecordSuccess(); change.Closed {
		b.logger.InfoContext(ctx, "registrar circuit closed", "breaker", b.breaker.Name())
		b.setOpen(false)
	}
	return err
}

func (b *breaking) setOpen(open bool) {
	if b.metrics != nil {
		b.metrics.SetBreakerOpen(b.breaker.Name(), open)
	}
}

func (b *breaking) ListDomains(ctx context.Context) ([]Domain, error) {
	return call(ctx, "list_domains", b.run, b.next.ListDomains)
}

func (b *breaking) GetDomain(ctx context.Context, name string) (*Domain, error) {
	return call(ctx, "get_domain", b.run, func(ctx context.Context) (*Domain, error) {
		return b.next.GetDomain(ctx, name)
	})
}

func (b *breaking) ListRecords(ctx context.Context, domain string) ([]Record, error) {
	return call(ctx, "list_records", b.run, func(ctx context.Context) ([]Record, error) {
		return b.next.ListRecords(ctx, domain)
	})
}

func (b *breaking) GetRecord(ctx context.Context, domain string, recordID int64) (*Record, error) {
	return call(ctx, "get_record", b.run, func(ctx context.Context) (*Record, error) {
		return b.next.GetRecord(ctx, domain, recordID)
	})
}

func (b *breaking) CreateRecord(ctx context.Context, domain string, in CreateRecordInput) (*Record, error) {
	return call(ctx, "create_record", b.run, func(ctx context.Context) (*Record, error) {
		return b.next.CreateRecord(ctx, domain, in)
	})
}

func (b *breaking) UpdateRecord(ctx context.Context, domain string, recordID int64, patch RecordPatch) (*Record, error) {
	return call(ctx, "update_record", b.run, func(ctx context.Context) (*Record, error) {
		return b.next.UpdateRecord(ctx, domain, recordID, patch)
	})
}

func (b *breaking) DeleteRecord(ctx context.Context, domain string, recordID int64) error {
	return b.run(ctx, "delete_record", func(ctx context.Context) error {
		return b.next.DeleteRecord(ctx, domain, recordID)
	})
}

// instrumented records a span and latency histogram per call.
type instrumented struct {
	next    Gateway
	metrics *metrics.Metrics
	tracer  trace.Tracer
	clock   func() time.Time
}

// WithInstrumentation wraps next with metrics and tracing. A nil tracer
// uses the global otel provider.
func WithInstrumentation(next Gateway, m *metrics.Metrics, tracer trace.Tracer) Gateway {
	if tracer == nil {
		tracer = otel.Tracer("teamdns/registrar")
	}
	return &instrumented{next: next, metrics: m, tracer: tracer, clock: time.Now}
}

func (i *instrumented) run(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, span := i.tracer.Start(ctx, "registrar."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	start := i.clock()
	err := fn(ctx)
	elapsed := i.clock().Sub(start)

	result := outcome(err)
	span.SetAttributes(attribute.String("registrar.outcome", result))
	if re, ok := AsError(err); ok && re.Status != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", re.Status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
	}
	if i.metrics != nil {
		i.metrics.ObserveRegistrarCall(op, result, elapsed.Seconds())
	}
	return err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case IsTimeout(err):
		return "timeout"
	case IsNotFound(err):
		return "not_found"
	default:
		return "error"
	}
}

func (i *instrumented) ListDomains(ctx context.Context) ([]Domain, error) {
	return call(ctx, "list_domains", i.run, i.next.ListDomains)
}

func (i *instrumented) GetDomain(ctx context.Context, name string) (*Domain, error) {
	return call(ctx, "get_domain", i.run, func(ctx context.Context) (*Domain, error) {
		return i.next.GetDomain(ctx, name)
	})
}

func (i *instrumented) ListRecords(ctx context.Context, domain string) ([]Record, error) {
	return call(ctx, "list_records", i.run, func(ctx context.Context) ([]Record, error) {
		return i.next.ListRecords(ctx, domain)
	})
}

func (i *instrumented) GetRecord(ctx context.Context, domain string, recordID int64) (*Record, error) {
	return call(ctx, "get_record", i.run, func(ctx context.Context) (*Record, error) {
		return i.next.GetRecord(ctx, domain, recordID)
	})
}

func (i *instrumented) CreateRecord(ctx context.Context, domain string, in CreateRecordInput) (*Record, error) {
	return call(ctx, "create_record", i.run, func(ctx context.Context) (*Record, error) {
		return i.next.CreateRecord(ctx, domain, in)
	})
}

func (i *instrumented) UpdateRecord(ctx context.Context, domain string, recordID int64, patch RecordPatch) (*Record, error) {
	return call(ctx, "update_record", i.run, func(ctx context.Context) (*Record, error) {
		return i.next.UpdateRecord(ctx, domain, recordID, patch)
	})
}

func (i *instrumented) DeleteRecord(ctx context.Context, domain string, recordID int64) error {
	return i.run(ctx, "delete_record", func(ctx context.Context) error {
		return i.next.DeleteRecord(ctx, domain, recordID)
	})
}
