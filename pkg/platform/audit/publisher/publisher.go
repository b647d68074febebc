// Package publisher delivers audit events to a store either synchronously or
// through a bounded in-process buffer drained by a single worker.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	audit "teamdns/pkg/platform/audit"
)

var errBufferFull = errors.New("audit buffer full")

const defaultEnqueueWait = 50 * time.Millisecond

// Publisher emits audit events to a store.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	buffer      chan audit.Event
	enqueueWait time.Duration
	wg          sync.WaitGroup
	once        sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer makes Emit non-blocking: events are queued and appended by a
// background worker. A full buffer rejects the event.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.buffer = make(chan audit.Event, size)
		}
	}
}

// WithEnqueueWait bounds how long Emit blocks on a full buffer.
func WithEnqueueWait(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.enqueueWait = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, enqueueWait: defaultEnqueueWait}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer != nil {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// Emit stamps the event and appends it, or queues it in async mode.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	if p.buffer == nil {
		return p.store.Append(ctx, event)
	}

	select {
	case p.buffer <- event:
		return nil
	default:
	}

	// full buffer: wait briefly for the worker before dropping the event
	wait := time.NewTimer(p.enqueueWait)
	defer wait.Stop()
	select {
	case p.buffer <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-wait.C:
		return errBufferFull
	}
}

// Close drains queued events and stops the worker.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.buffer != nil {
			close(p.buffer)
			p.wg.Wait()
		}
	})
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for event := range p.buffer {
		if err := p.store.Append(context.Background(), event); err != nil && p.logger != nil {
			p.logger.Error("failed to append audit event", "action", event.Action, "error", err)
		}
	}
}
