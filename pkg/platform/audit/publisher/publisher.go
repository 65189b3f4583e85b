// Package publisher fans audit events out to the store and optional sinks.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	audit "revenuehub/pkg/platform/audit"
	"revenuehub/pkg/platform/circuit"
	"revenuehub/pkg/requestcontext"
)

// ErrBufferFull is returned in async mode when the buffer cannot take another event.
var ErrBufferFull = errors.New("audit buffer full")

const drainTimeout = 5 * time.Second

// Publisher stores events synchronously by default. With WithAsyncBuffer the
// store write moves to a background goroutine; Close drains the buffer.
type Publisher struct {
	store  audit.Store
	sinks  []sink
	logger *slog.Logger

	async  bool
	buffer chan audit.Event
	wg     sync.WaitGroup
	once   sync.Once
}

// sink pairs a downstream publisher with the breaker that mutes its failure
// logs while it is down.
type sink struct {
	audit.Sink
	breaker *circuit.Breaker
}

type Option func(*Publisher)

// WithAsyncBuffer enables background persistence with a buffer of size n.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.async = true
			p.buffer = make(chan audit.Event, n)
		}
	}
}

// WithSinks forwards each stored event to the sinks. Sink failures are logged
// until the sink's circuit opens; the store remains the source of truth.
func WithSinks(sinks ...audit.Sink) Option {
	return func(p *Publisher) {
		for _, s := range sinks {
			if s != nil {
				name := fmt.Sprintf("audit-sink-%d", len(p.sinks))
				p.sinks = append(p.sinks, sink{Sink: s, breaker: circuit.New(name)})
			}
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.async {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// Emit fills request-scoped fields left empty by the caller (time, request id,
// client IP, user agent, actor) and records the event.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	event = enrich(ctx, event)
	if !p.async {
		return p.write(ctx, event)
	}
	select {
	case p.buffer <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.logger.WarnContext(ctx, "audit buffer full, dropping event",
			"action", event.Action,
			"request_id", event.RequestID,
		)
		return ErrBufferFull
	}
}

// Search delegates to the store.
func (p *Publisher) Search(ctx context.Context, q audit.Query) ([]audit.Event, error) {
	return p.store.Search(ctx, q)
}

// Close stops the background writer after draining buffered events.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.async {
			close(p.buffer)
			p.wg.Wait()
		}
	})
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for event := range p.buffer {
		ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		if err := p.write(ctx, event); err != nil {
			p.logger.ErrorContext(ctx, "failed to persist audit event",
				"action", event.Action,
				"request_id", event.RequestID,
				"error", err,
			)
		}
		cancel()
	}
}

func (p *Publisher) write(ctx context.Context, event audit.Event) error {
	if err := p.store.Append(ctx, event); err != nil {
		return err
	}
	for _, s := range p.sinks {
		p.publish(ctx, s, event)
	}
	return nil
}

func (p *Publisher) publish(ctx context.Context, s sink, event audit.Event) {
	if err := s.Publish(ctx, event); err != nil {
		muted, change := s.breaker.RecordFailure()
		switch {
		case change.Opened:
			p.logger.ErrorContext(ctx, "audit sink circuit opened",
				"sink", s.breaker.Name(),
				"error", err,
			)
		case !muted:
			p.logger.WarnContext(ctx, "audit sink publish failed",
				"sink", s.breaker.Name(),
				"action", event.Action,
				"request_id", event.RequestID,
				"error", err,
			)
		}
		return
	}
	if _, change := s.breaker.RecordSuccess(); change.Closed {
		p.logger.InfoContext(ctx, "audit sink circuit closed", "sink", s.breaker.Name())
	}
}

func enrich(ctx context.Context, e audit.Event) audit.Event {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.Category == "" {
		e.Category = e.Action.Category()
	}
	if e.RequestID == "" {
		e.RequestID = requestcontext.RequestID(ctx)
	}
	if e.IPAddress == "" {
		e.IPAddress = requestcontext.ClientIP(ctx)
	}
	if e.UserAgent == "" {
		e.UserAgent = requestcontext.UserAgent(ctx)
	}
	if e.ActorID == "" {
		if uid := requestcontext.UserID(ctx); !uid.IsNil() {
			e.ActorID = uid.String()
		}
	}
	if e.ActorRole == "" {
		e.ActorRole = string(requestcontext.Role(ctx))
	}
	return e
}
