package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/home-panel-core/internal/infrastructure/config"
	"github.com/nerrad567/home-panel-core/internal/infrastructure/logging"
)

// Sentinel errors returned by Pool and Subscription.
var (
	// ErrPoolStopped is returned by HealthCheck when the pool is not running.
	ErrPoolStopped = errors.New("event pool not running")

	// ErrSubscriptionClosed is returned by Next after the subscription or
	// its pool has been closed.
	ErrSubscriptionClosed = errors.New("subscription closed")
)

// Pool owns the single upstream gateway connection and the subscriber
// registry. Construct with NewPool, Start it, Subscribe as needed, and
// Stop it on shutdown. All methods are safe for concurrent use.
type Pool struct {
	cfg      config.StreamConfig
	logger   *logging.Logger
	registry *registry
	reader   *reader

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewPool creates a stopped pool.
func NewPool(cfg config.StreamConfig, logger *logging.Logger) *Pool {
	log := logger.With("component", "events")
	reg := newRegistry(cfg.BufferSize, log)
	return &Pool{
		cfg:      cfg,
		logger:   log,
		registry: reg,
		reader:   newReader(cfg, log, reg),
	}
}

// Start launches the upstream reader. Calling Start on a running pool is
// a no-op. The reader lives until Stop is called or ctx is cancelled.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startLocked(ctx)
	return nil
}

// startLocked launches the reader goroutine if it is not already running.
// Callers must hold p.mu; that lock is what keeps concurrent Start and
// Subscribe calls down to a single reader.
func (p *Pool) startLocked(ctx context.Context) {
	if p.running {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true

	go func(done chan struct{}) {
		defer close(done)
		p.reader.run(runCtx)
	}(p.done)

	p.logger.Info("event pool started", "url", p.cfg.URL)
}

// Stop cancels the reader, waits for it to exit, and closes every
// subscriber inbox. Calling Stop on a stopped pool is a no-op; the pool
// can be started again afterwards.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel := p.cancel
	done := p.done
	p.mu.Unlock()

	cancel()
	<-done
	p.registry.closeAll()
	p.logger.Info("event pool stopped")
}

// Subscribe registers a new subscriber with the given topic filter spec
// (see Filter). If the pool is not running, the first Subscribe brings it
// up; the reader then lives until Stop. The returned subscription must be
// closed when done; every transport exit path should `defer sub.Close()`.
func (p *Pool) Subscribe(filterSpec string) (*Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Lazily started readers outlive any one subscriber, so they get a
	// fresh context rather than borrowing the caller's.
	p.startLocked(context.Background())

	sub := p.registry.add()
	p.logger.Debug("subscriber registered", "subscriber", sub.id, "filter", filterSpec)

	return &Subscription{
		pool:      p,
		sub:       sub,
		filter:    NewFilter(filterSpec),
		keepalive: p.cfg.KeepaliveDuration(),
	}, nil
}

// SubscriberCount returns the number of active subscribers.
func (p *Pool) SubscriberCount() int {
	return p.registry.count()
}

// Connected reports whether the upstream connection is currently live.
func (p *Pool) Connected() bool {
	return p.reader.isConnected()
}

// HealthCheck reports pool health. A running pool that is between
// reconnect attempts is unhealthy but recoverable, which is worth
// surfacing distinctly from "not started".
func (p *Pool) HealthCheck(_ context.Context) error {
	p.mu.Lock()
	running := p.running
	p.mu.Unlock()

	if !running {
		return ErrPoolStopped
	}
	if !p.reader.isConnected() {
		return fmt.Errorf("upstream stream disconnected, reconnecting every %s", p.cfg.ReconnectDuration())
	}
	return nil
}

// Subscription is one subscriber's handle on the pool.
type Subscription struct {
	pool      *Pool
	sub       *subscriber
	filter    Filter
	keepalive time.Duration
	closeOnce sync.Once
}

// Next returns the next event matching the subscription's filter.
//
// It blocks up to the keepalive interval; on timeout it returns
// (nil, nil), the keepalive marker, which transports should render as a
// ping. Events that fail the filter are drained silently and do not reset
// the keepalive timer, so a subscriber on a quiet filter still sees a
// marker on schedule even when unrelated topics are busy.
//
// After Close (or pool Stop) Next returns ErrSubscriptionClosed; on
// caller cancellation it returns ctx.Err().
func (s *Subscription) Next(ctx context.Context) (*Event, error) {
	timer := time.NewTimer(s.keepalive)
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-s.sub.inbox:
			if !ok {
				return nil, ErrSubscriptionClosed
			}
			if s.filter.Matches(ev.Topic) {
				return ev, nil
			}
		case <-timer.C:
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Filter returns the subscription's parsed topic filter.
func (s *Subscription) Filter() Filter {
	return s.filter
}

// Close releases the subscription. Idempotent and safe to call from any
// goroutine, including concurrently with Next.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.pool.registry.remove(s.sub.id)
	})
}
