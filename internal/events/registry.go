package events

import (
	"sync"

	"github.com/nerrad567/home-panel-core/internal/infrastructure/logging"
	"github.com/nerrad567/home-panel-core/internal/metrics"
)

// subscriber is a single registered inbox. Lifecycle is owned entirely by
// the registry: the inbox channel is closed exactly once, under the
// registry lock, when the subscriber is removed.
type subscriber struct {
	id    uint64
	inbox chan *Event
}

// registry tracks subscribers and fans events out to them.
//
// Locking protocol: broadcast sends while holding the read lock; removal
// closes the inbox while holding the write lock. A send can therefore
// never race a close.
type registry struct {
	logger     *logging.Logger
	bufferSize int

	mu     sync.RWMutex
	subs   map[uint64]*subscriber
	nextID uint64
}

func newRegistry(bufferSize int, logger *logging.Logger) *registry {
	return &registry{
		logger:     logger,
		bufferSize: bufferSize,
		subs:       make(map[uint64]*subscriber),
	}
}

// add registers a new subscriber and returns it.
func (r *registry) add() *subscriber {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	sub := &subscriber{
		id:    r.nextID,
		inbox: make(chan *Event, r.bufferSize),
	}
	r.subs[sub.id] = sub
	metrics.Subscribers.Set(float64(len(r.subs)))
	return sub
}

// remove unregisters a subscriber and closes its inbox. Safe to call more
// than once for the same id.
func (r *registry) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[id]
	if !ok {
		return
	}
	delete(r.subs, id)
	close(sub.inbox)
	metrics.Subscribers.Set(float64(len(r.subs)))
}

// broadcast delivers an event to every subscriber without blocking.
// Subscribers whose inbox is full lose this event; everyone else is
// unaffected.
func (r *registry) broadcast(ev *Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, sub := range r.subs {
		select {
		case sub.inbox <- ev:
		default:
			metrics.EventsDropped.Inc()
			r.logger.Warn("subscriber inbox full, dropping event",
				"subscriber", sub.id,
				"topic", ev.Topic,
			)
		}
	}
}

// closeAll removes every subscriber, closing each inbox.
func (r *registry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, sub := range r.subs {
		delete(r.subs, id)
		close(sub.inbox)
	}
	metrics.Subscribers.Set(0)
}

// count returns the number of registered subscribers.
func (r *registry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}
