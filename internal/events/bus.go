// Package events carries committed persistence changes to in-process subscribers.
package events

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mycelian/postybirb/internal/metrics"
	"github.com/mycelian/postybirb/internal/model"
)

// ChangeKind describes what happened to an entity inside a commit.
type ChangeKind string

const (
	ChangeCreate ChangeKind = "CREATE"
	ChangeUpdate ChangeKind = "UPDATE"
	ChangeDelete ChangeKind = "DELETE"
)

// Change is one mutation captured by the store.
type Change struct {
	Kind   ChangeKind
	Entity model.Entity
}

func (c Change) key() string {
	return fmt.Sprintf("%s/%s/%s", c.Kind, c.Entity.EntityKind(), c.Entity.EntityID())
}

// Callback receives the changes of one commit that match its subscription.
type Callback func(ctx context.Context, changes []Change) error

// Publisher is the side of the bus the store depends on.
type Publisher interface {
	Publish(ctx context.Context, changes []Change)
}

type subscription struct {
	id    uint64
	kinds map[model.EntityKind]struct{}
	cb    Callback
}

// Bus is an owned subscriber registry. Publish dispatches synchronously on the caller's goroutine.
type Bus struct {
	log     zerolog.Logger
	timeout time.Duration

	mu   sync.RWMutex
	next uint64
	subs map[uint64]*subscription
}

// NewBus builds a bus whose callbacks each run under a context bounded by timeout.
func NewBus(log zerolog.Logger, timeout time.Duration) *Bus {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Bus{
		log:     log.With().Str("component", "events").Logger(),
		timeout: timeout,
		subs:    make(map[uint64]*subscription),
	}
}

// Subscribe registers cb for the given entity kinds and returns its unsubscribe func.
// Calling the returned func more than once is a no-op.
func (b *Bus) Subscribe(kinds []model.EntityKind, cb Callback) func() {
	set := make(map[model.EntityKind]struct{}, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}

	b.mu.Lock()
	b.next++
	id := b.next
	b.subs[id] = &subscription{id: id, kinds: set, cb: cb}
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Subscribers returns the number of active subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish hands one commit's changes to every matching subscription exactly once.
// Each subscription sees its matching changes in commit order with exact duplicates folded.
func (b *Bus) Publish(ctx context.Context, changes []Change) {
	if len(changes) == 0 {
		return
	}

	b.mu.RLock()
	subs := make([]*subscription, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.RUnlock()
	sort.Slice(subs, func(i, j int) bool { return subs[i].id < subs[j].id })

	metrics.BusCommitsPublished.Inc()
	for _, s := range subs {
		matched := s.filter(changes)
		if len(matched) == 0 {
			continue
		}
		b.dispatch(ctx, s, matched)
	}
}

func (s *subscription) filter(changes []Change) []Change {
	var out []Change
	seen := make(map[string]struct{})
	for _, c := range changes {
		if c.Entity == nil {
			continue
		}
		if _, ok := s.kinds[c.Entity.EntityKind()]; !ok {
			continue
		}
		k := c.key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, c)
	}
	return out
}

func (b *Bus) dispatch(ctx context.Context, s *subscription, changes []Change) {
	cbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			metrics.BusCallbackFailures.WithLabelValues("panic").Inc()
			b.log.Error().
				Uint64("subscription", s.id).
				Interface("panic", r).
				Msg("change callback panicked")
		}
	}()

	if err := s.cb(cbCtx, changes); err != nil {
		metrics.BusCallbackFailures.WithLabelValues("error").Inc()
		b.log.Error().Stack().
			Err(err).
			Uint64("subscription", s.id).
			Int("changes", len(changes)).
			Msg("change callback failed")
	}
}
