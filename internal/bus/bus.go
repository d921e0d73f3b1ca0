// Package bus provides the async event bus that fans committed arena events
// out to sinks and live watchers.
package bus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/moltcourt/moltcourt/internal/arena"
)

// DefaultHandlerTimeout bounds a single sink call.
const DefaultHandlerTimeout = 10 * time.Second

// Handler consumes one event. Errors are logged and otherwise ignored.
type Handler func(ctx context.Context, evt arena.Event) error

type subscriber struct {
	name string
	fn   Handler
}

// EventBus decouples the arena from its event sinks. It implements
// arena.EventSink; Publish never blocks.
type EventBus struct {
	events   chan arena.Event
	subs     []subscriber
	watchers map[string]map[int]chan arena.Event
	nextID   int
	timeout  time.Duration
	dropped  atomic.Int64
	mu       sync.RWMutex
}

var _ arena.EventSink = (*EventBus)(nil)

// New creates an event bus with the given queue capacity.
func New(buffer int) *EventBus {
	if buffer <= 0 {
		buffer = 256
	}
	return &EventBus{
		events:   make(chan arena.Event, buffer),
		watchers: make(map[string]map[int]chan arena.Event),
		timeout:  DefaultHandlerTimeout,
	}
}

// Publish enqueues evt. When the queue is full the event is dropped.
func (b *EventBus) Publish(_ context.Context, evt arena.Event) {
	if evt.At.IsZero() {
		evt.At = time.Now()
	}
	select {
	case b.events <- evt:
	default:
		b.dropped.Add(1)
		slog.Warn("event bus full, dropping event", "type", evt.Type, "fight_id", evt.FightID)
	}
}

// Subscribe registers a named sink for every event.
func (b *EventBus) Subscribe(name string, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs = append(b.subs, subscriber{name: name, fn: fn})
}

// Watch streams the events of one fight. The returned cancel func must be
// called to release the subscription; it closes the channel.
func (b *EventBus) Watch(fightID string, buffer int) (<-chan arena.Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan arena.Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.watchers[fightID] == nil {
		b.watchers[fightID] = make(map[int]chan arena.Event)
	}
	b.watchers[fightID][id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.watchers[fightID], id)
			if len(b.watchers[fightID]) == 0 {
				delete(b.watchers, fightID)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Run dispatches queued events until ctx is cancelled, then flushes what
// is already queued. This should be run as a goroutine.
func (b *EventBus) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			b.flush()
			return ctx.Err()
		case evt := <-b.events:
			b.dispatch(ctx, evt)
		}
	}
}

func (b *EventBus) flush() {
	ctx := context.Background()
	for {
		select {
		case evt := <-b.events:
			b.dispatch(ctx, evt)
		default:
			return
		}
	}
}

func (b *EventBus) dispatch(ctx context.Context, evt arena.Event) {
	b.mu.RLock()
	subs := b.subs
	for _, ch := range b.watchers[evt.FightID] {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.RUnlock()

	for _, s := range subs {
		hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
		if err := s.fn(hctx, evt); err != nil {
			slog.Warn("event sink failed", "sink", s.name, "type", evt.Type, "fight_id", evt.FightID, "error", err)
		}
		cancel()
	}
}

// Pending returns the number of queued events.
func (b *EventBus) Pending() int {
	return len(b.events)
}

// Dropped returns the number of events dropped because the queue was full.
func (b *EventBus) Dropped() int64 {
	return b.dropped.Load()
}

// Watchers returns the number of live watchers across all fights.
func (b *EventBus) Watchers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, m := range b.watchers {
		n += len(m)
	}
	return n
}
