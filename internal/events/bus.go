package events

import (
	"sync"

	"go.uber.org/zap"
)

// maxListenersHint sizes the listener table up front for the common case;
// the bus itself has no hard cap.
const maxListenersHint = 24

// Listener handles a single delivered event. A listener that panics is
// recovered by the bus and logged; it never prevents later listeners for
// the same event from running.
type Listener func(Event)

// Subscription identifies a registered listener so it can be removed with
// Off without the caller needing to keep the original func value around
// (which would break equality comparisons for closures).
type Subscription struct {
	typ Type
	id  uint64
}

// Bus is an in-process typed publish/subscribe hub. It is single-threaded
// with respect to handler execution: Emit runs every listener synchronously
// on the calling goroutine, matching the cooperative sim-loop model the
// simulation depends on for ordering.
type Bus struct {
	log *zap.Logger

	mu        sync.Mutex
	listeners map[Type][]entry
	nextID    uint64
}

type entry struct {
	id uint64
	fn Listener
}

// NewBus creates an empty bus. log may be nil, in which case a no-op logger is
// used (useful in tests that don't care about panic diagnostics).
func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		log:       log,
		listeners: make(map[Type][]entry, maxListenersHint),
	}
}

// On registers a listener for a topic. Listeners for a given type run in
// registration order.
func (b *Bus) On(t Type, fn Listener) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.listeners[t] = append(b.listeners[t], entry{id: id, fn: fn})
	return Subscription{typ: t, id: id}
}

// Off removes a previously registered listener. Removing an unknown or
// already-removed subscription is a no-op.
func (b *Bus) Off(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.listeners[sub.typ]
	for i, e := range entries {
		if e.id == sub.id {
			b.listeners[sub.typ] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

// Emit delivers event synchronously to every listener registered for
// event.Type, in registration order. A listener panic is recovered and
// logged; it does not stop subsequent listeners.
func (b *Bus) Emit(event Event) {
	b.mu.Lock()
	entries := make([]entry, len(b.listeners[event.Type]))
	copy(entries, b.listeners[event.Type])
	b.mu.Unlock()

	for _, e := range entries {
		b.dispatch(e.fn, event)
	}
}

func (b *Bus) dispatch(fn Listener, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event listener panicked",
				zap.String("type", string(event.Type)),
				zap.Any("recover", r),
			)
		}
	}()
	fn(event)
}

// ListenerCount reports how many listeners are registered for a topic,
// mainly for tests asserting wiring happened.
func (b *Bus) ListenerCount(t Type) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[t])
}
