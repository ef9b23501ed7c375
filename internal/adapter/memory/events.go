package memory

import "sync"

// EventTarget dispatches synchronous in-process events between components
// of one context that do not share a subscription. Listeners registered
// with a source token do not receive events dispatched with that token.
type EventTarget[T any] struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[uint64]eventListener[T]
}

type eventListener[T any] struct {
	source any
	fn     func(T)
}

// NewEventTarget returns an empty target.
func NewEventTarget[T any]() *EventTarget[T] {
	return &EventTarget[T]{listeners: map[uint64]eventListener[T]{}}
}

// Listen registers fn. source identifies the listening component so that
// it can skip its own dispatches; it may be nil.
func (t *EventTarget[T]) Listen(source any, fn func(T)) func() {
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	t.listeners[id] = eventListener[T]{source: source, fn: fn}
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		delete(t.listeners, id)
		t.mu.Unlock()
	}
}

// Dispatch calls every listener whose source differs from source.
func (t *EventTarget[T]) Dispatch(source any, ev T) {
	t.mu.RLock()
	fns := make([]func(T), 0, len(t.listeners))
	for _, l := range t.listeners {
		if source == nil || l.source != source {
			fns = append(fns, l.fn)
		}
	}
	t.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}
