package memory

import "sync"

// mailbox delivers queued values to fn on its own goroutine, in enqueue
// order, without ever blocking the sender.
type mailbox[T any] struct {
	mu     sync.Mutex
	queue  []T
	wake   chan struct{}
	done   chan struct{}
	closed bool
	fn     func(T)
}

func newMailbox[T any](fn func(T)) *mailbox[T] {
	m := &mailbox[T]{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
		fn:   fn,
	}
	go m.run()
	return m
}

func (m *mailbox[T]) post(v T) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.queue = append(m.queue, v)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// close stops delivery. Values still queued are dropped.
func (m *mailbox[T]) close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.queue = nil
	m.mu.Unlock()
	close(m.done)
}

func (m *mailbox[T]) run() {
	for {
		select {
		case <-m.done:
			return
		case <-m.wake:
		}
		for {
			m.mu.Lock()
			if m.closed || len(m.queue) == 0 {
				m.mu.Unlock()
				break
			}
			v := m.queue[0]
			m.queue = m.queue[1:]
			m.mu.Unlock()
			m.fn(v)
		}
	}
}
