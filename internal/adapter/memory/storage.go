// Package memory provides in-process implementations of the backing store,
// the broadcast channel and the same-context event target. One Origin
// stands for one application origin; every handle obtained from it stands
// for one context (a store instance) of that origin.
package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"agency-hub/internal/core/port"
)

// Origin is the shared state behind all handles of one origin.
type Origin struct {
	mu       sync.Mutex
	data     map[string]string
	watchers map[*watcher]struct{}
	channels map[string]map[*subscriber]struct{}
}

// NewOrigin returns an empty origin.
func NewOrigin() *Origin {
	return &Origin{
		data:     map[string]string{},
		watchers: map[*watcher]struct{}{},
		channels: map[string]map[*subscriber]struct{}{},
	}
}

// Storage returns a new context handle on the origin's backing store.
func (o *Origin) Storage() *Storage {
	return &Storage{origin: o}
}

// Storage is one context's handle on the origin's key-value data. It
// implements port.KeyValueStore.
type Storage struct {
	origin     *Origin
	failWrites atomic.Bool
}

type watcher struct {
	owner *Storage
	box   *mailbox[port.Change]
}

// FailWrites makes subsequent Set and Remove calls fail with
// port.ErrStorageUnavailable, as a full quota would.
func (s *Storage) FailWrites(fail bool) {
	s.failWrites.Store(fail)
}

// Get implements port.KeyValueStore.
func (s *Storage) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.origin.mu.Lock()
	defer s.origin.mu.Unlock()
	v, ok := s.origin.data[key]
	return v, ok, nil
}

// Set implements port.KeyValueStore.
func (s *Storage) Set(ctx context.Context, key, value string) error {
	return s.write(ctx, port.Change{Key: key, Value: value, Present: true})
}

// Remove implements port.KeyValueStore.
func (s *Storage) Remove(ctx context.Context, key string) error {
	return s.write(ctx, port.Change{Key: key})
}

func (s *Storage) write(ctx context.Context, ch port.Change) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.failWrites.Load() {
		return port.ErrStorageUnavailable
	}

	o := s.origin
	o.mu.Lock()
	old, had := o.data[ch.Key]
	if ch.Present {
		o.data[ch.Key] = ch.Value
	} else {
		delete(o.data, ch.Key)
	}
	unchanged := had == ch.Present && old == ch.Value
	var targets []*watcher
	if !unchanged {
		for w := range o.watchers {
			if w.owner != s {
				targets = append(targets, w)
			}
		}
	}
	// Posting under the lock keeps every watcher's queue in write order.
	for _, w := range targets {
		w.box.post(ch)
	}
	o.mu.Unlock()
	return nil
}

// Watch implements port.KeyValueStore. Writes that leave a value unchanged
// are not reported.
func (s *Storage) Watch(fn func(port.Change)) func() {
	w := &watcher{owner: s, box: newMailbox(fn)}
	o := s.origin
	o.mu.Lock()
	o.watchers[w] = struct{}{}
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.watchers, w)
			o.mu.Unlock()
			w.box.close()
		})
	}
}
