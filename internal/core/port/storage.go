package port

import (
	"context"
	"errors"
)

// ErrStorageUnavailable is returned by backing stores that refuse writes,
// e.g. because a quota is exhausted.
var ErrStorageUnavailable = errors.New("storage unavailable")

// Change describes a write to the backing store observed by another
// handle. Present is false when the key was removed.
type Change struct {
	Key     string
	Value   string
	Present bool
}

// KeyValueStore is the durable, origin-scoped backing store shared by every
// context of the application. It is an outbound port. Each value returned
// by a constructor is one context's handle: Watch reports writes made
// through other handles only, never the handle's own writes.
type KeyValueStore interface {
	// Get returns the value stored under key. ok is false when absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set stores value under key.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
	// Watch registers fn for changes made by other handles. Callbacks for
	// one watcher are delivered in order. The returned function cancels
	// the registration.
	Watch(fn func(Change)) (cancel func())
}
