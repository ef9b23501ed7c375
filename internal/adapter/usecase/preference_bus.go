package usecase

import (
	"context"
	"log/slog"
	"sync"

	"agency-hub/internal/core/domain"
	"agency-hub/internal/core/port"
)

// PreferenceBus holds per-widget boolean flags. It implements
// port.PreferenceUseCase. Several buses may coexist in one context; they
// converge through the shared LocalEvents target, while buses in other
// contexts converge through the broadcaster and the backing store.
type PreferenceBus struct {
	storage port.KeyValueStore
	channel port.Broadcaster
	events  port.LocalEvents
	logger  *slog.Logger

	mu        sync.Mutex
	cache     map[string]bool
	listeners map[uint64]func(key string, enabled bool)
	nextID    uint64
	stops     []func()
}

// NewPreferenceBus creates a bus and starts following remote changes.
// channel and events may be nil when the context has no peers of that
// kind.
func NewPreferenceBus(storage port.KeyValueStore, channel port.Broadcaster, events port.LocalEvents, logger *slog.Logger) *PreferenceBus {
	b := &PreferenceBus{
		storage:   storage,
		channel:   channel,
		events:    events,
		logger:    logger,
		cache:     map[string]bool{},
		listeners: map[uint64]func(string, bool){},
	}
	b.stops = append(b.stops, storage.Watch(b.onStorageChange))
	if channel != nil {
		b.stops = append(b.stops, channel.Subscribe(b.onMessage))
	}
	if events != nil {
		b.stops = append(b.stops, events.Listen(b, b.onMessage))
	}
	return b
}

// Close detaches the bus from every channel.
func (b *PreferenceBus) Close() {
	b.mu.Lock()
	stops := b.stops
	b.stops = nil
	b.mu.Unlock()
	for _, stop := range stops {
		stop()
	}
}

// Read implements port.PreferenceUseCase. The first successful read of a
// key loads it from the backing store; absent entries read as enabled, and
// so does a failed read, which is retried on the next call.
func (b *PreferenceBus) Read(ctx context.Context, id domain.PreferenceID) bool {
	key := id.Key()
	b.mu.Lock()
	v, ok := b.cache[key]
	b.mu.Unlock()
	if ok {
		return v
	}

	raw, found, err := b.storage.Get(ctx, key)
	if err != nil {
		// Not cached: the next read asks the backing store again.
		b.logger.Debug("read preference", slog.String("key", key), slog.Any("error", err))
		return true
	}
	enabled := !found || domain.DecodePreference(raw)

	b.mu.Lock()
	defer b.mu.Unlock()
	// A concurrent write or remote change wins over the value just read.
	if v, ok = b.cache[key]; ok {
		return v
	}
	b.cache[key] = enabled
	return enabled
}

// Write implements port.PreferenceUseCase. The local update always takes
// effect; the durable write, the broadcast and the same-context event are
// attempted independently afterwards.
func (b *PreferenceBus) Write(ctx context.Context, id domain.PreferenceID, enabled bool) {
	key := id.Key()
	b.apply(key, enabled)

	msg := port.Message{Key: key, Value: domain.EncodePreference(enabled)}
	if err := b.storage.Set(ctx, key, msg.Value); err != nil {
		b.logger.Debug("persist preference", slog.String("key", key), slog.Any("error", err))
	}
	if b.channel != nil {
		if err := b.channel.Publish(ctx, msg); err != nil {
			b.logger.Debug("broadcast preference", slog.String("key", key), slog.Any("error", err))
		}
	}
	if b.events != nil {
		b.events.Dispatch(b, msg)
	}
}

// Subscribe implements port.PreferenceUseCase. Listeners are called only
// when a flag actually changes value.
func (b *PreferenceBus) Subscribe(fn func(key string, enabled bool)) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners[id] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

func (b *PreferenceBus) onMessage(msg port.Message) {
	if !domain.IsPreferenceKey(msg.Key) {
		return
	}
	b.apply(msg.Key, domain.DecodePreference(msg.Value))
}

func (b *PreferenceBus) onStorageChange(ch port.Change) {
	if !domain.IsPreferenceKey(ch.Key) {
		return
	}
	b.apply(ch.Key, !ch.Present || domain.DecodePreference(ch.Value))
}

func (b *PreferenceBus) apply(key string, enabled bool) {
	b.mu.Lock()
	prev, known := b.cache[key]
	if !known {
		prev = true
	}
	b.cache[key] = enabled
	if prev == enabled {
		b.mu.Unlock()
		return
	}
	fns := make([]func(string, bool), 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(key, enabled)
	}
}
