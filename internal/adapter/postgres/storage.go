package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"agency-hub/internal/core/port"
)

// notifyChannel is the LISTEN/NOTIFY channel carrying key change events.
const notifyChannel = "kv_changes"

// notification is the pg_notify payload. Values are re-read from the table
// because NOTIFY payloads are limited to 8000 bytes.
type notification struct {
	Key    string `json:"key"`
	Origin string `json:"origin"`
}

// Storage implements port.KeyValueStore over the kv_entries table. Each
// Storage is one context: it carries its own origin id so that its writes
// are not echoed back to its watchers.
type Storage struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
	origin string

	mu       sync.Mutex
	watchers map[int]func(port.Change)
	nextID   int
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewStorage returns a new handle on the pool.
func NewStorage(pool *pgxpool.Pool, logger *slog.Logger) *Storage {
	return &Storage{
		pool:     pool,
		logger:   logger,
		origin:   uuid.NewString(),
		watchers: map[int]func(port.Change){},
	}
}

// Get implements port.KeyValueStore.
func (s *Storage) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM kv_entries WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set implements port.KeyValueStore. The upsert and the notification are
// committed together.
func (s *Storage) Set(ctx context.Context, key, value string) error {
	return s.write(ctx, key, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
INSERT INTO kv_entries (key, value, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
			key, value, time.Now().UTC())
		return err
	})
}

// Remove implements port.KeyValueStore.
func (s *Storage) Remove(ctx context.Context, key string) error {
	return s.write(ctx, key, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `DELETE FROM kv_entries WHERE key = $1`, key)
		return err
	})
}

func (s *Storage) write(ctx context.Context, key string, apply func(pgx.Tx) error) (err error) {
	payload, err := s.notificationPayload(key)
	if err != nil {
		return err
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()
	if err = apply(tx); err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, payload)
	return err
}

func (s *Storage) notificationPayload(key string) (string, error) {
	raw, err := json.Marshal(notification{Key: key, Origin: s.origin})
	return string(raw), err
}

// Watch implements port.KeyValueStore. The first registration starts a
// listener holding one pooled connection; it is released once the last
// watcher is cancelled.
func (s *Storage) Watch(fn func(port.Change)) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.watchers[id] = fn
	if s.cancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		s.done = make(chan struct{})
		go s.listen(ctx, s.done)
	}
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, id)
			var (
				stop func()
				done chan struct{}
			)
			if len(s.watchers) == 0 && s.cancel != nil {
				stop, done = s.cancel, s.done
				s.cancel, s.done = nil, nil
			}
			s.mu.Unlock()
			if stop != nil {
				stop()
				<-done
			}
		})
	}
}

// listen reconnects with a fixed backoff until ctx is cancelled.
func (s *Storage) listen(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		err := s.listenOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("kv listener stopped, reconnecting", slog.Any("error", err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func (s *Storage) listenOnce(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listener connection: %w", err)
	}
	defer conn.Release()

	if _, err = conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer func() {
		// The connection goes back to the pool; it must not stay subscribed.
		unlistenCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, _ = conn.Exec(unlistenCtx, "UNLISTEN "+notifyChannel)
	}()

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		key, ok := s.changedKey(n.Payload)
		if !ok {
			continue
		}
		value, found, err := s.Get(ctx, key)
		if err != nil {
			s.logger.Debug("read changed key", slog.String("key", key), slog.Any("error", err))
			continue
		}
		s.dispatch(port.Change{Key: key, Value: value, Present: found})
	}
}

// changedKey decodes a notification payload. Writes made through this
// handle and undecodable payloads report false.
func (s *Storage) changedKey(payload string) (string, bool) {
	var msg notification
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		s.logger.Debug("bad kv notification payload", slog.Any("error", err))
		return "", false
	}
	if msg.Origin == s.origin || msg.Key == "" {
		return "", false
	}
	return msg.Key, true
}

func (s *Storage) dispatch(ch port.Change) {
	s.mu.Lock()
	fns := make([]func(port.Change), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(ch)
	}
}
