// Package redis implements port.Broadcaster on Redis pub/sub so that
// contexts running in different processes share one broadcast channel.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"agency-hub/internal/config/configs"
	"agency-hub/internal/core/port"
)

type envelope struct {
	Origin  string       `json:"origin"`
	Message port.Message `json:"message"`
}

// Broadcaster is one context's handle on a Redis channel.
type Broadcaster struct {
	rdb     *goredis.Client
	logger  *slog.Logger
	channel string
	origin  string
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, cfg configs.Redis) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctxPing).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// NewBroadcaster returns a handle publishing to and receiving from channel.
func NewBroadcaster(rdb *goredis.Client, channel string, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		rdb:     rdb,
		logger:  logger.With(slog.String("channel", channel)),
		channel: channel,
		origin:  uuid.NewString(),
	}
}

func (b *Broadcaster) encode(msg port.Message) ([]byte, error) {
	return json.Marshal(envelope{Origin: b.origin, Message: msg})
}

// decode unwraps an envelope. Messages published through this handle and
// malformed payloads report false.
func (b *Broadcaster) decode(payload string) (port.Message, bool) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		b.logger.Warn("bad broadcast payload", slog.Any("error", err))
		return port.Message{}, false
	}
	if env.Origin == b.origin {
		return port.Message{}, false
	}
	return env.Message, true
}

// Publish implements port.Broadcaster.
func (b *Broadcaster) Publish(ctx context.Context, msg port.Message) error {
	raw, err := b.encode(msg)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

// Subscribe implements port.Broadcaster. Messages are handled on a
// dedicated goroutine until the returned function is called.
func (b *Broadcaster) Subscribe(fn func(port.Message)) func() {
	ctx, cancel := context.WithCancel(context.Background())
	sub := b.rdb.Subscribe(ctx, b.channel)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				if msg, ok := b.decode(m.Payload); ok {
					fn(msg)
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}
