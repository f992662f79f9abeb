package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bytedance/sonic"
	goredis "github.com/redis/go-redis/v9"
)

// Bus carries messages to the Hub of every API instance.
type Bus interface {
	Publish(ctx context.Context, msg Message) error
	// Start begins forwarding published messages to the hub.
	Start(ctx context.Context) error
	Close() error
}

// LocalBus delivers straight to an in-process Hub.
type LocalBus struct {
	hub *Hub
}

var _ Bus = (*LocalBus)(nil)

// NewLocalBus creates a bus for a single-instance deployment.
func NewLocalBus(hub *Hub) *LocalBus {
	return &LocalBus{hub: hub}
}

// Publish implements Bus
func (b *LocalBus) Publish(_ context.Context, msg Message) error {
	b.hub.Broadcast(msg)
	return nil
}

// Start implements Bus
func (b *LocalBus) Start(context.Context) error { return nil }

// Close implements Bus
func (b *LocalBus) Close() error { return nil }

// RedisBus relays messages through a Redis pub/sub channel.
type RedisBus struct {
	rdb     *goredis.Client
	channel string
	hub     *Hub
	logger  *slog.Logger

	mu  sync.Mutex
	sub *goredis.PubSub
	wg  sync.WaitGroup
}

var _ Bus = (*RedisBus)(nil)

// DefaultRedisChannel is used when no channel is configured.
const DefaultRedisChannel = "reelsmith:realtime"

// NewRedisBus creates a bus over rdb. The caller owns rdb.
func NewRedisBus(rdb *goredis.Client, channel string, hub *Hub, logger *slog.Logger) (*RedisBus, error) {
	if rdb == nil {
		return nil, errors.New("redis client required")
	}
	if hub == nil {
		return nil, errors.New("hub required")
	}
	if channel == "" {
		channel = DefaultRedisChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBus{
		rdb:     rdb,
		channel: channel,
		hub:     hub,
		logger:  logger.With("component", "redis_bus", "channel", channel),
	}, nil
}

// Publish implements Bus
func (b *RedisBus) Publish(ctx context.Context, msg Message) error {
	raw, err := sonic.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode realtime message: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.channel, raw).Err(); err != nil {
		return fmt.Errorf("failed to publish realtime message: %w", err)
	}
	return nil
}

// Start implements Bus. It returns once the subscription is confirmed.
func (b *RedisBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sub != nil {
		return errors.New("redis bus already started")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}
	b.sub = sub

	b.wg.Add(1)
	go b.forward(ctx, sub.Channel())
	b.logger.Info("redis bus started")
	return nil
}

func (b *RedisBus) forward(ctx context.Context, ch <-chan *goredis.Message) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			var msg Message
			if err := sonic.UnmarshalString(m.Payload, &msg); err != nil {
				b.logger.Warn("bad realtime payload", "error", err)
				continue
			}
			b.hub.Broadcast(msg)
		}
	}
}

// Close implements Bus. It stops the subscription but leaves the client open.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	sub := b.sub
	b.sub = nil
	b.mu.Unlock()

	if sub == nil {
		return nil
	}
	err := sub.Close()
	b.wg.Wait()
	return err
}
