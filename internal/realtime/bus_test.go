package realtime

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/reelsmith-api/internal/platform/logger"
	"github.com/phrazzld/reelsmith-api/internal/task"
)

func TestLocalBus(t *testing.T) {
	t.Parallel()

	hub := newTestHub()
	principal := uuid.New()
	c := hub.NewClient(principal)
	hub.Subscribe(c, ProfileChannel(principal))

	bus := NewLocalBus(hub)
	require.NoError(t, bus.Start(context.Background()))
	require.NoError(t, bus.Publish(context.Background(), Message{
		Channel: ProfileChannel(principal),
		Event:   EventProfileUpdated,
		Data:    "balances",
	}))

	assert.Equal(t, "balances", recvMessage(t, c.Outbound).Data)
	assert.NoError(t, bus.Close())
}

func TestRedisBus_RelaysBetweenInstances(t *testing.T) {
	t.Parallel()

	mini := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	log, _ := logger.NewTestLogger()

	// Two instances share one Redis channel; a client connected to the
	// second sees what the first publishes.
	hubA, hubB := newTestHub(), newTestHub()
	busA, err := NewRedisBus(rdb, "test:realtime", hubA, log)
	require.NoError(t, err)
	busB, err := NewRedisBus(rdb, "test:realtime", hubB, log)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, busA.Start(ctx))
	require.NoError(t, busB.Start(ctx))
	t.Cleanup(func() { _ = busA.Close(); _ = busB.Close() })
	assert.Error(t, busA.Start(ctx), "a bus starts once")

	principal := uuid.New()
	c := hubB.NewClient(principal)
	hubB.Subscribe(c, QueueChannel(principal))

	snap := task.Snapshot{PrincipalID: principal, Stats: task.Stats{Total: 2, Completed: 1, Percent: 50}}
	require.NoError(t, busA.Publish(ctx, QueueMessage(snap)))

	msg := recvMessage(t, c.Outbound)
	assert.Equal(t, EventQueueUpdated, msg.Event)
	assert.Equal(t, QueueChannel(principal), msg.Channel)
	data, ok := msg.Data.(map[string]any)
	require.True(t, ok, "payload decodes to a generic object")
	assert.Equal(t, principal.String(), data["principal_id"])
}

func TestNewRedisBus_RequiresCollaborators(t *testing.T) {
	t.Parallel()

	_, err := NewRedisBus(nil, "", newTestHub(), nil)
	assert.Error(t, err)

	rdb := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = rdb.Close() })
	_, err = NewRedisBus(rdb, "", nil, nil)
	assert.Error(t, err)

	bus, err := NewRedisBus(rdb, "", newTestHub(), nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultRedisChannel, bus.channel)
	assert.NoError(t, bus.Close(), "closing an unstarted bus is a no-op")
}

type failingBus struct{ LocalBus }

func (failingBus) Publish(context.Context, Message) error { return errors.New("bus down") }

func TestQueueNotifier(t *testing.T) {
	t.Parallel()

	hub := newTestHub()
	principal := uuid.New()
	c := hub.NewClient(principal)
	hub.Subscribe(c, QueueChannel(principal))

	log, buf := logger.NewTestLogger()
	n := NewQueueNotifier(NewLocalBus(hub), log)
	n.QueueChanged(context.Background(), task.Snapshot{PrincipalID: principal, IsProcessing: true})

	msg := recvMessage(t, c.Outbound)
	snap, ok := msg.Data.(task.Snapshot)
	require.True(t, ok)
	assert.True(t, snap.IsProcessing)

	failing := NewQueueNotifier(&failingBus{}, log)
	failing.QueueChanged(context.Background(), task.Snapshot{PrincipalID: principal})
	assert.Eventually(t, func() bool { return strings.Contains(buf.String(), "failed to publish queue snapshot") },
		time.Second, 5*time.Millisecond)
}
