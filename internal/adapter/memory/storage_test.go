package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agency-hub/internal/core/port"
)

const waitFor = time.Second

type changeLog struct {
	mu      sync.Mutex
	changes []port.Change
}

func (l *changeLog) add(c port.Change) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.changes = append(l.changes, c)
}

func (l *changeLog) snapshot() []port.Change {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]port.Change(nil), l.changes...)
}

func TestStorageSharedAcrossContexts(t *testing.T) {
	ctx := context.Background()
	origin := NewOrigin()
	a, b := origin.Storage(), origin.Storage()

	require.NoError(t, a.Set(ctx, "k", "v"))
	v, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	require.NoError(t, b.Remove(ctx, "k"))
	_, ok, err = a.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWatchSkipsOwnWritesAndKeepsOrder(t *testing.T) {
	ctx := context.Background()
	origin := NewOrigin()
	a, b := origin.Storage(), origin.Storage()

	var own, other changeLog
	stopA := a.Watch(own.add)
	defer stopA()
	stopB := b.Watch(other.add)
	defer stopB()

	require.NoError(t, a.Set(ctx, "k", "1"))
	require.NoError(t, a.Set(ctx, "k", "1")) // unchanged, not reported
	require.NoError(t, a.Set(ctx, "k", "2"))
	require.NoError(t, a.Remove(ctx, "k"))

	want := []port.Change{
		{Key: "k", Value: "1", Present: true},
		{Key: "k", Value: "2", Present: true},
		{Key: "k"},
	}
	assert.Eventually(t, func() bool { return len(other.snapshot()) == len(want) }, waitFor, 5*time.Millisecond)
	assert.Equal(t, want, other.snapshot())
	assert.Empty(t, own.snapshot())
}

func TestWatchCancelStopsDelivery(t *testing.T) {
	ctx := context.Background()
	origin := NewOrigin()
	a, b := origin.Storage(), origin.Storage()

	var log changeLog
	stop := b.Watch(log.add)
	stop()
	stop() // idempotent

	require.NoError(t, a.Set(ctx, "k", "v"))
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, log.snapshot())
}

func TestFailWrites(t *testing.T) {
	ctx := context.Background()
	s := NewOrigin().Storage()
	s.FailWrites(true)
	assert.ErrorIs(t, s.Set(ctx, "k", "v"), port.ErrStorageUnavailable)
	assert.ErrorIs(t, s.Remove(ctx, "k"), port.ErrStorageUnavailable)

	s.FailWrites(false)
	assert.NoError(t, s.Set(ctx, "k", "v"))
}

func TestChannelDeliversToOtherHandlesOnly(t *testing.T) {
	ctx := context.Background()
	origin := NewOrigin()
	a, b := origin.Channel("prefs"), origin.Channel("prefs")
	other := origin.Channel("elsewhere")

	var mu sync.Mutex
	var gotA, gotB, gotOther []port.Message
	record := func(dst *[]port.Message) func(port.Message) {
		return func(m port.Message) {
			mu.Lock()
			defer mu.Unlock()
			*dst = append(*dst, m)
		}
	}
	defer a.Subscribe(record(&gotA))()
	defer b.Subscribe(record(&gotB))()
	defer other.Subscribe(record(&gotOther))()

	msg := port.Message{Key: "k", Value: "0"}
	require.NoError(t, a.Publish(ctx, msg))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(gotB) == 1
	}, waitFor, 5*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []port.Message{msg}, gotB)
	assert.Empty(t, gotA)
	assert.Empty(t, gotOther)
}

func TestEventTargetSkipsSource(t *testing.T) {
	target := NewEventTarget[string]()
	srcA, srcB := new(int), new(int)

	var gotA, gotB []string
	stopA := target.Listen(srcA, func(s string) { gotA = append(gotA, s) })
	target.Listen(srcB, func(s string) { gotB = append(gotB, s) })

	target.Dispatch(srcA, "from-a")
	assert.Empty(t, gotA)
	assert.Equal(t, []string{"from-a"}, gotB)

	stopA()
	target.Dispatch(srcB, "from-b")
	assert.Empty(t, gotA)
	assert.Equal(t, []string{"from-a"}, gotB)

	target.Dispatch(nil, "anon")
	assert.Equal(t, []string{"from-a", "anon"}, gotB)
}
