package filestore

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agency-hub/internal/adapter/usecase"
	"agency-hub/internal/core/domain"
	"agency-hub/internal/core/port"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func open(t *testing.T, dir string) *Storage {
	t.Helper()
	s, err := Open(dir, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGetSetRemove(t *testing.T) {
	ctx := context.Background()
	s := open(t, t.TempDir())

	_, ok, err := s.Get(ctx, "agency-state-v1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "agency-state-v1", `{"managers":[]}`))
	v, ok, err := s.Get(ctx, "agency-state-v1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"managers":[]}`, v)

	require.NoError(t, s.Remove(ctx, "agency-state-v1"))
	require.NoError(t, s.Remove(ctx, "agency-state-v1"))
	_, ok, err = s.Get(ctx, "agency-state-v1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWatchReportsOtherHandlesOnly(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a, b := open(t, dir), open(t, dir)

	var (
		mu     sync.Mutex
		seenA  []port.Change
		lastB  port.Change
		countB int
	)
	a.Watch(func(c port.Change) {
		mu.Lock()
		defer mu.Unlock()
		seenA = append(seenA, c)
	})
	b.Watch(func(c port.Change) {
		mu.Lock()
		defer mu.Unlock()
		lastB = c
		countB++
	})

	require.NoError(t, a.Set(ctx, "widget-pref:x", "0"))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return countB > 0 && lastB == port.Change{Key: "widget-pref:x", Value: "0", Present: true}
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, a.Remove(ctx, "widget-pref:x"))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return lastB == port.Change{Key: "widget-pref:x"}
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, seenA)
}

func TestForeignFilesIgnored(t *testing.T) {
	dir := t.TempDir()
	s := open(t, dir)

	called := make(chan struct{}, 1)
	s.Watch(func(port.Change) { called <- struct{}{} })

	require.NoError(t, os.WriteFile(dir+"/README", []byte("hi"), 0o644))
	require.NoError(t, os.WriteFile(dir+"/zz.kv", []byte("not hex"), 0o644))
	select {
	case <-called:
		t.Fatal("unexpected change for a file outside the key space")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatchReportsValueEqualToOwnEarlierWrite(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a, b := open(t, dir), open(t, dir)

	var (
		mu   sync.Mutex
		last port.Change
	)
	a.Watch(func(c port.Change) {
		mu.Lock()
		defer mu.Unlock()
		last = c
	})
	lastSeen := func(want string) func() bool {
		return func() bool {
			mu.Lock()
			defer mu.Unlock()
			return last == port.Change{Key: "k", Value: want, Present: true}
		}
	}

	require.NoError(t, a.Set(ctx, "k", "x"))
	require.NoError(t, b.Set(ctx, "k", "y"))
	assert.Eventually(t, lastSeen("y"), 2*time.Second, 10*time.Millisecond)

	require.NoError(t, b.Set(ctx, "k", "x"))
	assert.Eventually(t, lastSeen("x"), 2*time.Second, 10*time.Millisecond)
}

func TestWatchReportsRemovalAfterOwnRemoval(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a, b := open(t, dir), open(t, dir)

	var (
		mu   sync.Mutex
		last port.Change
	)
	a.Watch(func(c port.Change) {
		mu.Lock()
		defer mu.Unlock()
		last = c
	})

	require.NoError(t, a.Set(ctx, "k", "x"))
	require.NoError(t, a.Remove(ctx, "k"))
	require.NoError(t, b.Set(ctx, "k", "y"))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return last == port.Change{Key: "k", Value: "y", Present: true}
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, b.Remove(ctx, "k"))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return last == port.Change{Key: "k"}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAgencyStoresConvergeOverFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	seed := open(t, dir)
	raw, err := domain.EncodeState(domain.DemoState())
	require.NoError(t, err)
	require.NoError(t, seed.Set(ctx, usecase.StateKey, raw))

	a := usecase.NewAgencyStore(open(t, dir), testLogger())
	defer a.Close()
	b := usecase.NewAgencyStore(open(t, dir), testLogger())
	defer b.Close()

	ownerOf := func(s *usecase.AgencyStore) string {
		c, _ := s.GetSnapshot().CampaignByID("cmp-5")
		return c.OwnerID
	}

	require.True(t, a.AssignCampaign(ctx, "cmp-5", "mgr-1"))
	require.True(t, b.AssignCampaign(ctx, "cmp-5", "mgr-2"))
	assert.Eventually(t, func() bool { return ownerOf(a) == "mgr-2" }, 2*time.Second, 10*time.Millisecond)

	// b restores a document byte-identical to one a wrote earlier
	require.True(t, b.AssignCampaign(ctx, "cmp-5", "mgr-1"))
	assert.Eventually(t, func() bool { return ownerOf(a) == "mgr-1" }, 2*time.Second, 10*time.Millisecond)
}
