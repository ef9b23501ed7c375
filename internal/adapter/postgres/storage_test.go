package postgres

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agency-hub/internal/core/port"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestChangedKeySkipsOwnOrigin(t *testing.T) {
	a := NewStorage(nil, testLogger())
	b := NewStorage(nil, testLogger())
	require.NotEqual(t, a.origin, b.origin)

	payload, err := a.notificationPayload("agency-state-v1")
	require.NoError(t, err)

	_, ok := a.changedKey(payload)
	assert.False(t, ok, "own write must not be reported")

	key, ok := b.changedKey(payload)
	assert.True(t, ok)
	assert.Equal(t, "agency-state-v1", key)
}

func TestChangedKeyRejectsBadPayloads(t *testing.T) {
	s := NewStorage(nil, testLogger())
	for _, payload := range []string{"", "not json", `{"origin":"other"}`, `{"key":1}`} {
		_, ok := s.changedKey(payload)
		assert.False(t, ok, payload)
	}
}

func TestDispatchReachesEveryWatcher(t *testing.T) {
	s := NewStorage(nil, testLogger())
	var got []port.Change
	s.watchers[1] = func(c port.Change) { got = append(got, c) }
	s.watchers[2] = func(c port.Change) { got = append(got, c) }

	ch := port.Change{Key: "k", Value: "v", Present: true}
	s.dispatch(ch)
	assert.Equal(t, []port.Change{ch, ch}, got)
}
