package stream

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRegistryBoundedAdmission(t *testing.T) {
	require := require.New(t)
	registry := NewRegistry(3)

	for i := 0; i < 3; i++ {
		s := New(fmt.Sprintf("abc1234%d", i), "rtsp://example/cam", t.TempDir(), time.Minute, nil)
		require.NoError(registry.Store(s))
	}
	require.True(registry.Full())
	require.Equal(3, registry.Count())

	overflow := New("abc12349", "rtsp://example/cam", t.TempDir(), time.Minute, nil)
	require.ErrorIs(registry.Store(overflow), ErrRegistryFull)
	require.Equal(3, registry.Count())

	registry.Remove("abc12340")
	require.False(registry.Full())
	require.NoError(registry.Store(overflow))
}

func TestRegistryLookup(t *testing.T) {
	require := require.New(t)
	registry := NewRegistry(3)

	s := New("abc12345", "rtsp://example/cam", t.TempDir(), time.Minute, nil)
	require.NoError(registry.Store(s))

	require.Same(s, registry.Get("abc12345"))
	require.Nil(registry.Get("missing0"))

	registry.Remove("abc12345")
	require.Nil(registry.Get("abc12345"))
}

func TestRegistryNewIDIsFilenameSafe(t *testing.T) {
	require := require.New(t)
	registry := NewRegistry(10)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id := registry.NewID()
		require.Len(id, identifierLength)
		require.Regexp("^[a-f0-9]{8}$", id)
		require.False(seen[id], "identifier %s repeated", id)
		seen[id] = true
	}
}

func TestRegistryKillAllFiresFinishCallbacks(t *testing.T) {
	require := require.New(t)
	registry := NewRegistry(3)

	finished := 0
	for i := 0; i < 2; i++ {
		id := fmt.Sprintf("abc1234%d", i)
		s := New(id, "rtsp://example/cam", t.TempDir(), time.Minute, func() {
			finished++
			registry.Remove(id)
		})
		require.NoError(registry.Store(s))
	}

	registry.KillAll(false)
	require.Equal(2, finished)
	require.Equal(0, registry.Count())
}
