package stream

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKillIsIdempotentAndRemovesFiles(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()

	for _, name := range []string{"abc12345_master.m3u8", "abc12345.m3u8", "abc123450.ts", "abc123451.ts"} {
		require.NoError(os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(os.WriteFile(filepath.Join(dir, "other0000.ts"), []byte("x"), 0644))

	finishCount := 0
	s := New("abc12345", "rtsp://example/cam", dir, time.Minute, func() { finishCount++ })

	s.Kill(true)
	s.Kill(true)
	require.Equal(1, finishCount)
	require.True(s.Dead())

	matches, err := filepath.Glob(filepath.Join(dir, "abc12345*"))
	require.NoError(err)
	require.Empty(matches)

	// artifacts of other streams are untouched
	_, err = os.Stat(filepath.Join(dir, "other0000.ts"))
	require.NoError(err)
}

func TestKillWithoutFileRemovalKeepsArtifacts(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()

	require.NoError(os.WriteFile(filepath.Join(dir, "abc123450.ts"), []byte("x"), 0644))

	s := New("abc12345", "rtsp://example/cam", dir, time.Minute, nil)
	s.Kill(false)

	_, err := os.Stat(filepath.Join(dir, "abc123450.ts"))
	require.NoError(err)
}

func TestSelfDestructAfterInactivity(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()

	finished := make(chan struct{})
	s := New("abc12345", "rtsp://example/cam", dir, 30*time.Millisecond, func() { close(finished) })
	s.destructTick = 10 * time.Millisecond

	require.NoError(os.WriteFile(filepath.Join(dir, "abc123450.ts"), []byte("x"), 0644))
	s.adoptTranscoder(exec.Command("sleep", "60"))

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not self destruct")
	}

	require.True(s.Dead())
	matches, err := filepath.Glob(filepath.Join(dir, "abc12345*"))
	require.NoError(err)
	require.Empty(matches)
}

func TestTouchDefersSelfDestruct(t *testing.T) {
	finished := make(chan struct{})
	s := New("abc12345", "rtsp://example/cam", t.TempDir(), 50*time.Millisecond, func() { close(finished) })
	s.destructTick = 10 * time.Millisecond
	s.adoptTranscoder(exec.Command("sleep", "60"))

	deadline := time.Now().Add(150 * time.Millisecond)
	for time.Now().Before(deadline) {
		s.Touch()
		select {
		case <-finished:
			t.Fatal("stream self destructed despite activity")
		case <-time.After(5 * time.Millisecond):
		}
	}

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not self destruct after activity stopped")
	}
}

func TestReleaseTranscoderOnlyMatchingHandle(t *testing.T) {
	require := require.New(t)

	s := New("abc12345", "rtsp://example/cam", t.TempDir(), time.Minute, nil)
	current := exec.Command("sleep", "60")
	stale := exec.Command("sleep", "60")

	s.adoptTranscoder(current)
	require.True(s.Transcoding())

	require.False(s.releaseTranscoderIf(stale))
	require.True(s.Transcoding())

	require.True(s.releaseTranscoderIf(current))
	require.False(s.Transcoding())
}

func TestAdoptTranscoderRefusesDeadStream(t *testing.T) {
	require := require.New(t)

	s := New("abc12345", "rtsp://example/cam", t.TempDir(), time.Minute, nil)
	s.Kill(false)

	require.False(s.adoptTranscoder(exec.Command("sleep", "60")))
	require.False(s.Transcoding())

	// the ticker must not have been re-armed on a dead stream
	s.mu.Lock()
	require.Nil(s.destructQuit)
	s.mu.Unlock()
}

func TestAdoptTranscoderRefusesSecondHandle(t *testing.T) {
	require := require.New(t)

	s := New("abc12345", "rtsp://example/cam", t.TempDir(), time.Minute, nil)
	first := exec.Command("sleep", "60")
	second := exec.Command("sleep", "60")

	require.True(s.adoptTranscoder(first))
	require.False(s.adoptTranscoder(second))

	// the original handle stays installed
	require.True(s.releaseTranscoderIf(first))
}

func TestStopTranscoderCancelsSelfDestruct(t *testing.T) {
	require := require.New(t)

	s := New("abc12345", "rtsp://example/cam", t.TempDir(), time.Minute, nil)
	s.adoptTranscoder(exec.Command("sleep", "60"))

	s.mu.Lock()
	require.NotNil(s.destructQuit)
	s.mu.Unlock()

	s.stopTranscoder()
	require.False(s.Transcoding())

	s.mu.Lock()
	require.Nil(s.destructQuit)
	s.mu.Unlock()
}
