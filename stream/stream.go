package stream

import (
	"os/exec"
	"sync"
	"time"

	"github.com/minthantsin/rtsp-hls-gateway/log"
	"github.com/minthantsin/rtsp-hls-gateway/metrics"
)

const defaultSelfDestructInterval = 5 * time.Second

// Stream is one active upstream session. Its identifier prefixes every
// artifact the transcoder writes under the transcode dir.
type Stream struct {
	ID        string
	SourceURL string
	Dir       string

	// spawnMu serializes the whole probe-start-adopt sequence so concurrent
	// segment requests can never leave two children running for one stream
	spawnMu sync.Mutex

	mu           sync.Mutex
	seekStart    int
	cmd          *exec.Cmd
	lastActivity time.Time
	destructQuit chan struct{}
	destructTick time.Duration
	idleTimeout  time.Duration
	dead         bool

	onFinish   func()
	finishOnce sync.Once
}

// New creates a Stream that is not yet transcoding. onFinish runs exactly
// once, when the stream is torn down.
func New(id, sourceURL, dir string, idleTimeout time.Duration, onFinish func()) *Stream {
	return &Stream{
		ID:           id,
		SourceURL:    sourceURL,
		Dir:          dir,
		lastActivity: time.Now(),
		destructTick: defaultSelfDestructInterval,
		idleTimeout:  idleTimeout,
		onFinish:     onFinish,
	}
}

// Touch marks the stream as active, pushing back self destruction.
func (s *Stream) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
}

func (s *Stream) SeekStart() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seekStart
}

func (s *Stream) setSeekStart(segment int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seekStart = segment
}

// Transcoding reports whether a child transcoder process is currently live.
func (s *Stream) Transcoding() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmd != nil
}

func (s *Stream) Dead() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dead
}

// Kill is the idempotent teardown: it cancels the self-destruct ticker, kills
// the transcoder if one is live, optionally removes every <ID>* artifact, and
// fires onFinish exactly once.
func (s *Stream) Kill(removeFiles bool) {
	s.mu.Lock()
	if s.dead {
		s.mu.Unlock()
		return
	}
	s.dead = true
	cmd := s.cmd
	s.cmd = nil
	s.stopSelfDestructorLocked()
	s.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	if removeFiles {
		removeStreamFiles(s.Dir, s.ID)
	}
	s.finishOnce.Do(func() {
		if s.onFinish != nil {
			s.onFinish()
		}
		log.RemoveContext(s.ID)
	})
}

// adoptTranscoder installs a freshly started child process and arms the
// self-destruct ticker. Refuses when the stream was torn down in the meantime
// or another handle is already installed; the caller owns the refused child.
func (s *Stream) adoptTranscoder(cmd *exec.Cmd) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dead || s.cmd != nil {
		return false
	}
	s.cmd = cmd
	s.lastActivity = time.Now()
	s.startSelfDestructorLocked()
	return true
}

// releaseTranscoderIf clears the transcoder handle, but only when it still
// refers to cmd. Returns false when the handle was superseded by a restart or
// an explicit kill in the meantime.
func (s *Stream) releaseTranscoderIf(cmd *exec.Cmd) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd != cmd {
		return false
	}
	s.cmd = nil
	s.stopSelfDestructorLocked()
	return true
}

// stopTranscoder kills the live child, clears the handle and cancels the
// self-destruct ticker. Used on the seek-restart path; the exit observer reaps
// the killed process.
func (s *Stream) stopTranscoder() {
	s.mu.Lock()
	cmd := s.cmd
	s.cmd = nil
	s.stopSelfDestructorLocked()
	s.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}

// Invariant: the ticker goroutine runs exactly while a transcoder handle is
// installed.
func (s *Stream) startSelfDestructorLocked() {
	if s.destructQuit != nil {
		return
	}
	quit := make(chan struct{})
	s.destructQuit = quit

	go func() {
		ticker := time.NewTicker(s.destructTick)
		defer ticker.Stop()
		for {
			select {
			case <-quit:
				return
			case <-ticker.C:
				s.mu.Lock()
				idle := time.Since(s.lastActivity)
				timeout := s.idleTimeout
				s.mu.Unlock()
				if idle > timeout {
					log.Log(s.ID, "self destructing after inactivity", "idle", idle.String())
					metrics.Metrics.SelfDestructCount.Inc()
					s.Kill(true)
					return
				}
			}
		}
	}()
}

func (s *Stream) stopSelfDestructorLocked() {
	if s.destructQuit != nil {
		close(s.destructQuit)
		s.destructQuit = nil
	}
}
