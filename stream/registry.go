package stream

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var ErrRegistryFull = errors.New("streams registry is at capacity")

// Registry is the process-wide mapping from stream identifier to live Stream,
// bounded by the configured maximum of concurrent streams.
type Registry struct {
	mu         sync.RWMutex
	streams    map[string]*Stream
	maxStreams int
}

func NewRegistry(maxStreams int) *Registry {
	return &Registry{
		streams:    make(map[string]*Stream),
		maxStreams: maxStreams,
	}
}

func (r *Registry) Store(s *Stream) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.streams) >= r.maxStreams {
		return ErrRegistryFull
	}
	r.streams[s.ID] = s
	return nil
}

func (r *Registry) Get(id string) *Stream {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.streams[id]
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.streams, id)
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.streams)
}

func (r *Registry) Full() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.streams) >= r.maxStreams
}

// NewID returns a fresh 8-character filename-safe identifier that is unique
// among the live streams.
func (r *Registry) NewID() string {
	for {
		id := uuid.New().String()[:identifierLength]
		if r.Get(id) == nil {
			return id
		}
	}
}

// KillAll tears down every live stream. Used on shutdown.
func (r *Registry) KillAll(removeFiles bool) {
	r.mu.RLock()
	streams := make([]*Stream, 0, len(r.streams))
	for _, s := range r.streams {
		streams = append(streams, s)
	}
	r.mu.RUnlock()

	for _, s := range streams {
		s.Kill(removeFiles)
	}
}
