package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/fitmirror/streaming-server/internal/camera"
	"github.com/fitmirror/streaming-server/internal/codec"
	"github.com/fitmirror/streaming-server/internal/logger"
	"github.com/fitmirror/streaming-server/internal/metrics"
	"github.com/fitmirror/streaming-server/internal/pose"
	"github.com/fitmirror/streaming-server/pkg/types"
)

var (
	// ErrConcurrentSession is returned when a stream start is attempted
	// while another session already owns the camera.
	ErrConcurrentSession = errors.New("another session is already streaming")
	// ErrUnknownSession is returned for lifecycle operations on a client
	// id the registry does not know.
	ErrUnknownSession = errors.New("unknown session")
	// ErrSessionNotIdle is returned when a session is started twice.
	ErrSessionNotIdle = errors.New("session is not idle")
)

// Registry tracks connected clients and enforces the single-streaming
// invariant over the shared camera.
type Registry struct {
	cam   *camera.Camera
	proc  pose.Processor
	codec *codec.Codec
	cfg   types.SessionConfig
	m     *metrics.Metrics

	mu        sync.Mutex
	sessions  map[string]*Session
	streaming string // client id currently owning the camera, "" if none
}

// NewRegistry wires the shared collaborators every session uses.
func NewRegistry(cam *camera.Camera, proc pose.Processor, cdc *codec.Codec, cfg types.SessionConfig, m *metrics.Metrics) *Registry {
	return &Registry{
		cam:      cam,
		proc:     proc,
		codec:    cdc,
		cfg:      cfg,
		m:        m,
		sessions: make(map[string]*Session),
	}
}

// Connect registers a new Idle session for a client and returns it.
func (r *Registry) Connect(emit Emitter) *Session {
	s := &Session{
		ID:    uuid.NewString(),
		cam:   r.cam,
		proc:  r.proc,
		codec: r.codec,
		emit:  emit,
		cfg:   r.cfg,
		m:     r.m,
	}
	s.state.Store(int32(StateIdle))

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	r.m.ActiveSessions.Add(1)
	r.m.TotalSessions.Add(1)
	logger.Info("Registry", "Client %s connected", s.ID)
	return s
}

// StartStream transitions the client's session to Streaming and begins
// its loop. While one session is streaming, any other start is rejected
// immediately so two loops never read the same device.
func (r *Registry) StartStream(ctx context.Context, id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return ErrUnknownSession
	}
	if r.streaming != "" {
		r.mu.Unlock()
		r.m.RejectedStarts.Add(1)
		logger.Warn("Registry", "Rejected stream start for %s: %s is streaming", id, r.streaming)
		return ErrConcurrentSession
	}
	r.streaming = id
	r.mu.Unlock()

	err := s.start(ctx, func(ended *Session) {
		r.mu.Lock()
		if r.streaming == ended.ID {
			r.streaming = ""
		}
		r.mu.Unlock()
	})
	if err != nil {
		r.mu.Lock()
		if r.streaming == id {
			r.streaming = ""
		}
		r.mu.Unlock()
		return err
	}
	logger.Info("Registry", "Client %s streaming", id)
	return nil
}

// Disconnect tears the client's session down. A disconnect for an absent
// or already-disconnected client is harmless. For a streaming session the
// camera release path is guaranteed to run.
func (r *Registry) Disconnect(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	s.Close()
	r.m.ActiveSessions.Add(^uint64(0))
	logger.Info("Registry", "Client %s disconnected", id)
}

// Shutdown disconnects every session and waits until any streaming loop
// has exited and released the camera. After it returns the device has no
// reader left.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		delete(r.sessions, id)
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
		r.m.ActiveSessions.Add(^uint64(0))
	}
	for _, s := range sessions {
		if done := s.Done(); done != nil {
			<-done
		}
	}
	logger.Info("Registry", "All sessions drained")
}

// StreamingID returns the client id currently owning the camera, or "".
func (r *Registry) StreamingID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.streaming
}

// ActiveCount returns the number of connected sessions.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
