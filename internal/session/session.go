// Package session runs the per-client streaming lifecycle: a cooperative
// loop that reads frames from the shared camera, delegates to the pose
// processor, and pushes frame and rep-count events to the client.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fitmirror/streaming-server/internal/camera"
	"github.com/fitmirror/streaming-server/internal/codec"
	"github.com/fitmirror/streaming-server/internal/logger"
	"github.com/fitmirror/streaming-server/internal/metrics"
	"github.com/fitmirror/streaming-server/internal/pose"
	"github.com/fitmirror/streaming-server/pkg/types"
)

// Emitter delivers the two per-iteration events to one client. The two
// emissions are independent: a failure on one must not block the other.
type Emitter interface {
	EmitFrame(wire string) error
	EmitRepCount(count int) error
}

// State is the lifecycle position of one session.
type State int32

const (
	StateIdle State = iota
	StateStreaming
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateClosing:
		return "closing"
	}
	return "unknown"
}

// Session is one connected client's streaming lifecycle.
type Session struct {
	ID string

	cam   *camera.Camera
	proc  pose.Processor
	codec *codec.Codec
	emit  Emitter
	cfg   types.SessionConfig
	m     *metrics.Metrics

	state  atomic.Int32
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	onExit func(*Session)
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Done is closed when the stream loop has fully exited and the camera is
// released. It is nil for sessions that never started streaming.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// start transitions Idle -> Streaming, acquires the camera exactly once
// and launches the loop. onExit runs after the loop has released the
// camera on whatever path it exits.
func (s *Session) start(ctx context.Context, onExit func(*Session)) error {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateStreaming)) {
		return ErrSessionNotIdle
	}

	if err := s.cam.Acquire(); err != nil {
		s.state.Store(int32(StateClosing))
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.done = make(chan struct{})
	s.onExit = onExit
	done := s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.run(loopCtx)
	}()
	return nil
}

// Close forces the session into Closing. Safe to call at any time and
// from any goroutine; for a streaming session the loop observes the
// cancellation within one pacing interval and releases the camera.
func (s *Session) Close() {
	s.state.Store(int32(StateClosing))
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// run is the cooperative stream loop. The deferred block is the single
// release point for the camera: it executes on cancellation, on capture
// failure, and on any other exit.
func (s *Session) run(ctx context.Context) {
	defer func() {
		s.state.Store(int32(StateClosing))
		s.cam.Release()
		s.m.SessionsClosed.Add(1)
		logger.Info("Session", "Stream loop for %s terminated", s.ID)
		s.mu.Lock()
		onExit := s.onExit
		s.mu.Unlock()
		if onExit != nil {
			onExit(s)
		}
	}()

	logger.Info("Session", "Stream loop for %s started (interval %v)", s.ID, s.cfg.Interval)

	for {
		if ctx.Err() != nil {
			return
		}
		if !s.iterate() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.Interval):
		}
	}
}

// iterate runs one read/process/normalize/encode/emit pass. It returns
// false only on a capture failure, which is fatal for the session; every
// downstream failure is contained to the iteration or the single event.
func (s *Session) iterate() bool {
	start := time.Now()

	frame, ok := s.cam.Read()
	if !ok {
		s.m.CaptureFailures.Add(1)
		logger.Error("Session", "Capture failed for %s, closing stream", s.ID)
		return false
	}
	s.m.FramesCaptured.Add(1)

	var res pose.Result
	raw, err := s.proc.Process(frame)
	if err != nil {
		s.m.ProcessorFailures.Add(1)
		logger.Warn("Session", "Pose processing failed for %s: %v", s.ID, err)
		res = pose.Unavailable(frame)
	} else {
		res = pose.Normalize(raw, frame, s.proc)
		s.m.FramesProcessed.Add(1)
	}

	// Video-frame and rep-count events are guarded independently, and
	// always emitted in that order.
	if data, err := s.codec.Encode(res.Frame); err != nil {
		s.m.EncodeFailures.Add(1)
		logger.Warn("Session", "Frame encode failed for %s: %v", s.ID, err)
	} else if err := s.emit.EmitFrame(s.codec.WireText(data)); err != nil {
		s.m.EmitFailures.Add(1)
		logger.Warn("Session", "Frame emit failed for %s: %v", s.ID, err)
	} else {
		s.m.FramesSent.Add(1)
	}

	count := res.WireCount()
	if err := s.emit.EmitRepCount(count); err != nil {
		s.m.EmitFailures.Add(1)
		logger.Warn("Session", "Rep-count emit failed for %s: %v", s.ID, err)
	} else {
		s.m.RepCountsSent.Add(1)
		if count >= 0 {
			s.m.LastRepCount.Store(uint64(count))
		}
	}

	s.m.IterationLatency.Store(uint64(time.Since(start).Milliseconds()))
	return true
}
