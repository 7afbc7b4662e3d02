package camera

import (
	"errors"
	"fmt"
	"sync"

	"github.com/fitmirror/streaming-server/internal/logger"
	"github.com/fitmirror/streaming-server/pkg/types"
)

// ErrCaptureExhausted is returned when the capture device cannot be opened
// or is no longer able to deliver frames. It is fatal for the session that
// owns the camera.
var ErrCaptureExhausted = errors.New("capture device exhausted")

// Device is an open capture handle. Implementations are not safe for
// concurrent use; the Camera serializes access.
type Device interface {
	// ReadFrame returns the next frame. Implementations bound the wait
	// internally and return an error on timeout or device failure.
	ReadFrame() (*types.Frame, error)
	Close() error
}

// Opener opens the underlying capture device.
type Opener interface {
	Open() (Device, error)
	// Name identifies the device for logs (e.g. "/dev/video0").
	Name() string
}

// Camera owns the single shared capture device. Acquire and Release are
// idempotent; only one open device handle exists at a time.
type Camera struct {
	mu     sync.Mutex
	opener Opener
	dev    Device
}

// New returns a Camera over the given opener. The device is not opened
// until Acquire.
func New(opener Opener) *Camera {
	return &Camera{opener: opener}
}

// Acquire opens the capture device if it is not already open. A second
// Acquire while open is a no-op. Open failures are surfaced as
// ErrCaptureExhausted.
func (c *Camera) Acquire() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dev != nil {
		return nil
	}
	dev, err := c.opener.Open()
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrCaptureExhausted, c.opener.Name(), err)
	}
	c.dev = dev
	logger.Info("Camera", "Acquired capture device %s", c.opener.Name())
	return nil
}

// Read returns the next frame and ok=true, or ok=false on a capture
// failure. The camera never retries beyond the single read; the caller
// decides whether the failure ends the session.
func (c *Camera) Read() (*types.Frame, bool) {
	c.mu.Lock()
	dev := c.dev
	c.mu.Unlock()

	if dev == nil {
		return nil, false
	}
	frame, err := dev.ReadFrame()
	if err != nil {
		logger.Warn("Camera", "Read failed on %s: %v", c.opener.Name(), err)
		return nil, false
	}
	return frame, true
}

// Release closes the device and clears the handle. Calling it again is a
// no-op.
func (c *Camera) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dev == nil {
		return
	}
	if err := c.dev.Close(); err != nil {
		logger.Warn("Camera", "Close failed on %s: %v", c.opener.Name(), err)
	}
	c.dev = nil
	logger.Info("Camera", "Released capture device %s", c.opener.Name())
}

// IsOpen reports whether the device handle is live.
func (c *Camera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dev != nil
}
