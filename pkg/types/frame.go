package types

import (
	"image"
	"time"
)

// Frame is one captured or processed image buffer. Pixels are packed RGBA,
// 4 bytes per pixel, row-major. A frame is owned by the loop iteration that
// read it; the processor step is the only stage allowed to mutate it.
type Frame struct {
	Pixels    []byte
	Width     int
	Height    int
	Number    uint64    // sequential capture number
	Timestamp time.Time // capture timestamp
}

// NewFrame allocates a zeroed RGBA frame.
func NewFrame(width, height int) *Frame {
	return &Frame{
		Pixels: make([]byte, width*height*4),
		Width:  width,
		Height: height,
	}
}

// RGBA wraps the pixel buffer as an image without copying.
func (f *Frame) RGBA() *image.RGBA {
	return &image.RGBA{
		Pix:    f.Pixels,
		Stride: f.Width * 4,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// Valid reports whether the buffer matches the declared geometry.
func (f *Frame) Valid() bool {
	return f != nil && f.Width > 0 && f.Height > 0 && len(f.Pixels) == f.Width*f.Height*4
}

// SessionConfig holds the per-session streaming parameters.
type SessionConfig struct {
	Interval    time.Duration // pacing delay between iterations
	JPEGQuality int
	MaxWidth    int // frames wider than this are downscaled before encode
}
