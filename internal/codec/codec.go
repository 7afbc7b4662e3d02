// Package codec turns raw frames into a transmissible JPEG plus a
// text-safe envelope for structured event payloads. Both operations are
// pure; an encode failure only costs that iteration's video-frame event.
package codec

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"

	xdraw "golang.org/x/image/draw"

	"github.com/fitmirror/streaming-server/pkg/types"
)

// Codec holds the encode parameters for one stream.
type Codec struct {
	Quality  int // JPEG quality, 1-100
	MaxWidth int // frames wider than this are downscaled; 0 disables
}

// Default returns the codec used when no flags override it.
func Default() *Codec {
	return &Codec{Quality: 80, MaxWidth: 1280}
}

// Encode compresses a frame to JPEG, downscaling first when the frame
// exceeds MaxWidth.
func (c *Codec) Encode(frame *types.Frame) ([]byte, error) {
	if !frame.Valid() {
		return nil, fmt.Errorf("invalid frame geometry %dx%d (%d bytes)",
			frameWidth(frame), frameHeight(frame), frameLen(frame))
	}

	var img image.Image = frame.RGBA()
	if c.MaxWidth > 0 && frame.Width > c.MaxWidth {
		scale := float64(c.MaxWidth) / float64(frame.Width)
		dst := image.NewRGBA(image.Rect(0, 0, c.MaxWidth, int(float64(frame.Height)*scale)))
		xdraw.ApproxBiLinear.Scale(dst, dst.Rect, img, img.Bounds(), xdraw.Src, nil)
		img = dst
	}

	quality := c.Quality
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}
	return buf.Bytes(), nil
}

// WireText produces the text-safe representation of encoded image bytes
// suitable for embedding in an event payload.
func (c *Codec) WireText(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func frameWidth(f *types.Frame) int {
	if f == nil {
		return 0
	}
	return f.Width
}

func frameHeight(f *types.Frame) int {
	if f == nil {
		return 0
	}
	return f.Height
}

func frameLen(f *types.Frame) int {
	if f == nil {
		return 0
	}
	return len(f.Pixels)
}
