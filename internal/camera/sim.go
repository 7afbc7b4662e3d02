package camera

import (
	"time"

	"github.com/fitmirror/streaming-server/pkg/types"
)

// SimOpener provides a synthetic capture device for development and tests
// when no physical camera is attached.
type SimOpener struct {
	Width  int
	Height int
}

// Name identifies the device for logs.
func (o *SimOpener) Name() string { return "sim" }

// Open returns a device that renders a moving vertical bar over a gray
// background.
func (o *SimOpener) Open() (Device, error) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = 640
	}
	if h <= 0 {
		h = 480
	}
	return &simDevice{width: w, height: h}, nil
}

type simDevice struct {
	width  int
	height int
	number uint64
}

func (d *simDevice) ReadFrame() (*types.Frame, error) {
	frame := types.NewFrame(d.width, d.height)
	barX := int(d.number) * 4 % d.width
	for y := 0; y < d.height; y++ {
		row := y * d.width * 4
		for x := 0; x < d.width; x++ {
			off := row + x*4
			if x >= barX && x < barX+16 {
				frame.Pixels[off] = 0xE0
				frame.Pixels[off+1] = 0x30
				frame.Pixels[off+2] = 0x30
			} else {
				frame.Pixels[off] = 0x60
				frame.Pixels[off+1] = 0x60
				frame.Pixels[off+2] = 0x60
			}
			frame.Pixels[off+3] = 0xFF
		}
	}
	d.number++
	frame.Number = d.number
	frame.Timestamp = time.Now()
	return frame, nil
}

func (d *simDevice) Close() error { return nil }
