package camera

import (
	"fmt"
	"time"

	"github.com/blackjack/webcam"

	"github.com/fitmirror/streaming-server/internal/logger"
	"github.com/fitmirror/streaming-server/pkg/types"
)

// V4L2_PIX_FMT_YUYV
const pixelFormatYUYV = webcam.PixelFormat(0x56595559)

const (
	frameWaitSeconds    = 1
	maxConsecutiveWaits = 5
)

// V4L2Opener opens a V4L2 capture device (device 0 by convention).
type V4L2Opener struct {
	Path   string // e.g. "/dev/video0"
	Width  int
	Height int
}

// Name identifies the device for logs.
func (o *V4L2Opener) Name() string { return o.Path }

// Open opens the device, negotiates a YUYV format and starts streaming.
func (o *V4L2Opener) Open() (Device, error) {
	cam, err := webcam.Open(o.Path)
	if err != nil {
		return nil, err
	}

	format := pixelFormatYUYV
	if _, ok := cam.GetSupportedFormats()[format]; !ok {
		cam.Close()
		return nil, fmt.Errorf("device %s does not support YUYV", o.Path)
	}

	_, w, h, err := cam.SetImageFormat(format, uint32(o.Width), uint32(o.Height))
	if err != nil {
		cam.Close()
		return nil, fmt.Errorf("set format: %w", err)
	}
	if err := cam.StartStreaming(); err != nil {
		cam.Close()
		return nil, fmt.Errorf("start streaming: %w", err)
	}

	logger.Info("Camera", "V4L2 device %s streaming at %dx%d", o.Path, w, h)
	return &v4l2Device{cam: cam, width: int(w), height: int(h)}, nil
}

type v4l2Device struct {
	cam    *webcam.Webcam
	width  int
	height int
	number uint64
}

// ReadFrame waits for the next frame with a bounded wait. Repeated
// timeouts are reported as a read failure rather than blocking forever.
func (d *v4l2Device) ReadFrame() (*types.Frame, error) {
	for waits := 0; ; {
		err := d.cam.WaitForFrame(frameWaitSeconds)
		switch err.(type) {
		case nil:
		case *webcam.Timeout:
			waits++
			if waits >= maxConsecutiveWaits {
				return nil, fmt.Errorf("no frame after %d waits", waits)
			}
			continue
		default:
			return nil, err
		}

		raw, err := d.cam.ReadFrame()
		if err != nil {
			return nil, err
		}
		if len(raw) < d.width*d.height*2 {
			// Truncated buffer, wait for the next one.
			continue
		}

		frame := types.NewFrame(d.width, d.height)
		yuyvToRGBA(raw, frame.Pixels, d.width, d.height)
		d.number++
		frame.Number = d.number
		frame.Timestamp = time.Now()
		return frame, nil
	}
}

func (d *v4l2Device) Close() error {
	if err := d.cam.StopStreaming(); err != nil {
		logger.Debug("Camera", "StopStreaming: %v", err)
	}
	return d.cam.Close()
}

// yuyvToRGBA converts a packed YUYV buffer to RGBA using BT.601 integer
// coefficients. Two pixels are decoded per 4-byte macropixel.
func yuyvToRGBA(src, dst []byte, width, height int) {
	si := 0
	di := 0
	for p := 0; p < width*height/2; p++ {
		y0 := int(src[si])
		u := int(src[si+1]) - 128
		y1 := int(src[si+2])
		v := int(src[si+3]) - 128
		si += 4

		writeRGBA(dst, di, y0, u, v)
		writeRGBA(dst, di+4, y1, u, v)
		di += 8
	}
}

func writeRGBA(dst []byte, off, y, u, v int) {
	dst[off] = clamp8(y + (359*v)>>8)
	dst[off+1] = clamp8(y - (88*u+183*v)>>8)
	dst[off+2] = clamp8(y + (454*u)>>8)
	dst[off+3] = 0xFF
}

func clamp8(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
