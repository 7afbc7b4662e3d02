package pose

import (
	"bytes"
	"fmt"
	"image/draw"
	"image/jpeg"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pebbe/zmq4"

	"github.com/fitmirror/streaming-server/internal/logger"
	"github.com/fitmirror/streaming-server/pkg/types"
)

// Worker talks to an external pose-estimation worker over a ZMQ REQ
// socket. Requests carry the raw frame; replies are CBOR values of
// heterogeneous shape: a two-element array (frame, count), a map with
// optional "frame"/"rep_count" keys, or a bare frame byte string.
//
// The last map-shaped reply doubles as the worker's attribute surface for
// fallback count probing.
type Worker struct {
	mu      sync.Mutex
	socket  reqTransport
	width   int
	height  int
	attrs   map[string]any
	timeout time.Duration
}

// reqTransport is the request/reply surface of the ZMQ socket.
type reqTransport interface {
	SendBytes(data []byte, flags zmq4.Flag) (int, error)
	RecvBytes(flags zmq4.Flag) ([]byte, error)
	Close() error
}

var _ reqTransport = (*zmq4.Socket)(nil)

type workerRequest struct {
	Type   string `cbor:"type"`
	Width  int    `cbor:"width"`
	Height int    `cbor:"height"`
	Pixels []byte `cbor:"pixels"`
}

// NewWorker connects to the worker endpoint. Send and receive carry the
// given timeout; exceeding it surfaces as a processing error for that
// frame only.
func NewWorker(endpoint string, timeout time.Duration) (*Worker, error) {
	socket, err := zmq4.NewSocket(zmq4.REQ)
	if err != nil {
		return nil, err
	}
	if err := socket.SetSndtimeo(timeout); err != nil {
		socket.Close()
		return nil, err
	}
	if err := socket.SetRcvtimeo(timeout); err != nil {
		socket.Close()
		return nil, err
	}
	// REQ enforces strict send/recv alternation; after a recv timeout the
	// socket would otherwise refuse every later send. Relaxed + correlate
	// lets a new request abandon the timed-out one.
	if err := socket.SetReqRelaxed(1); err != nil {
		socket.Close()
		return nil, err
	}
	if err := socket.SetReqCorrelate(1); err != nil {
		socket.Close()
		return nil, err
	}
	if err := socket.SetLinger(0); err != nil {
		socket.Close()
		return nil, err
	}
	if err := socket.Connect(endpoint); err != nil {
		socket.Close()
		return nil, err
	}
	logger.Info("Pose", "Connected to pose worker at %s (timeout %v)", endpoint, timeout)
	return &Worker{socket: socket, timeout: timeout}, nil
}

// Process sends one frame to the worker and decodes whatever shape comes
// back.
func (w *Worker) Process(frame *types.Frame) (*RawResult, error) {
	req, err := cbor.Marshal(workerRequest{
		Type:   "frame",
		Width:  frame.Width,
		Height: frame.Height,
		Pixels: frame.Pixels,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.width, w.height = frame.Width, frame.Height

	if _, err := w.socket.SendBytes(req, 0); err != nil {
		return nil, fmt.Errorf("send frame: %w", err)
	}
	reply, err := w.socket.RecvBytes(0)
	if err != nil {
		return nil, fmt.Errorf("recv result: %w", err)
	}
	return w.decodeReplyLocked(reply)
}

func (w *Worker) decodeReplyLocked(reply []byte) (*RawResult, error) {
	// Two-element array: (frame, count).
	var pair []cbor.RawMessage
	if err := cbor.Unmarshal(reply, &pair); err == nil && len(pair) == 2 {
		var frameBytes []byte
		if err := cbor.Unmarshal(pair[0], &frameBytes); err != nil {
			return nil, fmt.Errorf("decode pair frame: %w", err)
		}
		frame, err := w.decodeFrameLocked(frameBytes)
		if err != nil {
			return nil, err
		}
		var count any
		if err := cbor.Unmarshal(pair[1], &count); err != nil {
			return nil, fmt.Errorf("decode pair count: %w", err)
		}
		return &RawResult{Kind: RawPair, Frame: frame, Count: count}, nil
	}

	// Keyed record.
	var record map[string]any
	if err := cbor.Unmarshal(reply, &record); err == nil && record != nil {
		out := make(map[string]any, len(record))
		attrs := make(map[string]any, len(record))
		for key, value := range record {
			if key == "frame" {
				if raw, ok := value.([]byte); ok {
					frame, err := w.decodeFrameLocked(raw)
					if err != nil {
						return nil, err
					}
					out["frame"] = frame
				}
				continue
			}
			out[key] = value
			attrs[key] = value
		}
		w.attrs = attrs
		return &RawResult{Kind: RawRecord, Record: out}, nil
	}

	// Bare frame byte string.
	var frameBytes []byte
	if err := cbor.Unmarshal(reply, &frameBytes); err == nil {
		frame, err := w.decodeFrameLocked(frameBytes)
		if err != nil {
			return nil, err
		}
		return &RawResult{Kind: RawFrame, Frame: frame}, nil
	}

	return nil, fmt.Errorf("unrecognized reply shape (%d bytes)", len(reply))
}

// decodeFrameLocked accepts either a JPEG (detected by its SOI marker) or
// a raw RGBA buffer matching the request geometry.
func (w *Worker) decodeFrameLocked(data []byte) (*types.Frame, error) {
	if len(data) >= 2 && data[0] == 0xFF && data[1] == 0xD8 {
		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode jpeg frame: %w", err)
		}
		bounds := img.Bounds()
		frame := types.NewFrame(bounds.Dx(), bounds.Dy())
		draw.Draw(frame.RGBA(), frame.RGBA().Rect, img, bounds.Min, draw.Src)
		return frame, nil
	}

	if len(data) != w.width*w.height*4 {
		return nil, fmt.Errorf("raw frame size %d does not match %dx%d", len(data), w.width, w.height)
	}
	frame := types.NewFrame(w.width, w.height)
	copy(frame.Pixels, data)
	return frame, nil
}

// Attr returns a named attribute from the worker's last map-shaped reply.
func (w *Worker) Attr(name string) (any, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	v, ok := w.attrs[name]
	return v, ok
}

// Close shuts down the worker socket.
func (w *Worker) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.socket.Close()
}

var _ Processor = (*Worker)(nil)
