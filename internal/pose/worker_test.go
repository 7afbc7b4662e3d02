package pose

import (
	"errors"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/pebbe/zmq4"

	"github.com/fitmirror/streaming-server/pkg/types"
)

type scriptedReply struct {
	data []byte
	err  error
}

type scriptedTransport struct {
	sent    [][]byte
	sendErr error
	replies []scriptedReply
	recvs   int
}

func (t *scriptedTransport) SendBytes(data []byte, flags zmq4.Flag) (int, error) {
	if t.sendErr != nil {
		return 0, t.sendErr
	}
	t.sent = append(t.sent, data)
	return len(data), nil
}

func (t *scriptedTransport) RecvBytes(flags zmq4.Flag) ([]byte, error) {
	r := t.replies[t.recvs]
	t.recvs++
	return r.data, r.err
}

func (t *scriptedTransport) Close() error { return nil }

func mustCBOR(t *testing.T, v any) []byte {
	t.Helper()
	data, err := cbor.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestWorkerRecoversAfterRecvTimeout(t *testing.T) {
	frame := types.NewFrame(2, 2)
	raw := make([]byte, len(frame.Pixels))

	tr := &scriptedTransport{replies: []scriptedReply{
		{err: errors.New("resource temporarily unavailable")},
		{data: mustCBOR(t, []any{raw, 3})},
	}}
	w := &Worker{socket: tr}

	if _, err := w.Process(frame); err == nil {
		t.Fatalf("timed-out recv should surface as an error")
	}

	// The very next frame must go out and come back normally.
	res, err := w.Process(frame)
	if err != nil {
		t.Fatalf("process after timeout: %v", err)
	}
	if len(tr.sent) != 2 {
		t.Fatalf("sent %d requests, want 2", len(tr.sent))
	}
	if res.Kind != RawPair {
		t.Fatalf("reply kind = %v, want pair", res.Kind)
	}
	if n, ok := parseCount(res.Count); !ok || n != 3 {
		t.Fatalf("pair count = %v, want 3", res.Count)
	}
}

func TestWorkerRequestCarriesFrameGeometry(t *testing.T) {
	frame := types.NewFrame(3, 2)
	tr := &scriptedTransport{replies: []scriptedReply{
		{data: mustCBOR(t, make([]byte, len(frame.Pixels)))},
	}}
	w := &Worker{socket: tr}

	if _, err := w.Process(frame); err != nil {
		t.Fatalf("process: %v", err)
	}

	var req workerRequest
	if err := cbor.Unmarshal(tr.sent[0], &req); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if req.Type != "frame" || req.Width != 3 || req.Height != 2 || len(req.Pixels) != 24 {
		t.Fatalf("request = %+v", req)
	}
}

func TestWorkerDecodesRecordReplyAndExposesAttrs(t *testing.T) {
	frame := types.NewFrame(2, 2)
	tr := &scriptedTransport{replies: []scriptedReply{
		{data: mustCBOR(t, map[string]any{"rep_count": 5, "stage": "up"})},
	}}
	w := &Worker{socket: tr}

	res, err := w.Process(frame)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Kind != RawRecord {
		t.Fatalf("reply kind = %v, want record", res.Kind)
	}
	if n, ok := parseCount(res.Record["rep_count"]); !ok || n != 5 {
		t.Fatalf("record rep_count = %v, want 5", res.Record["rep_count"])
	}
	if v, ok := w.Attr("stage"); !ok || v != "up" {
		t.Fatalf("attr stage = (%v, %v), want (up, true)", v, ok)
	}
}

func TestWorkerDecodesBareFrameReply(t *testing.T) {
	frame := types.NewFrame(2, 2)
	tr := &scriptedTransport{replies: []scriptedReply{
		{data: mustCBOR(t, make([]byte, len(frame.Pixels)))},
	}}
	w := &Worker{socket: tr}

	res, err := w.Process(frame)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Kind != RawFrame {
		t.Fatalf("reply kind = %v, want bare frame", res.Kind)
	}
	if !res.Frame.Valid() || res.Frame.Width != 2 || res.Frame.Height != 2 {
		t.Fatalf("decoded frame geometry %dx%d", res.Frame.Width, res.Frame.Height)
	}
}

func TestWorkerRejectsMismatchedRawFrame(t *testing.T) {
	frame := types.NewFrame(2, 2)
	tr := &scriptedTransport{replies: []scriptedReply{
		{data: mustCBOR(t, make([]byte, 7))},
	}}
	w := &Worker{socket: tr}

	if _, err := w.Process(frame); err == nil {
		t.Fatalf("raw frame of the wrong size should be rejected")
	}
}
