package codec

import (
	"bytes"
	"encoding/base64"
	"image/jpeg"
	"testing"

	"github.com/fitmirror/streaming-server/pkg/types"
)

func TestEncodeProducesJPEG(t *testing.T) {
	c := Default()
	frame := types.NewFrame(64, 48)
	for i := 0; i < len(frame.Pixels); i += 4 {
		frame.Pixels[i] = 0x80
		frame.Pixels[i+3] = 0xFF
	}

	data, err := c.Encode(frame)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		t.Fatalf("output does not start with a JPEG SOI marker")
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output does not decode as JPEG: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Fatalf("decoded size = %v, want 64x48", img.Bounds())
	}
}

func TestEncodeDownscalesWideFrames(t *testing.T) {
	c := &Codec{Quality: 80, MaxWidth: 100}
	frame := types.NewFrame(400, 200)

	data, err := c.Encode(frame)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 50 {
		t.Fatalf("downscaled size = %v, want 100x50", img.Bounds())
	}
}

func TestEncodeRejectsInvalidGeometry(t *testing.T) {
	c := Default()
	frame := &types.Frame{Pixels: make([]byte, 10), Width: 64, Height: 48}
	if _, err := c.Encode(frame); err == nil {
		t.Fatalf("expected error for mismatched buffer")
	}
	if _, err := c.Encode(nil); err == nil {
		t.Fatalf("expected error for nil frame")
	}
}

func TestWireTextRoundTrips(t *testing.T) {
	c := Default()
	payload := []byte{0xFF, 0xD8, 0x01, 0x02, 0x03}

	wire := c.WireText(payload)
	decoded, err := base64.StdEncoding.DecodeString(wire)
	if err != nil {
		t.Fatalf("wire text is not valid base64: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Fatalf("round trip mismatch: %v != %v", decoded, payload)
	}
}
