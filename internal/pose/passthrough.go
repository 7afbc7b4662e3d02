package pose

import (
	"github.com/fitmirror/streaming-server/pkg/types"
)

// Passthrough returns every frame unmodified with no count. It stands in
// for the worker when no pose endpoint is configured, keeping the stream
// alive so clients still see video.
type Passthrough struct{}

// Process returns the input frame as a bare-frame result.
func (Passthrough) Process(frame *types.Frame) (*RawResult, error) {
	return &RawResult{Kind: RawFrame, Frame: frame}, nil
}

// Attr reports no attributes.
func (Passthrough) Attr(string) (any, bool) { return nil, false }

// Close is a no-op.
func (Passthrough) Close() error { return nil }

var _ Processor = Passthrough{}
