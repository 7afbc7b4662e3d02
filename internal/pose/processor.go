// Package pose hosts the external pose-estimation capability behind a
// stable contract. The processor itself is a black box; this package only
// defines how its output is reconciled into a frame and a rep count.
package pose

import (
	"github.com/fitmirror/streaming-server/pkg/types"
)

// RawKind tags the shape of one processor output.
type RawKind int

const (
	// RawPair is a two-element ordered pair (frame, count).
	RawPair RawKind = iota
	// RawRecord is a keyed record with optional "frame" and "rep_count"
	// fields.
	RawRecord
	// RawFrame is a bare frame with no count.
	RawFrame
)

// RawResult is the undecoded outcome of one Process call. Exactly one of
// the shape-specific fields is meaningful for a given Kind.
type RawResult struct {
	Kind   RawKind
	Frame  *types.Frame   // pair first element, or the bare frame
	Count  any            // pair second element, numeric in the usual case
	Record map[string]any // keyed record fields; "frame" holds a *types.Frame
}

// AttrSource exposes named attributes of the processor capability, used as
// a last-resort count signal when the structured output carries none.
type AttrSource interface {
	// Attr returns the named attribute and whether it exists.
	Attr(name string) (any, bool)
}

// Processor is the injected pose-estimation capability.
type Processor interface {
	AttrSource
	// Process runs one frame through the capability. The returned result
	// may take any of the RawKind shapes; an error means the frame could
	// not be processed at all.
	Process(frame *types.Frame) (*RawResult, error)
	Close() error
}
