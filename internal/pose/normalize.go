package pose

import (
	"strconv"

	"github.com/fitmirror/streaming-server/pkg/types"
)

// probeOrder is the fixed priority of fallback attribute names. The first
// name that exists and parses as an integer wins.
var probeOrder = [...]string{"rep_count", "reps", "counter", "count"}

// Result is the canonical outcome of one processor invocation: the frame
// to stream and the rep count, if any was reported.
type Result struct {
	Frame    *types.Frame
	Count    int
	HasCount bool
}

// WireCount is the count as emitted to the client: unknown coerces to 0.
func (r Result) WireCount() int {
	if !r.HasCount {
		return 0
	}
	return r.Count
}

// Unavailable is the degraded result used when the processor fails
// outright: the unmodified input frame with a count of zero.
func Unavailable(input *types.Frame) Result {
	return Result{Frame: input}
}

// Normalize reconciles a raw processor output into exactly one Result.
// Shapes are tried in fixed priority order: ordered pair, keyed record,
// bare frame. A still-unknown count falls back to probing the capability's
// named attributes.
func Normalize(raw *RawResult, input *types.Frame, attrs AttrSource) Result {
	// A processor that returns no result at all is treated like a failed
	// one: unmodified input frame, count zero.
	if raw == nil {
		return Unavailable(input)
	}

	res := Result{Frame: input}

	switch raw.Kind {
	case RawPair:
		if raw.Frame != nil {
			res.Frame = raw.Frame
		}
		if n, ok := parseCount(raw.Count); ok {
			res.Count = n
			res.HasCount = true
		}
		// A pair carries its own count slot; never fall through to probing.
		return res

	case RawRecord:
		if f, ok := raw.Record["frame"].(*types.Frame); ok && f != nil {
			res.Frame = f
		}
		if v, ok := raw.Record["rep_count"]; ok {
			if n, ok := parseCount(v); ok {
				res.Count = n
				res.HasCount = true
			}
		}

	case RawFrame:
		if raw.Frame != nil {
			res.Frame = raw.Frame
		}
	}

	if !res.HasCount && attrs != nil {
		if n, ok := probeAttrs(attrs); ok {
			res.Count = n
			res.HasCount = true
		}
	}
	return res
}

// probeAttrs walks the fallback attribute names in fixed order. A field
// that exists but does not parse as an integer is treated as absent.
func probeAttrs(attrs AttrSource) (int, bool) {
	for _, name := range probeOrder {
		v, ok := attrs.Attr(name)
		if !ok {
			continue
		}
		if n, ok := parseCount(v); ok {
			return n, true
		}
	}
	return 0, false
}

func parseCount(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float32:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		parsed, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
