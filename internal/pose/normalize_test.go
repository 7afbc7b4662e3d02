package pose

import (
	"testing"

	"github.com/fitmirror/streaming-server/pkg/types"
)

type fakeAttrs struct {
	values map[string]any
	asked  []string
}

func (f *fakeAttrs) Attr(name string) (any, bool) {
	f.asked = append(f.asked, name)
	v, ok := f.values[name]
	return v, ok
}

func TestNormalizePairYieldsFrameWithCount(t *testing.T) {
	input := types.NewFrame(4, 4)
	annotated := types.NewFrame(4, 4)
	attrs := &fakeAttrs{values: map[string]any{"rep_count": 99}}

	res := Normalize(&RawResult{Kind: RawPair, Frame: annotated, Count: 7}, input, attrs)

	if res.Frame != annotated {
		t.Fatalf("pair result should use the pair's frame")
	}
	if !res.HasCount || res.Count != 7 {
		t.Fatalf("pair count = (%d, %v), want (7, true)", res.Count, res.HasCount)
	}
	if len(attrs.asked) != 0 {
		t.Fatalf("pair shape must never fall through to probing, probed %v", attrs.asked)
	}
}

func TestNormalizePairWithoutCountDoesNotProbe(t *testing.T) {
	input := types.NewFrame(4, 4)
	attrs := &fakeAttrs{values: map[string]any{"count": 3}}

	res := Normalize(&RawResult{Kind: RawPair, Frame: input, Count: nil}, input, attrs)

	if res.HasCount {
		t.Fatalf("pair with nil count should resolve unknown, got %d", res.Count)
	}
	if res.WireCount() != 0 {
		t.Fatalf("unknown count must coerce to 0 on the wire, got %d", res.WireCount())
	}
	if len(attrs.asked) != 0 {
		t.Fatalf("pair shape must never probe, probed %v", attrs.asked)
	}
}

func TestNormalizeRecordWithFrameAndCount(t *testing.T) {
	input := types.NewFrame(4, 4)
	annotated := types.NewFrame(4, 4)

	res := Normalize(&RawResult{
		Kind:   RawRecord,
		Record: map[string]any{"frame": annotated, "rep_count": 12},
	}, input, &fakeAttrs{})

	if res.Frame != annotated {
		t.Fatalf("record frame field should win over the input frame")
	}
	if !res.HasCount || res.Count != 12 {
		t.Fatalf("record count = (%d, %v), want (12, true)", res.Count, res.HasCount)
	}
}

func TestNormalizeRecordMissingFrameDefaultsToInput(t *testing.T) {
	input := types.NewFrame(4, 4)

	res := Normalize(&RawResult{
		Kind:   RawRecord,
		Record: map[string]any{"rep_count": 2},
	}, input, &fakeAttrs{})

	if res.Frame != input {
		t.Fatalf("record without a frame field should fall back to the input frame")
	}
}

func TestNormalizeRecordMissingCountProbesInFixedOrder(t *testing.T) {
	input := types.NewFrame(4, 4)
	attrs := &fakeAttrs{values: map[string]any{"count": 9}}

	res := Normalize(&RawResult{
		Kind:   RawRecord,
		Record: map[string]any{"frame": input},
	}, input, attrs)

	want := []string{"rep_count", "reps", "counter", "count"}
	if len(attrs.asked) != len(want) {
		t.Fatalf("probed %v, want %v", attrs.asked, want)
	}
	for i, name := range want {
		if attrs.asked[i] != name {
			t.Fatalf("probe order %v, want %v", attrs.asked, want)
		}
	}
	if !res.HasCount || res.Count != 9 {
		t.Fatalf("probe result = (%d, %v), want (9, true)", res.Count, res.HasCount)
	}
}

func TestNormalizeProbeStringParsesAsInteger(t *testing.T) {
	input := types.NewFrame(4, 4)
	attrs := &fakeAttrs{values: map[string]any{"reps": "5"}}

	res := Normalize(&RawResult{
		Kind:   RawRecord,
		Record: map[string]any{"frame": input},
	}, input, attrs)

	if !res.HasCount || res.Count != 5 {
		t.Fatalf("string probe = (%d, %v), want (5, true)", res.Count, res.HasCount)
	}
}

func TestNormalizeProbeSkipsNonIntegerFields(t *testing.T) {
	input := types.NewFrame(4, 4)
	attrs := &fakeAttrs{values: map[string]any{
		"rep_count": "not-a-number",
		"reps":      []int{1, 2},
		"counter":   11,
	}}

	res := Normalize(&RawResult{Kind: RawFrame, Frame: input}, input, attrs)

	if !res.HasCount || res.Count != 11 {
		t.Fatalf("probe should skip unparseable fields and land on counter=11, got (%d, %v)", res.Count, res.HasCount)
	}
}

func TestNormalizeBareFrameNoAttrsResolvesZero(t *testing.T) {
	input := types.NewFrame(4, 4)
	annotated := types.NewFrame(4, 4)
	attrs := &fakeAttrs{}

	res := Normalize(&RawResult{Kind: RawFrame, Frame: annotated}, input, attrs)

	if res.Frame != annotated {
		t.Fatalf("bare frame result should use the returned frame")
	}
	if res.HasCount {
		t.Fatalf("bare frame with no attributes should resolve unknown")
	}
	if res.WireCount() != 0 {
		t.Fatalf("unknown count must emit as 0, got %d", res.WireCount())
	}
}

func TestNormalizeNoFieldsParseResolvesZero(t *testing.T) {
	input := types.NewFrame(4, 4)
	attrs := &fakeAttrs{values: map[string]any{
		"rep_count": "x",
		"reps":      "y",
		"counter":   "z",
		"count":     struct{}{},
	}}

	res := Normalize(&RawResult{Kind: RawFrame, Frame: input}, input, attrs)

	if res.HasCount || res.WireCount() != 0 {
		t.Fatalf("no parseable probe field should coerce to 0, got (%d, %v)", res.Count, res.HasCount)
	}
}

func TestNormalizeNilResultFallsBackToInput(t *testing.T) {
	input := types.NewFrame(4, 4)
	attrs := &fakeAttrs{values: map[string]any{"rep_count": 8}}

	res := Normalize(nil, input, attrs)

	if res.Frame != input {
		t.Fatalf("nil result must keep the unmodified input frame")
	}
	if res.HasCount || res.WireCount() != 0 {
		t.Fatalf("nil result count = (%d, %v), want (0, false)", res.Count, res.HasCount)
	}
	if len(attrs.asked) != 0 {
		t.Fatalf("nil result should not probe, probed %v", attrs.asked)
	}
}

func TestUnavailableKeepsInputFrameAndZero(t *testing.T) {
	input := types.NewFrame(4, 4)
	res := Unavailable(input)
	if res.Frame != input {
		t.Fatalf("unavailable result must carry the unmodified input frame")
	}
	if res.WireCount() != 0 {
		t.Fatalf("unavailable count must be 0, got %d", res.WireCount())
	}
}

func TestParseCountNumericTypes(t *testing.T) {
	cases := []struct {
		value any
		want  int
		ok    bool
	}{
		{int(4), 4, true},
		{int64(8), 8, true},
		{uint64(15), 15, true},
		{float64(6), 6, true},
		{"21", 21, true},
		{"", 0, false},
		{nil, 0, false},
		{true, 0, false},
	}
	for _, c := range cases {
		got, ok := parseCount(c.value)
		if got != c.want || ok != c.ok {
			t.Fatalf("parseCount(%v) = (%d, %v), want (%d, %v)", c.value, got, ok, c.want, c.ok)
		}
	}
}
