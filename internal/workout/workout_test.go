package workout

import (
	"testing"
	"time"
)

func TestMemorySinkAppendAndSnapshot(t *testing.T) {
	sink := NewMemorySink()

	if err := sink.Append(Record{Exercise: "Push-up", Reps: 10, Sets: 2, Timestamp: time.Now()}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := sink.Append(Record{Exercise: "Pull-up", Reps: 5, Sets: 1, Timestamp: time.Now()}); err != nil {
		t.Fatalf("append: %v", err)
	}

	records := sink.Records()
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].Exercise != "Push-up" || records[1].Exercise != "Pull-up" {
		t.Fatalf("records out of order: %+v", records)
	}

	// Snapshot is a copy; mutating it must not reach the sink.
	records[0].Exercise = "mutated"
	if sink.Records()[0].Exercise != "Push-up" {
		t.Fatalf("Records returned a live slice")
	}
}

func TestExerciseCatalogIsCopied(t *testing.T) {
	list := Exercises()
	if len(list) == 0 {
		t.Fatalf("catalog is empty")
	}
	for _, ex := range list {
		if ex.Name == "" || len(ex.TrackedJoints) == 0 {
			t.Fatalf("incomplete catalog entry: %+v", ex)
		}
	}

	name := list[0].Name
	list[0].Name = "mutated"
	if Exercises()[0].Name != name {
		t.Fatalf("Exercises returned a live slice")
	}
}
