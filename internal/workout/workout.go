// Package workout defines the write-only collaborator contracts the
// streaming core hands counted reps to. Persistence and report rendering
// live behind these interfaces and are not implemented here beyond an
// in-memory sink.
package workout

import (
	"sync"
	"time"
)

// Record is one logged workout entry.
type Record struct {
	User      string    `json:"user"`
	Exercise  string    `json:"exercise"`
	Sets      int       `json:"sets"`
	Reps      int       `json:"reps"`
	Weight    float64   `json:"weight,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink accepts workout records. Implementations are write-only consumers;
// the streaming core never reads them back.
type Sink interface {
	Append(rec Record) error
}

// ReportWriter renders a list of records into a downloadable document.
type ReportWriter interface {
	Write(records []Record) ([]byte, error)
}

// MemorySink keeps records in memory. It backs the HTTP API in
// deployments without a persistence service attached.
type MemorySink struct {
	mu      sync.Mutex
	records []Record
}

// NewMemorySink returns an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Append stores one record.
func (s *MemorySink) Append(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// Records returns a copy of everything appended so far.
func (s *MemorySink) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}
