package server

import (
	"time"

	"github.com/fitmirror/streaming-server/pkg/types"
)

// Config defines the runtime configuration for the event gateway.
type Config struct {
	Addr           string
	AllowAnyOrigin bool
	WriteWait      time.Duration
	PongWait       time.Duration
	Session        types.SessionConfig
}

// DefaultConfig returns a config aligned with the original streamer's
// behavior: ~100ms pacing, JPEG at quality 80.
func DefaultConfig() Config {
	return Config{
		Addr:           ":10000",
		AllowAnyOrigin: true,
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		Session: types.SessionConfig{
			Interval:    100 * time.Millisecond,
			JPEGQuality: 80,
			MaxWidth:    1280,
		},
	}
}
