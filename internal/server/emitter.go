package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event names on the wire.
const (
	EventStartStream = "start-stream"
	EventDisconnect  = "disconnect"
	EventVideoFrame  = "video-frame"
	EventRepCount    = "rep-count"
	EventError       = "error"
)

// wireEvent is the JSON envelope every message uses, in both directions.
type wireEvent struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data,omitempty"`
}

// connEmitter delivers session events over one websocket connection. All
// writers share the connection's write mutex; each write carries a
// deadline so a stalled client surfaces as an emit failure instead of a
// wedged loop.
type connEmitter struct {
	mu        sync.Mutex
	conn      *websocket.Conn
	writeWait time.Duration
}

func newConnEmitter(conn *websocket.Conn, writeWait time.Duration) *connEmitter {
	return &connEmitter{conn: conn, writeWait: writeWait}
}

func (e *connEmitter) EmitFrame(wire string) error {
	return e.send(wireEvent{Event: EventVideoFrame, Data: map[string]any{"frame": wire}})
}

func (e *connEmitter) EmitRepCount(count int) error {
	return e.send(wireEvent{Event: EventRepCount, Data: map[string]any{"count": count}})
}

func (e *connEmitter) EmitError(message string) error {
	return e.send(wireEvent{Event: EventError, Data: map[string]any{"message": message}})
}

func (e *connEmitter) send(event wireEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return e.write(websocket.TextMessage, payload)
}

func (e *connEmitter) write(messageType int, payload []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_ = e.conn.SetWriteDeadline(time.Now().Add(e.writeWait))
	return e.conn.WriteMessage(messageType, payload)
}
