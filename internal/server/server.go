// Package server exposes the streaming core over a websocket event
// protocol plus a small JSON API for the out-of-scope collaborators.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fitmirror/streaming-server/internal/logger"
	"github.com/fitmirror/streaming-server/internal/metrics"
	"github.com/fitmirror/streaming-server/internal/session"
	"github.com/fitmirror/streaming-server/internal/workout"
)

// Server is the client-facing gateway.
type Server struct {
	cfg      Config
	registry *session.Registry
	sink     workout.Sink
	records  interface{ Records() []workout.Record }
	m        *metrics.Metrics
	upgrader websocket.Upgrader
	baseCtx  context.Context
}

// New returns a configured gateway. sink receives workout records
// submitted by the client UI after a counted set.
func New(cfg Config, registry *session.Registry, sink *workout.MemorySink, m *metrics.Metrics) *Server {
	return &Server{
		cfg:      cfg,
		registry: registry,
		sink:     sink,
		records:  sink,
		m:        m,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return cfg.AllowAnyOrigin },
		},
		baseCtx: context.Background(),
	}
}

// Handler exposes the HTTP handler for the gateway.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/exercises", s.corsMiddleware(s.handleExercises))
	mux.HandleFunc("/api/workouts", s.corsMiddleware(s.handleWorkouts))
	return mux
}

// Run serves until ctx is cancelled. Stream loops started by connected
// clients are parented to ctx so shutdown cancels them too.
func (s *Server) Run(ctx context.Context) error {
	s.baseCtx = ctx

	httpServer := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("Server", "Event gateway listening on %s", s.cfg.Addr)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// handleWS upgrades the connection and drives the client's session
// lifecycle: connect on upgrade, start-stream/disconnect from the read
// loop, disconnect on any read error.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("Server", "Upgrade failed: %v", err)
		return
	}

	emitter := newConnEmitter(conn, s.cfg.WriteWait)
	sess := s.registry.Connect(emitter)

	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	pingDone := make(chan struct{})
	go s.pingLoop(conn, emitter, pingDone)

	defer func() {
		close(pingDone)
		s.registry.Disconnect(sess.ID)
		conn.Close()
	}()

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			logger.Debug("Server", "Client %s read loop ended: %v", sess.ID, err)
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var event wireEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			logger.Debug("Server", "Client %s sent malformed event: %v", sess.ID, err)
			continue
		}

		switch event.Event {
		case EventStartStream:
			if err := s.registry.StartStream(s.baseCtx, sess.ID); err != nil {
				logger.Warn("Server", "Stream start failed for %s: %v", sess.ID, err)
				_ = emitter.EmitError(err.Error())
			}
		case EventDisconnect:
			s.registry.Disconnect(sess.ID)
			return
		default:
			logger.Debug("Server", "Client %s sent unknown event %q", sess.ID, event.Event)
		}
	}
}

func (s *Server) pingLoop(conn *websocket.Conn, emitter *connEmitter, done <-chan struct{}) {
	interval := (s.cfg.PongWait * 9) / 10
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := emitter.write(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":          "ok",
		"active_sessions": s.registry.ActiveCount(),
		"streaming":       s.registry.StreamingID(),
	})
}

func (s *Server) handleExercises(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, workout.Exercises())
}

// handleWorkouts accepts counted reps submitted after a set and lists
// what has been logged. Malformed numeric fields fall back to defaults
// rather than rejecting the record.
func (s *Server) handleWorkouts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, s.records.Records())
	case http.MethodPost:
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSONWithStatus(w, map[string]any{"success": false, "error": "invalid JSON"}, http.StatusBadRequest)
			return
		}
		exercise, _ := body["exercise"].(string)
		if exercise == "" {
			exercise, _ = body["exercise_name"].(string)
		}
		if exercise == "" {
			writeJSONWithStatus(w, map[string]any{"success": false, "error": "missing exercise name"}, http.StatusBadRequest)
			return
		}
		user, _ := body["user"].(string)

		rec := workout.Record{
			User:      user,
			Exercise:  exercise,
			Sets:      intField(body, "sets", 1),
			Reps:      intField(body, "reps", 0),
			Weight:    floatField(body, "weight"),
			Timestamp: time.Now(),
		}
		if err := s.sink.Append(rec); err != nil {
			writeJSONWithStatus(w, map[string]any{"success": false, "error": err.Error()}, http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{"success": true, "workout": rec})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next(w, r)
	}
}

func intField(body map[string]any, key string, def int) int {
	v, ok := body[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case string:
		if parsed, err := strconv.Atoi(n); err == nil {
			return parsed
		}
	}
	return def
}

func floatField(body map[string]any, key string) float64 {
	v, ok := body[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case string:
		if parsed, err := strconv.ParseFloat(n, 64); err == nil {
			return parsed
		}
	}
	return 0
}

func writeJSON(w http.ResponseWriter, payload any) {
	writeJSONWithStatus(w, payload, http.StatusOK)
}

func writeJSONWithStatus(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
