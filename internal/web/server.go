// Package web serves the bridge status page and a small read-only JSON API
// for the active schedule.
package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/sweeney/light-relay/internal/logic"
	"github.com/sweeney/light-relay/internal/status"
)

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
}

// ScheduleResponse is the body of /schedule.json.
type ScheduleResponse struct {
	Active    bool   `json:"active"`
	OnTime    string `json:"on_time,omitempty"`
	OffTime   string `json:"off_time,omitempty"`
	Light     string `json:"light"`
	Now       string `json:"now"`
	NextState string `json:"next_state,omitempty"`
	NextAt    string `json:"next_at,omitempty"`
}

// HealthResponse is the body of /healthz.
type HealthResponse struct {
	OK            bool `json:"ok"`
	MQTTConnected bool `json:"mqtt_connected"`
	Scheduled     bool `json:"scheduled"`
}

// New creates a Server that reads state from the given tracker.
func New(addr string, tracker *status.Tracker) *Server {
	s := &Server{tracker: tracker}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleIndex)
	mux.HandleFunc("GET /index.json", s.handleStatusJSON)
	mux.HandleFunc("GET /schedule.json", s.handleSchedule)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on ln.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, s.tracker.Snapshot()); err != nil {
		log.Error().Err(err).Msg("render status page")
	}
}

func (s *Server) handleStatusJSON(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(s.tracker.Snapshot()))
}

func (s *Server) handleSchedule(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, scheduleResponse(s.tracker.Snapshot()))
}

// handleHealth reports 503 while the broker connection is down, since no
// schedule updates can arrive.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	snap := s.tracker.Snapshot()
	resp := HealthResponse{
		OK:            snap.MQTTConnected,
		MQTTConnected: snap.MQTTConnected,
		Scheduled:     snap.Schedule != nil,
	}
	code := http.StatusOK
	if !resp.OK {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func scheduleResponse(snap status.Snapshot) ScheduleResponse {
	now := logic.At(snap.Now)
	resp := ScheduleResponse{
		Light: string(snap.Actuator),
		Now:   now.String(),
	}
	if snap.Schedule == nil {
		return resp
	}

	next, at := snap.Schedule.Next(now)
	resp.Active = true
	resp.OnTime = snap.Schedule.On.String()
	resp.OffTime = snap.Schedule.Off.String()
	resp.NextState = string(next)
	resp.NextAt = at.String()
	return resp
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("marshal response")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}
