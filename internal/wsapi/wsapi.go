// Package wsapi accepts schedules from browser clients over WebSocket and
// republishes them to MQTT.
package wsapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/sweeney/light-relay/internal/ingest"
	"github.com/sweeney/light-relay/internal/mqtt"
)

const (
	writeWait = 10 * time.Second

	pongWait = 60 * time.Second

	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512
)

// Response messages sent back to the submitter.
const (
	MsgSuccess         = "Schedule set successfully"
	MsgInvalidJSON     = "Invalid JSON format"
	MsgInvalidSchedule = "Invalid schedule format"
	MsgInvalidTime     = "Invalid time value"
	MsgPublishFailed   = "Failed to set schedule"
	MsgRateLimited     = "Too many requests"
)

// Response is the JSON reply to every submission.
type Response struct {
	Status  string `json:"status"` // "success" or "error"
	Message string `json:"message"`
}

// Config configures a Server.
type Config struct {
	Addr string
	// RateLimit is submissions per second per connection; <= 0 is unlimited.
	RateLimit float64
	Burst     int
}

// Server is the WebSocket ingress.
type Server struct {
	httpServer *http.Server
	publisher  mqtt.Publisher
	cfg        Config
	upgrader   websocket.Upgrader

	now   func() time.Time
	newID func() string

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// New creates a Server publishing accepted schedules through publisher.
func New(cfg Config, publisher mqtt.Publisher) *Server {
	s := &Server{
		publisher: publisher,
		cfg:       cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		now:   time.Now,
		newID: uuid.NewString,
		conns: make(map[*websocket.Conn]struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/ws", s.serveWS)

	s.httpServer = &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}
	return s
}

// Handler returns the root handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown stops accepting connections and closes open websockets.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)

	s.mu.Lock()
	for c := range s.conns {
		c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		c.Close()
	}
	s.mu.Unlock()
	return err
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if websocket.IsWebSocketUpgrade(r) {
		s.serveWS(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(formHTML))
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()

	log.Info().Str("remote", r.RemoteAddr).Msg("client connected")
	s.handleConn(conn)

	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	conn.Close()
	log.Info().Str("remote", r.RemoteAddr).Msg("client disconnected")
}

func (s *Server) newLimiter() *rate.Limiter {
	if s.cfg.RateLimit <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := s.cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(s.cfg.RateLimit), burst)
}

// handleConn reads submissions until the client goes away. gorilla allows
// one concurrent writer, so replies and pings share writeMu.
func (s *Server) handleConn(conn *websocket.Conn) {
	var writeMu sync.Mutex
	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				writeMu.Lock()
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				err := conn.WriteMessage(websocket.PingMessage, nil)
				writeMu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	limiter := s.newLimiter()
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("websocket read error")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var resp Response
		if !limiter.Allow() {
			resp = errorResponse(MsgRateLimited)
		} else {
			resp = s.submit(message)
		}

		data, err := json.Marshal(resp)
		if err != nil {
			log.Error().Err(err).Msg("marshal response")
			return
		}
		writeMu.Lock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		err = conn.WriteMessage(websocket.TextMessage, data)
		writeMu.Unlock()
		if err != nil {
			log.Warn().Err(err).Msg("websocket write error")
			return
		}
	}
}

// submit validates message and publishes it.
func (s *Server) submit(message []byte) Response {
	u, err := ingest.Parse(message)
	if err != nil {
		log.Warn().Err(err).Msg("rejected schedule")
		switch {
		case errors.Is(err, ingest.ErrMalformedEncoding):
			return errorResponse(MsgInvalidJSON)
		case errors.Is(err, ingest.ErrInvalidTime):
			return errorResponse(MsgInvalidTime)
		default:
			return errorResponse(MsgInvalidSchedule)
		}
	}

	a := mqtt.Announcement{
		Schedule:   u.Schedule,
		AcceptedAt: s.now(),
		ID:         s.newID(),
	}
	if err := s.publisher.PublishSchedule(a); err != nil {
		log.Error().Err(err).Str("id", a.ID).Msg("publish schedule failed")
		return errorResponse(MsgPublishFailed)
	}

	log.Info().
		Str("on_time", u.Schedule.On.String()).
		Str("off_time", u.Schedule.Off.String()).
		Str("id", a.ID).
		Msg("schedule published")
	return Response{Status: "success", Message: MsgSuccess}
}

func errorResponse(msg string) Response {
	return Response{Status: "error", Message: msg}
}
