// Package server hosts the websocket surface of the roulette service:
// session management, round event fan-out, and bet intake.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/spinhall/roulette/internal/roulette"
	"github.com/spinhall/roulette/internal/round"
)

// Game is the round engine surface the server needs: bet intake and the
// recent outcome window for the init message.
type Game interface {
	PlaceBet(ctx context.Context, bet roulette.Bet) (decimal.Decimal, error)
	History() []roulette.Outcome
}

// Server owns the websocket sessions and fans round events out to them.
// It implements round.Sink.
type Server struct {
	addr       string
	upgrader   websocket.Upgrader
	sessions   map[*Session]bool
	register   chan *Session
	unregister chan *Session
	game       Game
	api        http.Handler
	clock      quartz.Clock
	logger     *log.Logger
	mu         sync.RWMutex
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewServer creates a server listening on addr. The api handler, if not
// nil, is mounted alongside the websocket endpoint. The game is attached
// with SetGame before Start.
func NewServer(addr string, api http.Handler, clock quartz.Clock, logger *log.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// For development, allow all origins
				// In production, implement proper origin checking
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		sessions:   make(map[*Session]bool),
		register:   make(chan *Session),
		unregister: make(chan *Session),
		api:        api,
		clock:      clock,
		logger:     logger.WithPrefix("server"),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start serves HTTP until ctx is cancelled, then drains connections.
func (s *Server) Start(ctx context.Context) error {
	go s.run()

	r := chi.NewRouter()
	r.Get("/ws", s.handleWebSocket)
	r.Get("/healthz", s.handleHealth)
	if s.api != nil {
		r.Mount("/", s.api)
	}

	httpSrv := &http.Server{
		Addr:    s.addr,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", "addr", s.addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}

// Stop closes all sessions and halts the registry loop.
func (s *Server) Stop() {
	s.cancel()

	s.mu.Lock()
	for sess := range s.sessions {
		_ = sess.Close() // Ignore close errors during shutdown
	}
	s.mu.Unlock()
}

// run handles session lifecycle
func (s *Server) run() {
	for {
		select {
		case sess := <-s.register:
			s.mu.Lock()
			s.sessions[sess] = true
			total := len(s.sessions)
			s.mu.Unlock()
			s.logger.Info("Client connected", "total", total)

		case sess := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.sessions[sess]; ok {
				delete(s.sessions, sess)
				_ = sess.Close() // Ignore close errors during unregistration
			}
			total := len(s.sessions)
			s.mu.Unlock()
			s.logger.Info("Client disconnected", "total", total)

		case <-s.ctx.Done():
			return
		}
	}
}

// handleWebSocket handles websocket upgrade requests.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	sess := NewSession(s, conn, s.logger)
	s.register <- sess
	sess.Start()

	// Greet the new session with the recent outcome window.
	sess.sendJSON(InitMessage{
		Header:  s.header(MessageTypeInit),
		History: s.game.History(),
	})

	go func() {
		<-sess.Done()
		select {
		case s.unregister <- sess:
		case <-s.ctx.Done():
		}
	}()
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK")) // Ignore write errors for health check
}

func (s *Server) header(t MessageType) Header {
	return Header{Type: t, ServerTime: s.clock.Now().UTC()}
}

// Publish translates a round event into its wire message and broadcasts
// it. Implements round.Sink; must not block the round loop.
func (s *Server) Publish(ev round.Event) {
	switch e := ev.(type) {
	case round.TimerEvent:
		s.Broadcast(TimerMessage{
			Header: s.header(MessageTypeTimer),
			Value:  e.Seconds,
			Status: string(e.Phase),
		})
	case round.StatusEvent:
		s.Broadcast(StatusMessage{
			Header: s.header(MessageTypeStatus),
			Value:  string(e.Phase),
		})
	case round.ResultEvent:
		s.Broadcast(ResultMessage{
			Header:  s.header(MessageTypeResult),
			Number:  e.Number,
			Color:   string(e.Color),
			History: e.History,
			Winners: e.Winners,
		})
	default:
		s.logger.Warn("unhandled round event", "type", ev.EventType())
	}
}

// Broadcast sends a message to every connected session. Delivery is
// best effort: sessions that fail to accept the message are pruned, the
// rest still receive it.
func (s *Server) Broadcast(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("failed to marshal broadcast", "error", err)
		return
	}

	s.mu.RLock()
	targets := make([]*Session, 0, len(s.sessions))
	for sess := range s.sessions {
		targets = append(targets, sess)
	}
	s.mu.RUnlock()

	var failed []*Session
	for _, sess := range targets {
		if err := sess.Send(data); err != nil {
			failed = append(failed, sess)
		}
	}

	for _, sess := range failed {
		s.mu.Lock()
		delete(s.sessions, sess)
		s.mu.Unlock()
		_ = sess.Close()
		s.logger.Warn("pruned dead session during broadcast")
	}
}

// SetGame attaches the round engine. Must be called before Start.
func (s *Server) SetGame(game Game) {
	s.game = game
}

// SessionCount returns the number of connected sessions.
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
