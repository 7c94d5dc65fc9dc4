package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/spinhall/roulette/internal/ledger"
	"github.com/spinhall/roulette/internal/roulette"
	"github.com/spinhall/roulette/internal/round"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Outbound buffer per session; a session that cannot drain this
	// many messages is considered dead and closed.
	sendBufferSize = 64
)

// ErrSessionClosed indicates a send on a closed or overflowing session.
var ErrSessionClosed = errors.New("server: session closed")

// Session is one client's websocket connection. It relays bet
// submissions to the round machine and receives broadcasts; rejections
// and confirmations go back to this session only.
type Session struct {
	server    *Server
	conn      *websocket.Conn
	send      chan []byte
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewSession wraps an upgraded websocket connection.
func NewSession(server *Server, conn *websocket.Conn, logger *log.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())

	return &Session{
		server: server,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		logger: logger.WithPrefix("session"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins the session's read and write pumps.
func (c *Session) Start() {
	go c.writePump()
	go c.readPump()
}

// Close tears the session down. Safe to call more than once.
func (c *Session) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

// Done is closed when the session has shut down.
func (c *Session) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Send queues a prepared message for delivery. A full buffer closes the
// session rather than blocking the caller: broadcast must never stall
// on one slow client.
func (c *Session) Send(data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			// Send channel was closed during shutdown
			err = ErrSessionClosed
		}
	}()

	select {
	case <-c.ctx.Done():
		return ErrSessionClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	case <-c.ctx.Done():
		return ErrSessionClosed
	default:
		c.logger.Warn("session send buffer full, closing")
		_ = c.Close()
		return ErrSessionClosed
	}
}

func (c *Session) sendJSON(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("failed to marshal message", "error", err)
		return
	}
	_ = c.Send(data)
}

func (c *Session) sendError(message string) {
	c.sendJSON(ErrorMessage{
		Header:  c.server.header(MessageTypeError),
		Message: message,
	})
}

// readPump handles incoming messages from the client.
func (c *Session) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket error", "error", err)
			}
			return
		}

		c.handleMessage(raw)
	}
}

// writePump handles outgoing messages to the client.
func (c *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if c.conn != nil {
			_ = c.conn.Close()
		}
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage dispatches one incoming message by type.
func (c *Session) handleMessage(raw []byte) {
	var peek struct {
		Type MessageType `json:"type"`
	}
	if err := json.Unmarshal(raw, &peek); err != nil {
		c.sendError("malformed request")
		return
	}

	switch peek.Type {
	case MessageTypePlaceBet:
		c.handlePlaceBet(raw)
	default:
		c.sendError("unknown message type: " + peek.Type.String())
	}
}

func (c *Session) handlePlaceBet(raw []byte) {
	var msg PlaceBetMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("malformed request")
		return
	}
	if msg.UserID == "" {
		c.sendError("malformed request: user_id required")
		return
	}

	bet := roulette.Bet{
		UserID: msg.UserID,
		Kind:   roulette.Kind(msg.BetType),
		Value:  string(msg.Value),
		Amount: msg.Amount,
	}

	balance, err := c.server.game.PlaceBet(c.ctx, bet)
	if err != nil {
		c.logger.Debug("bet rejected", "user", bet.UserID, "reason", err)
		c.sendError(rejectionMessage(err))
		return
	}

	info := bet.Describe()
	c.sendJSON(BetConfirmedMessage{
		Header:     c.server.header(MessageTypeBetConfirmed),
		NewBalance: balance,
		Message:    fmt.Sprintf("Accepted: %s", info),
		BetInfo:    info,
	})
}

// rejectionMessage maps a bet rejection onto the client-facing text.
func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, round.ErrNotBetting):
		return "not accepting bets right now"
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return "insufficient funds"
	case errors.Is(err, ledger.ErrUnknownUser):
		return "unknown user"
	case errors.Is(err, roulette.ErrInvalidBet):
		return err.Error()
	default:
		return "bet failed"
	}
}
