package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spinhall/roulette/internal/ledger"
	"github.com/spinhall/roulette/internal/roulette"
	"github.com/spinhall/roulette/internal/round"
)

type stubGame struct {
	balance decimal.Decimal
	err     error
	history []roulette.Outcome
	lastBet roulette.Bet
}

func (g *stubGame) PlaceBet(_ context.Context, bet roulette.Bet) (decimal.Decimal, error) {
	g.lastBet = bet
	if g.err != nil {
		return decimal.Zero, g.err
	}
	return g.balance, nil
}

func (g *stubGame) History() []roulette.Outcome { return g.history }

func newTestServer(game Game) *Server {
	srv := NewServer("127.0.0.1:0", nil, quartz.NewReal(), log.New(io.Discard))
	srv.SetGame(game)
	return srv
}

// readReply drains one queued message from a session that has no pumps
// running.
func readReply(t *testing.T, sess *Session) map[string]any {
	t.Helper()

	select {
	case data := <-sess.send:
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(data, &decoded))
		return decoded
	case <-time.After(time.Second):
		t.Fatal("no message queued on session")
		return nil
	}
}

func TestHandlePlaceBetConfirmsToSession(t *testing.T) {
	t.Parallel()

	game := &stubGame{balance: decimal.NewFromInt(90)}
	srv := newTestServer(game)
	sess := NewSession(srv, nil, srv.logger)

	sess.handleMessage([]byte(`{"type":"place_bet","user_id":"u1","amount":10,"bet_type":"color","value":"red"}`))

	reply := readReply(t, sess)
	assert.Equal(t, "bet_confirmed", reply["type"])
	assert.Equal(t, float64(90), reply["new_balance"])
	assert.Equal(t, "10 on red", reply["bet_info"])
	assert.Contains(t, reply, "server_time")

	assert.Equal(t, "u1", game.lastBet.UserID)
	assert.Equal(t, roulette.KindColor, game.lastBet.Kind)
	assert.Equal(t, "red", game.lastBet.Value)
}

func TestHandlePlaceBetNumberValueAsJSONNumber(t *testing.T) {
	t.Parallel()

	game := &stubGame{balance: decimal.NewFromInt(95)}
	srv := newTestServer(game)
	sess := NewSession(srv, nil, srv.logger)

	sess.handleMessage([]byte(`{"type":"place_bet","user_id":"u1","amount":5,"bet_type":"number","value":17}`))

	reply := readReply(t, sess)
	assert.Equal(t, "bet_confirmed", reply["type"])
	assert.Equal(t, "17", game.lastBet.Value)
}

func TestHandlePlaceBetRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"outside betting", round.ErrNotBetting, "not accepting bets right now"},
		{"insufficient funds", ledger.ErrInsufficientFunds, "insufficient funds"},
		{"unknown user", ledger.ErrUnknownUser, "unknown user"},
		{"invalid bet", fmt.Errorf("%w: number out of range", roulette.ErrInvalidBet), "roulette: invalid bet: number out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := newTestServer(&stubGame{err: tt.err})
			sess := NewSession(srv, nil, srv.logger)

			sess.handleMessage([]byte(`{"type":"place_bet","user_id":"u1","amount":10,"bet_type":"color","value":"red"}`))

			reply := readReply(t, sess)
			assert.Equal(t, "error", reply["type"])
			assert.Equal(t, tt.want, reply["message"])
		})
	}
}

func TestHandleMessageMalformed(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&stubGame{})
	sess := NewSession(srv, nil, srv.logger)

	sess.handleMessage([]byte(`{not json`))

	reply := readReply(t, sess)
	assert.Equal(t, "error", reply["type"])
	assert.Equal(t, "malformed request", reply["message"])
}

func TestHandleMessageMissingUser(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&stubGame{})
	sess := NewSession(srv, nil, srv.logger)

	sess.handleMessage([]byte(`{"type":"place_bet","amount":10,"bet_type":"color","value":"red"}`))

	reply := readReply(t, sess)
	assert.Equal(t, "error", reply["type"])
	assert.Equal(t, "malformed request: user_id required", reply["message"])
}

func TestHandleMessageUnknownType(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&stubGame{})
	sess := NewSession(srv, nil, srv.logger)

	sess.handleMessage([]byte(`{"type":"deal_cards"}`))

	reply := readReply(t, sess)
	assert.Equal(t, "error", reply["type"])
	assert.Equal(t, "unknown message type: deal_cards", reply["message"])
}

func TestPublishTranslatesRoundEvents(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&stubGame{})
	sess := NewSession(srv, nil, srv.logger)
	srv.sessions[sess] = true

	srv.Publish(round.TimerEvent{Seconds: 12, Phase: round.Betting})
	timer := readReply(t, sess)
	assert.Equal(t, "timer", timer["type"])
	assert.Equal(t, float64(12), timer["value"])
	assert.Equal(t, "betting", timer["status"])

	srv.Publish(round.StatusEvent{Phase: round.Rolling})
	status := readReply(t, sess)
	assert.Equal(t, "status", status["type"])
	assert.Equal(t, "rolling", status["value"])

	srv.Publish(round.ResultEvent{
		Number:  0,
		Color:   roulette.Green,
		History: []roulette.Outcome{{Number: 0, Color: roulette.Green}},
		Winners: map[string]decimal.Decimal{"u1": decimal.NewFromInt(360)},
	})
	result := readReply(t, sess)
	assert.Equal(t, "result", result["type"])
	assert.Equal(t, float64(0), result["number"])
	assert.Equal(t, "green", result["color"])
}

func TestBroadcastPrunesDeadSessions(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&stubGame{})
	alive := NewSession(srv, nil, srv.logger)
	dead := NewSession(srv, nil, srv.logger)
	srv.sessions[alive] = true
	srv.sessions[dead] = true
	require.NoError(t, dead.Close())

	srv.Broadcast(StatusMessage{Header: srv.header(MessageTypeStatus), Value: "betting"})

	reply := readReply(t, alive)
	assert.Equal(t, "status", reply["type"])

	assert.Equal(t, 1, srv.SessionCount())
	_, stillThere := srv.sessions[dead]
	assert.False(t, stillThere)
}

func TestBroadcastSurvivesOverflowingSession(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&stubGame{})
	slow := NewSession(srv, nil, srv.logger)
	srv.sessions[slow] = true

	// Fill the buffer, then one more broadcast must close and prune it.
	for i := 0; i < sendBufferSize; i++ {
		require.NoError(t, slow.Send([]byte(`{}`)))
	}
	srv.Broadcast(StatusMessage{Header: srv.header(MessageTypeStatus), Value: "betting"})

	assert.Equal(t, 0, srv.SessionCount())
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 20, cfg.Game.BettingSeconds)
	assert.Equal(t, 10, cfg.Game.HistorySize)
	assert.Equal(t, "localhost:8080", cfg.ListenAddress())
	assert.True(t, cfg.StartingBalance().Equal(decimal.NewFromInt(100)))

	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())
}

func TestLoadConfigMissingFileYieldsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig("does-not-exist.hcl")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}
