package tui

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spinhall/roulette/internal/server"
)

func TestParseBet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		line     string
		wantType string
		wantVal  server.FlexValue
		wantAmt  int64
	}{
		{"color", "bet 10 red", "color", "red", 10},
		{"parity", "bet 5 odd", "parity", "odd", 5},
		{"explicit number", "bet 5 number 17", "number", "17", 5},
		{"bare number shortcut", "bet 5 17", "number", "17", 5},
		{"zero", "bet 1 0", "number", "0", 1},
		{"dozen", "bet 20 dozen 2nd", "dozen", "2nd 12", 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			msg, err := parseBet(tt.line, "u1")
			require.NoError(t, err)
			assert.Equal(t, server.MessageTypePlaceBet, msg.Type)
			assert.Equal(t, "u1", msg.UserID)
			assert.Equal(t, tt.wantType, msg.BetType)
			assert.Equal(t, tt.wantVal, msg.Value)
			assert.True(t, msg.Amount.Equal(decimal.NewFromInt(tt.wantAmt)))
		})
	}
}

func TestParseBetRejectsBadInput(t *testing.T) {
	t.Parallel()

	lines := []string{
		"bet",
		"bet red",
		"bet ten red",
		"bet -5 red",
		"bet 0 red",
		"bet 10 purple",
		"bet 10 number",
		"bet 10 number x",
		"bet 10 dozen 4th",
	}

	for _, line := range lines {
		_, err := parseBet(line, "u1")
		assert.Error(t, err, "line %q", line)
	}
}

func TestDecodeServerMessage(t *testing.T) {
	t.Parallel()

	msg, err := decodeServerMessage([]byte(`{"type":"timer","server_time":"2025-03-01T12:00:00Z","value":7,"status":"betting"}`))
	require.NoError(t, err)
	timer, ok := msg.(server.TimerMessage)
	require.True(t, ok)
	assert.Equal(t, 7, timer.Value)
	assert.Equal(t, "betting", timer.Status)

	msg, err = decodeServerMessage([]byte(`{"type":"result","number":0,"color":"green","history":[],"winners":{"u1":360}}`))
	require.NoError(t, err)
	result, ok := msg.(server.ResultMessage)
	require.True(t, ok)
	assert.Equal(t, "green", result.Color)
	assert.True(t, result.Winners["u1"].Equal(decimal.NewFromInt(360)))

	_, err = decodeServerMessage([]byte(`{"type":"deal_cards"}`))
	assert.Error(t, err)

	_, err = decodeServerMessage([]byte(`not json`))
	assert.Error(t, err)
}

func TestWebsocketURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ws://localhost:8080/ws", websocketURL("http://localhost:8080"))
	assert.Equal(t, "wss://table.example.com/ws", websocketURL("https://table.example.com"))
	assert.Equal(t, "ws://localhost:8080/ws", websocketURL("localhost:8080"))
}
