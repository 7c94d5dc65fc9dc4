package server

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spinhall/roulette/internal/roulette"
)

func init() {
	// Amounts and balances cross the wire as bare JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// MessageType represents a websocket message type with type safety.
type MessageType string

// Websocket message type constants.
const (
	// Client to server messages
	MessageTypePlaceBet MessageType = "place_bet"

	// Server to client messages
	MessageTypeInit         MessageType = "init"
	MessageTypeTimer        MessageType = "timer"
	MessageTypeStatus       MessageType = "status"
	MessageTypeResult       MessageType = "result"
	MessageTypeBetConfirmed MessageType = "bet_confirmed"
	MessageTypeError        MessageType = "error"
)

// String returns the string representation of the message type.
func (mt MessageType) String() string {
	return string(mt)
}

// Header carries the fields common to every server→client message.
// Every outbound message is stamped with the server time.
type Header struct {
	Type       MessageType `json:"type"`
	ServerTime time.Time   `json:"server_time"`
}

// Server → Client messages

// InitMessage is sent once on connect with the recent outcome window.
type InitMessage struct {
	Header
	History []roulette.Outcome `json:"history"`
}

// TimerMessage is sent once per countdown tick during betting.
type TimerMessage struct {
	Header
	Value  int    `json:"value"`
	Status string `json:"status"`
}

// StatusMessage announces a phase change outside the countdown.
type StatusMessage struct {
	Header
	Value string `json:"value"`
}

// ResultMessage announces a settled round. Winners maps user ID to
// total winnings; users who won nothing are omitted.
type ResultMessage struct {
	Header
	Number  int                        `json:"number"`
	Color   string                     `json:"color"`
	History []roulette.Outcome         `json:"history"`
	Winners map[string]decimal.Decimal `json:"winners"`
}

// BetConfirmedMessage acknowledges an accepted bet to its originating
// session only.
type BetConfirmedMessage struct {
	Header
	NewBalance decimal.Decimal `json:"new_balance"`
	Message    string          `json:"message"`
	BetInfo    string          `json:"bet_info"`
}

// ErrorMessage reports a rejected request to its originating session.
type ErrorMessage struct {
	Header
	Message string `json:"message"`
}

// Client → Server messages

// PlaceBetMessage is a bet submission.
type PlaceBetMessage struct {
	Type    MessageType     `json:"type"`
	UserID  string          `json:"user_id"`
	Amount  decimal.Decimal `json:"amount"`
	BetType string          `json:"bet_type"`
	Value   FlexValue       `json:"value"`
}

// FlexValue accepts both JSON strings and bare numbers; clients send
// number bets as numbers and everything else as strings.
type FlexValue string

// UnmarshalJSON implements json.Unmarshaler.
func (v *FlexValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = FlexValue(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*v = FlexValue(n.String())
		return nil
	}

	return fmt.Errorf("value must be a string or a number, got %s", data)
}
