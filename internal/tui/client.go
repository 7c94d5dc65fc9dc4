// Package tui is the interactive terminal client: it logs in over the
// HTTP API, joins the table over the websocket, and renders the round
// as it unfolds.
package tui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/spinhall/roulette/internal/server"
)

// UserInfo is the slice of the login response the client keeps.
type UserInfo struct {
	ID       string          `json:"id"`
	Username string          `json:"username"`
	Balance  decimal.Decimal `json:"balance"`
}

// Client talks to the roulette server.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

// NewClient creates a client for the server at baseURL, e.g.
// "http://localhost:8080".
func NewClient(baseURL string, logger *log.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger.WithPrefix("client"),
	}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string   `json:"access_token"`
	User        UserInfo `json:"user"`
}

// Login authenticates against the server, registering the account first
// if it does not exist yet.
func (c *Client) Login(ctx context.Context, username, password string) (*UserInfo, error) {
	resp, err := c.postJSON(ctx, "/login", credentials{Username: username, Password: password})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		_ = resp.Body.Close()
		c.logger.Info("account not found, registering", "user", username)
		resp, err = c.postJSON(ctx, "/register", credentials{Username: username, Password: password})
		if err != nil {
			return nil, err
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("login failed: %s", resp.Status)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}
	return &tok.User, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.http.Do(req)
}

// Dial opens the websocket connection to the table.
func (c *Client) Dial(ctx context.Context) (*websocket.Conn, error) {
	wsURL := websocketURL(c.baseURL)
	c.logger.Debug("dialing", "url", wsURL)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	return conn, nil
}

func websocketURL(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://") + "/ws"
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://") + "/ws"
	default:
		return "ws://" + baseURL + "/ws"
	}
}

// connClosedMsg signals that the server connection dropped.
type connClosedMsg struct{ err error }

// decodeServerMessage turns one wire frame into its typed message.
func decodeServerMessage(raw []byte) (any, error) {
	var peek struct {
		Type server.MessageType `json:"type"`
	}
	if err := json.Unmarshal(raw, &peek); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}

	switch peek.Type {
	case server.MessageTypeInit:
		var m server.InitMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	case server.MessageTypeTimer:
		var m server.TimerMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	case server.MessageTypeStatus:
		var m server.StatusMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	case server.MessageTypeResult:
		var m server.ResultMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	case server.MessageTypeBetConfirmed:
		var m server.BetConfirmedMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	case server.MessageTypeError:
		var m server.ErrorMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", peek.Type)
	}
}
