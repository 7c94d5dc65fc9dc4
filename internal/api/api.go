// Package api is the HTTP surface for accounts and administration:
// registration, login, balance queries and admin fund operations. Game
// play itself happens over the websocket, not here.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/spinhall/roulette/internal/auth"
	"github.com/spinhall/roulette/internal/ledger"
)

// API serves the account and admin endpoints.
type API struct {
	ledger          *ledger.Ledger
	tokens          *auth.Tokens
	startingBalance decimal.Decimal
	logger          *log.Logger
}

// New creates the API. New accounts are granted startingBalance.
func New(lgr *ledger.Ledger, tokens *auth.Tokens, startingBalance decimal.Decimal, logger *log.Logger) *API {
	return &API{
		ledger:          lgr,
		tokens:          tokens,
		startingBalance: startingBalance,
		logger:          logger.WithPrefix("api"),
	}
}

// Router builds the route tree.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/register", a.handleRegister)
	r.Post("/login", a.handleLogin)

	r.Route("/api", func(r chi.Router) {
		r.Use(a.requireAuth)

		r.Get("/me", a.handleMe)

		r.Group(func(r chi.Router) {
			r.Use(a.requireAdmin)

			r.Get("/users", a.handleListUsers)
			r.Post("/admin/funds", a.handleFunds)
			r.Get("/admin/history", a.handleHistory)
		})
	})

	return r
}

// UserResponse is the API view of a user; the password hash never
// leaves the ledger.
type UserResponse struct {
	ID        string          `json:"id"`
	Username  string          `json:"username"`
	Balance   decimal.Decimal `json:"balance"`
	IsAdmin   bool            `json:"is_admin"`
	CreatedAt time.Time       `json:"created_at"`
}

func toUserResponse(u *ledger.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Balance:   u.Balance,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        UserResponse `json:"user"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		a.logger.Error("failed to hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	u := &ledger.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		PasswordHash: hash,
		Balance:      a.startingBalance,
		CreatedAt:    time.Now().UTC(),
	}

	if err := a.ledger.Store().CreateUser(r.Context(), u); err != nil {
		if errors.Is(err, ledger.ErrUserExists) {
			writeError(w, http.StatusBadRequest, "username already taken")
			return
		}
		a.logger.Error("failed to create user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	a.logger.Info("user registered", "user", u.Username)
	a.issueToken(w, u)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := a.ledger.Store().GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, ledger.ErrUnknownUser) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		a.logger.Error("failed to look up user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	a.issueToken(w, u)
}

func (a *API) issueToken(w http.ResponseWriter, u *ledger.User) {
	token, err := a.tokens.Generate(u)
	if err != nil {
		a.logger.Error("failed to sign token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        toUserResponse(u),
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	u, err := a.ledger.Store().GetUser(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, ledger.ErrUnknownUser) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		a.logger.Error("failed to load user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.ledger.Store().ListUsers(r.Context())
	if err != nil {
		a.logger.Error("failed to list users", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, out)
}

type fundsRequest struct {
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Operation string          `json:"operation"`
}

type fundsResponse struct {
	UserID     string          `json:"user_id"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

func (a *API) handleFunds(w http.ResponseWriter, r *http.Request) {
	var req fundsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	balance, err := a.ledger.Adjust(r.Context(), req.UserID, req.Amount, ledger.Operation(req.Operation))
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrUnknownUser):
			writeError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, ledger.ErrInvalidOperation):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			a.logger.Error("fund operation failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, fundsResponse{UserID: req.UserID, NewBalance: balance})
}

type historyResponse struct {
	TotalSpins int64               `json:"total_spins"`
	Statistics map[string]int64    `json:"statistics"`
	History    []ledger.SpinRecord `json:"history"`
}

const defaultHistoryLimit = 50

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	store := a.ledger.Store()

	total, err := store.CountSpinRecords(r.Context())
	if err != nil {
		a.logger.Error("failed to count spins", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	byColor, err := store.AggregateByColor(r.Context())
	if err != nil {
		a.logger.Error("failed to aggregate spins", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	records, err := store.RecentSpinRecords(r.Context(), limit)
	if err != nil {
		a.logger.Error("failed to load spin records", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	stats := make(map[string]int64, len(byColor))
	for color, count := range byColor {
		stats[string(color)] = count
	}

	writeJSON(w, http.StatusOK, historyResponse{
		TotalSpins: total,
		Statistics: stats,
		History:    records,
	})
}

// EnsureAdmin creates the bootstrap admin account if it does not exist.
func EnsureAdmin(ctx context.Context, store ledger.Store, username, password string, balance decimal.Decimal, logger *log.Logger) error {
	if _, err := store.GetUserByUsername(ctx, username); err == nil {
		return nil
	} else if !errors.Is(err, ledger.ErrUnknownUser) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	u := &ledger.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Balance:      balance,
		IsAdmin:      true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := store.CreateUser(ctx, u); err != nil {
		return err
	}

	logger.Info("bootstrap admin created", "user", username)
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
