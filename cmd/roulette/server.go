package main

import (
	"context"
	"errors"
	rand "math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/spinhall/roulette/internal/api"
	"github.com/spinhall/roulette/internal/auth"
	"github.com/spinhall/roulette/internal/ledger"
	"github.com/spinhall/roulette/internal/randutil"
	"github.com/spinhall/roulette/internal/roulette"
	"github.com/spinhall/roulette/internal/round"
	"github.com/spinhall/roulette/internal/server"
)

// adminBalance is the bootstrap admin's starting bankroll.
var adminBalance = decimal.NewFromInt(100000)

// ServerCmd runs the table server.
type ServerCmd struct {
	Config   string `short:"c" default:"roulette.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" help:"Listen address (overrides config)"`
	LogLevel string `short:"l" help:"Log level (overrides config)"`
	Redis    string `help:"Redis address (overrides config)"`
	Mem      bool   `help:"Use the in-memory store regardless of config"`
	Seed     *int64 `help:"Deterministic RNG seed for the wheel (optional)"`
}

func (c *ServerCmd) Run() error {
	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return err
	}

	// Apply command line overrides
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}
	if c.Redis != "" {
		cfg.Redis.Addr = c.Redis
	}
	if c.Mem {
		cfg.Redis.Addr = ""
	}
	if c.Seed != nil {
		cfg.Game.Seed = *c.Seed
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	addr := cfg.ListenAddress()
	if c.Addr != "" {
		addr = c.Addr
	}

	logger := setupLogger(cfg.Server.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Storage backend
	var store ledger.Store
	if cfg.Redis.Addr != "" {
		rs, err := ledger.NewRedisStore(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer func() { _ = rs.Close() }()
		store = rs
		logger.Info("using redis store", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
	} else {
		store = ledger.NewMemStore()
		logger.Warn("using in-memory store, state will not survive restarts")
	}

	lgr := ledger.New(store, logger)

	if err := api.EnsureAdmin(ctx, store, cfg.Auth.BootstrapAdmin, cfg.Auth.AdminPassword, adminBalance, logger); err != nil {
		return err
	}

	// Wheel RNG
	var rng *rand.Rand
	if cfg.Game.Seed != 0 {
		logger.Info("using deterministic seed", "seed", cfg.Game.Seed)
		rng = randutil.New(cfg.Game.Seed)
	} else {
		rng = randutil.NewEntropy()
	}

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	apiHandler := api.New(lgr, tokens, cfg.StartingBalance(), logger).Router()

	srv := server.NewServer(addr, apiHandler, quartz.NewReal(), logger)

	history := roulette.NewHistory(cfg.Game.HistorySize)
	machine := round.NewMachine(round.Config{
		BettingSeconds: cfg.Game.BettingSeconds,
		RollingPause:   time.Duration(cfg.Game.RollingPauseSecs) * time.Second,
		ResultPause:    time.Duration(cfg.Game.ResultPauseSecs) * time.Second,
	}, lgr, history, rng, quartz.NewReal(), srv, logger)

	srv.SetGame(machine)

	logger.Info("starting roulette server",
		"addr", addr,
		"betting_seconds", cfg.Game.BettingSeconds,
		"history_size", cfg.Game.HistorySize,
		"starting_balance", cfg.Game.StartingBalance)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := machine.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		err := srv.Start(gctx)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	return g.Wait()
}

func setupLogger(level string) *log.Logger {
	logger := log.New(os.Stderr)
	switch level {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}
	return logger
}
