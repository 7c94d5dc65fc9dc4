package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/spinhall/roulette/internal/tui"
)

// ClientCmd runs the interactive terminal client.
type ClientCmd struct {
	Server   string `short:"s" default:"http://localhost:8080" help:"Server URL to connect to"`
	Username string `short:"u" help:"Account username"`
	Password string `short:"p" help:"Account password"`
	Debug    bool   `help:"Enable debug logging to roulette-client.log"`
}

func (c *ClientCmd) Run() error {
	if c.Username == "" {
		fmt.Print("Username: ")
		var input string
		_, _ = fmt.Scanln(&input)
		c.Username = strings.TrimSpace(input)
		if c.Username == "" {
			return fmt.Errorf("username is required")
		}
	}
	if c.Password == "" {
		fmt.Print("Password: ")
		var input string
		_, _ = fmt.Scanln(&input)
		c.Password = strings.TrimSpace(input)
		if c.Password == "" {
			return fmt.Errorf("password is required")
		}
	}

	// The TUI owns the terminal, so logs go to a file or nowhere.
	logger := log.New(io.Discard)
	if c.Debug {
		f, err := os.OpenFile("roulette-client.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		logger = log.New(f)
		logger.SetLevel(log.DebugLevel)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return tui.Run(ctx, c.Server, c.Username, c.Password, logger)
}
