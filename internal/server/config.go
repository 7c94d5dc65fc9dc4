package server

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/shopspring/decimal"
)

// Config represents the complete server configuration
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Redis  RedisSettings  `hcl:"redis,block"`
	Game   GameSettings   `hcl:"game,block"`
	Auth   AuthSettings   `hcl:"auth,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// RedisSettings configures the persistence backend. An empty address
// selects the in-memory store.
type RedisSettings struct {
	Addr     string `hcl:"addr,optional"`
	Password string `hcl:"password,optional"`
	DB       int    `hcl:"db,optional"`
}

// GameSettings configures round timing and the economy.
type GameSettings struct {
	BettingSeconds   int     `hcl:"betting_seconds,optional"`
	RollingPauseSecs int     `hcl:"rolling_pause_seconds,optional"`
	ResultPauseSecs  int     `hcl:"result_pause_seconds,optional"`
	HistorySize      int     `hcl:"history_size,optional"`
	StartingBalance  float64 `hcl:"starting_balance,optional"`
	Seed             int64   `hcl:"seed,optional"`
}

// AuthSettings configures token issuance and the bootstrap admin.
type AuthSettings struct {
	JWTSecret      string `hcl:"jwt_secret,optional"`
	TokenTTLHours  int    `hcl:"token_ttl_hours,optional"`
	BootstrapAdmin string `hcl:"bootstrap_admin,optional"`
	AdminPassword  string `hcl:"admin_password,optional"`
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Redis: RedisSettings{
			Addr: "",
			DB:   0,
		},
		Game: GameSettings{
			BettingSeconds:   20,
			RollingPauseSecs: 2,
			ResultPauseSecs:  6,
			HistorySize:      10,
			StartingBalance:  100,
			Seed:             0,
		},
		Auth: AuthSettings{
			JWTSecret:      "dev-secret-change-me",
			TokenTTLHours:  24,
			BootstrapAdmin: "admin",
			AdminPassword:  "admin",
		},
	}
}

// LoadConfig loads server configuration from an HCL file. A missing
// file yields the defaults.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	def := DefaultConfig()
	if config.Server.Address == "" {
		config.Server.Address = def.Server.Address
	}
	if config.Server.Port == 0 {
		config.Server.Port = def.Server.Port
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = def.Server.LogLevel
	}
	if config.Game.BettingSeconds == 0 {
		config.Game.BettingSeconds = def.Game.BettingSeconds
	}
	if config.Game.RollingPauseSecs == 0 {
		config.Game.RollingPauseSecs = def.Game.RollingPauseSecs
	}
	if config.Game.ResultPauseSecs == 0 {
		config.Game.ResultPauseSecs = def.Game.ResultPauseSecs
	}
	if config.Game.HistorySize == 0 {
		config.Game.HistorySize = def.Game.HistorySize
	}
	if config.Game.StartingBalance == 0 {
		config.Game.StartingBalance = def.Game.StartingBalance
	}
	if config.Auth.JWTSecret == "" {
		config.Auth.JWTSecret = def.Auth.JWTSecret
	}
	if config.Auth.TokenTTLHours == 0 {
		config.Auth.TokenTTLHours = def.Auth.TokenTTLHours
	}
	if config.Auth.BootstrapAdmin == "" {
		config.Auth.BootstrapAdmin = def.Auth.BootstrapAdmin
	}
	if config.Auth.AdminPassword == "" {
		config.Auth.AdminPassword = def.Auth.AdminPassword
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Game.BettingSeconds < 1 {
		return fmt.Errorf("betting_seconds must be positive, got %d", c.Game.BettingSeconds)
	}
	if c.Game.RollingPauseSecs < 0 {
		return fmt.Errorf("rolling_pause_seconds must not be negative, got %d", c.Game.RollingPauseSecs)
	}
	if c.Game.ResultPauseSecs < 0 {
		return fmt.Errorf("result_pause_seconds must not be negative, got %d", c.Game.ResultPauseSecs)
	}
	if c.Game.HistorySize < 1 {
		return fmt.Errorf("history_size must be positive, got %d", c.Game.HistorySize)
	}
	if c.Game.StartingBalance < 0 {
		return fmt.Errorf("starting_balance must not be negative, got %v", c.Game.StartingBalance)
	}
	if c.Auth.TokenTTLHours < 1 {
		return fmt.Errorf("token_ttl_hours must be positive, got %d", c.Auth.TokenTTLHours)
	}
	return nil
}

// ListenAddress returns the full server address
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// StartingBalance returns the new-user grant as a decimal.
func (c *Config) StartingBalance() decimal.Decimal {
	return decimal.NewFromFloat(c.Game.StartingBalance)
}
