package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/cardroomlabs/cardroom/internal/game"
)

// Config is the complete server configuration
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Game   GameSettings   `hcl:"game,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
	DBPath   string `hcl:"db_path,optional"`
}

// GameSettings configures the tables rooms are created with
type GameSettings struct {
	SmallBlind     int `hcl:"small_blind,optional"`
	BigBlind       int `hcl:"big_blind,optional"`
	StartingStack  int `hcl:"starting_stack,optional"`
	MaxPlayers     int `hcl:"max_players,optional"`
	MinReady       int `hcl:"min_ready,optional"`
	BotDelayMS     int `hcl:"bot_delay_ms,optional"`
	GraceTimeoutMS int `hcl:"grace_timeout_ms,optional"`
	SettleDelayMS  int `hcl:"settle_delay_ms,optional"`
}

// Options converts the settings into room options. Zero values fall back
// to the room defaults.
func (g GameSettings) Options() game.Options {
	return game.Options{
		SmallBlind:    g.SmallBlind,
		BigBlind:      g.BigBlind,
		StartingStack: g.StartingStack,
		MaxPlayers:    g.MaxPlayers,
		MinReady:      g.MinReady,
		BotDelay:      time.Duration(g.BotDelayMS) * time.Millisecond,
		GraceTimeout:  time.Duration(g.GraceTimeoutMS) * time.Millisecond,
		SettleDelay:   time.Duration(g.SettleDelayMS) * time.Millisecond,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Game: GameSettings{
			SmallBlind: 1,
			BigBlind:   2,
			MaxPlayers: 6,
		},
	}
}

// LoadConfig loads configuration from an HCL file. A missing file yields
// the defaults.
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

	if config.Server.Address == "" {
		config.Server.Address = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	return &config, nil
}
