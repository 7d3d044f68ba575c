package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultGameBotID is the user id of the EPIC RPG bot.
const DefaultGameBotID = "555955826880413696"

// Config holds the runtime configuration loaded from config.yaml.
type Config struct {
	Bot        BotConfig         `yaml:"bot"`
	Transports []TransportConfig `yaml:"transports"`
	Storage    StorageConfig     `yaml:"storage"`
	Logging    LoggingConfig     `yaml:"logging"`
	Metrics    MetricsConfig     `yaml:"metrics"`
	Reminders  RemindersConfig   `yaml:"reminders"`
}

// BotConfig controls how chat messages are recognised.
type BotConfig struct {
	CommandPrefix  string `yaml:"command_prefix"`
	GamePrefix     string `yaml:"game_prefix"`
	GameBotID      string `yaml:"game_bot_id"`
	MaxInputChars  int    `yaml:"max_input_chars"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// TransportConfig describes one chat connection.
type TransportConfig struct {
	ID     string         `yaml:"id"`
	Type   string         `yaml:"type"` // discord | mock
	Token  string         `yaml:"token,omitempty"`
	Config map[string]any `yaml:"config,omitempty"`
}

// StorageConfig controls persistence.
type StorageConfig struct {
	Path string `yaml:"path"`
	// ProcessedRetentionHours bounds how long message ids are kept for dedupe.
	ProcessedRetentionHours int `yaml:"processed_retention_hours"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
	File   string `yaml:"file"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Listen disables it.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// RemindersConfig selects how due reminders are handled.
type RemindersConfig struct {
	Mode string `yaml:"mode"` // send | log
}

// overrides are read from the environment (and a .env file next to the config).
type overrides struct {
	DiscordToken  string `env:"DISCORD_TOKEN"`
	GameBotID     string `env:"GAME_BOT_ID"`
	StoragePath   string `env:"STORAGE_PATH"`
	LogLevel      string `env:"LOG_LEVEL"`
	MetricsListen string `env:"METRICS_LISTEN"`
}

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "RCD_"

// Load reads and validates configuration from the provided path. Values from
// RCD_* environment variables win over the file.
func Load(path string) (*Config, error) {
	baseDir := filepath.Dir(path)
	if err := godotenv.Load(filepath.Join(baseDir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return load(path, nil)
}

func load(path string, environ map[string]string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	var ov overrides
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&ov, opts); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.apply(ov)

	cfg.applyDefaults(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) apply(ov overrides) {
	if ov.DiscordToken != "" {
		for i := range c.Transports {
			if c.Transports[i].Type == "discord" {
				c.Transports[i].Token = ov.DiscordToken
			}
		}
		if len(c.Transports) == 0 {
			c.Transports = []TransportConfig{{Type: "discord", Token: ov.DiscordToken}}
		}
	}
	if ov.GameBotID != "" {
		c.Bot.GameBotID = ov.GameBotID
	}
	if ov.StoragePath != "" {
		c.Storage.Path = ov.StoragePath
	}
	if ov.LogLevel != "" {
		c.Logging.Level = ov.LogLevel
	}
	if ov.MetricsListen != "" {
		c.Metrics.Listen = ov.MetricsListen
	}
}

func (c *Config) applyDefaults(baseDir string) {
	if c.Bot.CommandPrefix == "" {
		c.Bot.CommandPrefix = "rcd"
	}
	if c.Bot.GamePrefix == "" {
		c.Bot.GamePrefix = "rpg"
	}
	c.Bot.CommandPrefix = strings.ToLower(c.Bot.CommandPrefix)
	c.Bot.GamePrefix = strings.ToLower(c.Bot.GamePrefix)
	if c.Bot.GameBotID == "" {
		c.Bot.GameBotID = DefaultGameBotID
	}
	if c.Bot.MaxInputChars == 0 {
		c.Bot.MaxInputChars = 250
	}
	if c.Bot.TimeoutSeconds == 0 {
		c.Bot.TimeoutSeconds = 30
	}
	for i := range c.Transports {
		if c.Transports[i].ID == "" {
			c.Transports[i].ID = c.Transports[i].Type
		}
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "rcd.db"
	}
	if !filepath.IsAbs(c.Storage.Path) {
		c.Storage.Path = filepath.Join(baseDir, c.Storage.Path)
	}
	if c.Storage.ProcessedRetentionHours == 0 {
		c.Storage.ProcessedRetentionHours = 24
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Reminders.Mode == "" {
		c.Reminders.Mode = "send"
	}
}

// Validate ensures the config is usable.
func (c *Config) Validate() error {
	if len(c.Transports) == 0 {
		return errors.New("at least one transport is required")
	}
	if err := c.ValidateTransports(); err != nil {
		return err
	}
	if c.Bot.CommandPrefix == c.Bot.GamePrefix {
		return fmt.Errorf("bot.command_prefix and bot.game_prefix must differ (both %q)", c.Bot.CommandPrefix)
	}
	if strings.ContainsAny(c.Bot.CommandPrefix+c.Bot.GamePrefix, " \t\n") {
		return errors.New("prefixes must be single words")
	}
	if c.Bot.MaxInputChars < 0 {
		return errors.New("bot.max_input_chars must not be negative")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not text or json", c.Logging.Format)
	}
	switch c.Reminders.Mode {
	case "send", "log":
	default:
		return fmt.Errorf("reminders.mode %q is not send or log", c.Reminders.Mode)
	}
	return nil
}

// ValidateTransports performs type-specific validation beyond presence checks.
func (c *Config) ValidateTransports() error {
	seen := make(map[string]struct{})
	for i, t := range c.Transports {
		if t.Type == "" {
			return fmt.Errorf("transport %d: type is required", i)
		}
		id := t.ID
		if id == "" {
			id = t.Type
		}
		if _, exists := seen[id]; exists {
			return fmt.Errorf("transport id %q is duplicated", id)
		}
		seen[id] = struct{}{}

		switch t.Type {
		case "discord":
			if t.Token == "" {
				return fmt.Errorf("transport %q: token required (or set %sDISCORD_TOKEN)", id, EnvPrefix)
			}
		case "mock":
		default:
			return fmt.Errorf("transport %q: unknown type %s", id, t.Type)
		}
	}
	return nil
}

// Marshal renders the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
