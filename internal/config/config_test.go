package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joelklabo/rcd/internal/assets"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfgPath := writeTempConfig(t, `
transports:
  - type: discord
    token: "abc"
`)
	cfg, err := load(cfgPath, map[string]string{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Bot.CommandPrefix != "rcd" || cfg.Bot.GamePrefix != "rpg" {
		t.Fatalf("prefix defaults missing: %+v", cfg.Bot)
	}
	if cfg.Bot.GameBotID != DefaultGameBotID || cfg.Bot.MaxInputChars != 250 {
		t.Fatalf("bot defaults missing: %+v", cfg.Bot)
	}
	if cfg.Transports[0].ID != "discord" {
		t.Fatalf("transport id default missing: %+v", cfg.Transports[0])
	}
	if cfg.Storage.Path != filepath.Join(filepath.Dir(cfgPath), "rcd.db") {
		t.Fatalf("storage path not resolved next to config: %s", cfg.Storage.Path)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" || cfg.Reminders.Mode != "send" {
		t.Fatalf("logging/reminder defaults missing: %+v %+v", cfg.Logging, cfg.Reminders)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	cfgPath := writeTempConfig(t, `
transports:
  - type: discord
    token: "from-file"
storage:
  path: /var/lib/rcd/state.db
`)
	cfg, err := load(cfgPath, map[string]string{
		"RCD_DISCORD_TOKEN":  "from-env",
		"RCD_STORAGE_PATH":   "/tmp/other.db",
		"RCD_LOG_LEVEL":      "debug",
		"RCD_METRICS_LISTEN": "127.0.0.1:9100",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Transports[0].Token != "from-env" {
		t.Fatalf("token not overridden: %s", cfg.Transports[0].Token)
	}
	if cfg.Storage.Path != "/tmp/other.db" || cfg.Logging.Level != "debug" || cfg.Metrics.Listen != "127.0.0.1:9100" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestTokenFromEnvironmentAddsDiscordTransport(t *testing.T) {
	cfgPath := writeTempConfig(t, "bot:\n  command_prefix: RCD\n")
	cfg, err := load(cfgPath, map[string]string{"RCD_DISCORD_TOKEN": "tok"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Transports) != 1 || cfg.Transports[0].Type != "discord" || cfg.Transports[0].Token != "tok" {
		t.Fatalf("unexpected transports %+v", cfg.Transports)
	}
	if cfg.Bot.CommandPrefix != "rcd" {
		t.Fatalf("prefix should be lower-cased: %s", cfg.Bot.CommandPrefix)
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	cfgPath := writeTempConfig(t, "transports:\n  - type: mock\n")
	envPath := filepath.Join(filepath.Dir(cfgPath), ".env")
	if err := os.WriteFile(envPath, []byte("RCD_GAME_BOT_ID=42\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("RCD_GAME_BOT_ID") })

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Bot.GameBotID != "42" {
		t.Fatalf("expected game bot id from .env, got %s", cfg.Bot.GameBotID)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"no transports":   "bot:\n  game_prefix: rpg\n",
		"missing token":   "transports:\n  - type: discord\n",
		"unknown type":    "transports:\n  - type: irc\n",
		"duplicate ids":   "transports:\n  - type: mock\n  - type: mock\n",
		"same prefixes":   "bot:\n  command_prefix: rpg\ntransports:\n  - type: mock\n",
		"bad level":       "logging:\n  level: loud\ntransports:\n  - type: mock\n",
		"bad format":      "logging:\n  format: xml\ntransports:\n  - type: mock\n",
		"bad reminders":   "reminders:\n  mode: carrier-pigeon\ntransports:\n  - type: mock\n",
		"multi-word pref": "bot:\n  command_prefix: \"r c\"\ntransports:\n  - type: mock\n",
	}
	for name, body := range cases {
		if _, err := load(writeTempConfig(t, body), map[string]string{}); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestMarshalWritesYAML(t *testing.T) {
	cfgPath := writeTempConfig(t, "transports:\n  - type: mock\n")
	cfg, err := load(cfgPath, map[string]string{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	out, err := cfg.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), "command_prefix: rcd") {
		t.Fatalf("unexpected yaml:\n%s", out)
	}
}

func TestExampleConfigLoads(t *testing.T) {
	cfg, err := load(writeTempConfig(t, string(assets.ConfigExample)), map[string]string{})
	if err != nil {
		t.Fatalf("example config: %v", err)
	}
	if cfg.Bot.GameBotID != DefaultGameBotID || cfg.Reminders.Mode != "send" {
		t.Fatalf("unexpected example values %+v", cfg)
	}
	if !filepath.IsAbs(cfg.Storage.Path) {
		t.Fatalf("storage path should resolve next to the config, got %s", cfg.Storage.Path)
	}
}
