package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joelklabo/rcd/internal/config"
)

func TestParseSubcommand(t *testing.T) {
	cmd, rest := parseSubcommand([]string{"version"})
	if cmd != "version" || len(rest) != 0 {
		t.Fatalf("parse subcommand failed")
	}
	cmd, rest = parseSubcommand([]string{"joincode", "list"})
	if cmd != "joincode" || len(rest) != 1 {
		t.Fatalf("expected joincode routing, got %s %v", cmd, rest)
	}
	cmd, rest = parseSubcommand([]string{"-config", "x"})
	if cmd != "run" || len(rest) != 2 {
		t.Fatalf("expected run fallback")
	}
	if cmd, _ = parseSubcommand([]string{"-h"}); cmd != "help" {
		t.Fatalf("expected help, got %s", cmd)
	}
	if cmd, _ = parseSubcommand(nil); cmd != "run" {
		t.Fatalf("expected run default, got %s", cmd)
	}
}

func TestDefaultConfigPathPrefersEnv(t *testing.T) {
	t.Setenv(envConfig, "/tmp/rcd.yaml")
	if got := defaultConfigPath(); got != "/tmp/rcd.yaml" {
		t.Fatalf("expected env path, got %s", got)
	}
}

func TestDefaultConfigPathHomeConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(envConfig, "")
	cwd, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(cwd) })
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(home, ".config", "rcd", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := defaultConfigPath(); got != path {
		t.Fatalf("expected home config, got %s", got)
	}
}

func TestUsageDoesNotPanic(t *testing.T) {
	usage()
}

func TestSetupLoggerWritesFile(t *testing.T) {
	td := t.TempDir()
	cfg := &config.Config{Logging: config.LoggingConfig{
		Level:  "debug",
		File:   filepath.Join(td, "rcd.log"),
		Format: "json",
	}}
	logger := setupLogger(cfg)
	logger.Info("hello", "k", "v")

	data, err := os.ReadFile(cfg.Logging.File)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello"`) {
		t.Fatalf("log content unexpected: %s", string(data))
	}
}

func TestBuildVersionNonEmpty(t *testing.T) {
	if buildVersion() == "" {
		t.Fatalf("buildVersion should not be empty")
	}
}

func writeMockConfig(t *testing.T) string {
	t.Helper()
	td := t.TempDir()
	cfgPath := filepath.Join(td, "config.yaml")
	cfgYAML := `
storage:
  path: "` + filepath.Join(td, "state.db") + `"
transports:
  - type: mock
    id: mock
logging:
  level: error
reminders:
  mode: log
`
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath
}

func TestRunContextStartsAndCancels(t *testing.T) {
	cfgPath := writeMockConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	if err := runContext(ctx, []string{"-config", cfgPath}); err != nil {
		t.Fatalf("runContext err: %v", err)
	}
}

func TestJoinCodeAddAndList(t *testing.T) {
	cfgPath := writeMockConfig(t)
	var out bytes.Buffer
	if err := runJoinCode(&out, []string{"add", "-config", cfgPath, "ABC", "XYZ"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	out.Reset()
	if err := runJoinCode(&out, []string{"list", "-config", cfgPath}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := out.String(); got != "ABC\topen\nXYZ\topen\n" {
		t.Fatalf("unexpected listing %q", got)
	}
	if err := runJoinCode(&out, []string{"drop", "-config", cfgPath}); err == nil {
		t.Fatalf("expected unknown action error")
	}
	if err := runJoinCode(&out, nil); err == nil {
		t.Fatalf("expected usage error")
	}
}

func TestRunCheckJSONOutput(t *testing.T) {
	cfgPath := writeMockConfig(t)
	var out bytes.Buffer
	if err := runCheck(&out, []string{"-config", cfgPath, "-json"}); err != nil {
		t.Fatalf("runCheck err: %v", err)
	}
	var results []map[string]any
	if err := json.Unmarshal(out.Bytes(), &results); err != nil {
		t.Fatalf("unmarshal json: %v\noutput: %s", err, out.String())
	}
	if len(results) == 0 || results[0]["status"] != "OK" {
		t.Fatalf("unexpected results %#v", results)
	}
}
