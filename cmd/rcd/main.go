package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/joelklabo/rcd/internal/app"
	"github.com/joelklabo/rcd/internal/assets"
	"github.com/joelklabo/rcd/internal/check"
	"github.com/joelklabo/rcd/internal/config"
	"github.com/joelklabo/rcd/internal/metrics"
	"github.com/joelklabo/rcd/internal/store"
	"github.com/joelklabo/rcd/internal/wizard"
)

const envConfig = "RCD_CONFIG"

var version = "dev"

func main() {
	cmd, args := parseSubcommand(os.Args[1:])
	var err error
	switch cmd {
	case "run":
		err = run(args)
	case "init":
		err = runInit(args)
	case "joincode":
		err = runJoinCode(os.Stdout, args)
	case "check":
		err = runCheck(os.Stdout, args)
	case "example":
		_, err = os.Stdout.Write(assets.ConfigExample)
	case "version":
		fmt.Println(buildVersion())
	case "help":
		usage()
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fatalf("%v", err)
	}
}

func parseSubcommand(args []string) (string, []string) {
	if len(args) == 0 {
		return "run", args
	}
	switch {
	case args[0] == "-h" || args[0] == "--help":
		return "help", nil
	case strings.HasPrefix(args[0], "-"):
		return "run", args
	}
	return args[0], args[1:]
}

func usage() {
	fmt.Fprintf(os.Stderr, `rcd: cooldown reminders for EPIC RPG

Usage:
  rcd [run] [-config path]           start the bot
  rcd init [-config path]            interactive config wizard
  rcd joincode add [-config path] CODE...
  rcd joincode list [-config path]
  rcd check [-config path] [-json]   verify storage, tokens and tzdata
  rcd example                        print an example config.yaml
  rcd version

Config lookup: -config, $%s, ./config.yaml, ~/.config/rcd/config.yaml
`, envConfig)
}

func defaultConfigPath() string {
	if p := os.Getenv(envConfig); p != "" {
		return p
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, ".config", "rcd", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return "config.yaml"
}

func run(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return runContext(ctx, args)
}

func runContext(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath(), "Path to config.yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := setupLogger(cfg)
	printBanner(cfg, buildVersion())

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
		return fmt.Errorf("make state dir: %w", err)
	}
	st, err := store.New(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	if err := metrics.Start(ctx, cfg.Metrics.Listen, logger); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	r, err := app.Build(ctx, cfg, st, logger)
	if err != nil {
		return err
	}
	logger.Info("rcd starting",
		slog.Int("transports", len(cfg.Transports)),
		slog.String("prefix", cfg.Bot.CommandPrefix),
		slog.String("reminders", cfg.Reminders.Mode))

	err = r.Start(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("runtime error: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	configPath := fs.String("config", "", "Where to write config.yaml (default ~/.config/rcd/config.yaml)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := wizard.Run(context.Background(), *configPath, nil)
	if err != nil {
		return err
	}
	fmt.Printf("Config ready at %s\nAdd a join code with: rcd joincode add -config %s CODE\n", path, path)
	return nil
}

func runJoinCode(w io.Writer, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: rcd joincode add|list [-config path] [CODE...]")
	}
	action := args[0]
	fs := flag.NewFlagSet("joincode", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath(), "Path to config.yaml")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
		return fmt.Errorf("make state dir: %w", err)
	}
	st, err := store.New(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	switch action {
	case "add":
		if fs.NArg() == 0 {
			return errors.New("joincode add needs at least one code")
		}
		for _, code := range fs.Args() {
			if err := st.AddJoinCode(code); err != nil {
				return fmt.Errorf("add %s: %w", code, err)
			}
			fmt.Fprintf(w, "added %s\n", code)
		}
	case "list":
		codes, err := st.JoinCodes()
		if err != nil {
			return err
		}
		for _, jc := range codes {
			state := "open"
			if jc.Claimed {
				state = "claimed"
			}
			fmt.Fprintf(w, "%s\t%s\n", jc.Code, state)
		}
	default:
		return fmt.Errorf("unknown joincode action %q", action)
	}
	return nil
}

func runCheck(w io.Writer, args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath(), "Path to config.yaml")
	asJSON := fs.Bool("json", false, "Print results as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	results := check.Preflight(cfg)
	if *asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			fmt.Fprintf(w, "%-7s %-8s %s: %s\n", r.Status, r.Type, r.Name, r.Details)
		}
	}
	if n := check.Missing(results); n > 0 {
		return fmt.Errorf("%d required checks failed", n)
	}
	return nil
}

func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var out io.Writer = os.Stdout
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open log file %s: %v (falling back to stdout)\n", cfg.Logging.File, err)
		} else {
			out = f
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.Logging.Format) == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func buildVersion() string {
	if version != "dev" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return version
}

func printBanner(cfg *config.Config, ver string) {
	if !isTTY() {
		return
	}
	cyan := "\033[36m"
	mag := "\033[35m"
	reset := "\033[0m"

	kinds := make([]string, 0, len(cfg.Transports))
	for _, t := range cfg.Transports {
		kinds = append(kinds, t.Type)
	}
	fmt.Printf("%srcd %s%s\n", mag, ver, reset)
	fmt.Printf("  transports %s%s%s\n", cyan, strings.Join(kinds, ", "), reset)
	fmt.Printf("  prefix     %s%s%s\n", cyan, cfg.Bot.CommandPrefix, reset)
	fmt.Printf("  state      %s%s%s\n", cyan, cfg.Storage.Path, reset)
}

func isTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

func fatalf(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, msg+"\n", args...)
	os.Exit(1)
}
