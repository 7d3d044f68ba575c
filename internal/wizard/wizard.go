package wizard

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"gopkg.in/yaml.v3"

	"github.com/joelklabo/rcd/internal/config"
)

// Prompter abstracts survey for testability.
type Prompter interface {
	AskSelect(label string, options []string, def string) (string, error)
	AskInput(label, def string) (string, error)
	AskPassword(label string) (string, error)
	AskConfirm(label string, def bool) (bool, error)
}

// TransportOption is a chat connection the wizard can set up.
type TransportOption struct {
	Name        string
	Description string
}

var transportOptions = []TransportOption{
	{Name: "discord", Description: "Discord bot account (needs a bot token)"},
	{Name: "mock", Description: "In-memory transport for local testing"},
}

// Run executes the interactive wizard and writes a config file.
func Run(ctx context.Context, path string, p Prompter) (string, error) {
	_ = ctx
	if p == nil {
		p = &surveyPrompter{}
	}

	cfgPath, err := resolveConfigPath(path)
	if err != nil {
		return "", err
	}

	if fileExists(cfgPath) {
		overwrite, err := p.AskConfirm(fmt.Sprintf("%s exists. Overwrite?", cfgPath), false)
		if err != nil {
			return "", err
		}
		if !overwrite {
			return "", fmt.Errorf("aborted: config exists at %s", cfgPath)
		}
	}

	labels := transportLabels(transportOptions)
	sel, err := p.AskSelect("Chat transport", labels, defaultChoice(transportLabel(transportOptions[0]), labels))
	if err != nil {
		return "", err
	}
	kind, _, _ := strings.Cut(sel, " - ")
	tc := config.TransportConfig{ID: kind, Type: kind}
	if kind == "discord" {
		token, err := p.AskPassword(fmt.Sprintf("Discord bot token (leave blank to read %sDISCORD_TOKEN)", config.EnvPrefix))
		if err != nil {
			return "", err
		}
		tc.Token = strings.TrimSpace(token)
	}

	cfg := &config.Config{Transports: []config.TransportConfig{tc}}
	if cfg.Bot.CommandPrefix, err = p.AskInput("Command prefix", "rcd"); err != nil {
		return "", err
	}
	if cfg.Bot.GamePrefix, err = p.AskInput("Game command prefix", "rpg"); err != nil {
		return "", err
	}
	if cfg.Bot.GameBotID, err = p.AskInput("Game bot user id", config.DefaultGameBotID); err != nil {
		return "", err
	}
	if strings.EqualFold(strings.TrimSpace(cfg.Bot.CommandPrefix), strings.TrimSpace(cfg.Bot.GamePrefix)) {
		return "", fmt.Errorf("command prefix and game prefix must differ")
	}
	if cfg.Storage.Path, err = p.AskInput("State database path", defaultStatePath()); err != nil {
		return "", err
	}
	if cfg.Logging.Level, err = p.AskSelect("Log level", []string{"debug", "info", "warn", "error"}, "info"); err != nil {
		return "", err
	}
	cfg.Logging.Format = "text"
	if cfg.Reminders.Mode, err = p.AskSelect("Reminders", []string{"send", "log"}, "send"); err != nil {
		return "", err
	}
	if cfg.Metrics.Listen, err = p.AskInput("Metrics listen address (blank disables)", ""); err != nil {
		return "", err
	}

	dryRun, err := p.AskConfirm("Dry-run only (preview config without writing)?", false)
	if err != nil {
		return "", err
	}
	if dryRun {
		fmt.Printf("Dry run: config NOT written. Target path would be %s\n", cfgPath)
		return cfgPath, nil
	}

	if err := writeConfig(cfgPath, cfg); err != nil {
		return "", err
	}
	return cfgPath, nil
}

func resolveConfigPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "rcd", "config.yaml"), nil
}

func writeConfig(path string, cfg *config.Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("make config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "rcd.db"
	}
	return filepath.Join(home, ".local", "share", "rcd", "rcd.db")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// surveyPrompter is the real interactive implementation.
type surveyPrompter struct{}

func (surveyPrompter) AskSelect(label string, options []string, def string) (string, error) {
	sel := def
	prompt := &survey.Select{Message: label, Options: options, Default: def}
	if err := survey.AskOne(prompt, &sel); err != nil {
		return "", err
	}
	return sel, nil
}

func (surveyPrompter) AskInput(label, def string) (string, error) {
	ans := def
	prompt := &survey.Input{Message: label, Default: def}
	if err := survey.AskOne(prompt, &ans); err != nil {
		return "", err
	}
	return ans, nil
}

func (surveyPrompter) AskPassword(label string) (string, error) {
	var ans string
	prompt := &survey.Password{Message: label}
	if err := survey.AskOne(prompt, &ans); err != nil {
		return "", err
	}
	return ans, nil
}

func (surveyPrompter) AskConfirm(label string, def bool) (bool, error) {
	ans := def
	prompt := &survey.Confirm{Message: label, Default: def}
	if err := survey.AskOne(prompt, &ans); err != nil {
		return false, err
	}
	return ans, nil
}

func transportLabel(o TransportOption) string {
	return o.Name + " - " + o.Description
}

func transportLabels(opts []TransportOption) []string {
	labels := make([]string, 0, len(opts))
	for _, o := range opts {
		labels = append(labels, transportLabel(o))
	}
	return labels
}

func defaultChoice(defaultVal string, options []string) string {
	for _, opt := range options {
		if opt == defaultVal {
			return defaultVal
		}
	}
	if len(options) > 0 {
		return options[0]
	}
	return defaultVal
}

// StubPrompter is used in tests.
type StubPrompter struct {
	Selects   []string
	Inputs    []string
	Passwords []string
	Confirms  []bool
}

func (s *StubPrompter) popSelect(def string) string {
	if len(s.Selects) == 0 {
		return def
	}
	v := s.Selects[0]
	s.Selects = s.Selects[1:]
	return v
}

func (s *StubPrompter) popInput(def string) string {
	if len(s.Inputs) == 0 {
		return def
	}
	v := s.Inputs[0]
	s.Inputs = s.Inputs[1:]
	return v
}

func (s *StubPrompter) popPassword() string {
	if len(s.Passwords) == 0 {
		return ""
	}
	v := s.Passwords[0]
	s.Passwords = s.Passwords[1:]
	return v
}

func (s *StubPrompter) popConfirm(def bool) bool {
	if len(s.Confirms) == 0 {
		return def
	}
	v := s.Confirms[0]
	s.Confirms = s.Confirms[1:]
	return v
}

func (s *StubPrompter) AskSelect(label string, options []string, def string) (string, error) {
	return s.popSelect(def), nil
}
func (s *StubPrompter) AskInput(label, def string) (string, error) {
	return s.popInput(def), nil
}
func (s *StubPrompter) AskPassword(label string) (string, error) {
	return s.popPassword(), nil
}
func (s *StubPrompter) AskConfirm(label string, def bool) (bool, error) {
	return s.popConfirm(def), nil
}
