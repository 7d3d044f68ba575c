package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joelklabo/rcd/internal/config"
	"github.com/joelklabo/rcd/internal/core"
	"github.com/joelklabo/rcd/internal/pipeline"
	"github.com/joelklabo/rcd/internal/store"
	transport "github.com/joelklabo/rcd/internal/transports"
	_ "github.com/joelklabo/rcd/internal/transports/discord"
	_ "github.com/joelklabo/rcd/internal/transports/mock"
)

// Build constructs transports, the command pipeline and the runner from cfg.
// Reminders fire until ctx ends.
func Build(ctx context.Context, cfg *config.Config, st *store.Store, logger *slog.Logger) (*core.Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	transports := make([]core.Transport, 0, len(cfg.Transports))
	for _, t := range cfg.Transports {
		tr, err := transport.Build(t, logger)
		if err != nil {
			return nil, fmt.Errorf("transport %s: %w", t.ID, err)
		}
		transports = append(transports, tr)
	}

	engine := pipeline.NewEngine(st, logger.With(slog.String("component", "pipeline")))

	var r *core.Runner
	var sched core.Scheduler
	switch cfg.Reminders.Mode {
	case "log":
		sched = core.LogScheduler{Logger: logger}
	case "send", "":
		sched = core.NewTimerScheduler(ctx, func(ctx context.Context, rem core.Reminder) error {
			return r.Deliver(ctx, rem)
		}, logger)
	default:
		return nil, fmt.Errorf("unknown reminders mode %s", cfg.Reminders.Mode)
	}

	r = core.NewRunner(transports, engine, st, logger,
		core.WithPrefixes(cfg.Bot.CommandPrefix, cfg.Bot.GamePrefix),
		core.WithGameBot(cfg.Bot.GameBotID),
		core.WithMaxChars(cfg.Bot.MaxInputChars),
		core.WithRequestTimeout(time.Duration(cfg.Bot.TimeoutSeconds)*time.Second),
		core.WithProcessedRetention(time.Duration(cfg.Storage.ProcessedRetentionHours)*time.Hour, time.Hour),
		core.WithScheduler(sched),
	)
	return r, nil
}
