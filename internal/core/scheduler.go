package core

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joelklabo/rcd/internal/cooldown"
)

// LogScheduler records reminders without delivering them.
type LogScheduler struct {
	Logger *slog.Logger
}

func (s LogScheduler) Schedule(_ context.Context, r Reminder) error {
	log := s.Logger
	if log == nil {
		log = slog.Default()
	}
	log.Info("reminder scheduled",
		slog.String("profile", r.ProfileID),
		slog.String("type", r.Type.String()),
		slog.Time("at", r.At),
	)
	return nil
}

func (LogScheduler) Cancel(string, cooldown.Type) {}

type reminderKey struct {
	profile string
	typ     cooldown.Type
}

// TimerScheduler delivers reminders in-process with one timer per
// (profile, type). Scheduling a pair again replaces its pending reminder.
// Pending reminders are lost on restart.
type TimerScheduler struct {
	ctx    context.Context
	send   func(ctx context.Context, r Reminder) error
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	timers map[reminderKey]*time.Timer
}

// NewTimerScheduler builds a scheduler that calls send when a reminder is due.
// Reminders falling due after ctx ends are dropped.
func NewTimerScheduler(ctx context.Context, send func(ctx context.Context, r Reminder) error, logger *slog.Logger) *TimerScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TimerScheduler{
		ctx:    ctx,
		send:   send,
		logger: logger,
		now:    time.Now,
		timers: make(map[reminderKey]*time.Timer),
	}
}

func (s *TimerScheduler) Schedule(_ context.Context, r Reminder) error {
	key := reminderKey{r.ProfileID, r.Type}
	delay := r.At.Sub(s.now())
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.timers[key]; ok {
		old.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.timers[key] != t {
			s.mu.Unlock()
			return
		}
		delete(s.timers, key)
		s.mu.Unlock()
		if s.ctx.Err() != nil {
			return
		}
		if err := s.send(s.ctx, r); err != nil {
			s.logger.Error("reminder delivery failed",
				slog.String("profile", r.ProfileID),
				slog.String("type", r.Type.String()),
				slog.String("err", err.Error()),
			)
		}
	})
	s.timers[key] = t
	return nil
}

func (s *TimerScheduler) Cancel(profileID string, t cooldown.Type) {
	key := reminderKey{profileID, t}
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[key]; ok {
		timer.Stop()
		delete(s.timers, key)
	}
}

// Pending returns the number of reminders waiting to fire.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
