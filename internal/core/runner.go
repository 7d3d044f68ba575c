package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/joelklabo/rcd/internal/commands"
	"github.com/joelklabo/rcd/internal/cooldown"
	"github.com/joelklabo/rcd/internal/metrics"
	"github.com/joelklabo/rcd/internal/pipeline"
	"github.com/joelklabo/rcd/internal/store"
)

// Store is the persistence the runner needs on top of the pipeline's.
type Store interface {
	pipeline.Store
	Profile(uid string) (store.Profile, error)
	ApplyCooldowns(updates []cooldown.Update, evictions []cooldown.Eviction) error
	AlreadyProcessed(id string) (bool, error)
	PruneProcessed(maxAge time.Duration) (int, error)
}

// avatarRe pulls the player id out of the game bot's embed author icon URL.
var avatarRe = regexp.MustCompile(`avatars/(\d+)/`)

// Runner routes chat messages to the command pipeline or the cooldown
// extractor and sends the replies back.
type Runner struct {
	transports   []Transport
	transportMap map[string]Transport
	engine       *pipeline.Engine
	store        Store
	scheduler    Scheduler
	logger       *slog.Logger
	now          func() time.Time

	commandPrefix string
	gamePrefix    string
	gameBotID     string
	maxChars      int

	reqTimeout time.Duration
	pruneEvery time.Duration
	pruneAfter time.Duration
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRequestTimeout overrides the per-message timeout.
func WithRequestTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) { r.reqTimeout = d }
}

// WithPrefixes sets the bot's own command prefix and the game's prefix.
func WithPrefixes(command, game string) RunnerOption {
	return func(r *Runner) {
		if command != "" {
			r.commandPrefix = strings.ToLower(command)
		}
		if game != "" {
			r.gamePrefix = strings.ToLower(game)
		}
	}
}

// WithGameBot sets the user id of the game bot whose replies are extracted.
func WithGameBot(id string) RunnerOption {
	return func(r *Runner) { r.gameBotID = id }
}

// WithMaxChars bounds how much of each message is tokenized.
func WithMaxChars(n int) RunnerOption {
	return func(r *Runner) { r.maxChars = n }
}

// WithScheduler wires the reminder sink. The default only logs.
func WithScheduler(s Scheduler) RunnerOption {
	return func(r *Runner) { r.scheduler = s }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// WithProcessedRetention sets how long message ids are kept for dedupe and
// how often old ones are pruned. A zero interval disables pruning.
func WithProcessedRetention(maxAge, every time.Duration) RunnerOption {
	return func(r *Runner) { r.pruneAfter, r.pruneEvery = maxAge, every }
}

// NewRunner constructs a Runner. If logger is nil, slog.Default is used.
func NewRunner(transports []Transport, engine *pipeline.Engine, st Store, logger *slog.Logger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	tmap := make(map[string]Transport, len(transports))
	for _, t := range transports {
		tmap[t.ID()] = t
	}
	r := &Runner{
		transports:    transports,
		transportMap:  tmap,
		engine:        engine,
		store:         st,
		logger:        logger,
		now:           time.Now,
		commandPrefix: "rcd",
		gamePrefix:    "rpg",
		maxChars:      commands.DefaultMaxChars,
		reqTimeout:    30 * time.Second,
		pruneAfter:    24 * time.Hour,
		pruneEvery:    time.Hour,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.scheduler == nil {
		r.scheduler = LogScheduler{Logger: logger}
	}
	return r
}

// Transports returns the configured transports.
func (r *Runner) Transports() []Transport { return r.transports }

// Start launches transports and processes inbound messages until ctx is done.
func (r *Runner) Start(ctx context.Context) error {
	inbound := make(chan InboundMessage, 128)
	var wg sync.WaitGroup
	errCh := make(chan error, len(r.transports))

	for _, t := range r.transports {
		wg.Add(1)
		go func(tr Transport) {
			defer wg.Done()
			if err := tr.Start(ctx, inbound); err != nil {
				errCh <- fmt.Errorf("transport %s: %w", tr.ID(), err)
			}
		}(t)
	}
	if r.pruneEvery > 0 {
		go r.pruneLoop(ctx)
	}

	go func() {
		wg.Wait()
		close(inbound)
	}()

	for msg := range inbound {
		r.handleMessage(ctx, msg)
	}

	select {
	case err := <-errCh:
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	default:
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil
		}
		return ctx.Err()
	}
}

func (r *Runner) pruneLoop(ctx context.Context) {
	t := time.NewTicker(r.pruneEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := r.store.PruneProcessed(r.pruneAfter)
			if err != nil {
				r.logger.Warn("prune processed failed", slog.String("err", err.Error()))
				continue
			}
			if n > 0 {
				r.logger.Debug("pruned processed markers", slog.Int("count", n))
			}
		}
	}
}

func (r *Runner) handleMessage(parent context.Context, msg InboundMessage) {
	log := r.logger.With(
		slog.String("transport", msg.Transport),
		slog.String("author", msg.AuthorID),
		slog.String("server", msg.ServerID),
	)
	metrics.IncInbound()

	if msg.ID != "" {
		seen, err := r.store.AlreadyProcessed(msg.ID)
		if err != nil {
			log.Warn("dedupe failed", slog.String("err", err.Error()))
		} else if seen {
			log.Debug("duplicate message", slog.String("id", msg.ID))
			return
		}
	}

	ctx := parent
	if r.reqTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, r.reqTimeout)
		defer cancel()
	}

	if r.gameBotID != "" && msg.AuthorID == r.gameBotID {
		r.observeGameBot(ctx, msg, log)
		return
	}
	if msg.Bot {
		return
	}

	cmd, ok := commands.Parse(msg.Content, r.maxChars, r.commandPrefix, r.gamePrefix)
	if !ok {
		return
	}
	switch cmd.Prefix {
	case r.commandPrefix:
		r.runCommand(ctx, msg, cmd, log)
	case r.gamePrefix:
		r.observeCommand(ctx, msg, cmd, log)
	}
}

func (r *Runner) runCommand(ctx context.Context, msg InboundMessage, cmd commands.Command, log *slog.Logger) {
	in := pipeline.Input{
		AuthorID:   msg.AuthorID,
		AuthorName: msg.AuthorName,
		ServerID:   msg.ServerID,
		ServerName: msg.ServerName,
		ChannelID:  msg.ChannelID,
		Tokens:     cmd.Tokens,
		Raw:        cmd.Raw,
		Text:       cmd.Text,
	}
	tr, ok := r.transportMap[msg.Transport]
	if !ok {
		log.Error("no transport for outbound", slog.String("transport", msg.Transport))
		return
	}
	if dir, ok := tr.(pipeline.Directory); ok {
		in.Users = dir
	}

	reply := r.engine.Run(ctx, in)
	log.Info("command answered", slog.String("kind", reply.Kind.String()), slog.Any("tokens", cmd.Tokens))

	out := OutboundMessage{
		Transport: msg.Transport,
		ChannelID: msg.ChannelID,
		ReplyTo:   msg.ID,
		Kind:      reply.Kind,
		Title:     reply.Title,
		Text:      reply.Body,
	}
	if err := r.sendWithRetry(ctx, tr, out, log); err != nil {
		metrics.IncSendError()
		log.Error("send error", slog.String("err", err.Error()))
	}
}

// observeCommand records the fixed cooldown of a game action a player ran.
func (r *Runner) observeCommand(ctx context.Context, msg InboundMessage, cmd commands.Command, log *slog.Logger) {
	if msg.ServerID == "" {
		return
	}
	if _, err := r.store.Server(msg.ServerID); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Warn("server lookup failed", slog.String("err", err.Error()))
		}
		return
	}
	u, ok := cooldown.FromCommand(msg.AuthorID, cmd.Tokens, r.now())
	if !ok {
		return
	}
	if _, _, err := r.store.GetOrCreateProfile(store.Profile{
		UID:       msg.AuthorID,
		ServerID:  msg.ServerID,
		ChannelID: msg.ChannelID,
		Nickname:  msg.AuthorName,
	}); err != nil {
		log.Error("profile lookup failed", slog.String("err", err.Error()))
		return
	}
	r.apply(ctx, msg, "command", []cooldown.Update{u}, nil, log)
}

// observeGameBot extracts cooldowns from the game bot's embeds. The player
// an embed belongs to is identified by its author avatar.
func (r *Runner) observeGameBot(ctx context.Context, msg InboundMessage, log *slog.Logger) {
	now := r.now()
	for _, e := range msg.Embeds {
		m := avatarRe.FindStringSubmatch(e.AuthorIcon)
		if m == nil {
			continue
		}
		uid := m[1]
		if _, err := r.store.Profile(uid); err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				log.Warn("profile lookup failed", slog.String("err", err.Error()))
			}
			continue
		}
		if len(e.Fields) > 0 {
			updates, evictions := cooldown.FromFields(uid, e.Fields, now)
			r.apply(ctx, msg, "status", updates, evictions, log)
			continue
		}
		if u, ok := cooldown.FromConfirmation(uid, e.Title+"\n"+e.Description, now); ok {
			r.apply(ctx, msg, "confirmation", []cooldown.Update{u}, nil, log)
		}
	}
}

func (r *Runner) apply(ctx context.Context, msg InboundMessage, source string, updates []cooldown.Update, evictions []cooldown.Eviction, log *slog.Logger) {
	if len(updates) == 0 && len(evictions) == 0 {
		return
	}
	if err := r.store.ApplyCooldowns(updates, evictions); err != nil {
		log.Error("store cooldowns failed", slog.String("source", source), slog.String("err", err.Error()))
		return
	}
	metrics.AddUpdates(source, len(updates))
	metrics.AddEvictions(len(evictions))
	log.Debug("cooldowns stored", slog.String("source", source), slog.Int("updates", len(updates)), slog.Int("evictions", len(evictions)))

	for _, e := range evictions {
		r.scheduler.Cancel(e.ProfileID, e.Type)
	}
	for _, u := range updates {
		p, err := r.store.Profile(u.ProfileID)
		if err != nil {
			log.Warn("profile lookup failed", slog.String("profile", u.ProfileID), slog.String("err", err.Error()))
			continue
		}
		if !p.Notify || !p.Notifies(u.Type) {
			r.scheduler.Cancel(u.ProfileID, u.Type)
			continue
		}
		channel := p.ChannelID
		if channel == "" {
			channel = msg.ChannelID
		}
		rem := Reminder{
			Transport: msg.Transport,
			ProfileID: u.ProfileID,
			ChannelID: channel,
			Type:      u.Type,
			At:        u.After,
			Text:      fmt.Sprintf("<@%s> %s", u.ProfileID, u.Type.Trigger()),
		}
		if err := r.scheduler.Schedule(ctx, rem); err != nil {
			log.Warn("schedule failed", slog.String("type", u.Type.String()), slog.String("err", err.Error()))
			continue
		}
		metrics.IncReminder()
	}
}

// Deliver sends a due reminder through its transport.
func (r *Runner) Deliver(ctx context.Context, rem Reminder) error {
	tr, ok := r.transportMap[rem.Transport]
	if !ok {
		return fmt.Errorf("no transport %q for reminder", rem.Transport)
	}
	out := OutboundMessage{
		Transport: rem.Transport,
		ChannelID: rem.ChannelID,
		Kind:      pipeline.KindNormal,
		Text:      rem.Text,
	}
	if err := r.sendWithRetry(ctx, tr, out, r.logger); err != nil {
		metrics.IncSendError()
		return err
	}
	return nil
}

func (r *Runner) sendWithRetry(ctx context.Context, tr Transport, msg OutboundMessage, log *slog.Logger) error {
	var sendErr error
	err := retry(ctx, 3, func() error {
		err := tr.Send(ctx, msg)
		if err != nil {
			sendErr = err
			log.Warn("send retry", slog.String("err", err.Error()))
		}
		return err
	})
	if err != nil && sendErr != nil {
		return sendErr
	}
	return err
}
