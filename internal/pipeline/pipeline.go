package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joelklabo/rcd/internal/cooldown"
	"github.com/joelklabo/rcd/internal/metrics"
	"github.com/joelklabo/rcd/internal/store"
)

// Store is the subset of the record store the handlers use.
type Store interface {
	Server(id string) (store.Server, error)
	Register(id, name, code string) (store.Server, error)
	GetOrCreateProfile(p store.Profile) (store.Profile, bool, error)
	UpdateProfile(uid string, fn func(*store.Profile)) (store.Profile, error)
	Cooldowns(profileID string) ([]store.Cooldown, error)
	Available(serverID, exclude string, t cooldown.Type, at time.Time) ([]store.Profile, error)
}

// Directory resolves user names for mentioned users.
type Directory interface {
	Username(ctx context.Context, userID string) (string, error)
}

// Input is one tokenized command message.
type Input struct {
	AuthorID   string
	AuthorName string
	ServerID   string
	ServerName string
	ChannelID  string
	// Tokens are lower-cased; Raw holds the same words with their case.
	Tokens []string
	Raw    []string
	// Text is the original message, echoed back when nothing matches.
	Text  string
	Users Directory
}

// Request is the mutable context shared by the handlers of one invocation.
type Request struct {
	Input
	Now     time.Time
	Server  *store.Server
	Profile *store.Profile
	Help    bool

	reply     *Message
	err       error
	handledBy string
}

// Outcome is a handler's verdict on a request.
type Outcome struct {
	matched bool
	tokens  []string
	help    bool
	reply   *Message
	err     error
}

// Pass declines the request; the next handler sees it unchanged.
func Pass() Outcome { return Outcome{} }

// Rewrite continues the chain with new tokens.
func Rewrite(tokens []string) Outcome { return Outcome{matched: true, tokens: tokens} }

// RewriteHelp continues with new tokens and asks the next match for its help text.
func RewriteHelp(tokens []string) Outcome { return Outcome{matched: true, tokens: tokens, help: true} }

// Reply terminates the chain with m.
func Reply(m Message) Outcome { return Outcome{matched: true, reply: &m} }

// Fail terminates the chain with err.
func Fail(err error) Outcome { return Outcome{matched: true, err: err} }

// Handler is one stage of the command chain.
type Handler interface {
	Name() string
	Help() string
	Handle(ctx context.Context, req *Request) Outcome
}

// preOnboarding lists the first tokens accepted before a server has joined.
var preOnboarding = map[string]bool{"help": true, "h": true, "register": true}

// Engine runs the ordered handler chain over one Input at a time.
type Engine struct {
	store    Store
	handlers []Handler
	logger   *slog.Logger
	now      func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine builds the command chain. If logger is nil, slog.Default is used.
func NewEngine(st Store, logger *slog.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{store: st, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	// Order matters: help feeds the help flag to everything after it, notify
	// must see "<type> on|off" before cd does, and register is only reachable
	// before onboarding.
	e.handlers = []Handler{
		helpHandler{},
		whocanHandler{store: st},
		profileHandler{},
		notifyHandler{store: st},
		cdHandler{store: st},
		toggleHandler{store: st, on: true},
		toggleHandler{store: st, on: false},
		timezoneHandler{store: st},
		registerHandler{store: st},
	}
	return e
}

// Handlers returns the chain in evaluation order.
func (e *Engine) Handlers() []Handler { return e.handlers }

// Run evaluates in and renders exactly one reply.
func (e *Engine) Run(ctx context.Context, in Input) Message {
	req := &Request{Input: in, Now: e.now()}
	log := e.logger.With(
		slog.String("author", in.AuthorID),
		slog.String("server", in.ServerID),
	)

	if in.ServerID != "" {
		srv, err := e.store.Server(in.ServerID)
		switch {
		case err == nil:
			req.Server = &srv
		case !errors.Is(err, store.ErrNotFound):
			req.err = fmt.Errorf("load server: %w", err)
		}
	}

	for _, h := range e.handlers {
		if req.reply != nil || req.err != nil {
			break
		}
		if !e.prepare(req) {
			break
		}
		out := h.Handle(ctx, req)
		if !out.matched {
			continue
		}
		log.Debug("handler matched", slog.String("handler", h.Name()), slog.Any("tokens", req.Tokens))
		req.handledBy = h.Name()
		if out.tokens != nil {
			req.Tokens = out.tokens
		}
		if out.help {
			req.Help = true
		}
		req.reply, req.err = out.reply, out.err
	}

	msg := e.finish(req, log)
	handler := req.handledBy
	if handler == "" {
		handler = "none"
	}
	metrics.IncCommand(handler, msg.Kind.String())
	return msg
}

// prepare is the shared pre-dispatch step. It reports false when the request
// was terminated.
func (e *Engine) prepare(req *Request) bool {
	if req.Profile == nil && req.Server != nil {
		p, _, err := e.store.GetOrCreateProfile(store.Profile{
			UID:       req.AuthorID,
			ServerID:  req.Server.ID,
			ChannelID: req.ChannelID,
			Nickname:  req.AuthorName,
		})
		if err != nil {
			req.err = err
			return false
		}
		req.Profile = &p
		return true
	}
	if req.Server == nil && !req.Help && len(req.Tokens) > 0 && !preOnboarding[req.Tokens[0]] {
		m := onboardingError(req)
		req.reply = &m
		req.handledBy = "onboarding"
		return false
	}
	return true
}

func (e *Engine) finish(req *Request, log *slog.Logger) Message {
	if req.err != nil {
		var ue *UserError
		switch {
		case errors.As(req.err, &ue):
			m := Error(ue.Message)
			if ue.Title != "" {
				m.Title = ue.Title
			}
			return m
		case errors.Is(req.err, ErrUnrecognized):
			return unparsed(req)
		default:
			log.Error("command failed", slog.String("handler", req.handledBy), slog.String("err", req.err.Error()))
			return Error("Something went wrong while handling that command. Please try again later.")
		}
	}
	if req.reply == nil {
		return unparsed(req)
	}
	return *req.reply
}

func unparsed(req *Request) Message {
	return Error(fmt.Sprintf("`%s` could not be parsed as a valid command.", strings.Join(strings.Fields(req.Text), " ")))
}

func onboardingError(req *Request) Message {
	name := req.ServerName
	if name == "" {
		name = "this server"
	}
	return Error(fmt.Sprintf("You can only use `help` and `register` commands until %s has used a join code.", name))
}

// requireProfile guards handler bodies that act on the author's profile.
func requireProfile(req *Request) (Outcome, bool) {
	if req.Profile == nil {
		return Reply(onboardingError(req)), false
	}
	return Outcome{}, true
}

// rawAfter returns the case-preserved word following keyword in the original
// input, falling back to the lower-cased token.
func rawAfter(req *Request, keyword string, fallback string) string {
	for i, w := range req.Raw {
		if strings.ToLower(w) == keyword && i+1 < len(req.Raw) {
			return req.Raw[i+1]
		}
	}
	return fallback
}

func isToggle(tok string) bool { return tok == "on" || tok == "off" }

func isTypeName(tok string) bool {
	_, ok := cooldown.ParseType(tok)
	return ok
}
