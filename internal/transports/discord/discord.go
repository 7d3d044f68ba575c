// Package discord connects the runner to Discord through an arikawa gateway
// session.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/diamondburned/arikawa/v3/api"
	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/gateway"
	"github.com/diamondburned/arikawa/v3/state"

	"github.com/joelklabo/rcd/internal/config"
	"github.com/joelklabo/rcd/internal/cooldown"
	"github.com/joelklabo/rcd/internal/core"
	"github.com/joelklabo/rcd/internal/pipeline"
	transport "github.com/joelklabo/rcd/internal/transports"
)

func init() {
	transport.MustRegister("discord", func(cfg config.TransportConfig, logger *slog.Logger) (core.Transport, error) {
		return New(Config{ID: cfg.ID, Token: cfg.Token}, logger)
	})
}

// Embed colors per reply kind.
var colors = map[pipeline.Kind]discord.Color{
	pipeline.KindNormal:  0x4381CC,
	pipeline.KindSuccess: 0x628F47,
	pipeline.KindError:   0xEB4034,
	pipeline.KindHelp:    0x8C8A89,
}

// Config holds Discord connection settings.
type Config struct {
	ID    string
	Token string
}

// Transport implements core.Transport over the Discord gateway.
type Transport struct {
	id     string
	state  *state.State
	logger *slog.Logger

	mu      sync.Mutex
	inbound chan<- core.InboundMessage
	ctx     context.Context
}

// New builds a Discord transport. The gateway is opened by Start.
func New(cfg Config, logger *slog.Logger) (*Transport, error) {
	if cfg.Token == "" {
		return nil, errors.New("discord: token is required")
	}
	if cfg.ID == "" {
		cfg.ID = "discord"
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := state.New("Bot " + cfg.Token)
	s.AddIntents(gateway.IntentGuilds | gateway.IntentGuildMessages | gateway.IntentMessageContent)
	t := &Transport{id: cfg.ID, state: s, logger: logger.With(slog.String("transport", cfg.ID))}
	s.AddHandler(t.onMessage)
	return t, nil
}

func (t *Transport) ID() string { return t.id }

// Start opens the gateway and forwards messages until ctx is canceled.
func (t *Transport) Start(ctx context.Context, inbound chan<- core.InboundMessage) error {
	t.mu.Lock()
	t.inbound, t.ctx = inbound, ctx
	t.mu.Unlock()

	if err := t.state.Open(ctx); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	if me, err := t.state.Me(); err == nil {
		t.logger.Info("discord connected", slog.String("user", me.Username))
	}
	<-ctx.Done()
	if err := t.state.Close(); err != nil {
		t.logger.Warn("discord close", slog.String("err", err.Error()))
	}
	return ctx.Err()
}

func (t *Transport) onMessage(ev *gateway.MessageCreateEvent) {
	t.mu.Lock()
	inbound, ctx := t.inbound, t.ctx
	t.mu.Unlock()
	if inbound == nil {
		return
	}

	var guildName string
	if ev.GuildID.IsValid() {
		if g, err := t.state.Guild(ev.GuildID); err == nil {
			guildName = g.Name
		}
	}
	msg := toInbound(t.id, ev.Message, guildName)
	select {
	case inbound <- msg:
	case <-ctx.Done():
	}
}

// Send posts msg as an embed, replying to the triggering message when known.
func (t *Transport) Send(ctx context.Context, msg core.OutboundMessage) error {
	sf, err := discord.ParseSnowflake(msg.ChannelID)
	if err != nil {
		return fmt.Errorf("channel id %q: %w", msg.ChannelID, err)
	}
	data := api.SendMessageData{Embeds: []discord.Embed{toEmbed(msg)}}
	if msg.ReplyTo != "" {
		if ref, err := discord.ParseSnowflake(msg.ReplyTo); err == nil {
			data.Reference = &discord.MessageReference{MessageID: discord.MessageID(ref)}
		}
	}
	if _, err := t.state.WithContext(ctx).SendMessageComplex(discord.ChannelID(sf), data); err != nil {
		return fmt.Errorf("send to %s: %w", msg.ChannelID, err)
	}
	return nil
}

// Username resolves a user id to its Discord username.
func (t *Transport) Username(ctx context.Context, userID string) (string, error) {
	sf, err := discord.ParseSnowflake(userID)
	if err != nil {
		return "", fmt.Errorf("user id %q: %w", userID, err)
	}
	u, err := t.state.WithContext(ctx).User(discord.UserID(sf))
	if err != nil {
		return "", err
	}
	return u.Username, nil
}

func toInbound(transportID string, m discord.Message, guildName string) core.InboundMessage {
	in := core.InboundMessage{
		Transport:  transportID,
		ID:         m.ID.String(),
		ChannelID:  m.ChannelID.String(),
		AuthorID:   m.Author.ID.String(),
		AuthorName: m.Author.Username,
		Bot:        m.Author.Bot,
		Content:    m.Content,
	}
	if m.GuildID.IsValid() {
		in.ServerID = m.GuildID.String()
		in.ServerName = guildName
	}
	for _, e := range m.Embeds {
		ce := core.Embed{Title: e.Title, Description: e.Description}
		if e.Author != nil {
			ce.AuthorName = e.Author.Name
			ce.AuthorIcon = e.Author.Icon
		}
		for _, f := range e.Fields {
			ce.Fields = append(ce.Fields, cooldown.Field{Name: f.Name, Value: f.Value})
		}
		in.Embeds = append(in.Embeds, ce)
	}
	return in
}

func toEmbed(msg core.OutboundMessage) discord.Embed {
	color, ok := colors[msg.Kind]
	if !ok {
		color = colors[pipeline.KindNormal]
	}
	return discord.Embed{
		Title:       msg.Title,
		Description: msg.Text,
		Color:       color,
	}
}
