package core

import (
	"context"
	"time"

	"github.com/joelklabo/rcd/internal/cooldown"
	"github.com/joelklabo/rcd/internal/pipeline"
)

// Transport moves messages between a chat platform and the runner.
type Transport interface {
	// ID returns a stable identifier (e.g., "discord", "mock").
	ID() string
	// Start begins receiving inbound messages and pushing them into the provided channel.
	// It should return when ctx is canceled or a fatal error occurs.
	Start(ctx context.Context, inbound chan<- InboundMessage) error
	// Send delivers an outbound message back to the chat platform.
	Send(ctx context.Context, msg OutboundMessage) error
}

// Embed is the rich part of a chat message, as the game bot emits it.
type Embed struct {
	Title       string           `json:"title,omitempty"`
	Description string           `json:"description,omitempty"`
	AuthorName  string           `json:"author_name,omitempty"`
	AuthorIcon  string           `json:"author_icon,omitempty"`
	Fields      []cooldown.Field `json:"fields,omitempty"`
}

// InboundMessage represents a chat message entering the runner.
type InboundMessage struct {
	Transport  string  `json:"transport"`
	ID         string  `json:"id"`
	ServerID   string  `json:"server_id,omitempty"`
	ServerName string  `json:"server_name,omitempty"`
	ChannelID  string  `json:"channel_id"`
	AuthorID   string  `json:"author_id"`
	AuthorName string  `json:"author_name"`
	Bot        bool    `json:"bot,omitempty"`
	Content    string  `json:"content"`
	Embeds     []Embed `json:"embeds,omitempty"`
}

// OutboundMessage represents a reply or reminder leaving the runner.
type OutboundMessage struct {
	Transport string        `json:"transport"`
	ChannelID string        `json:"channel_id"`
	ReplyTo   string        `json:"reply_to,omitempty"`
	Kind      pipeline.Kind `json:"kind"`
	Title     string        `json:"title,omitempty"`
	Text      string        `json:"text"`
}

// Reminder is a notification due when a cooldown expires.
type Reminder struct {
	Transport string
	ProfileID string
	ChannelID string
	Type      cooldown.Type
	At        time.Time
	Text      string
}

// Scheduler delivers reminders at their due time.
type Scheduler interface {
	Schedule(ctx context.Context, r Reminder) error
	// Cancel drops a pending reminder for the pair, if any.
	Cancel(profileID string, t cooldown.Type)
}
