package mock

import (
	"context"
	"log/slog"

	"github.com/joelklabo/rcd/internal/config"
	"github.com/joelklabo/rcd/internal/core"
	transport "github.com/joelklabo/rcd/internal/transports"
)

func init() {
	transport.MustRegister("mock", func(cfg config.TransportConfig, _ *slog.Logger) (core.Transport, error) {
		return New(cfg.ID), nil
	})
}

// Transport is an in-memory transport for tests.
type Transport struct {
	id       string
	Inbound  chan core.InboundMessage
	Outbound chan core.OutboundMessage
	// Users answers mention lookups.
	Users map[string]string
}

func New(id string) *Transport {
	if id == "" {
		id = "mock"
	}
	return &Transport{
		id:       id,
		Inbound:  make(chan core.InboundMessage, 32),
		Outbound: make(chan core.OutboundMessage, 32),
		Users:    make(map[string]string),
	}
}

func (t *Transport) ID() string { return t.id }

func (t *Transport) Start(ctx context.Context, in chan<- core.InboundMessage) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-t.Inbound:
			if msg.Transport == "" {
				msg.Transport = t.id
			}
			select {
			case in <- msg:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (t *Transport) Send(ctx context.Context, msg core.OutboundMessage) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case t.Outbound <- msg:
		return nil
	}
}

// Username returns the configured name for id, or id itself.
func (t *Transport) Username(_ context.Context, id string) (string, error) {
	if n, ok := t.Users[id]; ok {
		return n, nil
	}
	return id, nil
}
