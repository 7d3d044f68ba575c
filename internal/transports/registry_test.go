package transport

import (
	"context"
	"log/slog"
	"testing"

	"github.com/joelklabo/rcd/internal/config"
	"github.com/joelklabo/rcd/internal/core"
)

type fakeTransport struct{ id string }

func (f *fakeTransport) ID() string { return f.id }
func (f *fakeTransport) Start(ctx context.Context, inbound chan<- core.InboundMessage) error {
	return nil
}
func (f *fakeTransport) Send(ctx context.Context, msg core.OutboundMessage) error { return nil }

func resetRegistry(t *testing.T) {
	t.Cleanup(func() {
		registryMu.Lock()
		registry = make(map[string]Constructor)
		registryMu.Unlock()
	})
}

func TestRegistryRegistersAndBuilds(t *testing.T) {
	resetRegistry(t)

	err := Register("fake", func(cfg config.TransportConfig, _ *slog.Logger) (core.Transport, error) {
		return &fakeTransport{id: cfg.ID}, nil
	})
	if err != nil {
		t.Fatalf("register err: %v", err)
	}
	tr, err := Build(config.TransportConfig{ID: "x", Type: "fake"}, slog.Default())
	if err != nil {
		t.Fatalf("build err: %v", err)
	}
	if tr.ID() != "x" {
		t.Fatalf("unexpected id %s", tr.ID())
	}
	if kinds := RegisteredTypes(); len(kinds) != 1 || kinds[0] != "fake" {
		t.Fatalf("registered types mismatch %v", kinds)
	}
	if _, err := Build(config.TransportConfig{Type: "missing"}, nil); err == nil {
		t.Fatalf("expected unknown type error")
	}
}

func TestRegistryDuplicate(t *testing.T) {
	resetRegistry(t)

	_ = Register("dup", func(config.TransportConfig, *slog.Logger) (core.Transport, error) { return &fakeTransport{id: "a"}, nil })
	if err := Register("dup", nil); err == nil {
		t.Fatalf("expected duplicate error")
	}
}

func TestMustRegisterPanics(t *testing.T) {
	resetRegistry(t)
	MustRegister("z", func(config.TransportConfig, *slog.Logger) (core.Transport, error) { return &fakeTransport{id: "z"}, nil })
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic on duplicate")
		}
	}()
	MustRegister("z", nil)
}
