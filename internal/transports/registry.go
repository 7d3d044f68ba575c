package transport

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/joelklabo/rcd/internal/config"
	"github.com/joelklabo/rcd/internal/core"
)

// Constructor builds a Transport from its config entry.
type Constructor func(cfg config.TransportConfig, logger *slog.Logger) (core.Transport, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Constructor)
)

// Register adds a constructor for a transport type.
func Register(kind string, ctor Constructor) error {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[kind]; exists {
		return fmt.Errorf("transport type %s already registered", kind)
	}
	registry[kind] = ctor
	return nil
}

// MustRegister panics on error; intended for init() in transport packages.
func MustRegister(kind string, ctor Constructor) {
	if err := Register(kind, ctor); err != nil {
		panic(err)
	}
}

// Build constructs the transport described by cfg.
func Build(cfg config.TransportConfig, logger *slog.Logger) (core.Transport, error) {
	registryMu.RLock()
	ctor, ok := registry[cfg.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown transport type %s", cfg.Type)
	}
	return ctor(cfg, logger)
}

// RegisteredTypes returns the registered transport kinds in sorted order.
func RegisteredTypes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
