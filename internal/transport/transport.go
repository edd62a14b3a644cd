// Package transport defines the interface for mail delivery backends.
package transport

import (
	"context"
	"fmt"

	"github.com/mqln/mcp-server-smtp/internal/email"
	"github.com/mqln/mcp-server-smtp/internal/relay"
)

// Transport is the interface that mail delivery backends must implement.
// Each transport handles one delivery attempt of a resolved envelope
// through the given relay. Retries, if any, are the caller's concern.
type Transport interface {
	// Send delivers the envelope through the relay. It returns an error
	// if the delivery fails.
	Send(ctx context.Context, cfg relay.Config, env *email.Envelope) error

	// Name returns the relay kind this transport serves.
	Name() string
}

// Selector routes a relay config to the transport serving its kind.
type Selector struct {
	byKind map[string]Transport
}

// NewSelector builds a Selector from the given transports, keyed by
// their Name.
func NewSelector(transports ...Transport) *Selector {
	byKind := make(map[string]Transport, len(transports))
	for _, t := range transports {
		byKind[t.Name()] = t
	}
	return &Selector{byKind: byKind}
}

// For returns the transport serving the relay's kind.
func (s *Selector) For(cfg relay.Config) (Transport, error) {
	t, ok := s.byKind[cfg.Kind]
	if !ok {
		return nil, fmt.Errorf("no transport registered for relay kind %q", cfg.Kind)
	}
	return t, nil
}
