package transport

import (
	"context"
	"testing"

	"github.com/mqln/mcp-server-smtp/internal/email"
	"github.com/mqln/mcp-server-smtp/internal/relay"
)

type named struct{ name string }

func (n named) Send(context.Context, relay.Config, *email.Envelope) error { return nil }
func (n named) Name() string                                              { return n.name }

func TestSelector(t *testing.T) {
	t.Parallel()

	sel := NewSelector(named{"smtp"}, named{"stdout"})

	got, err := sel.For(relay.Config{Kind: "smtp"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name() != "smtp" {
		t.Errorf("got transport %q", got.Name())
	}

	if _, err := sel.For(relay.Config{Kind: "ses"}); err == nil {
		t.Fatal("expected error for unregistered kind")
	}
}
