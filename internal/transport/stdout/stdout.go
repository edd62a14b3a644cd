// Package stdout implements a Transport that prints mail to standard
// output. Useful as a development relay kind.
package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mqln/mcp-server-smtp/internal/email"
	"github.com/mqln/mcp-server-smtp/internal/relay"
)

// Transport prints envelopes to stdout in a human-readable format.
type Transport struct {
	writer io.Writer
}

// New creates a new stdout Transport that writes to os.Stdout.
func New() *Transport {
	return &Transport{writer: os.Stdout}
}

// NewWithWriter creates a stdout Transport that writes to the given
// writer. This is useful for testing.
func NewWithWriter(w io.Writer) *Transport {
	return &Transport{writer: w}
}

// Send prints the envelope in a readable format. It always succeeds.
func (t *Transport) Send(_ context.Context, cfg relay.Config, env *email.Envelope) error {
	var b strings.Builder

	b.WriteString("========================================\n")
	b.WriteString(fmt.Sprintf("Relay: %s\n", cfg.ID))
	b.WriteString(fmt.Sprintf("From: %s\n", env.From))
	b.WriteString(fmt.Sprintf("To: %s\n", strings.Join(env.To, ", ")))

	if len(env.Cc) > 0 {
		b.WriteString(fmt.Sprintf("Cc: %s\n", strings.Join(env.Cc, ", ")))
	}
	if len(env.Bcc) > 0 {
		b.WriteString(fmt.Sprintf("Bcc: %s\n", strings.Join(env.Bcc, ", ")))
	}

	b.WriteString(fmt.Sprintf("Subject: %s\n", env.Subject))
	b.WriteString("Body:\n")

	body := env.TextBody
	if body == "" {
		body = env.HTMLBody
	}
	b.WriteString(body + "\n")
	b.WriteString("========================================\n")

	fmt.Fprint(t.writer, b.String())
	return nil
}

// Name returns the relay kind this transport serves.
func (t *Transport) Name() string {
	return relay.KindStdout
}
