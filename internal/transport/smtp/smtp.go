// Package smtp implements a Transport that delivers mail through a
// configured SMTP relay using gomail.
package smtp

import (
	"context"
	"crypto/tls"
	"log/slog"

	"gopkg.in/gomail.v2"

	"github.com/mqln/mcp-server-smtp/internal/email"
	"github.com/mqln/mcp-server-smtp/internal/relay"
)

// Transport delivers envelopes over SMTP. A dialer is built per send
// from the relay config, so one transport instance serves every
// configured SMTP relay.
type Transport struct {
	// InsecureSkipVerify disables TLS certificate verification on the
	// relay connection. Dev/test only.
	InsecureSkipVerify bool
}

// New creates a new SMTP Transport.
func New() *Transport {
	return &Transport{}
}

// Send performs exactly one delivery attempt through the relay.
func (t *Transport) Send(ctx context.Context, cfg relay.Config, env *email.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.SSL = cfg.Secure
	if t.InsecureSkipVerify {
		slog.Warn("TLS certificate verification disabled for SMTP relay", "host", cfg.Host)
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true, ServerName: cfg.Host}
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", env.From)
	msg.SetHeader("To", env.To...)
	if len(env.Cc) > 0 {
		msg.SetHeader("Cc", env.Cc...)
	}
	if len(env.Bcc) > 0 {
		msg.SetHeader("Bcc", env.Bcc...)
	}
	msg.SetHeader("Subject", env.Subject)

	if env.HTMLBody != "" {
		msg.SetBody("text/html", env.HTMLBody)
		if env.TextBody != "" {
			msg.AddAlternative("text/plain", env.TextBody)
		}
	} else {
		msg.SetBody("text/plain", env.TextBody)
	}

	// gomail has no context support; deliveries run in a goroutine so a
	// cancelled caller is not left waiting on a stuck relay.
	done := make(chan error, 1)
	go func() {
		done <- d.DialAndSend(msg)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Name returns the relay kind this transport serves.
func (t *Transport) Name() string {
	return relay.KindSMTP
}
