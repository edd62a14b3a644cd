// Package dispatch contains the delivery core: the single-message
// dispatcher and the bulk dispatch engine.
package dispatch

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mqln/mcp-server-smtp/internal/audit"
	"github.com/mqln/mcp-server-smtp/internal/email"
	"github.com/mqln/mcp-server-smtp/internal/metrics"
	"github.com/mqln/mcp-server-smtp/internal/relay"
	"github.com/mqln/mcp-server-smtp/internal/template"
	"github.com/mqln/mcp-server-smtp/internal/transport"
)

// Outcome is the recorded result of one delivery attempt.
type Outcome struct {
	ID         string    `json:"id"`
	Recipient  string    `json:"recipient"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	RelayID    string    `json:"relayId"`
	TemplateID string    `json:"templateId,omitempty"`
}

func (o Outcome) entry() audit.Entry {
	return audit.Entry{
		ID:         o.ID,
		Recipient:  o.Recipient,
		Success:    o.Success,
		Error:      o.Error,
		Timestamp:  o.Timestamp,
		RelayID:    o.RelayID,
		TemplateID: o.TemplateID,
	}
}

// Dispatcher performs single delivery attempts: content resolution,
// sender normalization, one transport call, audit append.
type Dispatcher struct {
	registry   *relay.Registry
	templates  *template.Store
	transports *transport.Selector
	log        *audit.Log
}

// NewDispatcher wires a Dispatcher from its collaborators.
func NewDispatcher(reg *relay.Registry, tmpl *template.Store, sel *transport.Selector, log *audit.Log) *Dispatcher {
	return &Dispatcher{
		registry:   reg,
		templates:  tmpl,
		transports: sel,
		log:        log,
	}
}

// Send handles one message end to end. Template resolution or validation
// failure aborts before any transport attempt and records no outcome;
// transport failure is reported inside the returned Outcome, not as an
// error.
func (d *Dispatcher) Send(ctx context.Context, msg *email.Message) (Outcome, error) {
	if len(msg.To) == 0 {
		return Outcome{}, newError(KindValidation, "at least one recipient is required")
	}

	cfg, err := d.registry.Lookup(msg.RelayID)
	if err != nil {
		return Outcome{}, &Error{Kind: KindConfigInvalid, Err: err}
	}

	subject, body, htmlBody, err := d.resolveContent(msg)
	if err != nil {
		return Outcome{}, err
	}

	env := &email.Envelope{
		From:     senderFor(msg, cfg),
		To:       email.Addresses(msg.To),
		Cc:       email.Addresses(msg.Cc),
		Bcc:      email.Addresses(msg.Bcc),
		Subject:  subject,
		TextBody: body,
		HTMLBody: htmlBody,
	}

	return d.deliver(ctx, cfg, env, msg.TemplateID), nil
}

// resolveContent returns the final subject and body, preferring rendered
// template content over the literal fields.
func (d *Dispatcher) resolveContent(msg *email.Message) (subject, body, htmlBody string, err error) {
	if msg.TemplateID != "" {
		subject, body, rerr := d.templates.Resolve(msg.TemplateID, msg.TemplateData)
		if rerr != nil {
			return "", "", "", &Error{Kind: KindTemplate, Err: rerr}
		}
		return subject, body, msg.HTMLBody, nil
	}
	if msg.Subject == "" && msg.Body == "" && msg.HTMLBody == "" {
		return "", "", "", newError(KindValidation, "subject and body are required when no template is given")
	}
	return msg.Subject, msg.Body, msg.HTMLBody, nil
}

// deliver performs exactly one transport attempt and always records the
// outcome in the audit log. Audit persistence is best-effort.
func (d *Dispatcher) deliver(ctx context.Context, cfg relay.Config, env *email.Envelope, templateID string) Outcome {
	out := Outcome{
		ID:         uuid.NewString(),
		Recipient:  strings.Join(env.To, ", "),
		Timestamp:  time.Now().UTC(),
		RelayID:    cfg.ID,
		TemplateID: templateID,
	}

	t, err := d.transports.For(cfg)
	if err != nil {
		out.Error = err.Error()
	} else if err := t.Send(ctx, cfg, env); err != nil {
		out.Error = err.Error()
		slog.Warn("delivery failed",
			"relay", cfg.ID,
			"recipient", out.Recipient,
			"error", err,
		)
	} else {
		out.Success = true
	}

	if out.Success {
		metrics.DeliverySuccess.WithLabelValues(cfg.ID).Inc()
	} else {
		metrics.DeliveryFailure.WithLabelValues(cfg.ID).Inc()
	}

	d.record(out)
	return out
}

// record appends the outcome to the audit log. Append failures are
// logged and counted but never escalate to the caller.
func (d *Dispatcher) record(out Outcome) {
	if err := d.log.Append(out.entry()); err != nil {
		metrics.AuditWriteFailures.Inc()
		slog.Error("failed to append delivery outcome to audit log",
			"recipient", out.Recipient,
			"error", err,
		)
	}
}

// senderFor normalizes the sender identity: explicit from, else the
// relay's configured identity.
func senderFor(msg *email.Message, cfg relay.Config) string {
	if msg.From != "" {
		return msg.From
	}
	return cfg.Sender()
}
