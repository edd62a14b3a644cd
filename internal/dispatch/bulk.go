package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mqln/mcp-server-smtp/internal/email"
	"github.com/mqln/mcp-server-smtp/internal/metrics"
)

// BulkRequest describes a bulk dispatch: one message delivered to a flat
// recipient list in paced batches. DelayBetweenBatches is in
// milliseconds; a nil pointer means "use the engine default" while an
// explicit zero disables pacing.
type BulkRequest struct {
	Recipients          []email.Recipient `json:"recipients"`
	From                string            `json:"from,omitempty"`
	Cc                  []email.Recipient `json:"cc,omitempty"`
	Bcc                 []email.Recipient `json:"bcc,omitempty"`
	Subject             string            `json:"subject"`
	Body                string            `json:"body"`
	HTMLBody            string            `json:"htmlBody,omitempty"`
	TemplateID          string            `json:"templateId,omitempty"`
	TemplateData        map[string]string `json:"templateData,omitempty"`
	RelayID             string            `json:"relayId,omitempty"`
	BatchSize           int               `json:"batchSize,omitempty"`
	DelayBetweenBatches *int              `json:"delayBetweenBatches,omitempty"`
}

// Failure identifies one recipient that could not be delivered to.
type Failure struct {
	Recipient string `json:"recipient"`
	Reason    string `json:"reason"`
}

// BulkResult summarizes a completed bulk dispatch. Success is true only
// when every recipient was delivered to.
type BulkResult struct {
	Success     bool      `json:"success"`
	TotalSent   int       `json:"totalSent"`
	TotalFailed int       `json:"totalFailed"`
	Failures    []Failure `json:"failures"`
	Message     string    `json:"message"`
}

// Engine is the bulk dispatch engine: it partitions the recipient list
// into batches, paces them, dispatches each recipient through the
// single-message dispatcher and aggregates per-recipient outcomes.
type Engine struct {
	dispatcher       *Dispatcher
	defaultBatchSize int
	defaultDelay     time.Duration
}

// NewEngine builds an Engine over the given dispatcher with the
// configured batching defaults.
func NewEngine(d *Dispatcher, defaultBatchSize, defaultDelayMs int) *Engine {
	if defaultBatchSize < 1 {
		defaultBatchSize = 10
	}
	if defaultDelayMs < 0 {
		defaultDelayMs = 0
	}
	return &Engine{
		dispatcher:       d,
		defaultBatchSize: defaultBatchSize,
		defaultDelay:     time.Duration(defaultDelayMs) * time.Millisecond,
	}
}

// SendBulk runs the bulk dispatch to completion. One recipient's failure
// never stops delivery to the rest; only a relay or template resolution
// failure before the first send aborts the whole operation. The result
// is always a completed summary, never an error.
func (e *Engine) SendBulk(ctx context.Context, req BulkRequest) BulkResult {
	metrics.BulkRequests.Inc()

	if len(req.Recipients) == 0 {
		return BulkResult{
			Success:  false,
			Failures: []Failure{},
			Message:  "Bulk send aborted: no recipients given",
		}
	}

	batchSize := req.BatchSize
	if batchSize < 1 {
		batchSize = e.defaultBatchSize
	}
	delay := e.defaultDelay
	if req.DelayBetweenBatches != nil && *req.DelayBetweenBatches >= 0 {
		delay = time.Duration(*req.DelayBetweenBatches) * time.Millisecond
	}

	// Relay and template are resolved once; every recipient in the
	// request uses the same relay and the same rendered content.
	cfg, err := e.dispatcher.registry.Lookup(req.RelayID)
	if err != nil {
		return e.abort(req, fmt.Errorf("relay resolution failed: %w", err))
	}

	subject, body, htmlBody := req.Subject, req.Body, req.HTMLBody
	if req.TemplateID != "" {
		subject, body, err = e.dispatcher.templates.Resolve(req.TemplateID, req.TemplateData)
		if err != nil {
			return e.abort(req, fmt.Errorf("template resolution failed: %w", err))
		}
	} else if subject == "" && body == "" && htmlBody == "" {
		return e.abort(req, fmt.Errorf("subject and body are required when no template is given"))
	}

	from := req.From
	if from == "" {
		from = cfg.Sender()
	}

	batches := Partition(req.Recipients, batchSize)
	slog.Info("starting bulk dispatch",
		"relay", cfg.ID,
		"recipients", len(req.Recipients),
		"batches", len(batches),
		"batch_size", batchSize,
		"delay", delay,
	)

	outcomes := make([]Outcome, len(req.Recipients))
	next := 0

dispatching:
	for bi, batch := range batches {
		if ctx.Err() != nil {
			break
		}

		// Recipients within a batch are dispatched concurrently, but the
		// batch settles completely before the pause and the next batch.
		var wg sync.WaitGroup
		for j := range batch {
			wg.Add(1)
			go func(slot int, rcpt email.Recipient) {
				defer wg.Done()
				env := &email.Envelope{
					From:     from,
					To:       []string{rcpt.Address},
					Cc:       email.Addresses(req.Cc),
					Bcc:      email.Addresses(req.Bcc),
					Subject:  subject,
					TextBody: body,
					HTMLBody: htmlBody,
				}
				outcomes[slot] = e.dispatcher.deliver(ctx, cfg, env, req.TemplateID)
			}(next+j, batch[j])
		}
		wg.Wait()
		next += len(batch)

		if bi < len(batches)-1 && delay > 0 {
			if err := sleepWithContext(ctx, delay); err != nil {
				break dispatching
			}
		}
	}

	// A caller-level cancellation leaves outstanding recipients without
	// an attempt; they are reported as failed.
	for i := next; i < len(req.Recipients); i++ {
		outcomes[i] = Outcome{
			Recipient: req.Recipients[i].Address,
			Error:     fmt.Sprintf("not attempted: %v", ctx.Err()),
			Timestamp: time.Now().UTC(),
			RelayID:   cfg.ID,
		}
	}

	return summarize(outcomes)
}

// abort builds the result for a bulk operation that failed before any
// send was attempted: every recipient is reported failed with the abort
// reason.
func (e *Engine) abort(req BulkRequest, reason error) BulkResult {
	failures := make([]Failure, 0, len(req.Recipients))
	for _, r := range req.Recipients {
		failures = append(failures, Failure{Recipient: r.Address, Reason: reason.Error()})
	}
	return BulkResult{
		Success:     false,
		TotalFailed: len(req.Recipients),
		Failures:    failures,
		Message:     fmt.Sprintf("Bulk send aborted: %v", reason),
	}
}

// summarize aggregates per-recipient outcomes in input order.
func summarize(outcomes []Outcome) BulkResult {
	res := BulkResult{Failures: []Failure{}}
	for _, out := range outcomes {
		if out.Success {
			res.TotalSent++
		} else {
			res.TotalFailed++
			res.Failures = append(res.Failures, Failure{Recipient: out.Recipient, Reason: out.Error})
		}
	}
	res.Success = res.TotalFailed == 0
	res.Message = fmt.Sprintf("Bulk send completed: %d sent, %d failed", res.TotalSent, res.TotalFailed)
	return res
}

// Partition splits recipients into contiguous groups of size, the last
// group possibly smaller.
func Partition(recipients []email.Recipient, size int) [][]email.Recipient {
	if size < 1 {
		size = 1
	}
	var batches [][]email.Recipient
	for start := 0; start < len(recipients); start += size {
		end := start + size
		if end > len(recipients) {
			end = len(recipients)
		}
		batches = append(batches, recipients[start:end])
	}
	return batches
}

// sleepWithContext waits for the duration or until the context is
// cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
