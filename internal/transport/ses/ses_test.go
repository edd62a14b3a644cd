package ses

import (
	"context"
	"errors"
	"testing"

	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/mqln/mcp-server-smtp/internal/email"
	"github.com/mqln/mcp-server-smtp/internal/relay"
)

// mockClient captures the SendEmail input and returns a scripted error.
type mockClient struct {
	input *sesv2.SendEmailInput
	err   error
}

func (m *mockClient) SendEmail(_ context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	m.input = params
	if m.err != nil {
		return nil, m.err
	}
	return &sesv2.SendEmailOutput{}, nil
}

func testEnvelope() *email.Envelope {
	return &email.Envelope{
		From:     "sender@example.com",
		To:       []string{"alice@example.com"},
		Cc:       []string{"carol@example.com"},
		Bcc:      []string{"dave@example.com"},
		Subject:  "Hello",
		TextBody: "Plain text",
		HTMLBody: "<p>HTML</p>",
	}
}

func TestSend_BuildsSimpleInput(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	tr := NewWithClient(client)

	cfg := relay.Config{ID: "ses-main", Kind: relay.KindSES, Region: "eu-west-1"}
	if err := tr.Send(context.Background(), cfg, testEnvelope()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	input := client.input
	if input == nil {
		t.Fatal("SendEmail was not called")
	}
	if got := *input.FromEmailAddress; got != "sender@example.com" {
		t.Errorf("FromEmailAddress: got %q", got)
	}
	if len(input.Destination.ToAddresses) != 1 || input.Destination.ToAddresses[0] != "alice@example.com" {
		t.Errorf("ToAddresses: got %v", input.Destination.ToAddresses)
	}
	if len(input.Destination.CcAddresses) != 1 || len(input.Destination.BccAddresses) != 1 {
		t.Errorf("Cc/Bcc: got %v / %v", input.Destination.CcAddresses, input.Destination.BccAddresses)
	}
	if got := *input.Content.Simple.Subject.Data; got != "Hello" {
		t.Errorf("Subject: got %q", got)
	}
	if got := *input.Content.Simple.Body.Text.Data; got != "Plain text" {
		t.Errorf("Text body: got %q", got)
	}
	if got := *input.Content.Simple.Body.Html.Data; got != "<p>HTML</p>" {
		t.Errorf("Html body: got %q", got)
	}
}

func TestSend_PropagatesAPIError(t *testing.T) {
	t.Parallel()

	apiErr := errors.New("throttled")
	tr := NewWithClient(&mockClient{err: apiErr})

	cfg := relay.Config{ID: "ses-main", Kind: relay.KindSES, Region: "eu-west-1"}
	err := tr.Send(context.Background(), cfg, testEnvelope())
	if !errors.Is(err, apiErr) {
		t.Fatalf("expected wrapped API error, got %v", err)
	}
}

func TestClientCachedPerRelay(t *testing.T) {
	t.Parallel()

	calls := 0
	tr := New()
	tr.newClient = func(context.Context, relay.Config) (SendEmailAPI, error) {
		calls++
		return &mockClient{}, nil
	}

	cfg := relay.Config{ID: "ses-main", Kind: relay.KindSES, Region: "eu-west-1"}
	for i := 0; i < 3; i++ {
		if err := tr.Send(context.Background(), cfg, testEnvelope()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("client built %d times, want 1", calls)
	}
}

func TestName(t *testing.T) {
	t.Parallel()

	if got := New().Name(); got != relay.KindSES {
		t.Errorf("Name: got %q, want %q", got, relay.KindSES)
	}
}
