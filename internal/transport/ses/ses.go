// Package ses implements a Transport that delivers mail via AWS SES v2.
package ses

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/mqln/mcp-server-smtp/internal/email"
	"github.com/mqln/mcp-server-smtp/internal/relay"
)

// SendEmailAPI is the interface for the SES v2 SendEmail operation.
// Used for testing with mock implementations.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Transport delivers envelopes via the AWS SES v2 API. Clients are
// built per relay config on first use and cached for the process
// lifetime, since relay configs are immutable after load.
type Transport struct {
	mu      sync.Mutex
	clients map[string]SendEmailAPI

	// newClient builds the SES client for a relay. Replaceable in tests.
	newClient func(ctx context.Context, cfg relay.Config) (SendEmailAPI, error)
}

// New creates a new SES Transport.
func New() *Transport {
	return &Transport{
		clients:   make(map[string]SendEmailAPI),
		newClient: newClient,
	}
}

// NewWithClient creates a Transport that uses the given client for every
// relay, used for testing.
func NewWithClient(client SendEmailAPI) *Transport {
	return &Transport{
		clients: make(map[string]SendEmailAPI),
		newClient: func(context.Context, relay.Config) (SendEmailAPI, error) {
			return client, nil
		},
	}
}

func newClient(ctx context.Context, cfg relay.Config) (SendEmailAPI, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.Username, cfg.Password, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return sesv2.NewFromConfig(awsCfg), nil
}

func (t *Transport) client(ctx context.Context, cfg relay.Config) (SendEmailAPI, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.clients[cfg.ID]; ok {
		return c, nil
	}
	c, err := t.newClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	t.clients[cfg.ID] = c
	return c, nil
}

// Send performs exactly one delivery attempt via SES.
func (t *Transport) Send(ctx context.Context, cfg relay.Config, env *email.Envelope) error {
	client, err := t.client(ctx, cfg)
	if err != nil {
		return err
	}

	_, err = client.SendEmail(ctx, buildInput(env))
	if err != nil {
		return fmt.Errorf("SES API request failed: %w", err)
	}
	return nil
}

// Name returns the relay kind this transport serves.
func (t *Transport) Name() string {
	return relay.KindSES
}

// buildInput creates a SES SendEmailInput from a resolved envelope.
func buildInput(env *email.Envelope) *sesv2.SendEmailInput {
	body := &types.Body{}

	if env.HTMLBody != "" {
		body.Html = &types.Content{
			Data:    aws.String(env.HTMLBody),
			Charset: aws.String("UTF-8"),
		}
	}
	if env.TextBody != "" {
		body.Text = &types.Content{
			Data:    aws.String(env.TextBody),
			Charset: aws.String("UTF-8"),
		}
	}

	return &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(env.From),
		Destination: &types.Destination{
			ToAddresses:  env.To,
			CcAddresses:  env.Cc,
			BccAddresses: env.Bcc,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(env.Subject),
					Charset: aws.String("UTF-8"),
				},
				Body: body,
			},
		},
	}
}
