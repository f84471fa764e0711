// Package anthropic adapts the Anthropic Messages API to the classifier's
// Completer interface.
package anthropic

import (
	"context"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/teranos/htsmatch/errors"
	"github.com/teranos/htsmatch/hts"
	"github.com/teranos/htsmatch/internal/httpclient"
	"github.com/teranos/htsmatch/logger"
)

// DefaultBaseURL is the public Anthropic API endpoint.
const DefaultBaseURL = "https://api.anthropic.com"

// Config holds Anthropic client configuration
type Config struct {
	APIKey  string
	BaseURL string // empty = DefaultBaseURL
	Model   string
	Timeout time.Duration
}

// Client sends single-turn prompts to one model.
type Client struct {
	client sdk.Client
	model  string
	logger *zap.SugaredLogger
}

var _ hts.Completer = (*Client)(nil)

// New creates a client. SDK retries are disabled: a failed call becomes a
// fallback classification rather than being repeated.
func New(cfg Config, log *zap.SugaredLogger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewConfigError("anthropic api key is required")
	}
	if cfg.Model == "" {
		return nil, errors.NewConfigError("anthropic model is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient, err := httpclient.New(baseURL, httpclient.Options{Timeout: cfg.Timeout})
	if err != nil {
		return nil, errors.Wrap(err, "anthropic http client")
	}

	return &Client{
		client: sdk.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(baseURL),
			option.WithHTTPClient(httpClient),
			option.WithMaxRetries(0),
		),
		model:  cfg.Model,
		logger: logger.OrNop(log),
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Complete sends req as a single user message and concatenates the text
// blocks of the reply.
func (c *Client) Complete(ctx context.Context, req hts.CompletionRequest) (*hts.Completion, error) {
	start := time.Now()
	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:       sdk.Model(c.model),
		MaxTokens:   int64(req.MaxTokens),
		Temperature: sdk.Float(req.Temperature),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			return nil, errors.Wrapf(err, "anthropic messages (status %d)", apiErr.StatusCode)
		}
		return nil, errors.Wrap(err, "anthropic messages")
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	c.logger.Debugw("Message completed",
		logger.FieldModel, string(msg.Model),
		"input_tokens", msg.Usage.InputTokens,
		"output_tokens", msg.Usage.OutputTokens,
		"stop_reason", string(msg.StopReason),
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	)

	model := string(msg.Model)
	if model == "" {
		model = c.model
	}
	return &hts.Completion{
		Text:         text.String(),
		Model:        model,
		InputTokens:  msg.Usage.InputTokens,
		OutputTokens: msg.Usage.OutputTokens,
	}, nil
}
