// Package openai wraps go-openai chat completions for company enrichment.
package openai

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/sells-group/lead-engine/internal/resilience"
)

const defaultModel = "gpt-4o-mini"

// Client performs JSON-mode chat completions.
type Client interface {
	CompleteJSON(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// CompletionRequest is a system plus user prompt pair.
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int
}

// CompletionResponse carries the first choice's content.
type CompletionResponse struct {
	Content string
	Model   string
	Usage   Usage
}

// Usage reports token consumption.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// Option configures the client.
type Option func(*options)

type options struct {
	baseURL string
	model   string
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithModel overrides the default model. Empty keeps the default.
func WithModel(model string) Option {
	return func(o *options) {
		if model != "" {
			o.model = model
		}
	}
}

type client struct {
	api   *goopenai.Client
	model string
}

// NewClient creates a client for apiKey.
func NewClient(apiKey string, opts ...Option) Client {
	o := options{model: defaultModel}
	for _, fn := range opts {
		fn(&o)
	}
	cfg := goopenai.DefaultConfig(apiKey)
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}
	return &client{api: goopenai.NewClientWithConfig(cfg), model: o.model}
}

func (c *client) CompleteJSON(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("openai: response has no choices")
	}

	return &CompletionResponse{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

func classify(err error) error {
	wrapped := eris.Wrap(err, "openai: create chat completion")

	status := 0
	var apiErr *goopenai.APIError
	var reqErr *goopenai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if resilience.IsTransientHTTPStatus(status) {
		return resilience.NewTransientError(wrapped, status)
	}
	return wrapped
}
