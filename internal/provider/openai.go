package provider

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-engine/pkg/openai"
)

// OpenAI enriches through OpenAI chat completions in JSON mode.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI creates the openai provider.
func NewOpenAI(client openai.Client, model string) *OpenAI {
	return &OpenAI{client: client, model: model}
}

// Name implements Provider.
func (o *OpenAI) Name() string { return "openai" }

// Enrich implements Provider.
func (o *OpenAI) Enrich(ctx context.Context, id Identity) (*Result, error) {
	resp, err := o.client.CompleteJSON(ctx, openai.CompletionRequest{
		Model:        o.model,
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt(id),
		MaxTokens:    1024,
	})
	if err != nil {
		return nil, eris.Wrap(err, "openai: enrich")
	}
	return ParseProfile(o.Name(), resp.Content)
}
