package provider

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-engine/pkg/perplexity"
)

// Perplexity enriches through Perplexity's search-backed chat completions.
type Perplexity struct {
	client perplexity.Client
	model  string
}

// NewPerplexity creates the perplexity provider.
func NewPerplexity(client perplexity.Client, model string) *Perplexity {
	return &Perplexity{client: client, model: model}
}

// Name implements Provider.
func (p *Perplexity) Name() string { return "perplexity" }

// Enrich implements Provider.
func (p *Perplexity) Enrich(ctx context.Context, id Identity) (*Result, error) {
	temp := 0.1
	resp, err := p.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Model: p.model,
		Messages: []perplexity.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(id)},
		},
		Temperature:    &temp,
		ResponseFormat: perplexity.SchemaFormat([]byte(profileSchema)),
	})
	if errors.Is(err, perplexity.ErrEmptyAnswer) {
		return nil, eris.Wrapf(ErrMalformedResponse, "%s: %v", p.Name(), err)
	}
	if err != nil {
		return nil, eris.Wrap(err, "perplexity: enrich")
	}
	return ParseProfile(p.Name(), resp.Content())
}
