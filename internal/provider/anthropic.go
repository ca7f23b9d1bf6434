package provider

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-engine/pkg/anthropic"
)

// Anthropic enriches through the Claude Messages API.
type Anthropic struct {
	client anthropic.Client
	model  string
}

// NewAnthropic creates the anthropic provider.
func NewAnthropic(client anthropic.Client, model string) *Anthropic {
	return &Anthropic{client: client, model: model}
}

// Name implements Provider.
func (a *Anthropic) Name() string { return "anthropic" }

// Enrich implements Provider.
func (a *Anthropic) Enrich(ctx context.Context, id Identity) (*Result, error) {
	temp := 0.0
	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       a.model,
		MaxTokens:   1024,
		System:      []anthropic.SystemBlock{{Text: systemPrompt, Cached: true}},
		Messages:    []anthropic.Message{{Role: "user", Content: userPrompt(id)}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: enrich")
	}
	return ParseProfile(a.Name(), resp.Text())
}
