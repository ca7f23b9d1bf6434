// Package provider defines enrichment knowledge sources and the adapters that
// turn LLM answers into company profiles.
package provider

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-engine/internal/model"
)

// ErrMalformedResponse is returned when a provider answers with something
// that is not a valid company profile.
var ErrMalformedResponse = eris.New("provider: malformed response")

// Identity is the contact payload sent to every provider.
type Identity struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Company string `json:"company"`
	Title   string `json:"title,omitempty"`
}

// IdentityFor builds the provider payload for a contact.
func IdentityFor(c model.Contact) Identity {
	return Identity{
		Name:    strings.TrimSpace(c.Name),
		Email:   strings.TrimSpace(c.Email),
		Company: strings.TrimSpace(c.Company),
		Title:   strings.TrimSpace(c.Title),
	}
}

// EmailDomain returns the host part of the identity's email, if any.
func (id Identity) EmailDomain() string {
	at := strings.LastIndexByte(id.Email, '@')
	if at < 0 || at == len(id.Email)-1 {
		return ""
	}
	return strings.ToLower(id.Email[at+1:])
}

// Result is one provider's answer.
type Result struct {
	Provider   string
	Company    model.EnrichedCompany
	Confidence float64
}

// Provider is an external knowledge source that enriches a contact's company.
type Provider interface {
	Name() string
	Enrich(ctx context.Context, id Identity) (*Result, error)
}
