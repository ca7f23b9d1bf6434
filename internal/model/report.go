package model

import "time"

// ReportRef records that a rendered report was produced for a contact
// against a persona. Reports themselves live outside this service.
type ReportRef struct {
	ID        string    `json:"id"`
	ContactID string    `json:"contactId"`
	PersonaID string    `json:"personaId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Qualification bundles everything computed for one contact.
type Qualification struct {
	Contact   Contact          `json:"contact"`
	Profile   *EnrichedCompany `json:"profile,omitempty"`
	Matches   []PersonaMatch   `json:"matches,omitempty"`
	BestMatch *PersonaMatch    `json:"bestMatch,omitempty"`
	MEDDIC    *MEDDICScore     `json:"meddic,omitempty"`
}
