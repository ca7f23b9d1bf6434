// Package store persists contacts, enrichment profiles, personas and scores.
package store

import (
	"context"

	"github.com/sells-group/lead-engine/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = model.ErrNotFound

// ErrReferenced is returned when deleting a persona that matches or report
// refs still use.
var ErrReferenced = model.ErrReferenced

// ContactFilter specifies criteria for listing contacts.
type ContactFilter struct {
	EventID  string                   `json:"eventId,omitempty"`
	Statuses []model.EnrichmentStatus `json:"statuses,omitempty"`
	Limit    int                      `json:"limit,omitempty"`
	Offset   int                      `json:"offset,omitempty"`
}

// Store defines the persistence interface for the lead engine.
type Store interface {
	// Contacts
	CreateContact(ctx context.Context, c *model.Contact) error
	ImportContacts(ctx context.Context, contacts []model.Contact) (int, error)
	GetContact(ctx context.Context, id string) (*model.Contact, error)
	ListContacts(ctx context.Context, filter ContactFilter) ([]model.Contact, error)
	UpdateContactStatus(ctx context.Context, id string, status model.EnrichmentStatus, reason string) error

	// Enrichment profiles
	SaveProfile(ctx context.Context, contactID string, p *model.EnrichedCompany) error
	GetProfile(ctx context.Context, contactID string) (*model.EnrichedCompany, error)

	// Personas
	CreatePersona(ctx context.Context, p *model.Persona) error
	UpdatePersona(ctx context.Context, p *model.Persona) error
	GetPersona(ctx context.Context, id string) (*model.Persona, error)
	ListPersonas(ctx context.Context) ([]model.Persona, error)
	// DeletePersona removes a persona unless a match or report ref still
	// uses it, in which case it returns ErrReferenced.
	DeletePersona(ctx context.Context, id string) error
	CountPersonaReferences(ctx context.Context, id string) (int, error)

	// Scores
	ReplaceMatches(ctx context.Context, contactID string, matches []model.PersonaMatch) error
	ListMatches(ctx context.Context, contactID string) ([]model.PersonaMatch, error)
	SaveMEDDIC(ctx context.Context, s *model.MEDDICScore) error
	GetMEDDIC(ctx context.Context, contactID string) (*model.MEDDICScore, error)

	// Reports
	CreateReportRef(ctx context.Context, r *model.ReportRef) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
