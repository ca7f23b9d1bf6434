// Package model defines the data contracts shared by the enrichment and scoring engine.
package model

import "time"

// EnrichmentStatus is the lifecycle state of a contact record's enrichment.
type EnrichmentStatus string

const (
	EnrichmentPending   EnrichmentStatus = "PENDING"
	EnrichmentCompleted EnrichmentStatus = "COMPLETED"
	EnrichmentFailed    EnrichmentStatus = "FAILED"
)

// Contact is one scanned badge captured at an event.
type Contact struct {
	ID           string           `json:"id"`
	EventID      string           `json:"eventId"`
	Name         string           `json:"name"`
	Email        string           `json:"email,omitempty"`
	Company      string           `json:"company"`
	Title        string           `json:"title,omitempty"`
	Phone        string           `json:"phone,omitempty"`
	Status       EnrichmentStatus `json:"status"`
	StatusReason string           `json:"statusReason,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// Label returns a human-readable description of the contact for progress output.
func (c Contact) Label() string {
	switch {
	case c.Name != "" && c.Company != "":
		return c.Name + " @ " + c.Company
	case c.Company != "":
		return c.Company
	default:
		return c.Name
	}
}
