package domain

import (
	"context"
	"time"
)

// Attendee represents an event attendee imported or registered by the admin
// surface. The pipeline only ever mutates CardID, once.
// swagger:model Attendee
type Attendee struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	EventID     string    `json:"event_id"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	FirstName   string    `json:"first_name,omitempty"`
	LastName    string    `json:"last_name,omitempty"`
	OrgName     string    `json:"org_name,omitempty"`
	Title       string    `json:"title,omitempty"`
	LinkedInURL string    `json:"linkedin_url,omitempty"`
	CardID      *string   `json:"card_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AttendeeRepository defines storage operations for attendees.
type AttendeeRepository interface {
	GetByID(ctx context.Context, id string) (*Attendee, error)
}
