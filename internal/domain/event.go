package domain

import (
	"context"
	"time"
)

// Event represents the conference event an attendee belongs to.
// swagger:model Event
type Event struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	BrandID   *string   `json:"brand_id,omitempty"`
	Name      string    `json:"name"`
	StartsAt  time.Time `json:"starts_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Brand resolves the public domain and display identity for an event's
// passes. Events without a brand fall back to the default brand key.
type Brand struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	BrandKey    string    `json:"brand_key"`
	DisplayName string    `json:"display_name"`
	Domain      string    `json:"domain"`
	CreatedAt   time.Time `json:"created_at"`
}

// EventRepository defines storage operations for events and brands.
type EventRepository interface {
	GetByID(ctx context.Context, id string) (*Event, error)
	GetBrandByID(ctx context.Context, id string) (*Brand, error)
}
