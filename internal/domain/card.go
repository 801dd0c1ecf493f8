package domain

import (
	"context"
	"time"
)

// Card is the contact-card artifact issued for an attendee. Event-issued
// cards have IsPersonal false and are immutable after creation except for
// future revisions.
// swagger:model Card
type Card struct {
	ID              string            `json:"id"`
	TenantID        string            `json:"tenant_id"`
	OwnerAttendeeID string            `json:"owner_attendee_id"`
	DisplayName     string            `json:"display_name"`
	Email           string            `json:"email,omitempty"`
	Phone           string            `json:"phone,omitempty"`
	OrgName         string            `json:"org_name,omitempty"`
	Title           string            `json:"title,omitempty"`
	Links           map[string]string `json:"links"`
	VCardRev        int               `json:"vcard_rev"`
	IsPersonal      bool              `json:"is_personal"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// QRCode is the rendered QR image for a card. 1:1 with Card, created in the
// same transaction.
type QRCode struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	EventID   string    `json:"event_id"`
	CardID    string    `json:"card_id"`
	URL       string    `json:"url"`
	S3KeyPNG  string    `json:"s3_key_png"`
	CreatedAt time.Time `json:"created_at"`
}

// CardRepository defines storage operations for cards and their QR codes.
type CardRepository interface {
	// CreateWithQRCode inserts the card and its QR code and sets the
	// owning attendee's card reference, all in one transaction. The
	// attendee update is guarded so a concurrent issuance returns
	// ErrCardAlreadyIssued instead of producing a second card.
	CreateWithQRCode(ctx context.Context, card *Card, qr *QRCode) error
	GetByID(ctx context.Context, id string) (*Card, error)
	GetQRCodeByCardID(ctx context.Context, cardID string) (*QRCode, error)
}
