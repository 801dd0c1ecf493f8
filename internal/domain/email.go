package domain

import (
	"context"
	"time"
)

// Mailer defines the contract for sending emails (infrastructure port).
// It returns the provider-assigned message identifier on success.
type Mailer interface {
	Send(ctx context.Context, to, subject, html, text string) (messageID string, err error)
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// WalletButton is one wallet save/download button in the pass email.
type WalletButton struct {
	Platform PassPlatform
	URL      string
}

// PassEmailData holds data for the pass-issued email template.
type PassEmailData struct {
	DisplayName   string
	EventName     string
	CardURL       string
	QRImageURL    string
	VCardURL      string
	WalletButtons []WalletButton
	PixelURL      string
}

// MessageContext correlates an outbound email's message identifier with the
// subject ids needed to attribute later opens and clicks. Losing one
// degrades attribution only, never pipeline correctness.
type MessageContext struct {
	MessageID  string
	CardID     string
	TenantID   string
	EventID    string
	AttendeeID string
	Recipient  string
	SentAt     time.Time
}

// MessageContextStore is the keyed store shared by the notifier (writes)
// and the inbound tracking callbacks (reads). The default in-memory
// implementation is process-local; multi-instance deployments must bind a
// shared implementation or accept silent attribution loss.
type MessageContextStore interface {
	Put(ctx context.Context, mc *MessageContext) error
	Get(ctx context.Context, messageID string) (*MessageContext, error)
}

// LinkType classifies a tracked link in an outbound email.
type LinkType string

const (
	LinkTypeCard   LinkType = "card"
	LinkTypeVCard  LinkType = "vcard"
	LinkTypeWallet LinkType = "wallet"
)
