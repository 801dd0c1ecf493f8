package domain

import (
	"context"
	"time"
)

// PassPlatform identifies a mobile-wallet platform.
type PassPlatform string

const (
	PlatformApple  PassPlatform = "apple"
	PlatformGoogle PassPlatform = "google"
)

// WalletPass is a platform-specific wallet artifact for a card. At most one
// exists per (card, platform).
type WalletPass struct {
	ID        string       `json:"id"`
	CardID    string       `json:"card_id"`
	EventID   string       `json:"event_id,omitempty"`
	Platform  PassPlatform `json:"platform"`
	// Locator is the public URL a user follows to obtain the pass: a
	// stable download URL for Apple, a signed save link for Google.
	Locator   string    `json:"locator"`
	S3Key     string    `json:"s3_key,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PassOutcomeStatus classifies the result of one platform's builder so the
// orchestrator's stage-isolation logic is written once, not per platform.
type PassOutcomeStatus int

const (
	// PassGenerated means the platform produced a usable locator.
	PassGenerated PassOutcomeStatus = iota
	// PassSkipped means the platform is not configured; this is feature
	// absence, not an error.
	PassSkipped
	// PassFailed means the platform errored; the pipeline continues.
	PassFailed
)

// PassOutcome is the uniform result of a wallet platform builder.
type PassOutcome struct {
	Platform PassPlatform
	Status   PassOutcomeStatus
	Pass     *WalletPass
	Err      error
}

// PassBuilder is one wallet platform in the closed platform set. Builders
// never panic the pipeline: configuration absence yields a Skipped outcome
// and any failure yields a Failed outcome.
type PassBuilder interface {
	Platform() PassPlatform
	Build(ctx context.Context, card *Card, attendee *Attendee, event *Event, brand *Brand, cardURL string) PassOutcome
}

// WalletPassRepository defines storage operations for wallet passes.
type WalletPassRepository interface {
	// Upsert inserts the pass or refreshes the existing (card, platform)
	// row, so job replays never duplicate passes.
	Upsert(ctx context.Context, pass *WalletPass) error
	ListByCardID(ctx context.Context, cardID string) ([]*WalletPass, error)
}
