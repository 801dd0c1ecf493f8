package domain

import (
	"context"
	"time"
)

// Analytics event names emitted by the pipeline.
const (
	AnalyticsQRGenerated           = "qr_generated"
	AnalyticsAppleWalletGenerated  = "apple_wallet_generated"
	AnalyticsGoogleWalletGenerated = "google_wallet_generated"
	AnalyticsEmailSent             = "email_sent"
	AnalyticsEmailFailed           = "email_failed"
	AnalyticsEmailOpened           = "email_opened"
	AnalyticsEmailClicked          = "email_clicked"
)

// Analytics event categories.
const (
	AnalyticsCategoryDelivery   = "delivery"
	AnalyticsCategoryEngagement = "engagement"
	AnalyticsCategoryError      = "error"
)

// AnalyticsEvent is an append-only, schema-light record. The pipeline only
// ever writes these; reporting reads them elsewhere.
type AnalyticsEvent struct {
	EventName  string         `json:"event_name"`
	Category   string         `json:"category"`
	TenantID   string         `json:"tenant_id"`
	EventID    string         `json:"event_id,omitempty"`
	CardID     string         `json:"card_id,omitempty"`
	AttendeeID string         `json:"attendee_id,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// AnalyticsRepository appends analytics events.
type AnalyticsRepository interface {
	Insert(ctx context.Context, event *AnalyticsEvent) error
}

// AnalyticsRecorder is the fire-and-forget sink used by every pipeline
// stage. Implementations swallow and log failures; Record never returns an
// error and never blocks the calling stage on anything but the insert
// itself.
type AnalyticsRecorder interface {
	Record(ctx context.Context, event *AnalyticsEvent)
}
