package services

import (
	"context"
	"errors"
	"log/slog"

	"outreachpass/internal/domain"
)

// TrackingService resolves inbound open and click callbacks against stored
// message contexts and records engagement analytics. An unknown message id
// is not an error: contexts expire and pixels get replayed by mail
// scanners, so both paths degrade to a no-op.
type TrackingService struct {
	contexts  domain.MessageContextStore
	analytics domain.AnalyticsRecorder
	logger    *slog.Logger
}

// NewTrackingService creates a TrackingService.
func NewTrackingService(contexts domain.MessageContextStore, analytics domain.AnalyticsRecorder, logger *slog.Logger) *TrackingService {
	return &TrackingService{contexts: contexts, analytics: analytics, logger: logger}
}

// RecordOpen attributes a tracking-pixel load to its email.
func (s *TrackingService) RecordOpen(ctx context.Context, messageID string) {
	mc, err := s.contexts.Get(ctx, messageID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("failed to load message context", "message_id", messageID, "error", err)
		}
		return
	}
	s.analytics.Record(ctx, &domain.AnalyticsEvent{
		EventName:  domain.AnalyticsEmailOpened,
		Category:   domain.AnalyticsCategoryEngagement,
		TenantID:   mc.TenantID,
		EventID:    mc.EventID,
		CardID:     mc.CardID,
		AttendeeID: mc.AttendeeID,
		Properties: map[string]any{"message_id": messageID},
	})
}

// RecordClick attributes a tracked-link click to its email. The redirect
// itself happens in the handler regardless of whether attribution succeeds.
func (s *TrackingService) RecordClick(ctx context.Context, messageID, target, userAgent string, linkType domain.LinkType) {
	mc, err := s.contexts.Get(ctx, messageID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("failed to load message context", "message_id", messageID, "error", err)
		}
		return
	}
	props := map[string]any{
		"message_id": messageID,
		"url":        target,
		"link_type":  string(linkType),
	}
	if userAgent != "" {
		props["user_agent"] = userAgent
	}
	s.analytics.Record(ctx, &domain.AnalyticsEvent{
		EventName:  domain.AnalyticsEmailClicked,
		Category:   domain.AnalyticsCategoryEngagement,
		TenantID:   mc.TenantID,
		EventID:    mc.EventID,
		CardID:     mc.CardID,
		AttendeeID: mc.AttendeeID,
		Properties: props,
	})
}
