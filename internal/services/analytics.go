package services

import (
	"context"
	"log/slog"
	"time"

	"outreachpass/internal/domain"
)

type analyticsRecorder struct {
	repo   domain.AnalyticsRepository
	logger *slog.Logger
}

// NewAnalyticsRecorder wraps an analytics repository in the fire-and-forget
// contract: insert failures are logged and swallowed so no pipeline stage
// ever fails because analytics is down.
func NewAnalyticsRecorder(repo domain.AnalyticsRepository, logger *slog.Logger) domain.AnalyticsRecorder {
	return &analyticsRecorder{repo: repo, logger: logger}
}

func (r *analyticsRecorder) Record(ctx context.Context, event *domain.AnalyticsEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if err := r.repo.Insert(ctx, event); err != nil {
		r.logger.Warn("failed to record analytics event",
			"event_name", event.EventName,
			"card_id", event.CardID,
			"error", err)
	}
}
