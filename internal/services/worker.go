package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"outreachpass/internal/domain"
)

const defaultMaxRetries = 3

// PassWorker drives pass generation jobs through the pipeline: card and QR
// issuance, wallet pass builds, and the notification email. Only issuance
// failures fail the job; wallet platforms and email are stage-isolated so a
// broken integration never blocks an attendee's card.
type PassWorker struct {
	jobs         domain.JobRepository
	attendees    domain.AttendeeRepository
	events       domain.EventRepository
	cards        domain.CardRepository
	walletPasses domain.WalletPassRepository
	issuer       *CardIssuer
	builders     []domain.PassBuilder
	notifier     *PassNotifier
	batchSize    int
	lease        time.Duration
	logger       *slog.Logger
}

// NewPassWorker creates a PassWorker. The builder order is the order wallet
// buttons appear in the email.
func NewPassWorker(
	jobs domain.JobRepository,
	attendees domain.AttendeeRepository,
	events domain.EventRepository,
	cards domain.CardRepository,
	walletPasses domain.WalletPassRepository,
	issuer *CardIssuer,
	builders []domain.PassBuilder,
	notifier *PassNotifier,
	batchSize int,
	lease time.Duration,
	logger *slog.Logger,
) *PassWorker {
	if batchSize <= 0 {
		batchSize = 20
	}
	return &PassWorker{
		jobs:         jobs,
		attendees:    attendees,
		events:       events,
		cards:        cards,
		walletPasses: walletPasses,
		issuer:       issuer,
		builders:     builders,
		notifier:     notifier,
		batchSize:    batchSize,
		lease:        lease,
		logger:       logger,
	}
}

// EnqueuePassGeneration creates a pending job for the attendee and returns
// it. Enqueueing is cheap and unconditional; the idempotency gate runs when
// the job is processed.
func (w *PassWorker) EnqueuePassGeneration(ctx context.Context, tenantID, attendeeID string) (*domain.PassGenerationJob, error) {
	if attendeeID == "" {
		return nil, fmt.Errorf("%w: attendee id is required", domain.ErrInvalidInput)
	}
	job := &domain.PassGenerationJob{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		AttendeeID: attendeeID,
		Status:     domain.JobStatusPending,
		MaxRetries: defaultMaxRetries,
		CreatedAt:  time.Now().UTC(),
	}
	if err := w.jobs.Enqueue(ctx, job); err != nil {
		return nil, fmt.Errorf("enqueue pass generation job: %w", err)
	}
	return job, nil
}

// Run polls for work until ctx is cancelled.
func (w *PassWorker) Run(ctx context.Context, pollInterval time.Duration) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if _, err := w.ProcessBatch(ctx); err != nil {
			w.logger.Error("pass worker batch failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ProcessBatch releases stale leases, claims a batch of pending jobs, and
// processes each to a terminal or retryable state. It returns the number of
// jobs claimed.
func (w *PassWorker) ProcessBatch(ctx context.Context) (int, error) {
	if w.lease > 0 {
		released, err := w.jobs.ReleaseStale(ctx, w.lease)
		if err != nil {
			w.logger.Warn("failed to release stale jobs", "error", err)
		} else if released > 0 {
			w.logger.Info("released stale jobs back to pending", "count", released)
		}
	}

	batch, err := w.jobs.DequeuePending(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("dequeue pending jobs: %w", err)
	}
	for _, job := range batch {
		w.processJob(ctx, job)
	}
	return len(batch), nil
}

func (w *PassWorker) processJob(ctx context.Context, job *domain.PassGenerationJob) {
	logger := w.logger.With("job_id", job.ID, "attendee_id", job.AttendeeID)

	attendee, err := w.attendees.GetByID(ctx, job.AttendeeID)
	if err != nil {
		w.failJob(ctx, job, fmt.Errorf("load attendee: %w", err))
		return
	}
	event, err := w.events.GetByID(ctx, attendee.EventID)
	if err != nil {
		w.failJob(ctx, job, fmt.Errorf("load event: %w", err))
		return
	}
	brand := w.loadBrand(ctx, event, logger)

	// Idempotency gate: an attendee with a card means a previous attempt
	// got through issuance. Complete without side effects rather than
	// re-sending email or rebuilding passes.
	if attendee.CardID != nil {
		w.completeExisting(ctx, job, *attendee.CardID, logger)
		return
	}

	issued, err := w.issuer.Issue(ctx, attendee, event, brand)
	if errors.Is(err, domain.ErrCardAlreadyIssued) {
		// Lost a race with a concurrent worker; the attendee has a card
		// now, so converge on it.
		fresh, ferr := w.attendees.GetByID(ctx, job.AttendeeID)
		if ferr != nil || fresh.CardID == nil {
			w.failJob(ctx, job, fmt.Errorf("reload attendee after issuance race: %w", ferr))
			return
		}
		w.completeExisting(ctx, job, *fresh.CardID, logger)
		return
	}
	if err != nil {
		w.failJob(ctx, job, err)
		return
	}

	var passes []*domain.WalletPass
	for _, builder := range w.builders {
		outcome := builder.Build(ctx, issued.Card, attendee, event, brand, issued.CardURL)
		switch outcome.Status {
		case domain.PassGenerated:
			if err := w.walletPasses.Upsert(ctx, outcome.Pass); err != nil {
				logger.Warn("failed to persist wallet pass", "platform", outcome.Platform, "error", err)
			}
			w.issuer.analytics.Record(ctx, &domain.AnalyticsEvent{
				EventName:  walletAnalyticsEvent(outcome.Platform),
				Category:   domain.AnalyticsCategoryDelivery,
				TenantID:   attendee.TenantID,
				EventID:    attendee.EventID,
				CardID:     issued.Card.ID,
				AttendeeID: attendee.ID,
			})
			passes = append(passes, outcome.Pass)
		case domain.PassSkipped:
			logger.Debug("wallet platform not configured", "platform", outcome.Platform)
		case domain.PassFailed:
			logger.Warn("wallet pass generation failed", "platform", outcome.Platform, "error", outcome.Err)
		}
	}

	if err := w.notifier.SendPassEmail(ctx, attendee, event, issued.Card, issued.QR, issued.CardURL, passes); err != nil {
		logger.Warn("pass notification email failed", "error", err)
	}

	if err := w.jobs.MarkCompleted(ctx, job.ID, issued.Card.ID, issued.QR.URL); err != nil {
		logger.Error("failed to mark job completed", "error", err)
		return
	}
	logger.Info("pass generation job completed", "card_id", issued.Card.ID)
}

// completeExisting closes the job against an already-issued card.
func (w *PassWorker) completeExisting(ctx context.Context, job *domain.PassGenerationJob, cardID string, logger *slog.Logger) {
	qrURL := ""
	if qr, err := w.cards.GetQRCodeByCardID(ctx, cardID); err == nil {
		qrURL = qr.URL
	} else if !errors.Is(err, domain.ErrNotFound) {
		logger.Warn("failed to load qr code for issued card", "card_id", cardID, "error", err)
	}
	if err := w.jobs.MarkCompleted(ctx, job.ID, cardID, qrURL); err != nil {
		logger.Error("failed to mark job completed", "error", err)
		return
	}
	logger.Info("attendee already has a card, job completed", "card_id", cardID)
}

// failJob records the failure, which either requeues the job or fails it
// permanently once retries are exhausted.
func (w *PassWorker) failJob(ctx context.Context, job *domain.PassGenerationJob, cause error) {
	updated, err := w.jobs.RecordFailure(ctx, job.ID, cause.Error())
	if err != nil {
		w.logger.Error("failed to record job failure", "job_id", job.ID, "error", err)
		return
	}
	w.logger.Warn("pass generation job attempt failed",
		"job_id", job.ID,
		"status", updated.Status,
		"retry_count", updated.RetryCount,
		"error", cause)
}

// loadBrand resolves the event's brand; brand problems never fail a job,
// the default brand covers for them.
func (w *PassWorker) loadBrand(ctx context.Context, event *domain.Event, logger *slog.Logger) *domain.Brand {
	if event.BrandID == nil {
		return nil
	}
	brand, err := w.events.GetBrandByID(ctx, *event.BrandID)
	if err != nil {
		logger.Warn("failed to load event brand, using default", "brand_id", *event.BrandID, "error", err)
		return nil
	}
	return brand
}

func walletAnalyticsEvent(platform domain.PassPlatform) string {
	if platform == domain.PlatformGoogle {
		return domain.AnalyticsGoogleWalletGenerated
	}
	return domain.AnalyticsAppleWalletGenerated
}
