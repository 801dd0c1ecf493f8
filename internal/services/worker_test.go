package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outreachpass/internal/domain"
)

type workerFixture struct {
	attendees *fakeAttendeeRepo
	events    *fakeEventRepo
	cards     *fakeCardRepo
	jobs      *fakeJobRepo
	passes    *fakeWalletPassRepo
	analytics *fakeAnalytics
	store     *fakeStore
	mailer    *fakeMailer
	renderer  *fakeRenderer
	contexts  *fakeContextStore
	worker    *PassWorker
}

func newWorkerFixture(t *testing.T, builders []domain.PassBuilder) *workerFixture {
	t.Helper()
	f := &workerFixture{
		attendees: newFakeAttendeeRepo(),
		events:    newFakeEventRepo(),
		jobs:      newFakeJobRepo(),
		passes:    newFakeWalletPassRepo(),
		analytics: &fakeAnalytics{},
		store:     newFakeStore(),
		mailer:    &fakeMailer{},
		renderer:  &fakeRenderer{},
		contexts:  newFakeContextStore(),
	}
	f.cards = newFakeCardRepo(f.attendees)

	logger := discardLogger()
	brands := NewBrandResolver(map[string]string{"OUTREACHPASS": "https://outreachpass.test"}, "OUTREACHPASS")
	issuer := NewCardIssuer(f.cards, &fakeQRRenderer{}, f.store, brands, f.analytics, logger)
	notifier := NewPassNotifier(f.mailer, f.renderer, f.contexts, f.store, f.analytics, "https://api.outreachpass.test", logger)
	f.worker = NewPassWorker(
		f.jobs, f.attendees, f.events, f.cards, f.passes,
		issuer, builders, notifier,
		10, time.Minute, logger,
	)
	return f
}

func (f *workerFixture) seedAttendee() *domain.Attendee {
	attendee := &domain.Attendee{
		ID:        "att-1",
		TenantID:  "tenant-1",
		EventID:   "ev-1",
		Email:     "ada@example.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
		OrgName:   "Analytical Engines",
		Title:     "Engineer",
	}
	f.attendees.byID[attendee.ID] = attendee
	f.events.events["ev-1"] = &domain.Event{
		ID:       "ev-1",
		TenantID: "tenant-1",
		Name:     "GopherCon 2026",
		StartsAt: time.Date(2026, 9, 14, 9, 0, 0, 0, time.UTC),
	}
	return attendee
}

func TestPassWorker_ProcessBatch_CompletesJob(t *testing.T) {
	ctx := context.Background()
	apple := &stubBuilder{platform: domain.PlatformApple, outcome: generatedOutcome(domain.PlatformApple)}
	google := &stubBuilder{platform: domain.PlatformGoogle, outcome: generatedOutcome(domain.PlatformGoogle)}
	f := newWorkerFixture(t, []domain.PassBuilder{apple, google})
	attendee := f.seedAttendee()

	job, err := f.worker.EnqueuePassGeneration(ctx, attendee.TenantID, attendee.ID)
	require.NoError(t, err)

	processed, err := f.worker.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	got, err := f.jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
	require.NotNil(t, got.CardID)
	assert.NotEmpty(t, got.QRURL)

	// Card issued and bound to the attendee.
	require.NotNil(t, attendee.CardID)
	assert.Equal(t, *got.CardID, *attendee.CardID)
	assert.Equal(t, 1, f.cards.created)

	// Both wallet passes persisted, email sent.
	assert.Len(t, f.passes.passes, 2)
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "ada@example.com", f.mailer.sent[0].to)

	assert.Contains(t, f.analytics.names(), domain.AnalyticsQRGenerated)
	assert.Contains(t, f.analytics.names(), domain.AnalyticsAppleWalletGenerated)
	assert.Contains(t, f.analytics.names(), domain.AnalyticsGoogleWalletGenerated)
	assert.Contains(t, f.analytics.names(), domain.AnalyticsEmailSent)
}

func TestPassWorker_ProcessBatch_IdempotentReplay(t *testing.T) {
	ctx := context.Background()
	apple := &stubBuilder{platform: domain.PlatformApple, outcome: generatedOutcome(domain.PlatformApple)}
	f := newWorkerFixture(t, []domain.PassBuilder{apple})
	attendee := f.seedAttendee()

	_, err := f.worker.EnqueuePassGeneration(ctx, attendee.TenantID, attendee.ID)
	require.NoError(t, err)
	_, err = f.worker.ProcessBatch(ctx)
	require.NoError(t, err)
	require.NotNil(t, attendee.CardID)
	firstCard := *attendee.CardID

	// A second job for the same attendee must complete against the
	// existing card without issuing, rebuilding, or re-emailing.
	replay, err := f.worker.EnqueuePassGeneration(ctx, attendee.TenantID, attendee.ID)
	require.NoError(t, err)
	_, err = f.worker.ProcessBatch(ctx)
	require.NoError(t, err)

	got, err := f.jobs.GetByID(ctx, replay.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
	require.NotNil(t, got.CardID)
	assert.Equal(t, firstCard, *got.CardID)

	assert.Equal(t, 1, f.cards.created)
	assert.Equal(t, 1, apple.calls)
	assert.Len(t, f.mailer.sent, 1)
}

func TestPassWorker_ProcessBatch_WalletFailureIsIsolated(t *testing.T) {
	ctx := context.Background()
	apple := &stubBuilder{platform: domain.PlatformApple, outcome: generatedOutcome(domain.PlatformApple)}
	google := &stubBuilder{platform: domain.PlatformGoogle, outcome: failedOutcome(domain.PlatformGoogle)}
	f := newWorkerFixture(t, []domain.PassBuilder{apple, google})
	attendee := f.seedAttendee()

	job, err := f.worker.EnqueuePassGeneration(ctx, attendee.TenantID, attendee.ID)
	require.NoError(t, err)
	_, err = f.worker.ProcessBatch(ctx)
	require.NoError(t, err)

	got, err := f.jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)

	// Only the apple pass exists, and the email still went out with it.
	assert.Len(t, f.passes.passes, 1)
	require.Len(t, f.mailer.sent, 1)
	require.Len(t, f.renderer.lastData.WalletButtons, 1)
	assert.Equal(t, domain.PlatformApple, f.renderer.lastData.WalletButtons[0].Platform)
}

func TestPassWorker_ProcessBatch_EmailFailureDoesNotFailJob(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t, nil)
	attendee := f.seedAttendee()
	f.mailer.err = assert.AnError

	job, err := f.worker.EnqueuePassGeneration(ctx, attendee.TenantID, attendee.ID)
	require.NoError(t, err)
	_, err = f.worker.ProcessBatch(ctx)
	require.NoError(t, err)

	got, err := f.jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
	assert.Contains(t, f.analytics.names(), domain.AnalyticsEmailFailed)
}

func TestPassWorker_ProcessBatch_RetriesUntilExhausted(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t, nil)
	attendee := f.seedAttendee()
	f.store.putErr = assert.AnError // QR upload failure is job-fatal

	job, err := f.worker.EnqueuePassGeneration(ctx, attendee.TenantID, attendee.ID)
	require.NoError(t, err)

	for i := 1; i < defaultMaxRetries; i++ {
		_, err = f.worker.ProcessBatch(ctx)
		require.NoError(t, err)
		got, err := f.jobs.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusPending, got.Status, "attempt %d should requeue", i)
		assert.Equal(t, i, got.RetryCount)
	}

	_, err = f.worker.ProcessBatch(ctx)
	require.NoError(t, err)
	got, err := f.jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, got.Status)
	assert.Equal(t, defaultMaxRetries, got.RetryCount)
	assert.NotEmpty(t, got.ErrorMessage)

	// Exhausted jobs stay failed; further batches find nothing.
	processed, err := f.worker.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, processed)
}

func TestPassWorker_ProcessBatch_MissingAttendeeFailsJob(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t, nil)

	job, err := f.worker.EnqueuePassGeneration(ctx, "tenant-1", "att-missing")
	require.NoError(t, err)
	_, err = f.worker.ProcessBatch(ctx)
	require.NoError(t, err)

	got, err := f.jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, got.Status)
	assert.Equal(t, 1, got.RetryCount)
	assert.Contains(t, got.ErrorMessage, "load attendee")
}

func TestPassWorker_EnqueuePassGeneration_RequiresAttendee(t *testing.T) {
	f := newWorkerFixture(t, nil)
	_, err := f.worker.EnqueuePassGeneration(context.Background(), "tenant-1", "")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}
