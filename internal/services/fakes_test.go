package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"outreachpass/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAttendeeRepo is an in-memory AttendeeRepository for tests.
type fakeAttendeeRepo struct {
	byID map[string]*domain.Attendee
}

func newFakeAttendeeRepo() *fakeAttendeeRepo {
	return &fakeAttendeeRepo{byID: make(map[string]*domain.Attendee)}
}

func (f *fakeAttendeeRepo) GetByID(ctx context.Context, id string) (*domain.Attendee, error) {
	if a, ok := f.byID[id]; ok {
		return a, nil
	}
	return nil, domain.ErrNotFound
}

// fakeEventRepo is an in-memory EventRepository for tests.
type fakeEventRepo struct {
	events map[string]*domain.Event
	brands map[string]*domain.Brand
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{
		events: make(map[string]*domain.Event),
		brands: make(map[string]*domain.Brand),
	}
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if e, ok := f.events[id]; ok {
		return e, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEventRepo) GetBrandByID(ctx context.Context, id string) (*domain.Brand, error) {
	if b, ok := f.brands[id]; ok {
		return b, nil
	}
	return nil, domain.ErrNotFound
}

// fakeCardRepo is an in-memory CardRepository. Setting alreadyIssued makes
// CreateWithQRCode report the idempotency conflict; setting err fails it.
type fakeCardRepo struct {
	cards         map[string]*domain.Card
	qrByCard      map[string]*domain.QRCode
	attendees     *fakeAttendeeRepo
	alreadyIssued bool
	err           error
	created       int
}

func newFakeCardRepo(attendees *fakeAttendeeRepo) *fakeCardRepo {
	return &fakeCardRepo{
		cards:     make(map[string]*domain.Card),
		qrByCard:  make(map[string]*domain.QRCode),
		attendees: attendees,
	}
}

func (f *fakeCardRepo) CreateWithQRCode(ctx context.Context, card *domain.Card, qr *domain.QRCode) error {
	if f.err != nil {
		return f.err
	}
	if f.alreadyIssued {
		return domain.ErrCardAlreadyIssued
	}
	f.created++
	f.cards[card.ID] = card
	qr.ID = fmt.Sprintf("qr-%d", f.created)
	f.qrByCard[card.ID] = qr
	if f.attendees != nil {
		if a, ok := f.attendees.byID[card.OwnerAttendeeID]; ok {
			id := card.ID
			a.CardID = &id
		}
	}
	return nil
}

func (f *fakeCardRepo) GetByID(ctx context.Context, id string) (*domain.Card, error) {
	if c, ok := f.cards[id]; ok {
		return c, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeCardRepo) GetQRCodeByCardID(ctx context.Context, cardID string) (*domain.QRCode, error) {
	if qr, ok := f.qrByCard[cardID]; ok {
		return qr, nil
	}
	return nil, domain.ErrNotFound
}

// fakeJobRepo mirrors the Postgres job repository's state machine in
// memory, including the retry-exhaustion transition.
type fakeJobRepo struct {
	byID  map[string]*domain.PassGenerationJob
	order []string
	seq   int
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{byID: make(map[string]*domain.PassGenerationJob)}
}

func (f *fakeJobRepo) Enqueue(ctx context.Context, job *domain.PassGenerationJob) error {
	f.seq++
	if job.ID == "" {
		job.ID = fmt.Sprintf("job-%d", f.seq)
	}
	f.byID[job.ID] = job
	f.order = append(f.order, job.ID)
	return nil
}

func (f *fakeJobRepo) GetByID(ctx context.Context, id string) (*domain.PassGenerationJob, error) {
	if j, ok := f.byID[id]; ok {
		return j, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeJobRepo) DequeuePending(ctx context.Context, limit int) ([]*domain.PassGenerationJob, error) {
	var out []*domain.PassGenerationJob
	for _, id := range f.order {
		if len(out) >= limit {
			break
		}
		j := f.byID[id]
		if j.Status != domain.JobStatusPending {
			continue
		}
		now := time.Now()
		j.Status = domain.JobStatusProcessing
		j.StartedAt = &now
		out = append(out, j)
	}
	return out, nil
}

func (f *fakeJobRepo) MarkCompleted(ctx context.Context, jobID, cardID, qrURL string) error {
	j, ok := f.byID[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now()
	j.Status = domain.JobStatusCompleted
	j.CardID = &cardID
	j.QRURL = qrURL
	j.ErrorMessage = ""
	j.CompletedAt = &now
	return nil
}

func (f *fakeJobRepo) RecordFailure(ctx context.Context, jobID, errorMessage string) (*domain.PassGenerationJob, error) {
	j, ok := f.byID[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	j.RetryCount++
	j.ErrorMessage = errorMessage
	if j.RetryCount >= j.MaxRetries {
		now := time.Now()
		j.Status = domain.JobStatusFailed
		j.CompletedAt = &now
	} else {
		j.Status = domain.JobStatusPending
		j.StartedAt = nil
	}
	return j, nil
}

func (f *fakeJobRepo) ReleaseStale(ctx context.Context, lease time.Duration) (int64, error) {
	return 0, nil
}

// fakeWalletPassRepo records upserts keyed by (card, platform).
type fakeWalletPassRepo struct {
	passes map[string]*domain.WalletPass
	err    error
}

func newFakeWalletPassRepo() *fakeWalletPassRepo {
	return &fakeWalletPassRepo{passes: make(map[string]*domain.WalletPass)}
}

func (f *fakeWalletPassRepo) Upsert(ctx context.Context, pass *domain.WalletPass) error {
	if f.err != nil {
		return f.err
	}
	f.passes[pass.CardID+"/"+string(pass.Platform)] = pass
	return nil
}

func (f *fakeWalletPassRepo) ListByCardID(ctx context.Context, cardID string) ([]*domain.WalletPass, error) {
	var out []*domain.WalletPass
	for _, p := range f.passes {
		if p.CardID == cardID {
			out = append(out, p)
		}
	}
	return out, nil
}

// fakeAnalytics collects recorded events.
type fakeAnalytics struct {
	events []*domain.AnalyticsEvent
}

func (f *fakeAnalytics) Record(ctx context.Context, event *domain.AnalyticsEvent) {
	f.events = append(f.events, event)
}

func (f *fakeAnalytics) names() []string {
	var out []string
	for _, e := range f.events {
		out = append(out, e.EventName)
	}
	return out
}

// fakeStore is an in-memory ArtifactStore.
type fakeStore struct {
	objects    map[string][]byte
	putErr     error
	presignErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.objects[key] = data
	return nil
}

func (f *fakeStore) Get(ctx context.Context, key string) ([]byte, error) {
	if data, ok := f.objects[key]; ok {
		return data, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStore) Presign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return "https://assets.test/" + key + "?signed=1", nil
}

// fakeQRRenderer returns fixed PNG-ish bytes.
type fakeQRRenderer struct {
	err error
}

func (f *fakeQRRenderer) GeneratePNG(url string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("png:" + url), nil
}

// fakeMailer records sends.
type fakeMailer struct {
	sent []sentMail
	err  error
}

type sentMail struct {
	to, subject, html, text string
}

func (f *fakeMailer) Send(ctx context.Context, to, subject, html, text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, html: html, text: text})
	return fmt.Sprintf("provider-%d", len(f.sent)), nil
}

// fakeRenderer captures the template data it was asked to render.
type fakeRenderer struct {
	lastName string
	lastData domain.PassEmailData
	err      error
}

func (f *fakeRenderer) Render(templateName string, data any) (string, string, string, error) {
	if f.err != nil {
		return "", "", "", f.err
	}
	f.lastName = templateName
	if d, ok := data.(domain.PassEmailData); ok {
		f.lastData = d
	}
	return "subject", "<html>body</html>", "body", nil
}

// fakeContextStore is an in-memory MessageContextStore.
type fakeContextStore struct {
	byID   map[string]*domain.MessageContext
	putErr error
}

func newFakeContextStore() *fakeContextStore {
	return &fakeContextStore{byID: make(map[string]*domain.MessageContext)}
}

func (f *fakeContextStore) Put(ctx context.Context, mc *domain.MessageContext) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.byID[mc.MessageID] = mc
	return nil
}

func (f *fakeContextStore) Get(ctx context.Context, messageID string) (*domain.MessageContext, error) {
	if mc, ok := f.byID[messageID]; ok {
		return mc, nil
	}
	return nil, domain.ErrNotFound
}

// stubBuilder returns a canned outcome for its platform.
type stubBuilder struct {
	platform domain.PassPlatform
	outcome  func(card *domain.Card) domain.PassOutcome
	calls    int
}

func (s *stubBuilder) Platform() domain.PassPlatform {
	return s.platform
}

func (s *stubBuilder) Build(ctx context.Context, card *domain.Card, attendee *domain.Attendee, event *domain.Event, brand *domain.Brand, cardURL string) domain.PassOutcome {
	s.calls++
	return s.outcome(card)
}

func generatedOutcome(platform domain.PassPlatform) func(card *domain.Card) domain.PassOutcome {
	return func(card *domain.Card) domain.PassOutcome {
		return domain.PassOutcome{
			Platform: platform,
			Status:   domain.PassGenerated,
			Pass: &domain.WalletPass{
				ID:       "wp-" + string(platform),
				CardID:   card.ID,
				Platform: platform,
				Locator:  "https://wallet.test/" + string(platform) + "/" + card.ID,
			},
		}
	}
}

func failedOutcome(platform domain.PassPlatform) func(card *domain.Card) domain.PassOutcome {
	return func(card *domain.Card) domain.PassOutcome {
		return domain.PassOutcome{
			Platform: platform,
			Status:   domain.PassFailed,
			Err:      fmt.Errorf("%s upstream unavailable", platform),
		}
	}
}
