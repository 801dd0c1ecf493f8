package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"outreachpass/internal/domain"
)

// QRRenderer renders a URL as a QR code image.
type QRRenderer interface {
	GeneratePNG(url string) ([]byte, error)
}

// BrandResolver maps an event's brand to the public base URL its card links
// live under. Events without a brand, or with a brand key that has no
// configured domain, fall back to the default brand.
type BrandResolver struct {
	domains    map[string]string
	defaultKey string
}

// NewBrandResolver returns a resolver over the configured brand domain map.
func NewBrandResolver(domains map[string]string, defaultKey string) *BrandResolver {
	return &BrandResolver{domains: domains, defaultKey: defaultKey}
}

// BaseURL resolves the public base URL for a brand (nil means no brand).
func (r *BrandResolver) BaseURL(brand *domain.Brand) string {
	if brand != nil {
		if url, ok := r.domains[brand.BrandKey]; ok && url != "" {
			return url
		}
	}
	return r.domains[r.defaultKey]
}

// DisplayName resolves the issuer name shown on wallet passes.
func (r *BrandResolver) DisplayName(brand *domain.Brand, fallback string) string {
	if brand != nil && brand.DisplayName != "" {
		return brand.DisplayName
	}
	return fallback
}

// IssuedCard is the result of one card issuance.
type IssuedCard struct {
	Card    *domain.Card
	QR      *domain.QRCode
	CardURL string
}

// CardIssuer creates the card, renders and stores its QR image, and commits
// both in one transaction. QR failures here are job-fatal: a pass without a
// scannable card is worthless, unlike a pass without a wallet artifact.
type CardIssuer struct {
	cards     domain.CardRepository
	qr        QRRenderer
	store     domain.ArtifactStore
	brands    *BrandResolver
	analytics domain.AnalyticsRecorder
	logger    *slog.Logger
}

// NewCardIssuer creates a CardIssuer.
func NewCardIssuer(
	cards domain.CardRepository,
	qr QRRenderer,
	store domain.ArtifactStore,
	brands *BrandResolver,
	analytics domain.AnalyticsRecorder,
	logger *slog.Logger,
) *CardIssuer {
	return &CardIssuer{
		cards:     cards,
		qr:        qr,
		store:     store,
		brands:    brands,
		analytics: analytics,
		logger:    logger,
	}
}

// Issue creates a new card for the attendee. It returns
// domain.ErrCardAlreadyIssued when a concurrent issuance won the race;
// callers treat that as success and re-read the attendee's card.
func (s *CardIssuer) Issue(ctx context.Context, attendee *domain.Attendee, event *domain.Event, brand *domain.Brand) (*IssuedCard, error) {
	cardID := uuid.NewString()
	baseURL := s.brands.BaseURL(brand)
	cardURL := fmt.Sprintf("%s/c/%s", baseURL, cardID)

	png, err := s.qr.GeneratePNG(cardURL)
	if err != nil {
		return nil, fmt.Errorf("generate qr code: %w", err)
	}
	s3Key := fmt.Sprintf("qr/%s/%s.png", attendee.TenantID, cardID)
	if err := s.store.Put(ctx, s3Key, png, "image/png"); err != nil {
		return nil, fmt.Errorf("upload qr code: %w", err)
	}

	links := make(map[string]string)
	if attendee.LinkedInURL != "" {
		links["linkedin"] = attendee.LinkedInURL
	}

	now := time.Now().UTC()
	card := &domain.Card{
		ID:              cardID,
		TenantID:        attendee.TenantID,
		OwnerAttendeeID: attendee.ID,
		DisplayName:     displayName(attendee),
		Email:           attendee.Email,
		Phone:           attendee.Phone,
		OrgName:         attendee.OrgName,
		Title:           attendee.Title,
		Links:           links,
		VCardRev:        1,
		IsPersonal:      false,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	qr := &domain.QRCode{
		ID:        uuid.NewString(),
		TenantID:  attendee.TenantID,
		EventID:   attendee.EventID,
		CardID:    cardID,
		URL:       cardURL,
		S3KeyPNG:  s3Key,
		CreatedAt: now,
	}

	if err := s.cards.CreateWithQRCode(ctx, card, qr); err != nil {
		return nil, err
	}

	s.analytics.Record(ctx, &domain.AnalyticsEvent{
		EventName:  domain.AnalyticsQRGenerated,
		Category:   domain.AnalyticsCategoryDelivery,
		TenantID:   attendee.TenantID,
		EventID:    attendee.EventID,
		CardID:     cardID,
		AttendeeID: attendee.ID,
	})
	s.logger.Info("card issued", "card_id", cardID, "attendee_id", attendee.ID)

	return &IssuedCard{Card: card, QR: qr, CardURL: cardURL}, nil
}

// displayName picks the best available name for the card, degrading from
// full name to email to a generic label.
func displayName(attendee *domain.Attendee) string {
	name := strings.TrimSpace(strings.TrimSpace(attendee.FirstName) + " " + strings.TrimSpace(attendee.LastName))
	if name != "" {
		return name
	}
	if attendee.Email != "" {
		return attendee.Email
	}
	return "Attendee"
}
