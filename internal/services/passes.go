package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"outreachpass/internal/adapters/applepass"
	"outreachpass/internal/adapters/googlepass"
	"outreachpass/internal/domain"
)

// PassArchiver assembles .pkpass archives (see adapters/applepass).
type PassArchiver interface {
	CreatePass(info applepass.PassInfo) ([]byte, error)
	SigningConfigured() bool
}

// ApplePassBuilder produces the Apple Wallet artifact for a card: a signed
// .pkpass archive stored in the artifact store and served by the download
// endpoint. Its locator is the download URL, stable across rebuilds.
type ApplePassBuilder struct {
	archiver   PassArchiver
	store      domain.ArtifactStore
	passTypeID string
	baseURL    string
	logger     *slog.Logger
}

// NewApplePassBuilder creates the Apple platform builder. An empty
// passTypeID disables the platform, yielding Skipped outcomes.
func NewApplePassBuilder(archiver PassArchiver, store domain.ArtifactStore, passTypeID, baseURL string, logger *slog.Logger) *ApplePassBuilder {
	return &ApplePassBuilder{
		archiver:   archiver,
		store:      store,
		passTypeID: passTypeID,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

func (b *ApplePassBuilder) Platform() domain.PassPlatform {
	return domain.PlatformApple
}

func (b *ApplePassBuilder) Build(ctx context.Context, card *domain.Card, attendee *domain.Attendee, event *domain.Event, brand *domain.Brand, cardURL string) domain.PassOutcome {
	if b.archiver == nil || b.passTypeID == "" {
		return domain.PassOutcome{Platform: domain.PlatformApple, Status: domain.PassSkipped, Err: domain.ErrPlatformNotConfigured}
	}
	// An unsigned archive is rejected by devices, so without signing
	// material the platform is skipped rather than advertised.
	if !b.archiver.SigningConfigured() {
		b.logger.Debug("apple pass signing not configured, skipping platform", "card_id", card.ID)
		return domain.PassOutcome{Platform: domain.PlatformApple, Status: domain.PassSkipped, Err: domain.ErrPlatformNotConfigured}
	}

	var aux []applepass.Field
	if card.OrgName != "" {
		aux = append(aux, applepass.Field{Key: "organization", Label: "ORGANIZATION", Value: card.OrgName})
	}
	if card.Title != "" {
		aux = append(aux, applepass.Field{Key: "title", Label: "TITLE", Value: card.Title})
	}

	archive, err := b.archiver.CreatePass(applepass.PassInfo{
		SerialNumber:    card.ID,
		AttendeeName:    card.DisplayName,
		EventName:       event.Name,
		EventDate:       event.StartsAt,
		CardURL:         cardURL,
		AuxiliaryFields: aux,
	})
	if err != nil {
		return domain.PassOutcome{Platform: domain.PlatformApple, Status: domain.PassFailed, Err: fmt.Errorf("build pkpass: %w", err)}
	}

	s3Key := fmt.Sprintf("passes/apple/%s/%s.pkpass", card.TenantID, card.ID)
	if err := b.store.Put(ctx, s3Key, archive, "application/vnd.apple.pkpass"); err != nil {
		return domain.PassOutcome{Platform: domain.PlatformApple, Status: domain.PassFailed, Err: fmt.Errorf("upload pkpass: %w", err)}
	}

	return domain.PassOutcome{
		Platform: domain.PlatformApple,
		Status:   domain.PassGenerated,
		Pass: &domain.WalletPass{
			ID:        uuid.NewString(),
			CardID:    card.ID,
			EventID:   event.ID,
			Platform:  domain.PlatformApple,
			Locator:   b.baseURL + "/api/v1/passes/apple/" + card.ID,
			S3Key:     s3Key,
			CreatedAt: time.Now().UTC(),
		},
	}
}

// WalletObjectsClient is the Google Wallet REST surface the builder needs
// (see adapters/googlepass).
type WalletObjectsClient interface {
	EnsureClass(ctx context.Context, class *googlepass.EventTicketClass) error
	UpsertObject(ctx context.Context, object *googlepass.EventTicketObject) (string, error)
}

// SaveURLSigner mints signed "Save to Google Wallet" URLs.
type SaveURLSigner interface {
	SignSaveURL(objectID string) (string, error)
}

// GooglePassBuilder produces the Google Wallet artifact for a card: an
// event ticket object on Google's side plus a signed save link. The save
// link IS the credential, so it must reach the email byte-identical; the
// notifier never wraps it with tracking.
type GooglePassBuilder struct {
	client      WalletObjectsClient
	signer      SaveURLSigner
	issuerID    string
	classSuffix string
	issuerName  string
	brands      *BrandResolver
	logger      *slog.Logger
}

// NewGooglePassBuilder creates the Google platform builder. A nil client or
// empty issuerID disables the platform.
func NewGooglePassBuilder(client WalletObjectsClient, signer SaveURLSigner, issuerID, classSuffix, issuerName string, brands *BrandResolver, logger *slog.Logger) *GooglePassBuilder {
	return &GooglePassBuilder{
		client:      client,
		signer:      signer,
		issuerID:    issuerID,
		classSuffix: classSuffix,
		issuerName:  issuerName,
		brands:      brands,
		logger:      logger,
	}
}

func (b *GooglePassBuilder) Platform() domain.PassPlatform {
	return domain.PlatformGoogle
}

func (b *GooglePassBuilder) Build(ctx context.Context, card *domain.Card, attendee *domain.Attendee, event *domain.Event, brand *domain.Brand, cardURL string) domain.PassOutcome {
	if b.client == nil || b.signer == nil || b.issuerID == "" {
		return domain.PassOutcome{Platform: domain.PlatformGoogle, Status: domain.PassSkipped, Err: domain.ErrPlatformNotConfigured}
	}

	// Class ids may not contain dashes.
	classID := fmt.Sprintf("%s.%s_%s", b.issuerID, b.classSuffix, strings.ReplaceAll(event.ID, "-", "_"))
	objectID := fmt.Sprintf("%s.card_%s", b.issuerID, card.ID)

	class := &googlepass.EventTicketClass{
		ID:           classID,
		EventID:      event.ID,
		IssuerName:   b.brands.DisplayName(brand, b.issuerName),
		EventName:    googlepass.NewLocalizedString(event.Name),
		ReviewStatus: "UNDER_REVIEW",
	}
	if err := b.client.EnsureClass(ctx, class); err != nil {
		return domain.PassOutcome{Platform: domain.PlatformGoogle, Status: domain.PassFailed, Err: fmt.Errorf("ensure pass class: %w", err)}
	}

	var modules []googlepass.TextModule
	if card.OrgName != "" {
		modules = append(modules, googlepass.TextModule{ID: "organization", Header: "Organization", Body: card.OrgName})
	}
	if card.Title != "" {
		modules = append(modules, googlepass.TextModule{ID: "title", Header: "Title", Body: card.Title})
	}
	object := &googlepass.EventTicketObject{
		ID:               objectID,
		ClassID:          classID,
		State:            "active",
		TicketHolderName: card.DisplayName,
		EventName:        googlepass.NewLocalizedString(event.Name),
		Barcode: googlepass.Barcode{
			Type:          "QR_CODE",
			Value:         cardURL,
			AlternateText: card.DisplayName,
		},
		TextModulesData: modules,
	}
	if !event.StartsAt.IsZero() {
		object.EventDateTime = &googlepass.EventDateTime{Start: event.StartsAt.Format(time.RFC3339)}
	}

	state, err := b.client.UpsertObject(ctx, object)
	if err != nil {
		return domain.PassOutcome{Platform: domain.PlatformGoogle, Status: domain.PassFailed, Err: fmt.Errorf("upsert pass object: %w", err)}
	}
	if state != "" && !strings.EqualFold(state, "active") {
		b.logger.Warn("google pass object is not active", "card_id", card.ID, "state", state)
	}

	saveURL, err := b.signer.SignSaveURL(objectID)
	if err != nil {
		return domain.PassOutcome{Platform: domain.PlatformGoogle, Status: domain.PassFailed, Err: fmt.Errorf("sign save link: %w", err)}
	}

	return domain.PassOutcome{
		Platform: domain.PlatformGoogle,
		Status:   domain.PassGenerated,
		Pass: &domain.WalletPass{
			ID:        uuid.NewString(),
			CardID:    card.ID,
			EventID:   event.ID,
			Platform:  domain.PlatformGoogle,
			Locator:   saveURL,
			CreatedAt: time.Now().UTC(),
		},
	}
}
