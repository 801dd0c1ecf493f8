package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"outreachpass/internal/domain"
)

// qrPresignTTL bounds the life of the QR image link embedded in the email.
// Seven days covers the window in which attendees realistically open it.
const qrPresignTTL = 7 * 24 * time.Hour

// PassNotifier sends the pass-issued email with tracked links. Every
// clickable link except the Google save link is wrapped through the click
// redirect; the save link is a signed credential and any byte appended to
// it breaks the signature.
type PassNotifier struct {
	mailer    domain.Mailer
	renderer  domain.EmailTemplateRenderer
	contexts  domain.MessageContextStore
	store     domain.ArtifactStore
	analytics domain.AnalyticsRecorder
	baseURL   string
	logger    *slog.Logger
}

// NewPassNotifier creates a PassNotifier. baseURL is the public URL this
// service is reachable at, used for tracking and vCard links.
func NewPassNotifier(
	mailer domain.Mailer,
	renderer domain.EmailTemplateRenderer,
	contexts domain.MessageContextStore,
	store domain.ArtifactStore,
	analytics domain.AnalyticsRecorder,
	baseURL string,
	logger *slog.Logger,
) *PassNotifier {
	return &PassNotifier{
		mailer:    mailer,
		renderer:  renderer,
		contexts:  contexts,
		store:     store,
		analytics: analytics,
		baseURL:   strings.TrimRight(baseURL, "/"),
		logger:    logger,
	}
}

// SendPassEmail notifies the attendee that their pass is ready. Attendees
// without an email address are skipped silently. The message context is
// stored before the send so a delivered email can always be attributed.
func (n *PassNotifier) SendPassEmail(
	ctx context.Context,
	attendee *domain.Attendee,
	event *domain.Event,
	card *domain.Card,
	qr *domain.QRCode,
	cardURL string,
	passes []*domain.WalletPass,
) error {
	if attendee.Email == "" {
		n.logger.Debug("attendee has no email, skipping notification", "attendee_id", attendee.ID)
		return nil
	}

	messageID := uuid.NewString()
	mc := &domain.MessageContext{
		MessageID:  messageID,
		CardID:     card.ID,
		TenantID:   attendee.TenantID,
		EventID:    attendee.EventID,
		AttendeeID: attendee.ID,
		Recipient:  attendee.Email,
		SentAt:     time.Now().UTC(),
	}
	if err := n.contexts.Put(ctx, mc); err != nil {
		// Attribution degrades, delivery does not.
		n.logger.Warn("failed to store message context", "message_id", messageID, "error", err)
	}

	qrImageURL := ""
	if qr != nil {
		presigned, err := n.store.Presign(ctx, qr.S3KeyPNG, qrPresignTTL)
		if err != nil {
			n.logger.Warn("failed to presign qr image", "card_id", card.ID, "error", err)
		} else {
			qrImageURL = presigned
		}
	}

	var buttons []domain.WalletButton
	for _, pass := range passes {
		link := pass.Locator
		if pass.Platform != domain.PlatformGoogle {
			link = n.trackedLink(pass.Locator, messageID, domain.LinkTypeWallet)
		}
		buttons = append(buttons, domain.WalletButton{Platform: pass.Platform, URL: link})
	}

	vcardURL := fmt.Sprintf("%s/api/v1/cards/%s/vcard", n.baseURL, card.ID)
	data := domain.PassEmailData{
		DisplayName:   card.DisplayName,
		EventName:     event.Name,
		CardURL:       n.trackedLink(cardURL, messageID, domain.LinkTypeCard),
		QRImageURL:    qrImageURL,
		VCardURL:      n.trackedLink(vcardURL, messageID, domain.LinkTypeVCard),
		WalletButtons: buttons,
		PixelURL:      n.baseURL + "/api/v1/track/email/open/" + messageID,
	}

	subject, htmlBody, textBody, err := n.renderer.Render("pass_issued", data)
	if err != nil {
		return fmt.Errorf("render pass email: %w", err)
	}

	providerID, err := n.mailer.Send(ctx, attendee.Email, subject, htmlBody, textBody)
	if err != nil {
		n.analytics.Record(ctx, &domain.AnalyticsEvent{
			EventName:  domain.AnalyticsEmailFailed,
			Category:   domain.AnalyticsCategoryError,
			TenantID:   attendee.TenantID,
			EventID:    attendee.EventID,
			CardID:     card.ID,
			AttendeeID: attendee.ID,
			Properties: map[string]any{"message_id": messageID, "reason": err.Error()},
		})
		return fmt.Errorf("send pass email: %w", err)
	}

	n.analytics.Record(ctx, &domain.AnalyticsEvent{
		EventName:  domain.AnalyticsEmailSent,
		Category:   domain.AnalyticsCategoryDelivery,
		TenantID:   attendee.TenantID,
		EventID:    attendee.EventID,
		CardID:     card.ID,
		AttendeeID: attendee.ID,
		Properties: map[string]any{"message_id": messageID, "provider_message_id": providerID},
	})
	n.logger.Info("pass email sent", "card_id", card.ID, "message_id", messageID)
	return nil
}

// trackedLink wraps target in the click-tracking redirect.
func (n *PassNotifier) trackedLink(target, messageID string, linkType domain.LinkType) string {
	v := url.Values{}
	v.Set("url", target)
	v.Set("mid", messageID)
	v.Set("type", string(linkType))
	return n.baseURL + "/api/v1/track/email/click?" + v.Encode()
}
