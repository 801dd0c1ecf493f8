package services

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outreachpass/internal/domain"
)

func notifierFixture() (*PassNotifier, *fakeMailer, *fakeRenderer, *fakeContextStore, *fakeAnalytics) {
	mailer := &fakeMailer{}
	renderer := &fakeRenderer{}
	contexts := newFakeContextStore()
	analytics := &fakeAnalytics{}
	n := NewPassNotifier(mailer, renderer, contexts, newFakeStore(), analytics, "https://api.outreachpass.test", discardLogger())
	return n, mailer, renderer, contexts, analytics
}

func passEmailInputs() (*domain.Attendee, *domain.Event, *domain.Card, *domain.QRCode) {
	attendee := &domain.Attendee{ID: "att-1", TenantID: "t-1", EventID: "ev-1", Email: "ada@example.com"}
	event := &domain.Event{ID: "ev-1", Name: "GopherCon 2026"}
	card := &domain.Card{ID: "card-1", TenantID: "t-1", DisplayName: "Ada Lovelace"}
	qr := &domain.QRCode{CardID: "card-1", URL: "https://outreachpass.test/c/card-1", S3KeyPNG: "qr/t-1/card-1.png"}
	return attendee, event, card, qr
}

func TestPassNotifier_SendPassEmail_WrapsTrackedLinks(t *testing.T) {
	ctx := context.Background()
	n, mailer, renderer, contexts, _ := notifierFixture()
	attendee, event, card, qr := passEmailInputs()

	googleSaveURL := "https://pay.google.com/gp/v/save/eyJhbGciOi.signed.jwt"
	passes := []*domain.WalletPass{
		{CardID: card.ID, Platform: domain.PlatformApple, Locator: "https://api.outreachpass.test/api/v1/passes/apple/card-1"},
		{CardID: card.ID, Platform: domain.PlatformGoogle, Locator: googleSaveURL},
	}

	err := n.SendPassEmail(ctx, attendee, event, card, qr, "https://outreachpass.test/c/card-1", passes)
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)

	data := renderer.lastData
	assert.Equal(t, "pass_issued", renderer.lastName)

	// One message context stored, keyed by the mid in every tracked link.
	require.Len(t, contexts.byID, 1)
	var messageID string
	for id := range contexts.byID {
		messageID = id
	}

	for name, link := range map[string]string{"card": data.CardURL, "vcard": data.VCardURL} {
		parsed, err := url.Parse(link)
		require.NoError(t, err, name)
		assert.Equal(t, "/api/v1/track/email/click", parsed.Path, name)
		assert.Equal(t, messageID, parsed.Query().Get("mid"), name)
		assert.Equal(t, name, parsed.Query().Get("type"), name)
		assert.NotEmpty(t, parsed.Query().Get("url"), name)
	}

	require.Len(t, data.WalletButtons, 2)
	for _, button := range data.WalletButtons {
		if button.Platform == domain.PlatformGoogle {
			// The save link is a signed credential: byte-identical, never wrapped.
			assert.Equal(t, googleSaveURL, button.URL)
		} else {
			assert.Contains(t, button.URL, "/api/v1/track/email/click?")
			assert.Contains(t, button.URL, "type=wallet")
		}
	}

	assert.Equal(t, "https://api.outreachpass.test/api/v1/track/email/open/"+messageID, data.PixelURL)
	assert.True(t, strings.HasPrefix(data.QRImageURL, "https://assets.test/qr/t-1/card-1.png"))
}

func TestPassNotifier_SendPassEmail_ContextStoredBeforeSend(t *testing.T) {
	ctx := context.Background()
	n, mailer, _, contexts, analytics := notifierFixture()
	attendee, event, card, qr := passEmailInputs()
	mailer.err = assert.AnError

	err := n.SendPassEmail(ctx, attendee, event, card, qr, qr.URL, nil)
	require.Error(t, err)

	// The context exists even though the send failed, and the failure was
	// recorded.
	assert.Len(t, contexts.byID, 1)
	assert.Contains(t, analytics.names(), domain.AnalyticsEmailFailed)
	assert.NotContains(t, analytics.names(), domain.AnalyticsEmailSent)
	for _, mc := range contexts.byID {
		assert.Equal(t, card.ID, mc.CardID)
		assert.Equal(t, attendee.Email, mc.Recipient)
		assert.WithinDuration(t, time.Now(), mc.SentAt, time.Minute)
	}
}

func TestPassNotifier_SendPassEmail_SkipsAttendeeWithoutEmail(t *testing.T) {
	ctx := context.Background()
	n, mailer, _, contexts, _ := notifierFixture()
	attendee, event, card, qr := passEmailInputs()
	attendee.Email = ""

	err := n.SendPassEmail(ctx, attendee, event, card, qr, qr.URL, nil)
	require.NoError(t, err)
	assert.Empty(t, mailer.sent)
	assert.Empty(t, contexts.byID)
}
