package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outreachpass/internal/domain"
)

func TestTrackingService_RecordOpen(t *testing.T) {
	ctx := context.Background()
	contexts := newFakeContextStore()
	analytics := &fakeAnalytics{}
	svc := NewTrackingService(contexts, analytics, discardLogger())

	contexts.byID["mid-1"] = &domain.MessageContext{
		MessageID:  "mid-1",
		CardID:     "card-1",
		TenantID:   "t-1",
		EventID:    "ev-1",
		AttendeeID: "att-1",
		SentAt:     time.Now(),
	}

	svc.RecordOpen(ctx, "mid-1")
	require.Len(t, analytics.events, 1)
	event := analytics.events[0]
	assert.Equal(t, domain.AnalyticsEmailOpened, event.EventName)
	assert.Equal(t, domain.AnalyticsCategoryEngagement, event.Category)
	assert.Equal(t, "card-1", event.CardID)
	assert.Equal(t, "att-1", event.AttendeeID)
}

func TestTrackingService_UnknownMessageIsNoOp(t *testing.T) {
	ctx := context.Background()
	analytics := &fakeAnalytics{}
	svc := NewTrackingService(newFakeContextStore(), analytics, discardLogger())

	svc.RecordOpen(ctx, "mid-unknown")
	svc.RecordClick(ctx, "mid-unknown", "https://outreachpass.test/c/x", "Mozilla/5.0", domain.LinkTypeCard)
	assert.Empty(t, analytics.events)
}

func TestTrackingService_RecordClick(t *testing.T) {
	ctx := context.Background()
	contexts := newFakeContextStore()
	analytics := &fakeAnalytics{}
	svc := NewTrackingService(contexts, analytics, discardLogger())

	contexts.byID["mid-2"] = &domain.MessageContext{MessageID: "mid-2", CardID: "card-2", TenantID: "t-1"}

	svc.RecordClick(ctx, "mid-2", "https://outreachpass.test/c/card-2", "Mozilla/5.0", domain.LinkTypeVCard)
	require.Len(t, analytics.events, 1)
	event := analytics.events[0]
	assert.Equal(t, domain.AnalyticsEmailClicked, event.EventName)
	assert.Equal(t, "https://outreachpass.test/c/card-2", event.Properties["url"])
	assert.Equal(t, "vcard", event.Properties["link_type"])
	assert.Equal(t, "Mozilla/5.0", event.Properties["user_agent"])
}
