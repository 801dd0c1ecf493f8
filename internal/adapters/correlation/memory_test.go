package correlation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outreachpass/internal/domain"
)

func TestMemoryStore_PutGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	mc := &domain.MessageContext{MessageID: "mid-1", CardID: "card-1", SentAt: time.Now()}
	require.NoError(t, store.Put(ctx, mc))

	got, err := store.Get(ctx, "mid-1")
	require.NoError(t, err)
	assert.Equal(t, "card-1", got.CardID)

	_, err = store.Get(ctx, "mid-unknown")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)

	now := time.Now()
	store.now = func() time.Time { return now }
	require.NoError(t, store.Put(ctx, &domain.MessageContext{MessageID: "mid-1"}))

	// Still there just before the TTL.
	store.now = func() time.Time { return now.Add(59 * time.Second) }
	_, err := store.Get(ctx, "mid-1")
	require.NoError(t, err)

	// Gone after.
	store.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, err = store.Get(ctx, "mid-1")
	require.ErrorIs(t, err, domain.ErrNotFound)

	// A later write evicts the expired entry from the map entirely.
	require.NoError(t, store.Put(ctx, &domain.MessageContext{MessageID: "mid-2"}))
	assert.Len(t, store.contexts, 1)
}
