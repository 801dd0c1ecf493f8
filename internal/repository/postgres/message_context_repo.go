package postgres

import (
	"context"
	"database/sql"
	"errors"

	"outreachpass/internal/domain"
)

// messageContextRepository is the shared-store binding for message
// correlation, used when multiple worker instances run so opens and clicks
// sent by one instance can be attributed by another.
type messageContextRepository struct {
	DB *sql.DB
}

func NewMessageContextRepository(db *sql.DB) domain.MessageContextStore {
	return &messageContextRepository{
		DB: db,
	}
}

func (r *messageContextRepository) Put(ctx context.Context, mc *domain.MessageContext) error {
	query := `
		INSERT INTO message_contexts (message_id, card_id, tenant_id, event_id, attendee_id, recipient, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (message_id) DO NOTHING
	`
	_, err := r.DB.ExecContext(ctx, query,
		mc.MessageID, mc.CardID, mc.TenantID, nullString(mc.EventID),
		nullString(mc.AttendeeID), mc.Recipient, mc.SentAt,
	)
	return err
}

func (r *messageContextRepository) Get(ctx context.Context, messageID string) (*domain.MessageContext, error) {
	query := `
		SELECT message_id, card_id, tenant_id, event_id, attendee_id, recipient, sent_at
		FROM message_contexts
		WHERE message_id = $1
	`
	mc := &domain.MessageContext{}
	var eventNull, attendeeNull sql.NullString
	err := r.DB.QueryRowContext(ctx, query, messageID).Scan(
		&mc.MessageID, &mc.CardID, &mc.TenantID, &eventNull, &attendeeNull, &mc.Recipient, &mc.SentAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	mc.EventID = eventNull.String
	mc.AttendeeID = attendeeNull.String
	return mc, nil
}
