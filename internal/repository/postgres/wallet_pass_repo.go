package postgres

import (
	"context"
	"database/sql"

	"outreachpass/internal/domain"
)

type walletPassRepository struct {
	DB *sql.DB
}

func NewWalletPassRepository(db *sql.DB) domain.WalletPassRepository {
	return &walletPassRepository{
		DB: db,
	}
}

// Upsert relies on the unique index on (card_id, platform) so a replayed
// job refreshes the existing row instead of duplicating the pass.
func (r *walletPassRepository) Upsert(ctx context.Context, pass *domain.WalletPass) error {
	query := `
		INSERT INTO wallet_passes (card_id, event_id, platform, locator, s3_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (card_id, platform)
		DO UPDATE SET locator = EXCLUDED.locator, s3_key = EXCLUDED.s3_key
		RETURNING wallet_pass_id
	`
	return r.DB.QueryRowContext(ctx, query,
		pass.CardID, nullString(pass.EventID), pass.Platform, pass.Locator,
		nullString(pass.S3Key), pass.CreatedAt,
	).Scan(&pass.ID)
}

func (r *walletPassRepository) ListByCardID(ctx context.Context, cardID string) ([]*domain.WalletPass, error) {
	query := `
		SELECT wallet_pass_id, card_id, event_id, platform, locator, s3_key, created_at
		FROM wallet_passes
		WHERE card_id = $1
		ORDER BY platform
	`
	rows, err := r.DB.QueryContext(ctx, query, cardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	passes := make([]*domain.WalletPass, 0)
	for rows.Next() {
		p := &domain.WalletPass{}
		var eventNull, keyNull sql.NullString
		if err := rows.Scan(&p.ID, &p.CardID, &eventNull, &p.Platform, &p.Locator, &keyNull, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.EventID = eventNull.String
		p.S3Key = keyNull.String
		passes = append(passes, p)
	}
	return passes, rows.Err()
}
