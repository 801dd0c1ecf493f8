package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"outreachpass/internal/domain"
)

type cardRepository struct {
	DB *sql.DB
}

func NewCardRepository(db *sql.DB) domain.CardRepository {
	return &cardRepository{
		DB: db,
	}
}

// CreateWithQRCode commits the card, its QR code, and the attendee's card
// reference in one transaction. The attendee update is guarded by
// card_id IS NULL: a concurrent or replayed issuance updates zero rows and
// the whole transaction rolls back with ErrCardAlreadyIssued.
func (r *cardRepository) CreateWithQRCode(ctx context.Context, card *domain.Card, qr *domain.QRCode) error {
	links, err := json.Marshal(card.Links)
	if err != nil {
		return fmt.Errorf("marshal links: %w", err)
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	cardQuery := `
		INSERT INTO cards (card_id, tenant_id, owner_attendee_id, display_name, email, phone,
		                   org_name, title, links_json, vcard_rev, is_personal, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	if _, err := tx.ExecContext(ctx, cardQuery,
		card.ID, card.TenantID, card.OwnerAttendeeID, card.DisplayName,
		nullString(card.Email), nullString(card.Phone), nullString(card.OrgName), nullString(card.Title),
		links, card.VCardRev, card.IsPersonal, card.CreatedAt, card.UpdatedAt,
	); err != nil {
		return err
	}

	qrQuery := `
		INSERT INTO qr_codes (tenant_id, event_id, card_id, url, s3_key_png, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING qr_id
	`
	if err := tx.QueryRowContext(ctx, qrQuery,
		qr.TenantID, qr.EventID, qr.CardID, qr.URL, qr.S3KeyPNG, qr.CreatedAt,
	).Scan(&qr.ID); err != nil {
		return err
	}

	attendeeQuery := `
		UPDATE attendees SET card_id = $1, updated_at = NOW()
		WHERE attendee_id = $2 AND card_id IS NULL
	`
	result, err := tx.ExecContext(ctx, attendeeQuery, card.ID, card.OwnerAttendeeID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrCardAlreadyIssued
	}

	return tx.Commit()
}

func (r *cardRepository) GetByID(ctx context.Context, id string) (*domain.Card, error) {
	query := `
		SELECT card_id, tenant_id, owner_attendee_id, display_name, email, phone,
		       org_name, title, links_json, vcard_rev, is_personal, created_at, updated_at
		FROM cards
		WHERE card_id = $1
	`
	c := &domain.Card{}
	var emailNull, phoneNull, orgNull, titleNull sql.NullString
	var links []byte
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.TenantID, &c.OwnerAttendeeID, &c.DisplayName, &emailNull, &phoneNull,
		&orgNull, &titleNull, &links, &c.VCardRev, &c.IsPersonal, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	c.Email = emailNull.String
	c.Phone = phoneNull.String
	c.OrgName = orgNull.String
	c.Title = titleNull.String
	if len(links) > 0 {
		if err := json.Unmarshal(links, &c.Links); err != nil {
			return nil, fmt.Errorf("unmarshal links: %w", err)
		}
	}
	if c.Links == nil {
		c.Links = map[string]string{}
	}
	return c, nil
}

func (r *cardRepository) GetQRCodeByCardID(ctx context.Context, cardID string) (*domain.QRCode, error) {
	query := `
		SELECT qr_id, tenant_id, event_id, card_id, url, s3_key_png, created_at
		FROM qr_codes
		WHERE card_id = $1
	`
	qr := &domain.QRCode{}
	var eventNull, keyNull sql.NullString
	err := r.DB.QueryRowContext(ctx, query, cardID).Scan(
		&qr.ID, &qr.TenantID, &eventNull, &qr.CardID, &qr.URL, &keyNull, &qr.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	qr.EventID = eventNull.String
	qr.S3KeyPNG = keyNull.String
	return qr, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
