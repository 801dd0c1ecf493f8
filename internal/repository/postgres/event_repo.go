package postgres

import (
	"context"
	"database/sql"
	"errors"

	"outreachpass/internal/domain"
)

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `
		SELECT event_id, tenant_id, brand_id, name, starts_at, created_at, updated_at
		FROM events
		WHERE event_id = $1
	`
	e := &domain.Event{}
	var brandNull sql.NullString
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.TenantID, &brandNull, &e.Name, &e.StartsAt, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if brandNull.Valid {
		e.BrandID = &brandNull.String
	}
	return e, nil
}

func (r *eventRepository) GetBrandByID(ctx context.Context, id string) (*domain.Brand, error) {
	query := `
		SELECT brand_id, tenant_id, brand_key, display_name, domain, created_at
		FROM brands
		WHERE brand_id = $1
	`
	b := &domain.Brand{}
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&b.ID, &b.TenantID, &b.BrandKey, &b.DisplayName, &b.Domain, &b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return b, nil
}
