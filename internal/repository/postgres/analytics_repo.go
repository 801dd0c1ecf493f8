package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"outreachpass/internal/domain"
)

type analyticsRepository struct {
	DB *sql.DB
}

func NewAnalyticsRepository(db *sql.DB) domain.AnalyticsRepository {
	return &analyticsRepository{
		DB: db,
	}
}

func (r *analyticsRepository) Insert(ctx context.Context, e *domain.AnalyticsEvent) error {
	props, err := json.Marshal(e.Properties)
	if err != nil {
		return fmt.Errorf("marshal properties: %w", err)
	}
	query := `
		INSERT INTO analytics_events (tenant_id, event_id, event_name, category,
		                              card_id, attendee_id, properties, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.DB.ExecContext(ctx, query,
		e.TenantID, nullString(e.EventID), e.EventName, e.Category,
		nullString(e.CardID), nullString(e.AttendeeID), props, e.OccurredAt,
	)
	return err
}
