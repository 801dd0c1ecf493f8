package postgres

import (
	"context"
	"database/sql"
	"errors"

	"outreachpass/internal/domain"
)

type attendeeRepository struct {
	DB *sql.DB
}

func NewAttendeeRepository(db *sql.DB) domain.AttendeeRepository {
	return &attendeeRepository{
		DB: db,
	}
}

func (r *attendeeRepository) GetByID(ctx context.Context, id string) (*domain.Attendee, error) {
	query := `
		SELECT attendee_id, tenant_id, event_id, email, phone, first_name, last_name,
		       org_name, title, linkedin_url, card_id, created_at, updated_at
		FROM attendees
		WHERE attendee_id = $1
	`
	a := &domain.Attendee{}
	var emailNull, phoneNull, firstNull, lastNull, orgNull, titleNull, linkedinNull, cardNull sql.NullString
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.TenantID, &a.EventID, &emailNull, &phoneNull, &firstNull, &lastNull,
		&orgNull, &titleNull, &linkedinNull, &cardNull, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	a.Email = emailNull.String
	a.Phone = phoneNull.String
	a.FirstName = firstNull.String
	a.LastName = lastNull.String
	a.OrgName = orgNull.String
	a.Title = titleNull.String
	a.LinkedInURL = linkedinNull.String
	if cardNull.Valid {
		a.CardID = &cardNull.String
	}
	return a, nil
}
