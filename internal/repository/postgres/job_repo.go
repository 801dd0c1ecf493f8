package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"outreachpass/internal/domain"
)

type jobRepository struct {
	DB *sql.DB
}

func NewJobRepository(db *sql.DB) domain.JobRepository {
	return &jobRepository{
		DB: db,
	}
}

func (r *jobRepository) Enqueue(ctx context.Context, job *domain.PassGenerationJob) error {
	query := `
		INSERT INTO pass_generation_jobs (tenant_id, attendee_id, status, retry_count, max_retries, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING job_id
	`
	return r.DB.QueryRowContext(ctx, query,
		job.TenantID, job.AttendeeID, job.Status, job.RetryCount, job.MaxRetries, job.CreatedAt,
	).Scan(&job.ID)
}

func (r *jobRepository) GetByID(ctx context.Context, id string) (*domain.PassGenerationJob, error) {
	query := `
		SELECT job_id, tenant_id, attendee_id, status, card_id, qr_url, error_message,
		       retry_count, max_retries, created_at, started_at, completed_at
		FROM pass_generation_jobs
		WHERE job_id = $1
	`
	return r.scanJob(r.DB.QueryRowContext(ctx, query, id))
}

// DequeuePending claims up to limit oldest pending jobs and flips them to
// processing in the same statement, so the transition is durable before any
// side-effecting work begins. FOR UPDATE SKIP LOCKED keeps concurrent
// workers from double-claiming.
func (r *jobRepository) DequeuePending(ctx context.Context, limit int) ([]*domain.PassGenerationJob, error) {
	query := `
		UPDATE pass_generation_jobs
		SET status = $1, started_at = NOW()
		WHERE job_id IN (
			SELECT job_id FROM pass_generation_jobs
			WHERE status = $2
			ORDER BY created_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING job_id, tenant_id, attendee_id, status, card_id, qr_url, error_message,
		          retry_count, max_retries, created_at, started_at, completed_at
	`
	rows, err := r.DB.QueryContext(ctx, query, domain.JobStatusProcessing, domain.JobStatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := make([]*domain.PassGenerationJob, 0)
	for rows.Next() {
		job, err := r.scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *jobRepository) MarkCompleted(ctx context.Context, jobID, cardID, qrURL string) error {
	query := `
		UPDATE pass_generation_jobs
		SET status = $1, card_id = $2, qr_url = $3, error_message = NULL, completed_at = NOW()
		WHERE job_id = $4
	`
	result, err := r.DB.ExecContext(ctx, query, domain.JobStatusCompleted, cardID, qrURL, jobID)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RecordFailure bumps retry_count and routes the job either back to pending
// (retries remain, started_at cleared for redelivery) or to the terminal
// failed state, in one statement so a crash between the two cannot lose the
// attempt count.
func (r *jobRepository) RecordFailure(ctx context.Context, jobID, errorMessage string) (*domain.PassGenerationJob, error) {
	query := `
		UPDATE pass_generation_jobs
		SET retry_count = retry_count + 1,
		    error_message = $1,
		    status = CASE WHEN retry_count + 1 >= max_retries THEN $2 ELSE $3 END,
		    started_at = CASE WHEN retry_count + 1 >= max_retries THEN started_at ELSE NULL END,
		    completed_at = CASE WHEN retry_count + 1 >= max_retries THEN NOW() ELSE NULL END
		WHERE job_id = $4
		RETURNING job_id, tenant_id, attendee_id, status, card_id, qr_url, error_message,
		          retry_count, max_retries, created_at, started_at, completed_at
	`
	job, err := r.scanJob(r.DB.QueryRowContext(ctx, query,
		errorMessage, domain.JobStatusFailed, domain.JobStatusPending, jobID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("record failure: %w", err)
	}
	return job, nil
}

func (r *jobRepository) ReleaseStale(ctx context.Context, lease time.Duration) (int64, error) {
	query := `
		UPDATE pass_generation_jobs
		SET status = $1, started_at = NULL
		WHERE status = $2 AND started_at < NOW() - $3::interval
	`
	result, err := r.DB.ExecContext(ctx, query,
		domain.JobStatusPending, domain.JobStatusProcessing, lease.String(),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *jobRepository) scanJob(row rowScanner) (*domain.PassGenerationJob, error) {
	j := &domain.PassGenerationJob{}
	var cardNull, qrNull, errNull sql.NullString
	var startedNull, completedNull sql.NullTime
	err := row.Scan(
		&j.ID, &j.TenantID, &j.AttendeeID, &j.Status, &cardNull, &qrNull, &errNull,
		&j.RetryCount, &j.MaxRetries, &j.CreatedAt, &startedNull, &completedNull,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if cardNull.Valid {
		j.CardID = &cardNull.String
	}
	j.QRURL = qrNull.String
	j.ErrorMessage = errNull.String
	if startedNull.Valid {
		j.StartedAt = &startedNull.Time
	}
	if completedNull.Valid {
		j.CompletedAt = &completedNull.Time
	}
	return j, nil
}
