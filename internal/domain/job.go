package domain

import (
	"context"
	"time"
)

// JobStatus is the state of a pass generation job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// PassGenerationJob is the unit of work driving one pass issuance.
// Terminal states are completed and failed; no job leaves them.
// swagger:model PassGenerationJob
type PassGenerationJob struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenant_id"`
	AttendeeID   string     `json:"attendee_id"`
	Status       JobStatus  `json:"status"`
	CardID       *string    `json:"card_id,omitempty"`
	QRURL        string     `json:"qr_url,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	RetryCount   int        `json:"retry_count"`
	MaxRetries   int        `json:"max_retries"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// ProgressMessage returns the human-readable status line exposed by the
// job-status endpoint.
func (j *PassGenerationJob) ProgressMessage() string {
	switch j.Status {
	case JobStatusPending:
		if j.RetryCount > 0 {
			return "Waiting to retry pass generation"
		}
		return "Waiting for pass generation to start"
	case JobStatusProcessing:
		return "Generating your contact pass"
	case JobStatusCompleted:
		return "Your contact pass is ready"
	case JobStatusFailed:
		return "Pass generation failed"
	default:
		return string(j.Status)
	}
}

// JobRepository defines storage operations for pass generation jobs.
type JobRepository interface {
	Enqueue(ctx context.Context, job *PassGenerationJob) error
	GetByID(ctx context.Context, id string) (*PassGenerationJob, error)

	// DequeuePending atomically claims up to limit oldest pending jobs,
	// flipping them to processing and stamping started_at before any
	// side-effecting work can begin.
	DequeuePending(ctx context.Context, limit int) ([]*PassGenerationJob, error)

	// MarkCompleted sets the terminal completed state with the issued
	// card id and QR URL, clearing any previous error.
	MarkCompleted(ctx context.Context, jobID, cardID, qrURL string) error

	// RecordFailure increments retry_count and either returns the job to
	// pending (started_at cleared) or, when retries are exhausted, sets
	// failed permanently with the error message.
	RecordFailure(ctx context.Context, jobID, errorMessage string) (*PassGenerationJob, error)

	// ReleaseStale returns jobs stuck in processing longer than the lease
	// to pending so another worker can pick them up. Reports how many
	// were released.
	ReleaseStale(ctx context.Context, lease time.Duration) (int64, error)
}
