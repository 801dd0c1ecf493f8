package http

import (
	"errors"
	"net/http"
	"time"

	"outreachpass/internal/domain"
	"outreachpass/internal/services"
)

// JobStatusResponse is the body for GET /api/v1/jobs/{jobID}.
// swagger:model JobStatusResponse
type JobStatusResponse struct {
	ID           string     `json:"id"`
	Status       string     `json:"status"`
	Progress     string     `json:"progress"`
	CardID       *string    `json:"card_id,omitempty"`
	QRURL        string     `json:"qr_url,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	RetryCount   int        `json:"retry_count"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// EnqueueJobRequest is the request body for POST /api/v1/jobs.
type EnqueueJobRequest struct {
	TenantID   string `json:"tenant_id"`
	AttendeeID string `json:"attendee_id"`
}

type JobController struct {
	Jobs   domain.JobRepository
	Worker *services.PassWorker
}

func NewJobController(jobs domain.JobRepository, worker *services.PassWorker) *JobController {
	return &JobController{Jobs: jobs, Worker: worker}
}

// Enqueue godoc
// @Summary Enqueue pass generation
// @Description Creates a pending pass generation job for an attendee. Returns immediately; poll the job endpoint for progress.
// @Tags jobs
// @Accept json
// @Produce json
// @Param job body EnqueueJobRequest true "Job data"
// @Success 202 {object} JobStatusResponse
// @Failure 400 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /api/v1/jobs [post]
func (c *JobController) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req EnqueueJobRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	job, err := c.Worker.EnqueuePassGeneration(r.Context(), req.TenantID, req.AttendeeID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		WriteJSONError(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to enqueue job")
		return
	}
	WriteJSONSuccess(w, http.StatusAccepted, jobStatusResponse(job))
}

// GetStatus godoc
// @Summary Get pass generation job status
// @Description Returns the job's state, a human-readable progress line, and the issued card id once available.
// @Tags jobs
// @Produce json
// @Param jobID path string true "Job ID"
// @Success 200 {object} JobStatusResponse
// @Failure 404 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /api/v1/jobs/{jobID} [get]
func (c *JobController) GetStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("jobID")
	job, err := c.Jobs.GetByID(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			WriteJSONError(w, http.StatusNotFound, ErrCodeNotFound, "job not found")
			return
		}
		WriteJSONError(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to load job")
		return
	}
	WriteJSONSuccess(w, http.StatusOK, jobStatusResponse(job))
}

func jobStatusResponse(job *domain.PassGenerationJob) JobStatusResponse {
	return JobStatusResponse{
		ID:           job.ID,
		Status:       string(job.Status),
		Progress:     job.ProgressMessage(),
		CardID:       job.CardID,
		QRURL:        job.QRURL,
		ErrorMessage: job.ErrorMessage,
		RetryCount:   job.RetryCount,
		CreatedAt:    job.CreatedAt,
		CompletedAt:  job.CompletedAt,
	}
}
