package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/transcript-agent/internal/pipeline"
	"github.com/codebuildervaibhav/transcript-agent/internal/types"
)

// JobsHandler exposes submit/progress/cancel over HTTP.
type JobsHandler struct {
	orchestrator *pipeline.Orchestrator
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(orchestrator *pipeline.Orchestrator) *JobsHandler {
	return &JobsHandler{orchestrator: orchestrator}
}

// SubmitRequest represents the request body
type SubmitRequest struct {
	URL   string `json:"url"`
	Model string `json:"model"`
}

// HandleSubmit submits a new transcription job. A cache hit comes back
// READY immediately; resubmitting an in-flight source+tier returns the
// existing job.
func (h *JobsHandler) HandleSubmit(c *fiber.Ctx) error {
	var req SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
			"code":  "ERR_INVALID_BODY",
		})
	}

	if req.URL == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "URL is required",
			"code":  "ERR_NO_URL",
		})
	}

	tier, err := types.ParseModelTier(req.Model)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "ERR_INVALID_MODEL",
		})
	}

	job := h.orchestrator.Submit(req.URL, tier)
	return c.JSON(job.Snapshot())
}

// HandleProgress reports the coarse progress of a job.
func (h *JobsHandler) HandleProgress(c *fiber.Ctx) error {
	progress, err := h.orchestrator.Progress(c.Params("id"))
	if err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "Job not found",
			"code":  "ERR_UNKNOWN_JOB",
		})
	}
	return c.JSON(progress)
}

// HandleCancel requests cooperative cancellation of a job.
func (h *JobsHandler) HandleCancel(c *fiber.Ctx) error {
	jobID := c.Params("id")
	if err := h.orchestrator.Cancel(jobID); err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "Job not found",
			"code":  "ERR_UNKNOWN_JOB",
		})
	}
	return c.Status(202).JSON(fiber.Map{
		"job_id":  jobID,
		"message": "Cancellation requested",
	})
}

// readError maps read-operation failures onto HTTP statuses: unknown
// jobs respond 404, jobs that are not READY 409, bad arguments 400.
func readError(c *fiber.Ctx, err error) error {
	if errors.Is(err, pipeline.ErrUnknownJob) {
		return c.Status(404).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "ERR_UNKNOWN_JOB",
		})
	}
	var ce *types.Error
	if errors.As(err, &ce) && ce.Kind == types.KindNotReady {
		return c.Status(409).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "ERR_JOB_NOT_READY",
		})
	}
	return c.Status(400).JSON(fiber.Map{
		"error": err.Error(),
		"code":  "ERR_BAD_REQUEST",
	})
}