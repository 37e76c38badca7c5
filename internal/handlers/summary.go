package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/transcript-agent/internal/pipeline"
	"github.com/codebuildervaibhav/transcript-agent/internal/transcript"
)

// defaultSummaryChars bounds a summary when the caller doesn't say.
const defaultSummaryChars = 1200

// SummaryHandler produces length-bounded summaries of ready transcripts.
type SummaryHandler struct {
	orchestrator *pipeline.Orchestrator
}

// NewSummaryHandler creates a new summary handler.
func NewSummaryHandler(orchestrator *pipeline.Orchestrator) *SummaryHandler {
	return &SummaryHandler{orchestrator: orchestrator}
}

// Handle summarizes segments [?from,?to] of the transcript down to at
// most ?max_chars characters.
func (h *SummaryHandler) Handle(c *fiber.Ctx) error {
	maxChars := c.QueryInt("max_chars", defaultSummaryChars)
	if maxChars <= 0 {
		return c.Status(400).JSON(fiber.Map{
			"error": "max_chars must be positive",
			"code":  "ERR_INVALID_LENGTH",
		})
	}
	from := c.QueryInt("from", -1)
	to := c.QueryInt("to", -1)

	units, err := h.orchestrator.Summarize(c.Params("id"), maxChars, from, to)
	if err != nil {
		return readError(c, err)
	}
	if units == nil {
		units = []transcript.SummaryUnit{}
	}

	return c.JSON(fiber.Map{
		"max_chars": maxChars,
		"count":     len(units),
		"units":     units,
	})
}