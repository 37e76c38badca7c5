package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/transcript-agent/internal/pipeline"
	"github.com/codebuildervaibhav/transcript-agent/internal/transcript"
)

// SearchHandler answers phrase queries against ready transcripts.
type SearchHandler struct {
	orchestrator *pipeline.Orchestrator
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(orchestrator *pipeline.Orchestrator) *SearchHandler {
	return &SearchHandler{orchestrator: orchestrator}
}

// Handle runs the query from ?q= against the job's transcript.
// ?case=1 makes matching case-sensitive.
func (h *SearchHandler) Handle(c *fiber.Ctx) error {
	query := c.Query("q")
	caseSensitive := c.QueryBool("case")

	hits, err := h.orchestrator.Search(c.Params("id"), query, caseSensitive)
	if err != nil {
		return readError(c, err)
	}
	if hits == nil {
		hits = []transcript.SearchHit{}
	}

	return c.JSON(fiber.Map{
		"query": query,
		"count": len(hits),
		"hits":  hits,
	})
}