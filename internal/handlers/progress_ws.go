package handlers

import (
	"log"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/codebuildervaibhav/transcript-agent/internal/pipeline"
)

// ProgressStreamHandler pushes job progress snapshots over WebSocket
// until the job reaches a terminal state, so UIs don't have to poll.
type ProgressStreamHandler struct {
	orchestrator *pipeline.Orchestrator
	interval     time.Duration
}

// NewProgressStreamHandler creates a new progress stream handler.
func NewProgressStreamHandler(orchestrator *pipeline.Orchestrator) *ProgressStreamHandler {
	return &ProgressStreamHandler{orchestrator: orchestrator, interval: 500 * time.Millisecond}
}

// Handle streams snapshots for the job in the :id route parameter.
func (h *ProgressStreamHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	jobID := c.Params("id")
	job, err := h.orchestrator.Job(jobID)
	if err != nil {
		c.WriteJSON(map[string]string{"error": "Job not found", "code": "ERR_UNKNOWN_JOB"})
		return
	}

	log.Printf("Progress stream opened for job %s", jobID)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last pipeline.Progress
	first := true
	for {
		snapshot := job.Snapshot()
		if first || snapshot != last {
			if err := c.WriteJSON(snapshot); err != nil {
				log.Printf("Progress stream write error for job %s: %v", jobID, err)
				return
			}
			last, first = snapshot, false
		}
		if snapshot.State.Terminal() {
			return
		}

		select {
		case <-ticker.C:
		case <-job.Done():
		}
	}
}