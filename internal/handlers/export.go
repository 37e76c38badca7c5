package handlers

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/transcript-agent/internal/pipeline"
	"github.com/codebuildervaibhav/transcript-agent/internal/storage"
)

// ExportHandler renders ready transcripts as plain text and optionally
// persists them (local file, catalog record, Drive upload).
type ExportHandler struct {
	orchestrator *pipeline.Orchestrator
	exports      *storage.ExportStore
	driveClient  *storage.DriveClient // nil when Drive is not configured
	catalog      *storage.Catalog
}

// NewExportHandler creates a new export handler. driveClient may be nil.
func NewExportHandler(orchestrator *pipeline.Orchestrator, exports *storage.ExportStore,
	driveClient *storage.DriveClient, catalog *storage.Catalog) *ExportHandler {
	return &ExportHandler{
		orchestrator: orchestrator,
		exports:      exports,
		driveClient:  driveClient,
		catalog:      catalog,
	}
}

// Handle returns the transcript as `[HH:MM:SS] text` lines. With
// ?save=1 it also writes the export to disk, records it in the catalog
// and, if configured, uploads it to Drive.
func (h *ExportHandler) Handle(c *fiber.Ctx) error {
	jobID := c.Params("id")

	text, err := h.orchestrator.Export(jobID)
	if err != nil {
		return readError(c, err)
	}

	if !c.QueryBool("save") {
		c.Set("Content-Type", "text/plain; charset=utf-8")
		return c.SendString(text)
	}

	entry, err := h.save(jobID, text)
	if err != nil {
		log.Printf("Export save failed for job %s: %v", jobID, err)
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to save export",
			"code":  "ERR_SAVE_FAILED",
		})
	}
	return c.JSON(entry)
}

func (h *ExportHandler) save(jobID, text string) (storage.CatalogEntry, error) {
	job, err := h.orchestrator.Job(jobID)
	if err != nil {
		return storage.CatalogEntry{}, err
	}
	handle, err := h.orchestrator.Transcript(jobID)
	if err != nil {
		return storage.CatalogEntry{}, err
	}
	defer handle.Release()

	info := job.Info()
	title := info.Title
	if title == "" {
		title = "transcript"
	}

	entry := storage.CatalogEntry{
		JobID:     jobID,
		Source:    job.Source,
		Tier:      job.Tier,
		Title:     info.Title,
		Uploader:  info.Uploader,
		Duration:  handle.Store.Duration(),
		WordCount: handle.Store.WordCount(),
		CreatedAt: time.Now(),
	}

	path, err := h.exports.Save(title, text, entry)
	if err != nil {
		return storage.CatalogEntry{}, err
	}
	entry.ExportPath = path

	// Drive upload is best-effort, matching the local-first policy:
	// a failed upload keeps the local export.
	if h.driveClient != nil {
		for attempt := 1; attempt <= 3; attempt++ {
			url, err := h.driveClient.Upload(title, text, entry)
			if err == nil {
				entry.DriveURL = url
				break
			}
			log.Printf("Drive upload attempt %d/3 failed for job %s: %v", attempt, jobID, err)
			if attempt < 3 {
				time.Sleep(time.Duration(attempt*attempt) * time.Second)
			}
		}
	}

	if h.catalog != nil {
		if err := h.catalog.Save(entry); err != nil {
			log.Printf("Catalog save failed for job %s: %v", jobID, err)
		}
	}
	return entry, nil
}