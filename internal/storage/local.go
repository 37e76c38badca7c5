package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExportStore writes exported transcripts to the local filesystem.
type ExportStore struct {
	outputDir string
}

// NewExportStore creates a store rooted at outputDir.
func NewExportStore(outputDir string) *ExportStore {
	return &ExportStore{outputDir: outputDir}
}

// Save writes the transcript text and a metadata sidecar under a dated
// directory (outputs/2026/08/30/) and returns the transcript path.
func (es *ExportStore) Save(title, text string, entry CatalogEntry) (string, error) {
	now := time.Now()
	dateDir := filepath.Join(es.outputDir,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()))

	if err := os.MkdirAll(dateDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create date directory: %v", err)
	}

	timestamp := now.Format("20060102_150405")
	baseFilename := fmt.Sprintf("%s_%s", timestamp, sanitizeFilename(title))

	txtPath := filepath.Join(dateDir, baseFilename+".txt")
	metaPath := filepath.Join(dateDir, baseFilename+"_meta.json")

	if err := os.WriteFile(txtPath, []byte(text), 0644); err != nil {
		return "", fmt.Errorf("failed to save transcript: %v", err)
	}

	entry.ExportPath = txtPath
	metaJSON, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %v", err)
	}
	if err := os.WriteFile(metaPath, metaJSON, 0644); err != nil {
		return "", fmt.Errorf("failed to save metadata: %v", err)
	}

	return txtPath, nil
}

// sanitizeFilename strips path separators and characters that are
// invalid on common filesystems.
func sanitizeFilename(name string) string {
	result := filepath.Base(name)
	for _, ch := range []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"} {
		result = strings.ReplaceAll(result, ch, "_")
	}
	if result == "." || result == "" {
		result = "transcript"
	}
	if len(result) > 100 {
		result = result[:100]
	}
	return result
}