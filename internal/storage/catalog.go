package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/codebuildervaibhav/transcript-agent/internal/types"
)

// CatalogEntry records one exported transcript.
type CatalogEntry struct {
	JobID      string          `json:"job_id"`
	Source     string          `json:"source"`
	Tier       types.ModelTier `json:"model_tier"`
	Title      string          `json:"title"`
	Uploader   string          `json:"uploader"`
	Duration   float64         `json:"duration"`
	WordCount  int             `json:"word_count"`
	ExportPath string          `json:"export_path"`
	DriveURL   string          `json:"drive_url,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Catalog is the SQLite index of exported transcripts. Transcripts
// themselves live in the in-memory cache; the catalog only records
// what was explicitly exported and where it went.
type Catalog struct {
	db *sql.DB
}

// NewCatalog opens (and if needed initializes) the catalog database.
func NewCatalog(dbPath string) (*Catalog, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS exports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL UNIQUE,
		source TEXT NOT NULL,
		model_tier TEXT NOT NULL,
		title TEXT,
		uploader TEXT,
		duration REAL,
		word_count INTEGER,
		export_path TEXT NOT NULL,
		drive_url TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_exports_created_at ON exports(created_at);
	CREATE INDEX IF NOT EXISTS idx_exports_source ON exports(source);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create table: %v", err)
	}

	return &Catalog{db: db}, nil
}

// Save records an exported transcript, replacing any earlier export of
// the same job.
func (c *Catalog) Save(entry CatalogEntry) error {
	query := `
	INSERT OR REPLACE INTO exports
		(job_id, source, model_tier, title, uploader, duration, word_count, export_path, drive_url, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(query, entry.JobID, entry.Source, string(entry.Tier),
		entry.Title, entry.Uploader, entry.Duration, entry.WordCount,
		entry.ExportPath, entry.DriveURL, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save export record: %v", err)
	}
	return nil
}

// Get retrieves the export record for a job.
func (c *Catalog) Get(jobID string) (CatalogEntry, error) {
	query := `
	SELECT job_id, source, model_tier, title, uploader, duration, word_count, export_path, drive_url, created_at
	FROM exports WHERE job_id = ?
	`

	var entry CatalogEntry
	var tier string
	err := c.db.QueryRow(query, jobID).Scan(&entry.JobID, &entry.Source, &tier,
		&entry.Title, &entry.Uploader, &entry.Duration, &entry.WordCount,
		&entry.ExportPath, &entry.DriveURL, &entry.CreatedAt)
	if err != nil {
		return CatalogEntry{}, fmt.Errorf("failed to get export record: %v", err)
	}
	entry.Tier = types.ModelTier(tier)
	return entry, nil
}

// List returns the most recent export records, newest first.
func (c *Catalog) List(limit int) ([]CatalogEntry, error) {
	query := `
	SELECT job_id, source, model_tier, title, uploader, duration, word_count, export_path, drive_url, created_at
	FROM exports ORDER BY created_at DESC LIMIT ?
	`

	rows, err := c.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %v", err)
	}
	defer rows.Close()

	var entries []CatalogEntry
	for rows.Next() {
		var entry CatalogEntry
		var tier string
		if err := rows.Scan(&entry.JobID, &entry.Source, &tier,
			&entry.Title, &entry.Uploader, &entry.Duration, &entry.WordCount,
			&entry.ExportPath, &entry.DriveURL, &entry.CreatedAt); err != nil {
			continue
		}
		entry.Tier = types.ModelTier(tier)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}