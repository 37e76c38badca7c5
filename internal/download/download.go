package download

import "context"

// VideoInfo is the source metadata collected alongside the audio.
type VideoInfo struct {
	Title    string  `json:"title"`
	Uploader string  `json:"uploader"`
	Duration float64 `json:"duration"`
	Views    int64   `json:"views"`
}

// Result is a completed fetch: the downloaded audio file plus metadata.
type Result struct {
	AudioPath string
	Info      VideoInfo
}

// Downloader fetches audio for a source identifier. Errors must be
// classified via types.Error so the orchestrator can tell transient
// failures (retried with backoff) from permanent ones (unavailable or
// restricted sources, failed immediately).
type Downloader interface {
	Fetch(ctx context.Context, sourceID string) (Result, error)
}