package download

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/codebuildervaibhav/transcript-agent/internal/types"
)

// YtDlp downloads source audio with the yt-dlp binary.
// Requires yt-dlp on PATH (pip install yt-dlp).
type YtDlp struct {
	binary  string
	tempDir string
	timeout time.Duration
}

var _ Downloader = (*YtDlp)(nil)

// NewYtDlp creates a downloader writing audio files into tempDir.
// timeout bounds each fetch attempt; zero means no limit.
func NewYtDlp(tempDir string, timeout time.Duration) *YtDlp {
	return &YtDlp{binary: "yt-dlp", tempDir: tempDir, timeout: timeout}
}

// Fetch extracts the source metadata, then downloads the audio track
// as mp3. Both steps go through yt-dlp, matching what the original
// agent did with its Python bindings.
func (d *YtDlp) Fetch(ctx context.Context, sourceID string) (Result, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	info, err := d.probe(ctx, sourceID)
	if err != nil {
		return Result{}, err
	}

	outputPath := filepath.Join(d.tempDir, fmt.Sprintf("%s.mp3", uuid.New().String()))

	log.Printf("Downloading audio: %s (%q)", sourceID, info.Title)
	cmd := exec.CommandContext(ctx, d.binary,
		"-x", // extract audio
		"--audio-format", "mp3",
		"--audio-quality", "192",
		"--no-playlist",
		"--no-warnings",
		"-o", outputPath,
		sourceID,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return Result{}, classify(ctx, sourceID, err, string(output))
	}

	return Result{AudioPath: outputPath, Info: info}, nil
}

// probe runs yt-dlp's JSON dump without downloading to collect the
// video metadata surfaced on job progress and in the catalog.
func (d *YtDlp) probe(ctx context.Context, sourceID string) (VideoInfo, error) {
	cmd := exec.CommandContext(ctx, d.binary, "-J", "--no-playlist", "--no-warnings", sourceID)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return VideoInfo{}, classify(ctx, sourceID, err, string(output))
	}

	var dump struct {
		Title     string  `json:"title"`
		Uploader  string  `json:"uploader"`
		Duration  float64 `json:"duration"`
		ViewCount int64   `json:"view_count"`
	}
	if err := json.Unmarshal(output, &dump); err != nil {
		return VideoInfo{}, types.Errorf(types.KindTransient, "parse yt-dlp metadata for %s: %v", sourceID, err)
	}

	return VideoInfo{
		Title:    dump.Title,
		Uploader: dump.Uploader,
		Duration: dump.Duration,
		Views:    dump.ViewCount,
	}, nil
}

// classify maps yt-dlp failures onto the error taxonomy by matching
// the messages yt-dlp prints for the known permanent cases. Anything
// unrecognized is treated as transient and left to the retry policy.
func classify(ctx context.Context, sourceID string, err error, output string) error {
	if ctx.Err() != nil {
		return types.Errorf(types.KindTransient, "fetch %s: %v", sourceID, ctx.Err())
	}

	lower := strings.ToLower(output)
	switch {
	case strings.Contains(lower, "video unavailable"),
		strings.Contains(lower, "has been removed"),
		strings.Contains(lower, "private video"),
		strings.Contains(lower, "no longer available"):
		return types.Errorf(types.KindUnavailable, "fetch %s: video unavailable", sourceID)
	case strings.Contains(lower, "age-restricted"),
		strings.Contains(lower, "confirm your age"),
		strings.Contains(lower, "not available in your country"),
		strings.Contains(lower, "blocked"),
		strings.Contains(lower, "members-only"):
		return types.Errorf(types.KindRestricted, "fetch %s: source restricted", sourceID)
	}
	return types.Errorf(types.KindTransient, "yt-dlp failed for %s: %v\nOutput: %s", sourceID, err, output)
}