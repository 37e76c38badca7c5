package recognition

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/codebuildervaibhav/transcript-agent/internal/types"
)

// WhisperLoader loads Whisper models by warming the weight cache via
// the Python runtime. The first load of a tier downloads the weights,
// which can take minutes for the large tiers.
type WhisperLoader struct {
	python string
}

// NewWhisperLoader creates a loader invoking the given Python binary.
func NewWhisperLoader(python string) *WhisperLoader {
	if python == "" {
		python = "python"
	}
	return &WhisperLoader{python: python}
}

// Load ensures the weights for tier are present and importable.
func (wl *WhisperLoader) Load(ctx context.Context, tier types.ModelTier) (ModelHandle, error) {
	log.Printf("Loading whisper model %q...", tier)
	start := time.Now()

	script := fmt.Sprintf("import whisper; whisper.load_model(%q)", string(tier))
	cmd := exec.CommandContext(ctx, wl.python, "-c", script)
	if output, err := cmd.CombinedOutput(); err != nil {
		return ModelHandle{}, types.Errorf(types.KindModelLoad,
			"load whisper model %q: %v\nOutput: %s", tier, err, string(output))
	}

	log.Printf("Whisper model %q ready in %s", tier, time.Since(start).Round(time.Second))
	return ModelHandle{Tier: tier, LoadedAt: time.Now()}, nil
}

// Unload is a no-op for the subprocess backend: the weights stay in
// Whisper's on-disk cache and nothing is held in this process.
func (wl *WhisperLoader) Unload(ModelHandle) {}

// WhisperRecognizer shells out to Python's OpenAI Whisper and parses
// its JSON output into segments.
type WhisperRecognizer struct {
	python  string
	workDir string
}

// NewWhisperRecognizer creates a recognizer writing scratch output
// under workDir.
func NewWhisperRecognizer(python, workDir string) *WhisperRecognizer {
	if python == "" {
		python = "python"
	}
	return &WhisperRecognizer{python: python, workDir: workDir}
}

// Transcribe normalizes the audio to 16kHz mono WAV and runs Whisper
// on it with the handle's tier.
func (wr *WhisperRecognizer) Transcribe(ctx context.Context, audioPath string, model ModelHandle) ([]types.Segment, error) {
	normalized, err := NormalizeAudio(ctx, audioPath, wr.workDir)
	if err != nil {
		return nil, fmt.Errorf("audio normalization failed: %w", err)
	}
	defer os.Remove(normalized)
	audioPath = normalized

	outDir, err := os.MkdirTemp(wr.workDir, "whisper_output_")
	if err != nil {
		return nil, fmt.Errorf("create whisper output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	absAudioPath, err := filepath.Abs(audioPath)
	if err != nil {
		return nil, fmt.Errorf("resolve audio path: %w", err)
	}

	log.Printf("Transcribing %s with whisper model %q", filepath.Base(audioPath), model.Tier)

	cmd := exec.CommandContext(ctx, wr.python, "-m", "whisper",
		absAudioPath,
		"--model", string(model.Tier),
		"--output_dir", outDir,
		"--output_format", "json",
		"--fp16", "False", // CPU compatibility
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("whisper transcription failed: %v\nOutput: %s", err, string(output))
	}

	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	jsonPath := filepath.Join(outDir, baseName+".json")

	jsonData, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("read whisper output: %w", err)
	}

	var parsed whisperOutput
	if err := json.Unmarshal(jsonData, &parsed); err != nil {
		return nil, fmt.Errorf("parse whisper JSON: %w", err)
	}

	// Segment text is kept exactly as Whisper emitted it, leading
	// spaces included, so the store's concatenation preserves the
	// gaps between words across segment boundaries.
	segments := make([]types.Segment, len(parsed.Segments))
	for i, seg := range parsed.Segments {
		segments[i] = types.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  seg.Text,
		}
	}

	log.Printf("Transcription completed: %d segments", len(segments))
	return segments, nil
}

// whisperOutput matches Python Whisper's JSON output format.
type whisperOutput struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Segments []whisperSegment `json:"segments"`
}

type whisperSegment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}