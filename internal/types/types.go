package types

import "fmt"

// ModelTier is a named accuracy/speed tradeoff for the recognition model.
type ModelTier string

const (
	TierTiny   ModelTier = "tiny"
	TierBase   ModelTier = "base"
	TierSmall  ModelTier = "small"
	TierMedium ModelTier = "medium"
	TierLarge  ModelTier = "large"
)

// ParseModelTier validates a tier name coming from a request.
// An empty string selects the default tier.
func ParseModelTier(s string) (ModelTier, error) {
	switch ModelTier(s) {
	case TierTiny, TierBase, TierSmall, TierMedium, TierLarge:
		return ModelTier(s), nil
	case "":
		return TierBase, nil
	}
	return "", fmt.Errorf("unknown model tier %q", s)
}

// JobState is the lifecycle state of a transcription job.
type JobState string

const (
	StateQueued       JobState = "QUEUED"
	StateDownloading  JobState = "DOWNLOADING"
	StateTranscribing JobState = "TRANSCRIBING"
	StateIndexing     JobState = "INDEXING"
	StateReady        JobState = "READY"
	StateFailed       JobState = "FAILED"
	StateCancelled    JobState = "CANCELLED"
)

// Terminal reports whether no further transitions can happen from s.
func (s JobState) Terminal() bool {
	return s == StateReady || s == StateFailed || s == StateCancelled
}

// Segment is one timestamped chunk of recognized speech text.
// Times are seconds from the start of the audio.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}