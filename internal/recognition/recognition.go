package recognition

import (
	"context"
	"time"

	"github.com/codebuildervaibhav/transcript-agent/internal/types"
)

// ModelHandle identifies a loaded recognition model. Handles are cheap
// to copy; the expensive state they stand for is owned by the loader.
type ModelHandle struct {
	Tier     types.ModelTier
	LoadedAt time.Time
}

// ModelLoader acquires and releases recognition models. Loading is the
// most expensive step in the pipeline; the model cache serializes loads
// per tier so concurrent jobs share one in-flight load.
type ModelLoader interface {
	Load(ctx context.Context, tier types.ModelTier) (ModelHandle, error)
	Unload(ModelHandle)
}

// Recognizer turns an audio file into an ordered list of timestamped
// segments. Implementations are assumed deterministic for identical
// input; timing noise is tolerated by the store's normalization.
type Recognizer interface {
	Transcribe(ctx context.Context, audioPath string, model ModelHandle) ([]types.Segment, error)
}