package pipeline

import (
	"sync"
	"time"

	"github.com/codebuildervaibhav/transcript-agent/internal/download"
	"github.com/codebuildervaibhav/transcript-agent/internal/types"
)

// Job is one end-to-end request to produce a ready transcript for a
// source + model tier pair. State is mutated only by the orchestrator;
// callers poll it through Progress.
type Job struct {
	ID        string
	Source    string
	Tier      types.ModelTier
	CreatedAt time.Time

	mu    sync.Mutex
	state types.JobState
	err   error
	info  download.VideoInfo

	cancelOnce sync.Once
	cancelCh   chan struct{}
	done       chan struct{}
}

func newJob(id, source string, tier types.ModelTier) *Job {
	return &Job{
		ID:        id,
		Source:    source,
		Tier:      tier,
		CreatedAt: time.Now(),
		state:     types.StateQueued,
		cancelCh:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (j *Job) State() types.JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Err returns the classified error for a FAILED job, nil otherwise.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Info returns the source metadata once the download stage collected it.
func (j *Job) Info() download.VideoInfo {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.info
}

// Done is closed when the job reaches a terminal state.
func (j *Job) Done() <-chan struct{} { return j.done }

// cancel requests cooperative cancellation. The flag is observed at
// stage boundaries; in-flight collaborator calls are not force-killed
// but their results are discarded.
func (j *Job) cancel() {
	j.cancelOnce.Do(func() { close(j.cancelCh) })
}

func (j *Job) cancelRequested() bool {
	select {
	case <-j.cancelCh:
		return true
	default:
		return false
	}
}

func (j *Job) setState(s types.JobState) {
	j.mu.Lock()
	j.state = s
	j.mu.Unlock()
}

func (j *Job) setInfo(info download.VideoInfo) {
	j.mu.Lock()
	j.info = info
	j.mu.Unlock()
}

func (j *Job) fail(err error) {
	j.mu.Lock()
	j.state = types.StateFailed
	j.err = err
	j.mu.Unlock()
}

// Progress is a coarse snapshot of a job for polling callers. Percent
// uses fixed per-stage weights, not collaborator internals.
type Progress struct {
	JobID   string             `json:"job_id"`
	Source  string             `json:"source"`
	Tier    types.ModelTier    `json:"model_tier"`
	State   types.JobState     `json:"state"`
	Percent int                `json:"percent"`
	Error   string             `json:"error,omitempty"`
	Info    download.VideoInfo `json:"video_info"`
}

var stageWeights = map[types.JobState]int{
	types.StateQueued:       0,
	types.StateDownloading:  20,
	types.StateTranscribing: 55,
	types.StateIndexing:     90,
	types.StateReady:        100,
	types.StateFailed:       100,
	types.StateCancelled:    100,
}

// Snapshot builds the progress view of the job.
func (j *Job) Snapshot() Progress {
	j.mu.Lock()
	defer j.mu.Unlock()

	p := Progress{
		JobID:   j.ID,
		Source:  j.Source,
		Tier:    j.Tier,
		State:   j.state,
		Percent: stageWeights[j.state],
		Info:    j.info,
	}
	if j.err != nil {
		p.Error = j.err.Error()
	}
	return p
}