package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codebuildervaibhav/transcript-agent/internal/cache"
	"github.com/codebuildervaibhav/transcript-agent/internal/download"
	"github.com/codebuildervaibhav/transcript-agent/internal/recognition"
	"github.com/codebuildervaibhav/transcript-agent/internal/transcript"
	"github.com/codebuildervaibhav/transcript-agent/internal/types"
)

// Config tunes the orchestrator.
type Config struct {
	MaxAttempts   int           // download attempts before giving up
	RetryBase     time.Duration // backoff unit, attempt²·RetryBase between attempts
	MaxConcurrent int           // jobs processed in parallel
	TempDir       string        // working directory for audio files
}

// Orchestrator drives jobs through Queued → Downloading → Transcribing
// → Indexing → Ready, with Failed and Cancelled reachable from every
// non-terminal state. Stage transitions within a job are strictly
// sequential; independent jobs interleave freely up to MaxConcurrent.
type Orchestrator struct {
	cfg        Config
	downloader download.Downloader
	recognizer recognition.Recognizer
	stores     *cache.StoreCache
	models     *cache.ModelCache
	condenser  transcript.Condenser

	mu       sync.Mutex
	jobs     map[string]*Job
	inflight map[cache.StoreKey]*Job
	sem      chan struct{}
}

// New creates an orchestrator. condenser may be nil for extractive
// summaries.
func New(cfg Config, dl download.Downloader, rec recognition.Recognizer,
	stores *cache.StoreCache, models *cache.ModelCache, condenser transcript.Condenser) *Orchestrator {

	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = time.Second
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 2
	}
	return &Orchestrator{
		cfg:        cfg,
		downloader: dl,
		recognizer: rec,
		stores:     stores,
		models:     models,
		condenser:  condenser,
		jobs:       make(map[string]*Job),
		inflight:   make(map[cache.StoreKey]*Job),
		sem:        make(chan struct{}, cfg.MaxConcurrent),
	}
}

// Submit schedules transcription of source at tier. If an equivalent
// ready transcript is cached, the returned job is READY immediately
// with no side effects; if an equivalent job is still in flight, that
// same job is returned instead of starting a duplicate download.
func (o *Orchestrator) Submit(source string, tier types.ModelTier) *Job {
	key := cache.StoreKey{Source: source, Tier: tier}

	o.mu.Lock()
	defer o.mu.Unlock()

	if job, ok := o.inflight[key]; ok {
		log.Printf("Job %s already in flight for %s/%s, reusing", job.ID, source, tier)
		return job
	}

	job := newJob(uuid.New().String(), source, tier)
	o.jobs[job.ID] = job

	if handle := o.stores.Acquire(key); handle != nil {
		handle.Release()
		job.setState(types.StateReady)
		close(job.done)
		log.Printf("Job %s served from cache (%s/%s)", job.ID, source, tier)
		return job
	}

	o.inflight[key] = job
	go o.run(job, key)
	log.Printf("Job %s queued (source: %s, tier: %s)", job.ID, source, tier)
	return job
}

// ErrUnknownJob is returned when a job ID has never been submitted.
var ErrUnknownJob = errors.New("unknown job")

// Job looks up a job by ID.
func (o *Orchestrator) Job(id string) (*Job, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	job, ok := o.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownJob, id)
	}
	return job, nil
}

// Cancel requests cooperative cancellation of a job. Terminal jobs are
// left untouched.
func (o *Orchestrator) Cancel(id string) error {
	job, err := o.Job(id)
	if err != nil {
		return err
	}
	job.cancel()
	return nil
}

// Progress returns the coarse progress snapshot for a job.
func (o *Orchestrator) Progress(id string) (Progress, error) {
	job, err := o.Job(id)
	if err != nil {
		return Progress{}, err
	}
	return job.Snapshot(), nil
}

// run processes one job end to end. Each stage checks for cancellation
// at its boundary; a cancelled job's partial results are discarded and
// never published to the cache.
func (o *Orchestrator) run(job *Job, key cache.StoreKey) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC processing job %s: %v\n%s", job.ID, r, string(debug.Stack()))
			job.fail(fmt.Errorf("internal error: %v", r))
		}
		o.mu.Lock()
		delete(o.inflight, key)
		o.mu.Unlock()
		close(job.done)
	}()

	// Wait for a worker slot, honoring cancellation while queued.
	select {
	case o.sem <- struct{}{}:
		defer func() { <-o.sem }()
	case <-job.cancelCh:
		o.finishCancelled(job)
		return
	}
	if job.cancelRequested() {
		o.finishCancelled(job)
		return
	}

	// Stage: Downloading.
	job.setState(types.StateDownloading)
	res, err := o.fetchWithRetry(job)
	if err != nil {
		if types.KindOf(err) == types.KindCancelled {
			o.finishCancelled(job)
			return
		}
		job.fail(err)
		log.Printf("Job %s failed in download: %v", job.ID, err)
		return
	}
	defer o.cleanupTempFile(res.AudioPath)
	job.setInfo(res.Info)

	if job.cancelRequested() {
		o.finishCancelled(job)
		return
	}

	// Stage: Transcribing. The model handle comes from the cache,
	// which serializes loads per tier.
	job.setState(types.StateTranscribing)
	handle, releaseModel, err := o.models.Acquire(context.Background(), job.Tier)
	if err != nil {
		job.fail(err)
		log.Printf("Job %s failed to load model %q: %v", job.ID, job.Tier, err)
		return
	}

	segments, err := o.recognizer.Transcribe(context.Background(), res.AudioPath, handle)
	releaseModel()
	if err != nil {
		job.fail(err)
		log.Printf("Job %s failed in transcription: %v", job.ID, err)
		return
	}

	if job.cancelRequested() {
		o.finishCancelled(job)
		return
	}

	// Stage: Indexing.
	job.setState(types.StateIndexing)
	store := transcript.NewStore(segments)
	index := transcript.NewIndex(store)

	if job.cancelRequested() {
		// Discard the partial build; nothing reaches the cache.
		o.finishCancelled(job)
		return
	}

	o.stores.Insert(key, store, index)
	job.setState(types.StateReady)
	log.Printf("Job %s ready: %d segments, %s of audio",
		job.ID, store.Len(), transcript.FormatTimestamp(store.Duration()))
}

// fetchWithRetry drives the download collaborator with bounded
// exponential backoff. Only transient errors are retried; a source
// classified unavailable or restricted fails immediately.
func (o *Orchestrator) fetchWithRetry(job *Job) (download.Result, error) {
	var lastErr error
	for attempt := 1; attempt <= o.cfg.MaxAttempts; attempt++ {
		if job.cancelRequested() {
			return download.Result{}, types.Errorf(types.KindCancelled, "job cancelled")
		}

		res, err := o.downloader.Fetch(context.Background(), job.Source)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if !types.Retryable(err) {
			return download.Result{}, err
		}
		log.Printf("Job %s: download attempt %d/%d failed: %v",
			job.ID, attempt, o.cfg.MaxAttempts, err)

		if attempt < o.cfg.MaxAttempts {
			delay := time.Duration(attempt*attempt) * o.cfg.RetryBase
			select {
			case <-time.After(delay):
			case <-job.cancelCh:
				return download.Result{}, types.Errorf(types.KindCancelled, "job cancelled")
			}
		}
	}
	return download.Result{}, lastErr
}

func (o *Orchestrator) finishCancelled(job *Job) {
	job.setState(types.StateCancelled)
	log.Printf("Job %s cancelled", job.ID)
}

func (o *Orchestrator) cleanupTempFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to cleanup temp file %s: %v", path, err)
	}
}