package pipeline

import (
	"github.com/codebuildervaibhav/transcript-agent/internal/cache"
	"github.com/codebuildervaibhav/transcript-agent/internal/transcript"
	"github.com/codebuildervaibhav/transcript-agent/internal/types"
)

// Transcript returns a pinned handle to a READY job's transcript. The
// caller must Release it. Jobs that are not READY, or whose transcript
// has been evicted, fail fast with a KindNotReady error instead of
// blocking.
func (o *Orchestrator) Transcript(jobID string) (*cache.StoreHandle, error) {
	job, err := o.Job(jobID)
	if err != nil {
		return nil, err
	}
	if state := job.State(); state != types.StateReady {
		return nil, types.Errorf(types.KindNotReady, "job %s is %s", jobID, state)
	}

	key := cache.StoreKey{Source: job.Source, Tier: job.Tier}
	handle := o.stores.Acquire(key)
	if handle == nil {
		return nil, types.Errorf(types.KindNotReady, "transcript for job %s was evicted", jobID)
	}
	return handle, nil
}

// Search runs a phrase query against a READY job's transcript.
func (o *Orchestrator) Search(jobID, query string, caseSensitive bool) ([]transcript.SearchHit, error) {
	handle, err := o.Transcript(jobID)
	if err != nil {
		return nil, err
	}
	defer handle.Release()
	return handle.Index.SearchAll(query, caseSensitive), nil
}

// Summarize condenses segments [from,to] of a READY job's transcript
// to at most maxChars characters. Negative bounds select everything.
func (o *Orchestrator) Summarize(jobID string, maxChars, from, to int) ([]transcript.SummaryUnit, error) {
	handle, err := o.Transcript(jobID)
	if err != nil {
		return nil, err
	}
	defer handle.Release()
	return transcript.NewSummarizer(o.condenser).Summarize(handle.Store, maxChars, from, to)
}

// Export renders a READY job's transcript as [HH:MM:SS] lines.
func (o *Orchestrator) Export(jobID string) (string, error) {
	handle, err := o.Transcript(jobID)
	if err != nil {
		return "", err
	}
	defer handle.Release()
	return handle.Store.Export(), nil
}