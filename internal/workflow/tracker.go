package workflow

import (
	"log/slog"
	"sync"

	"github.com/biosphere-bio/workflow-api/pkg/models"
)

// Tracker holds the ephemeral, process-lifetime-only progress view of
// jobs known to this process. It is deliberately not persisted: updates
// must stay cheap enough to run many times per pipeline pass, and the
// durable record store is the backstop after a restart.
//
// Updates for unknown ids log a warning and do nothing; progress
// reporting must never interrupt a pipeline run.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]*models.ProgressEntry
}

func NewTracker() *Tracker {
	return &Tracker{entries: make(map[string]*models.ProgressEntry)}
}

// Create initializes the entry for a freshly enqueued job, overwriting
// any stale entry left under the same id.
func (t *Tracker) Create(jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[jobID] = &models.ProgressEntry{
		JobID:  jobID,
		Status: models.StatusPending,
	}
}

// Get returns a copy of the entry, if one exists.
func (t *Tracker) Get(jobID string) (models.ProgressEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[jobID]
	if !ok {
		return models.ProgressEntry{}, false
	}
	return *entry, true
}

// UpdateProgress sets the live progress value for a job.
func (t *Tracker) UpdateProgress(jobID string, progress float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[jobID]
	if !ok {
		slog.Warn("progress update for unknown workflow", "workflow_id", jobID, "progress", progress)
		return
	}
	entry.Progress = progress
}

// UpdateStatus sets the coarse live status for a job.
func (t *Tracker) UpdateStatus(jobID string, status models.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[jobID]
	if !ok {
		slog.Warn("status update for unknown workflow", "workflow_id", jobID, "status", status)
		return
	}
	entry.Status = status
}

// SetError marks the entry failed and records the error text.
func (t *Tracker) SetError(jobID, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[jobID]
	if !ok {
		slog.Warn("error report for unknown workflow", "workflow_id", jobID)
		return
	}
	entry.Status = models.StatusFailed
	entry.Error = &message
}

// SetResult marks the entry completed and stores the result snapshot.
func (t *Tracker) SetResult(jobID string, result models.ResultItem) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[jobID]
	if !ok {
		slog.Warn("result report for unknown workflow", "workflow_id", jobID)
		return
	}
	entry.Status = models.StatusCompleted
	entry.Result = &result
}

// Evict removes an entry, as a process restart would.
func (t *Tracker) Evict(jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, jobID)
}
