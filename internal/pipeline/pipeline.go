// Package pipeline defines the contract between the workflow
// orchestrator and the inference backends that execute model runs.
package pipeline

import (
	"context"

	"github.com/biosphere-bio/workflow-api/pkg/models"
)

// ProgressFunc receives checkpoint values in [0.0, 1.0] during a run.
// Implementations must tolerate a nil callback.
type ProgressFunc func(progress float64)

// Fixed checkpoints reported over a single inference pass.
const (
	ProgressStarted       = 0.0
	ProgressInputLoaded   = 0.4
	ProgressModelReady    = 0.5
	ProgressDataProcessed = 0.7
	ProgressInferenceDone = 0.9
	ProgressPersisted     = 1.0
)

// Job carries everything a runner needs for one inference pass.
type Job struct {
	WorkflowID string
	ModelID    string
	InputPath  string
	Progress   ProgressFunc
}

// Result describes the artifact a run produced. The orchestrator assigns
// the result id and appends it to the durable record.
type Result struct {
	Type        models.ResultType
	FilePath    string
	ContentType string
	FileSize    int64
}

// Runner executes one inference job. Any returned error marks the job
// failed with the stringified cause; no retries are attempted.
type Runner interface {
	Name() string
	Run(ctx context.Context, job Job) (*Result, error)
}

// Report invokes cb if non-nil, clamping progress into [0, 1].
func Report(cb ProgressFunc, progress float64) {
	if cb == nil {
		return
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	cb(progress)
}
