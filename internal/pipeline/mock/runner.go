// Package mock provides pipeline.Runner test doubles.
package mock

import (
	"context"

	"github.com/biosphere-bio/workflow-api/internal/pipeline"
	"github.com/biosphere-bio/workflow-api/pkg/models"
)

// Runner satisfies pipeline.Runner for testing.
type Runner struct {
	Name_   string
	RunFunc func(ctx context.Context, job pipeline.Job) (*pipeline.Result, error)
}

func (m *Runner) Name() string { return m.Name_ }

func (m *Runner) Run(ctx context.Context, job pipeline.Job) (*pipeline.Result, error) {
	if m.RunFunc != nil {
		return m.RunFunc(ctx, job)
	}
	return &pipeline.Result{Type: models.ResultEmbeddings}, nil
}

// NewRunner returns a Runner that walks every progress checkpoint and
// produces a small embeddings result.
func NewRunner() *Runner {
	return &Runner{
		Name_: "mock",
		RunFunc: func(_ context.Context, job pipeline.Job) (*pipeline.Result, error) {
			for _, p := range []float64{
				pipeline.ProgressStarted,
				pipeline.ProgressInputLoaded,
				pipeline.ProgressModelReady,
				pipeline.ProgressDataProcessed,
				pipeline.ProgressInferenceDone,
			} {
				pipeline.Report(job.Progress, p)
			}
			return &pipeline.Result{
				Type:        models.ResultEmbeddings,
				FilePath:    job.ModelID + "_embeddings_" + job.WorkflowID + ".pt",
				ContentType: "application/octet-stream",
				FileSize:    64,
			}, nil
		},
	}
}

// NewFailingRunner returns a Runner that always returns the given error.
func NewFailingRunner(err error) *Runner {
	return &Runner{
		Name_: "mock-failing",
		RunFunc: func(_ context.Context, _ pipeline.Job) (*pipeline.Result, error) {
			return nil, err
		},
	}
}

// NewBlockingRunner returns a Runner that blocks until the context is
// cancelled.
func NewBlockingRunner() *Runner {
	return &Runner{
		Name_: "mock-blocking",
		RunFunc: func(ctx context.Context, _ pipeline.Job) (*pipeline.Result, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
}

// Compile-time check that Runner implements pipeline.Runner.
var _ pipeline.Runner = (*Runner)(nil)
