package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biosphere-bio/workflow-api/internal/pipeline"
	"github.com/biosphere-bio/workflow-api/internal/pipeline/mock"
	"github.com/biosphere-bio/workflow-api/pkg/models"
)

func TestRegistry_GetKnownModel(t *testing.T) {
	reg := pipeline.NewRegistry()

	def, err := reg.Get("scgpt")
	require.NoError(t, err)
	assert.Equal(t, "scGPT", def.Name)
	assert.Equal(t, models.ModelTypeRNA, def.Type)
	assert.True(t, def.RequiresGPU)
}

func TestRegistry_GetUnknownModelNamesTheID(t *testing.T) {
	reg := pipeline.NewRegistry()

	_, err := reg.Get("flux-capacitor")
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrUnknownModel)
	assert.Contains(t, err.Error(), "flux-capacitor")
}

func TestRegistry_ListAllSortedByID(t *testing.T) {
	reg := pipeline.NewRegistry()

	defs := reg.List("")
	require.Len(t, defs, 7)
	for i := 1; i < len(defs); i++ {
		assert.Less(t, defs[i-1].ID, defs[i].ID)
	}
}

func TestRegistry_ListFiltersByType(t *testing.T) {
	reg := pipeline.NewRegistry()

	dna := reg.List(models.ModelTypeDNA)
	require.Len(t, dna, 2)
	for _, def := range dna {
		assert.Equal(t, models.ModelTypeDNA, def.Type)
	}

	rna := reg.List(models.ModelTypeRNA)
	require.Len(t, rna, 5)
	for _, def := range rna {
		assert.Equal(t, models.ModelTypeRNA, def.Type)
	}
}

func TestDispatcher_RejectsUnknownModelBeforeBackend(t *testing.T) {
	backendCalled := false
	backend := &mock.Runner{
		Name_: "backend",
		RunFunc: func(_ context.Context, _ pipeline.Job) (*pipeline.Result, error) {
			backendCalled = true
			return &pipeline.Result{Type: models.ResultEmbeddings}, nil
		},
	}
	d := pipeline.NewDispatcher(pipeline.NewRegistry(), backend)

	_, err := d.Run(context.Background(), pipeline.Job{WorkflowID: "wf", ModelID: "nope"})
	assert.ErrorIs(t, err, pipeline.ErrUnknownModel)
	assert.False(t, backendCalled, "backend must not run for an unknown model")
}

func TestDispatcher_DelegatesKnownModel(t *testing.T) {
	backend := mock.NewRunner()
	d := pipeline.NewDispatcher(pipeline.NewRegistry(), backend)

	res, err := d.Run(context.Background(), pipeline.Job{WorkflowID: "wf", ModelID: "geneformer"})
	require.NoError(t, err)
	assert.Equal(t, models.ResultEmbeddings, res.Type)
	assert.Equal(t, backend.Name(), d.Name())
}

func TestDispatcher_PropagatesBackendError(t *testing.T) {
	boom := errors.New("sidecar on fire")
	d := pipeline.NewDispatcher(pipeline.NewRegistry(), mock.NewFailingRunner(boom))

	_, err := d.Run(context.Background(), pipeline.Job{WorkflowID: "wf", ModelID: "uce"})
	assert.ErrorIs(t, err, boom)
}

func TestReport_ClampsAndToleratesNil(t *testing.T) {
	var got []float64
	cb := func(p float64) { got = append(got, p) }

	pipeline.Report(cb, -0.5)
	pipeline.Report(cb, 0.5)
	pipeline.Report(cb, 1.5)
	pipeline.Report(nil, 0.9)

	assert.Equal(t, []float64{0.0, 0.5, 1.0}, got)
}
