package workflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biosphere-bio/workflow-api/internal/workflow"
	"github.com/biosphere-bio/workflow-api/pkg/models"
)

func TestTracker_CreateInitializesPending(t *testing.T) {
	tracker := workflow.NewTracker()
	tracker.Create("job-1")

	entry, ok := tracker.Get("job-1")
	require.True(t, ok)
	assert.Equal(t, models.StatusPending, entry.Status)
	assert.Zero(t, entry.Progress)
	assert.Nil(t, entry.Error)
	assert.Nil(t, entry.Result)
}

func TestTracker_CreateOverwritesStaleEntry(t *testing.T) {
	tracker := workflow.NewTracker()
	tracker.Create("job-1")
	tracker.SetError("job-1", "boom")

	tracker.Create("job-1")
	entry, ok := tracker.Get("job-1")
	require.True(t, ok)
	assert.Equal(t, models.StatusPending, entry.Status)
	assert.Nil(t, entry.Error)
}

func TestTracker_UpdatesOnUnknownIDAreNoOps(t *testing.T) {
	tracker := workflow.NewTracker()

	// None of these may panic or create entries.
	tracker.UpdateProgress("ghost", 0.5)
	tracker.UpdateStatus("ghost", models.StatusProcessing)
	tracker.SetError("ghost", "boom")
	tracker.SetResult("ghost", models.ResultItem{ResultID: "r"})

	_, ok := tracker.Get("ghost")
	assert.False(t, ok)
}

func TestTracker_SetErrorMarksFailed(t *testing.T) {
	tracker := workflow.NewTracker()
	tracker.Create("job-1")

	tracker.SetError("job-1", "model melted")

	entry, ok := tracker.Get("job-1")
	require.True(t, ok)
	assert.Equal(t, models.StatusFailed, entry.Status)
	require.NotNil(t, entry.Error)
	assert.Equal(t, "model melted", *entry.Error)
}

func TestTracker_SetResultMarksCompleted(t *testing.T) {
	tracker := workflow.NewTracker()
	tracker.Create("job-1")

	tracker.SetResult("job-1", models.ResultItem{ResultID: "r-1", Type: models.ResultEmbeddings})

	entry, ok := tracker.Get("job-1")
	require.True(t, ok)
	assert.Equal(t, models.StatusCompleted, entry.Status)
	require.NotNil(t, entry.Result)
	assert.Equal(t, "r-1", entry.Result.ResultID)
}

func TestTracker_GetReturnsCopy(t *testing.T) {
	tracker := workflow.NewTracker()
	tracker.Create("job-1")

	entry, ok := tracker.Get("job-1")
	require.True(t, ok)
	entry.Progress = 0.9

	again, ok := tracker.Get("job-1")
	require.True(t, ok)
	assert.Zero(t, again.Progress)
}

func TestTracker_Evict(t *testing.T) {
	tracker := workflow.NewTracker()
	tracker.Create("job-1")

	tracker.Evict("job-1")

	_, ok := tracker.Get("job-1")
	assert.False(t, ok)
}
