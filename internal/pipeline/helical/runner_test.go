package helical_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biosphere-bio/workflow-api/internal/pipeline"
	"github.com/biosphere-bio/workflow-api/internal/pipeline/helical"
	"github.com/biosphere-bio/workflow-api/pkg/models"
)

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunner_HappyPath(t *testing.T) {
	tensor := []byte("\x93NUMPY fake tensor bytes")

	var gotPath, gotWorkflowID string
	var gotBody []byte
	sidecar := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotWorkflowID = r.Header.Get("X-Workflow-ID")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(tensor)
	}))
	defer sidecar.Close()

	resultsDir := t.TempDir()
	runner := helical.NewRunner(sidecar.URL, resultsDir, 5*time.Second)

	input := writeInput(t, "cells.csv", "cell,gene\n1,2\n")
	var checkpoints []float64
	res, err := runner.Run(context.Background(), pipeline.Job{
		WorkflowID: "wf-42",
		ModelID:    "scgpt",
		InputPath:  input,
		Progress:   func(p float64) { checkpoints = append(checkpoints, p) },
	})
	require.NoError(t, err)

	assert.Equal(t, "/v1/models/scgpt/embeddings", gotPath)
	assert.Equal(t, "wf-42", gotWorkflowID)
	assert.Equal(t, "cell,gene\n1,2\n", string(gotBody))

	assert.Equal(t, models.ResultEmbeddings, res.Type)
	assert.Equal(t, filepath.Join(resultsDir, "scgpt_embeddings_wf-42.pt"), res.FilePath)
	assert.Equal(t, "application/octet-stream", res.ContentType)
	assert.Equal(t, int64(len(tensor)), res.FileSize)

	persisted, err := os.ReadFile(res.FilePath)
	require.NoError(t, err)
	assert.Equal(t, tensor, persisted)

	assert.Equal(t, []float64{
		pipeline.ProgressStarted,
		pipeline.ProgressInputLoaded,
		pipeline.ProgressModelReady,
		pipeline.ProgressDataProcessed,
		pipeline.ProgressInferenceDone,
	}, checkpoints)
}

func TestRunner_MissingInputFile(t *testing.T) {
	runner := helical.NewRunner("http://sidecar.invalid", t.TempDir(), time.Second)

	_, err := runner.Run(context.Background(), pipeline.Job{
		WorkflowID: "wf-1",
		ModelID:    "scgpt",
		InputPath:  filepath.Join(t.TempDir(), "gone.csv"),
	})
	assert.ErrorIs(t, err, pipeline.ErrUnreadableInput)
}

func TestRunner_SidecarUnreachable(t *testing.T) {
	// A server that is immediately closed gives a connection refusal.
	sidecar := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	sidecar.Close()

	runner := helical.NewRunner(sidecar.URL, t.TempDir(), time.Second)

	input := writeInput(t, "cells.csv", "cell,gene\n")
	_, err := runner.Run(context.Background(), pipeline.Job{
		WorkflowID: "wf-1",
		ModelID:    "scgpt",
		InputPath:  input,
	})
	assert.ErrorIs(t, err, pipeline.ErrBackendUnavailable)
}

func TestRunner_SidecarErrorStatus(t *testing.T) {
	sidecar := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model weights not loaded", http.StatusServiceUnavailable)
	}))
	defer sidecar.Close()

	runner := helical.NewRunner(sidecar.URL, t.TempDir(), time.Second)

	input := writeInput(t, "cells.csv", "cell,gene\n")
	_, err := runner.Run(context.Background(), pipeline.Job{
		WorkflowID: "wf-1",
		ModelID:    "geneformer",
		InputPath:  input,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrInferenceFailed)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "model weights not loaded")
}

func TestRunner_ContextCancellation(t *testing.T) {
	started := make(chan struct{})
	sidecar := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		// The body must be drained: the server only watches for client
		// disconnect (which cancels r.Context()) once the request body
		// has been consumed.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer sidecar.Close()

	runner := helical.NewRunner(sidecar.URL, t.TempDir(), 0)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	input := writeInput(t, "cells.csv", "cell,gene\n")
	_, err := runner.Run(ctx, pipeline.Job{
		WorkflowID: "wf-1",
		ModelID:    "scgpt",
		InputPath:  input,
	})
	assert.ErrorIs(t, err, pipeline.ErrBackendUnavailable)
}
