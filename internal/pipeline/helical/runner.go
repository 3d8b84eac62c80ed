// Package helical runs inference jobs against a Helical inference
// sidecar over HTTP. The sidecar owns the accelerator; this process only
// streams the input artifact in and the produced artifact out.
package helical

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/biosphere-bio/workflow-api/internal/pipeline"
	"github.com/biosphere-bio/workflow-api/pkg/models"
)

// Runner implements pipeline.Runner against the sidecar's HTTP API.
type Runner struct {
	baseURL    string
	resultsDir string
	client     *http.Client
}

// NewRunner creates a Runner. A zero timeout disables the client-side
// deadline; a hung sidecar call then blocks the worker loop until the
// sidecar responds.
func NewRunner(baseURL, resultsDir string, timeout time.Duration) *Runner {
	return &Runner{
		baseURL:    baseURL,
		resultsDir: resultsDir,
		client:     &http.Client{Timeout: timeout},
	}
}

func (r *Runner) Name() string { return "helical" }

// Run posts the input artifact to the sidecar and writes the returned
// embedding tensor into the results directory, reporting the fixed
// progress checkpoints along the way.
func (r *Runner) Run(ctx context.Context, job pipeline.Job) (*pipeline.Result, error) {
	pipeline.Report(job.Progress, pipeline.ProgressStarted)

	input, err := os.ReadFile(job.InputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", pipeline.ErrUnreadableInput, filepath.Base(job.InputPath), err)
	}
	pipeline.Report(job.Progress, pipeline.ProgressInputLoaded)

	u := fmt.Sprintf("%s/v1/models/%s/embeddings", r.baseURL, url.PathEscape(job.ModelID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(input))
	if err != nil {
		return nil, fmt.Errorf("building inference request: %w", err)
	}
	req.Header.Set("Content-Type", sniffContentType(input, job.InputPath))
	req.Header.Set("X-Workflow-ID", job.WorkflowID)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pipeline.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()
	pipeline.Report(job.Progress, pipeline.ProgressModelReady)

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: model %s: status %d: %s", pipeline.ErrInferenceFailed, job.ModelID, resp.StatusCode, bytes.TrimSpace(detail))
	}
	pipeline.Report(job.Progress, pipeline.ProgressDataProcessed)

	artifact, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", pipeline.ErrInferenceFailed, err)
	}
	pipeline.Report(job.Progress, pipeline.ProgressInferenceDone)

	outputPath := filepath.Join(r.resultsDir, fmt.Sprintf("%s_embeddings_%s.pt", job.ModelID, job.WorkflowID))
	if err := os.WriteFile(outputPath, artifact, 0o644); err != nil {
		return nil, fmt.Errorf("persisting embeddings artifact: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &pipeline.Result{
		Type:        models.ResultEmbeddings,
		FilePath:    outputPath,
		ContentType: contentType,
		FileSize:    int64(len(artifact)),
	}, nil
}

func sniffContentType(data []byte, path string) string {
	if mt := mimetype.Detect(data); mt.String() != "application/octet-stream" {
		return mt.String()
	}
	switch filepath.Ext(path) {
	case ".csv":
		return "text/csv"
	case ".tsv":
		return "text/tab-separated-values"
	case ".fasta", ".fa", ".txt", ".pdb":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

var _ pipeline.Runner = (*Runner)(nil)
