// Package workflow implements the orchestration core: the durable job
// record store, the ephemeral progress tracker, the single-consumer
// processing queue, and the service that drives jobs through the
// inference pipeline.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/biosphere-bio/workflow-api/internal/pipeline"
	"github.com/biosphere-bio/workflow-api/pkg/models"
)

// KindSingleCell is the queue entry kind for single-cell embedding jobs.
const KindSingleCell = "single_cell"

// Upload is a submitted input artifact.
type Upload struct {
	Filename string
	Data     io.Reader
}

// Service accepts job submissions, owns the single worker loop, and
// reconciles the record store and progress tracker as jobs complete or
// fail.
type Service struct {
	store     *Store
	tracker   *Tracker
	queue     *Queue
	runner    pipeline.Runner
	uploadDir string
	started   atomic.Bool
}

// NewService wires the orchestrator. The worker loop is not started
// until Start is called.
func NewService(store *Store, tracker *Tracker, queue *Queue, runner pipeline.Runner, uploadDir string) *Service {
	return &Service{
		store:     store,
		tracker:   tracker,
		queue:     queue,
		runner:    runner,
		uploadDir: uploadDir,
	}
}

// Submit persists the upload, creates the durable record and the live
// progress entry, and enqueues the job. It returns the new job id
// without waiting for processing. On a persistence failure the
// half-created state is rolled back: the in-memory record is dropped and
// the progress entry marked failed.
func (s *Service) Submit(ctx context.Context, upload Upload, modelID string) (string, error) {
	if upload.Filename == "" || upload.Data == nil {
		return "", fmt.Errorf("upload with filename is required")
	}

	rec, err := s.store.Create()
	if err != nil {
		return "", fmt.Errorf("creating workflow record: %w", err)
	}
	s.tracker.Create(rec.ID)

	inputPath := filepath.Join(s.uploadDir, rec.ID+"_"+filepath.Base(upload.Filename))
	if err := writeUpload(inputPath, upload.Data); err != nil {
		s.rollbackSubmit(rec.ID, err)
		return "", fmt.Errorf("persisting upload: %w", err)
	}

	rec.Status = models.StatusPending
	if err := s.store.Update(rec); err != nil {
		s.rollbackSubmit(rec.ID, err)
		return "", fmt.Errorf("marking workflow pending: %w", err)
	}

	entry := Entry{
		Kind:      KindSingleCell,
		JobID:     rec.ID,
		InputPath: inputPath,
		ModelID:   modelID,
	}
	if err := s.queue.Enqueue(entry); err != nil {
		s.rollbackSubmit(rec.ID, err)
		return "", err
	}

	slog.Info("workflow submitted", "workflow_id", rec.ID, "model_id", modelID, "queued", s.queue.Len())
	return rec.ID, nil
}

func (s *Service) rollbackSubmit(jobID string, cause error) {
	s.store.Forget(jobID)
	s.tracker.SetError(jobID, cause.Error())
}

// Status returns the composite view for a job, or ErrNotFound when
// neither store knows the id.
func (s *Service) Status(ctx context.Context, jobID string) (*StatusView, error) {
	rec, err := s.store.Get(jobID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	var live *models.ProgressEntry
	if entry, ok := s.tracker.Get(jobID); ok {
		live = &entry
	}

	if rec == nil && live == nil {
		return nil, ErrNotFound
	}

	view := EffectiveStatus(rec, live)
	return &view, nil
}

// List returns all known jobs, newest first.
func (s *Service) List(ctx context.Context) ([]*models.JobRecord, error) {
	return s.store.List()
}

// Result looks up one result item for download. Returns ErrNotFound when
// the job or the result id is absent.
func (s *Service) Result(ctx context.Context, jobID, resultID string) (*models.ResultItem, error) {
	rec, err := s.store.Get(jobID)
	if err != nil {
		return nil, err
	}
	for i := range rec.Results {
		if rec.Results[i].ResultID == resultID {
			return &rec.Results[i], nil
		}
	}
	return nil, ErrNotFound
}

// Start launches the single worker goroutine. Exactly one loop runs per
// process; repeated calls are no-ops.
func (s *Service) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		slog.Warn("worker already started")
		return
	}
	go s.run(ctx)
}

// run is the worker loop. It serializes pipeline execution: at most one
// inference job is in flight at any time, in strict enqueue order. A
// failing job is recorded and the loop moves on; only queue closure or
// context cancellation stops it.
func (s *Service) run(ctx context.Context) {
	slog.Info("worker loop started", "runner", s.runner.Name())
	for {
		entry, err := s.queue.Dequeue(ctx)
		if err != nil {
			slog.Info("worker loop stopped", "reason", err)
			return
		}
		s.process(ctx, entry)
	}
}

func (s *Service) process(ctx context.Context, entry Entry) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic processing workflow", "workflow_id", entry.JobID, "error", r)
			s.fail(entry.JobID, fmt.Errorf("panic: %v", r))
		}
	}()

	rec, err := s.store.Get(entry.JobID)
	if err != nil {
		slog.Error("dequeued workflow has no record", "workflow_id", entry.JobID, "error", err)
		return
	}

	rec.Status = models.StatusProcessing
	if err := s.store.Update(rec); err != nil {
		s.fail(entry.JobID, fmt.Errorf("marking workflow processing: %w", err))
		return
	}
	s.tracker.UpdateStatus(entry.JobID, models.StatusProcessing)
	s.tracker.UpdateProgress(entry.JobID, pipeline.ProgressStarted)

	result, err := s.runner.Run(ctx, pipeline.Job{
		WorkflowID: entry.JobID,
		ModelID:    entry.ModelID,
		InputPath:  entry.InputPath,
		Progress: func(p float64) {
			s.tracker.UpdateProgress(entry.JobID, p)
		},
	})
	if err != nil {
		s.fail(entry.JobID, err)
		return
	}

	item := models.ResultItem{
		ResultID:    uuid.New().String(),
		Type:        result.Type,
		FilePath:    result.FilePath,
		ContentType: result.ContentType,
		CreatedAt:   time.Now().UTC(),
		FileSize:    result.FileSize,
	}

	rec.Results = append(rec.Results, item)
	rec.Status = models.StatusCompleted
	rec.ErrorMessage = nil
	if err := s.store.Update(rec); err != nil {
		s.fail(entry.JobID, fmt.Errorf("persisting completed workflow: %w", err))
		return
	}

	s.tracker.SetResult(entry.JobID, item)
	s.tracker.UpdateProgress(entry.JobID, pipeline.ProgressPersisted)
	slog.Info("workflow completed", "workflow_id", entry.JobID, "result_id", item.ResultID, "bytes", item.FileSize)
}

// fail records a terminal failure in both stores. It never propagates:
// errors during background processing are contained in the worker loop.
func (s *Service) fail(jobID string, cause error) {
	slog.Error("workflow failed", "workflow_id", jobID, "error", cause)

	rec, err := s.store.Get(jobID)
	if err == nil {
		msg := cause.Error()
		rec.Status = models.StatusFailed
		rec.ErrorMessage = &msg
		if err := s.store.Update(rec); err != nil {
			slog.Error("persisting failed workflow", "workflow_id", jobID, "error", err)
		}
	}
	s.tracker.SetError(jobID, cause.Error())
}

func writeUpload(path string, data io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, data); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
