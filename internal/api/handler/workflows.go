// Package handler implements the HTTP handlers for the workflow API.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/biosphere-bio/workflow-api/internal/api/response"
	"github.com/biosphere-bio/workflow-api/internal/config"
	"github.com/biosphere-bio/workflow-api/internal/workflow"
	"github.com/biosphere-bio/workflow-api/pkg/models"
)

// WorkflowService is the interface the workflow handlers depend on.
type WorkflowService interface {
	Submit(ctx context.Context, upload workflow.Upload, modelID string) (string, error)
	Status(ctx context.Context, jobID string) (*workflow.StatusView, error)
	List(ctx context.Context) ([]*models.JobRecord, error)
	Result(ctx context.Context, jobID, resultID string) (*models.ResultItem, error)
}

// NewSubmitWorkflowHandler returns the handler for
// POST /api/v1/workflows/single-cell. It validates the upload and model
// id parameter, then hands off to the orchestrator; the response returns
// before processing starts.
func NewSubmitWorkflowHandler(svc WorkflowService, storage config.StorageConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, storage.MaxUploadBytes)

		file, header, err := r.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.Error(w, http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE",
					fmt.Sprintf("Upload exceeds the %d byte limit", storage.MaxUploadBytes), nil)
				return
			}
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "A file upload is required", nil)
			return
		}
		defer file.Close()

		modelID := r.URL.Query().Get("model_id")
		if modelID == "" {
			modelID = r.FormValue("model_id")
		}
		if modelID == "" {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "model_id is required", nil)
			return
		}

		if !storage.AllowsFilename(header.Filename) {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR",
				fmt.Sprintf("File extension not allowed. Must be one of: %s",
					strings.Join(storage.ExtensionList(), ", ")), nil)
			return
		}

		jobID, err := svc.Submit(r.Context(), workflow.Upload{
			Filename: header.Filename,
			Data:     file,
		}, modelID)
		if err != nil {
			if errors.Is(err, workflow.ErrQueueFull) {
				response.Error(w, http.StatusTooManyRequests, "QUEUE_FULL",
					"Too many pending workflows; retry later", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "IO_ERROR",
				"Could not persist the workflow", nil)
			return
		}

		response.JSON(w, map[string]string{"workflow_id": jobID})
	}
}

// NewWorkflowStatusHandler returns the handler for
// GET /api/v1/workflows/{workflowID}.
func NewWorkflowStatusHandler(svc WorkflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "workflowID")

		view, err := svc.Status(r.Context(), jobID)
		if err != nil {
			if errors.Is(err, workflow.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND",
					fmt.Sprintf("Workflow %s not found", jobID), nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		response.JSON(w, view)
	}
}

// NewListWorkflowsHandler returns the handler for GET /api/v1/workflows.
func NewListWorkflowsHandler(svc WorkflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := svc.List(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Could not list workflows", nil)
			return
		}
		response.JSON(w, records)
	}
}

// NewDownloadResultHandler returns the handler for
// GET /api/v1/workflows/{workflowID}/results/{resultID}/download. The
// artifact is served with the content type recorded at production time.
func NewDownloadResultHandler(svc WorkflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "workflowID")
		resultID := chi.URLParam(r, "resultID")

		item, err := svc.Result(r.Context(), jobID, resultID)
		if err != nil {
			if errors.Is(err, workflow.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Workflow or result not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		f, err := os.Open(item.FilePath)
		if err != nil {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Result artifact is no longer available", nil)
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Could not read the result artifact", nil)
			return
		}

		w.Header().Set("Content-Type", item.ContentType)
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", filepath.Base(item.FilePath)))
		http.ServeContent(w, r, filepath.Base(item.FilePath), info.ModTime(), f)
	}
}
