// Package api builds the HTTP surface of the workflow server.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/biosphere-bio/workflow-api/internal/api/middleware"
	"github.com/biosphere-bio/workflow-api/internal/api/response"
)

// Dependencies holds all handler dependencies for the router.
type Dependencies struct {
	HealthHandler  http.HandlerFunc
	SubmitWorkflow http.HandlerFunc
	WorkflowStatus http.HandlerFunc
	ListWorkflows  http.HandlerFunc
	DownloadResult http.HandlerFunc
	UploadFile     http.HandlerFunc
	ListModels     http.HandlerFunc
}

// NewRouter builds the chi router with the middleware stack and all
// routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	r.Post("/api/v1/workflows/single-cell", orNotImplemented(deps.SubmitWorkflow))
	r.Get("/api/v1/workflows", orNotImplemented(deps.ListWorkflows))
	r.Get("/api/v1/workflows/{workflowID}", orNotImplemented(deps.WorkflowStatus))
	r.Get("/api/v1/workflows/{workflowID}/results/{resultID}/download", orNotImplemented(deps.DownloadResult))

	r.Post("/api/v1/upload", orNotImplemented(deps.UploadFile))
	r.Get("/api/v1/models", orNotImplemented(deps.ListModels))

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
