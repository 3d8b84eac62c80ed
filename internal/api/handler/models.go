package handler

import (
	"net/http"

	"github.com/biosphere-bio/workflow-api/internal/api/response"
	"github.com/biosphere-bio/workflow-api/internal/pipeline"
	"github.com/biosphere-bio/workflow-api/pkg/models"
)

// NewListModelsHandler returns the handler for GET /api/v1/models,
// optionally filtered by ?model_type=rna|dna.
func NewListModelsHandler(registry *pipeline.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var filter models.ModelType
		switch raw := r.URL.Query().Get("model_type"); raw {
		case "":
		case string(models.ModelTypeRNA):
			filter = models.ModelTypeRNA
		case string(models.ModelTypeDNA):
			filter = models.ModelTypeDNA
		default:
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR",
				"model_type must be rna or dna", nil)
			return
		}

		response.JSON(w, map[string]any{"models": registry.List(filter)})
	}
}
