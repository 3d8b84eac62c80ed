package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/biosphere-bio/workflow-api/pkg/models"
)

// Registry is the closed set of models this deployment can dispatch to.
// Dispatch is validated here at run time; submit never inspects the
// model id.
type Registry struct {
	models map[string]models.ModelDefinition
}

// NewRegistry seeds the registry with the supported model catalogue.
func NewRegistry() *Registry {
	defs := []models.ModelDefinition{
		{
			ID:           "helix-mrna",
			Name:         "Helix-mRNA",
			Type:         models.ModelTypeRNA,
			Description:  "RNA structure prediction model",
			Version:      "1.0.0",
			InputFormats: []string{"fasta", "fa"},
			RequiresGPU:  true,
		},
		{
			ID:           "mamba2-mrna",
			Name:         "Mamba2-mRNA",
			Type:         models.ModelTypeRNA,
			Description:  "RNA sequence model",
			Version:      "1.0.0",
			InputFormats: []string{"fasta", "fa", "txt"},
			RequiresGPU:  true,
		},
		{
			ID:           "geneformer",
			Name:         "Geneformer",
			Type:         models.ModelTypeRNA,
			Description:  "Gene expression model",
			Version:      "1.0.0",
			InputFormats: []string{"csv", "tsv", "h5ad"},
			RequiresGPU:  true,
		},
		{
			ID:           "scgpt",
			Name:         "scGPT",
			Type:         models.ModelTypeRNA,
			Description:  "Single-cell RNA model",
			Version:      "1.0.0",
			InputFormats: []string{"csv", "tsv", "h5ad"},
			RequiresGPU:  true,
		},
		{
			ID:           "uce",
			Name:         "Universal Cell Embedding",
			Type:         models.ModelTypeRNA,
			Description:  "Cell embedding model",
			Version:      "1.0.0",
			InputFormats: []string{"csv", "tsv"},
			RequiresGPU:  true,
		},
		{
			ID:           "hyenadna",
			Name:         "HyenaDNA",
			Type:         models.ModelTypeDNA,
			Description:  "DNA sequence model",
			Version:      "1.0.0",
			InputFormats: []string{"fasta", "fa", "txt"},
			RequiresGPU:  true,
		},
		{
			ID:           "caduceus",
			Name:         "Caduceus",
			Type:         models.ModelTypeDNA,
			Description:  "DNA language model",
			Version:      "1.0.0",
			InputFormats: []string{"fasta", "fa", "txt"},
			RequiresGPU:  true,
		},
	}

	reg := &Registry{models: make(map[string]models.ModelDefinition, len(defs))}
	for _, def := range defs {
		reg.models[def.ID] = def
	}
	return reg
}

// Get returns the definition for a model id, or an ErrUnknownModel that
// names the offending id.
func (r *Registry) Get(id string) (models.ModelDefinition, error) {
	def, ok := r.models[id]
	if !ok {
		return models.ModelDefinition{}, fmt.Errorf("%w: %q", ErrUnknownModel, id)
	}
	return def, nil
}

// List returns definitions, optionally filtered by type, sorted by id.
func (r *Registry) List(filter models.ModelType) []models.ModelDefinition {
	out := make([]models.ModelDefinition, 0, len(r.models))
	for _, def := range r.models {
		if filter != "" && def.Type != filter {
			continue
		}
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Dispatcher validates the model id against the registry before
// delegating to the backend runner.
type Dispatcher struct {
	registry *Registry
	backend  Runner
}

func NewDispatcher(registry *Registry, backend Runner) *Dispatcher {
	return &Dispatcher{registry: registry, backend: backend}
}

func (d *Dispatcher) Name() string { return d.backend.Name() }

func (d *Dispatcher) Run(ctx context.Context, job Job) (*Result, error) {
	if _, err := d.registry.Get(job.ModelID); err != nil {
		return nil, err
	}
	return d.backend.Run(ctx, job)
}

var _ Runner = (*Dispatcher)(nil)
