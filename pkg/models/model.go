package models

// ModelType groups inference models by the biological data they operate on.
type ModelType string

const (
	ModelTypeRNA ModelType = "rna"
	ModelTypeDNA ModelType = "dna"
)

// ModelDefinition describes one registered inference model. The set of
// definitions is closed at build time; dispatch is validated against it
// when a job reaches the pipeline.
type ModelDefinition struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Type         ModelType `json:"type"`
	Description  string    `json:"description"`
	Version      string    `json:"version"`
	InputFormats []string  `json:"input_formats"`
	RequiresGPU  bool      `json:"requires_gpu"`
}
