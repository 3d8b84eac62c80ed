package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the workflow API server.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Pipeline PipelineConfig
	Workflow WorkflowConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type StorageConfig struct {
	// UploadDir receives submitted input artifacts; durable workflow
	// documents live under UploadDir/workflows.
	UploadDir string
	// ResultsDir receives artifacts produced by pipeline runs.
	ResultsDir string
	// MaxUploadBytes caps a single upload. Requests over the cap are
	// rejected before any job state is created.
	MaxUploadBytes int64
	// AllowedExtensions is the lower-cased upload extension allowlist.
	AllowedExtensions map[string]bool
}

type PipelineConfig struct {
	// BaseURL of the inference sidecar that executes model runs.
	BaseURL string
	// Timeout for a single sidecar call. Zero means no client-side
	// timeout; a hung run then blocks the worker until it returns.
	Timeout time.Duration
}

type WorkflowConfig struct {
	// MaxQueueDepth caps pending jobs. Zero means unbounded, which
	// matches the original single-worker deployment.
	MaxQueueDepth int
}

// WorkflowsDir is where durable per-job JSON documents are written.
func (s StorageConfig) WorkflowsDir() string {
	return filepath.Join(s.UploadDir, "workflows")
}

// AllowsFilename reports whether the filename's extension is on the
// upload allowlist.
func (s StorageConfig) AllowsFilename(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	return ext != "" && s.AllowedExtensions[ext]
}

// ExtensionList returns the allowlist in stable order for error messages.
func (s StorageConfig) ExtensionList() []string {
	exts := make([]string, 0, len(s.AllowedExtensions))
	for ext := range s.AllowedExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

const defaultExtensions = "fasta,fa,pdb,txt,csv,tsv,h5ad"

// Load reads configuration from environment variables and returns a
// validated Config. Returns an error with a descriptive message if any
// required value is missing or invalid.
func Load() (*Config, error) {
	uploadDir := envString("UPLOAD_DIR", "uploads")

	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("WORKFLOW_PORT", 8080),
			Env:  envString("WORKFLOW_ENV", "development"),
		},
		Storage: StorageConfig{
			UploadDir:         uploadDir,
			ResultsDir:        envString("RESULTS_DIR", filepath.Join(uploadDir, "results")),
			MaxUploadBytes:    envInt64("MAX_UPLOAD_BYTES", 500_000_000),
			AllowedExtensions: parseExtensions(envString("ALLOWED_EXTENSIONS", defaultExtensions)),
		},
		Pipeline: PipelineConfig{
			BaseURL: os.Getenv("PIPELINE_BASE_URL"),
			Timeout: envDurationSecs("PIPELINE_TIMEOUT_SECS", 0),
		},
		Workflow: WorkflowConfig{
			MaxQueueDepth: envInt("MAX_QUEUE_DEPTH", 0),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Storage.UploadDir == "" {
		return fmt.Errorf("UPLOAD_DIR must not be empty")
	}
	if c.Storage.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.Storage.MaxUploadBytes)
	}
	if len(c.Storage.AllowedExtensions) == 0 {
		return fmt.Errorf("ALLOWED_EXTENSIONS must name at least one extension")
	}

	if c.Pipeline.BaseURL == "" {
		return fmt.Errorf("PIPELINE_BASE_URL is required")
	}
	if !strings.HasPrefix(c.Pipeline.BaseURL, "http://") && !strings.HasPrefix(c.Pipeline.BaseURL, "https://") {
		return fmt.Errorf("PIPELINE_BASE_URL must start with http:// or https://, got %q", c.Pipeline.BaseURL)
	}

	if c.Workflow.MaxQueueDepth < 0 {
		return fmt.Errorf("MAX_QUEUE_DEPTH must not be negative, got %d", c.Workflow.MaxQueueDepth)
	}

	return nil
}

func parseExtensions(raw string) map[string]bool {
	exts := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		ext := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(part, ".")))
		if ext != "" {
			exts[ext] = true
		}
	}
	return exts
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
