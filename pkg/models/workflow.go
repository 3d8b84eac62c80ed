package models

import "time"

// Status is the lifecycle state of a workflow job.
type Status string

const (
	StatusCreated    Status = "created"
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether the status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ResultType is the semantic kind of a produced artifact.
type ResultType string

const (
	ResultEmbedding     ResultType = "embedding"
	ResultEmbeddings    ResultType = "embeddings"
	ResultVisualization ResultType = "visualization"
	ResultRawData       ResultType = "raw_data"
)

// ResultItem is one artifact produced by a pipeline run. It is owned
// exclusively by its parent JobRecord and never referenced elsewhere.
type ResultItem struct {
	ResultID    string     `json:"result_id"`
	Type        ResultType `json:"type"`
	FilePath    string     `json:"file_path"`
	ContentType string     `json:"content_type"`
	CreatedAt   time.Time  `json:"created_at"`
	FileSize    int64      `json:"file_size"`
}

// JobRecord is the durable representation of one workflow job. It is
// persisted as a single JSON document addressed by ID; once Status is
// terminal the record no longer changes.
type JobRecord struct {
	ID           string       `json:"workflow_id"`
	Status       Status       `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	ErrorMessage *string      `json:"error_message,omitempty"`
	Results      []ResultItem `json:"results"`
}

// Clone returns a deep copy so callers can mutate records without racing
// the store's cache.
func (r *JobRecord) Clone() *JobRecord {
	if r == nil {
		return nil
	}
	out := *r
	if r.ErrorMessage != nil {
		msg := *r.ErrorMessage
		out.ErrorMessage = &msg
	}
	out.Results = make([]ResultItem, len(r.Results))
	copy(out.Results, r.Results)
	return &out
}

// ProgressEntry is the ephemeral, in-memory view of a job's execution.
// It exists only for the process lifetime and is lost on restart; the
// JobRecord is the durability backstop.
type ProgressEntry struct {
	JobID    string
	Status   Status
	Progress float64
	Error    *string
	Result   *ResultItem
}
