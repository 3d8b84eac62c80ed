package workflow

import (
	"time"

	"github.com/biosphere-bio/workflow-api/pkg/models"
)

// StatusView is the composite status document served to clients. It
// merges the live progress entry with the durable record.
type StatusView struct {
	ID        string              `json:"id"`
	Status    models.Status       `json:"status"`
	Progress  float64             `json:"progress"`
	Error     *string             `json:"error"`
	Result    *models.ResultItem  `json:"result"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
	Results   []models.ResultItem `json:"results"`
}

// EffectiveStatus merges the two status sources with explicit
// precedence: the live entry wins for status, progress, error and result
// when present; otherwise the durable record is authoritative. With no
// live entry, progress reads 1.0 only when the durable status is
// terminal — a job whose tracker entry was lost to a restart must not
// claim completion while still pending.
//
// At least one of rec and entry must be non-nil.
func EffectiveStatus(rec *models.JobRecord, entry *models.ProgressEntry) StatusView {
	view := StatusView{Results: []models.ResultItem{}}

	if rec != nil {
		view.ID = rec.ID
		view.Status = rec.Status
		view.Error = rec.ErrorMessage
		view.CreatedAt = rec.CreatedAt
		view.UpdatedAt = rec.UpdatedAt
		view.Results = rec.Results
		if rec.Status.IsTerminal() {
			view.Progress = 1.0
		}
	}

	if entry != nil {
		view.ID = entry.JobID
		view.Status = entry.Status
		view.Progress = entry.Progress
		if entry.Error != nil {
			view.Error = entry.Error
		}
		view.Result = entry.Result
	}

	return view
}
