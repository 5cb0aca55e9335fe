package jobs

import (
	"time"

	"github.com/printpal-io/printpal-go"
)

// InputKind records how a generation was requested.
type InputKind string

const (
	InputImage  InputKind = "image"
	InputPrompt InputKind = "prompt"
)

// Job is one ledger row.
type Job struct {
	UID          string     `json:"generation_uid"`
	InputKind    InputKind  `json:"input_kind"`
	Source       string     `json:"source"`
	Quality      string     `json:"quality"`
	Format       string     `json:"format"`
	CreditsUsed  int        `json:"credits_used"`
	Status       string     `json:"status"`
	RunID        string     `json:"run_id,omitempty"`
	OutputPath   string     `json:"output_path,omitempty"`
	ErrorMessage string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DownloadedAt *time.Time `json:"downloaded_at,omitempty"`
}

// IsTerminal reports whether the service will not change the job's status again.
func (j *Job) IsTerminal() bool {
	return j.Status == printpal.StatusCompleted || j.Status == printpal.StatusFailed
}

// Downloaded reports whether the model has been saved locally.
func (j *Job) Downloaded() bool {
	return j.DownloadedAt != nil
}

// FromResult builds a ledger entry for a freshly submitted generation.
func FromResult(result *printpal.GenerationResult, kind InputKind, source string, req printpal.GenerationRequest) Job {
	status := result.Status
	if status == "" {
		status = printpal.StatusPending
	}
	quality := result.Quality
	if quality == "" {
		quality = string(req.Quality)
	}
	return Job{
		UID:         result.GenerationUID,
		InputKind:   kind,
		Source:      source,
		Quality:     quality,
		Format:      string(req.Format),
		CreditsUsed: result.CreditsUsed,
		Status:      status,
	}
}

// ListOptions filters List.
type ListOptions struct {
	Statuses []string
	RunID    string
	Limit    int
}
