// Package job tracks one asynchronous processing job per video through its
// lifecycle: pending → processing → completed/failed, with failed re-entering
// pending on an explicit retry.
package job

import "time"

// Status is the lifecycle stage of a processing job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Job records everything a polling client needs to render progress.
type Job struct {
	ID           string    `json:"id"`
	VideoID      string    `json:"videoId"`
	Status       Status    `json:"status"`
	Progress     int       `json:"progress"`
	CurrentStage string    `json:"currentStage"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsTerminal reports whether the job reached completed or failed.
func (j *Job) IsTerminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}
