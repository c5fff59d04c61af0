package job

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrTerminal reports an advance attempted on a completed or failed job.
var ErrTerminal = errors.New("job is in a terminal state")

const initialStage = "Initializing…"

// Machine owns every job mutation. All state transitions go through it; the
// store is only touched directly for reads.
type Machine struct {
	store Store
}

// NewMachine wraps a store with the transition rules.
func NewMachine(store Store) *Machine {
	return &Machine{store: store}
}

// Create allocates a pending job for the video, or resets the video's
// existing job in place — there is exactly one live job per video.
func (m *Machine) Create(videoID string) (Job, error) {
	now := time.Now()

	if existing, err := m.store.GetByVideo(videoID); err == nil {
		err := m.store.Update(existing.ID, func(j *Job) error {
			j.Status = StatusPending
			j.Progress = 0
			j.CurrentStage = initialStage
			j.ErrorMessage = ""
			j.UpdatedAt = now
			return nil
		})
		if err != nil {
			return Job{}, err
		}
		return m.store.Get(existing.ID)
	}

	j := Job{
		ID:           uuid.NewString(),
		VideoID:      videoID,
		Status:       StatusPending,
		Progress:     0,
		CurrentStage: initialStage,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := m.store.Put(j); err != nil {
		return Job{}, err
	}
	return j, nil
}

// Advance reports progress for a running job. The first advance on a pending
// job moves it to processing. Progress is clamped to [0,100]; monotonicity is
// a convention, not enforced, since callers may re-report a stage at
// different granularities.
func (m *Machine) Advance(jobID string, progress int, stage string) error {
	return m.store.Update(jobID, func(j *Job) error {
		if j.IsTerminal() {
			return ErrTerminal
		}
		if progress < 0 {
			progress = 0
		}
		if progress > 100 {
			progress = 100
		}
		j.Status = StatusProcessing
		j.Progress = progress
		j.CurrentStage = stage
		j.UpdatedAt = time.Now()
		return nil
	})
}

// Complete marks the job done with full progress.
func (m *Machine) Complete(jobID string) error {
	return m.store.Update(jobID, func(j *Job) error {
		if j.IsTerminal() {
			return ErrTerminal
		}
		j.Status = StatusCompleted
		j.Progress = 100
		j.CurrentStage = "Complete"
		j.ErrorMessage = ""
		j.UpdatedAt = time.Now()
		return nil
	})
}

// Fail marks the job failed with a human-readable message. The job remains
// inspectable and can be retried.
func (m *Machine) Fail(jobID, message string) error {
	return m.store.Update(jobID, func(j *Job) error {
		if j.Status == StatusCompleted {
			return ErrTerminal
		}
		j.Status = StatusFailed
		j.CurrentStage = "Failed"
		j.ErrorMessage = message
		j.UpdatedAt = time.Now()
		return nil
	})
}

// Retry re-enqueues a failed job under the same id.
func (m *Machine) Retry(jobID string) error {
	return m.store.Update(jobID, func(j *Job) error {
		if j.Status != StatusFailed {
			return fmt.Errorf("cannot retry job in state %q", j.Status)
		}
		j.Status = StatusPending
		j.Progress = 0
		j.CurrentStage = initialStage
		j.ErrorMessage = ""
		j.UpdatedAt = time.Now()
		return nil
	})
}

// Get returns the current job snapshot.
func (m *Machine) Get(jobID string) (Job, error) {
	return m.store.Get(jobID)
}

// GetByVideo returns the video's live job.
func (m *Machine) GetByVideo(videoID string) (Job, error) {
	return m.store.GetByVideo(videoID)
}

// Delete removes the job record, used when its video is deleted.
func (m *Machine) Delete(jobID string) error {
	return m.store.Delete(jobID)
}
