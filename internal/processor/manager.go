package processor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/framesift/framesift/internal/job"
)

// Manager owns the background task per upload. The accept path only creates
// the job and hands off; callers poll job status. Jobs for different videos
// run concurrently; cancelling a video aborts its in-flight pipeline.
type Manager struct {
	pipeline *Pipeline
	machine  *job.Machine
	logger   *slog.Logger

	mu      sync.Mutex
	videos  map[string]Video     // by video id, for retry
	running map[string]*runToken // by video id
	wg      sync.WaitGroup
}

// runToken identifies one pipeline run so a finished run never evicts the
// bookkeeping of a newer resubmission.
type runToken struct {
	cancel context.CancelFunc
}

// NewManager wraps a pipeline with background-task bookkeeping.
func NewManager(pipeline *Pipeline, machine *job.Machine, logger *slog.Logger) *Manager {
	return &Manager{
		pipeline: pipeline,
		machine:  machine,
		logger:   logger.With("component", "manager"),
		videos:   make(map[string]Video),
		running:  make(map[string]*runToken),
	}
}

// Submit creates (or resets) the video's job and starts processing in the
// background. A resubmission cancels the previous run first.
func (m *Manager) Submit(video Video) (job.Job, error) {
	m.cancelRun(video.ID)

	j, err := m.machine.Create(video.ID)
	if err != nil {
		return job.Job{}, err
	}

	m.mu.Lock()
	m.videos[video.ID] = video
	m.mu.Unlock()

	m.start(video, j.ID)
	return j, nil
}

// Retry re-enqueues a failed job under the same id.
func (m *Manager) Retry(jobID string) error {
	j, err := m.machine.Get(jobID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	video, ok := m.videos[j.VideoID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("video %s is no longer available", j.VideoID)
	}

	if err := m.machine.Retry(jobID); err != nil {
		return err
	}
	m.start(video, jobID)
	return nil
}

// Status returns the job snapshot for polling.
func (m *Manager) Status(jobID string) (job.Job, error) {
	return m.machine.Get(jobID)
}

// StatusByVideo returns the video's live job.
func (m *Manager) StatusByVideo(videoID string) (job.Job, error) {
	return m.machine.GetByVideo(videoID)
}

// Forget cancels the video's work and drops its records. File and database
// cleanup belong to the caller that owns those stores.
func (m *Manager) Forget(videoID string) {
	m.cancelRun(videoID)
	m.mu.Lock()
	delete(m.videos, videoID)
	m.mu.Unlock()
	if j, err := m.machine.GetByVideo(videoID); err == nil {
		if err := m.machine.Delete(j.ID); err != nil {
			m.logger.Warn("could not delete job", "job", j.ID, "error", err)
		}
	}
}

// Wait blocks until all in-flight jobs finish. Used on shutdown and in the
// one-shot CLI.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) start(video Video, jobID string) {
	ctx, cancel := context.WithCancel(context.Background())
	token := &runToken{cancel: cancel}

	m.mu.Lock()
	m.running[video.ID] = token
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			m.mu.Lock()
			// A resubmission may have replaced the entry already.
			if m.running[video.ID] == token {
				delete(m.running, video.ID)
			}
			m.mu.Unlock()
			cancel()
		}()
		m.logger.Info("job started", "video", video.ID, "job", jobID)
		m.pipeline.Process(ctx, video, jobID)
	}()
}

// cancelRun aborts the video's in-flight pipeline, if any. The pipeline's
// top-level handler then resolves the job to failed.
func (m *Manager) cancelRun(videoID string) {
	m.mu.Lock()
	token, ok := m.running[videoID]
	if ok {
		delete(m.running, videoID)
	}
	m.mu.Unlock()
	if ok {
		token.cancel()
	}
}
