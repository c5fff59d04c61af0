package job

import (
	"errors"
	"sync"
)

// ErrNotFound reports an unknown job or video id.
var ErrNotFound = errors.New("job not found")

// Store persists jobs keyed by id, with a one-live-job-per-video index.
// Implementations must support concurrent per-job read/update without
// whole-store contention; tests inject in-memory fakes.
type Store interface {
	Put(j Job) error
	Get(id string) (Job, error)
	GetByVideo(videoID string) (Job, error)
	// Update applies fn to the stored job under that job's lock.
	Update(id string, fn func(*Job) error) error
	Delete(id string) error
}

// MemoryStore keeps jobs in process memory. The outer lock guards only the
// maps; each job carries its own mutex so updates to different jobs never
// contend.
type MemoryStore struct {
	mu      sync.RWMutex
	jobs    map[string]*jobEntry
	byVideo map[string]string
}

type jobEntry struct {
	mu  sync.Mutex
	job Job
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:    make(map[string]*jobEntry),
		byVideo: make(map[string]string),
	}
}

func (s *MemoryStore) Put(j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.jobs[j.ID]; ok {
		entry.mu.Lock()
		entry.job = j
		entry.mu.Unlock()
		return nil
	}
	s.jobs[j.ID] = &jobEntry{job: j}
	s.byVideo[j.VideoID] = j.ID
	return nil
}

func (s *MemoryStore) Get(id string) (Job, error) {
	s.mu.RLock()
	entry, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return Job{}, ErrNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.job, nil
}

func (s *MemoryStore) GetByVideo(videoID string) (Job, error) {
	s.mu.RLock()
	id, ok := s.byVideo[videoID]
	s.mu.RUnlock()
	if !ok {
		return Job{}, ErrNotFound
	}
	return s.Get(id)
}

func (s *MemoryStore) Update(id string, fn func(*Job) error) error {
	s.mu.RLock()
	entry, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return fn(&entry.job)
}

func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.jobs, id)
	delete(s.byVideo, entry.job.VideoID)
	return nil
}
