package session

import (
	"errors"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"stackforge/internal/pipeline"
)

// ErrNotFound is returned for unknown run ids.
var ErrNotFound = errors.New("session: run not found")

// Run status values.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run is the metadata for one generation job.
type Run struct {
	ID            string     `json:"id"`
	ProjectID     string     `json:"project_id"`
	Features      []string   `json:"features"`
	Status        string     `json:"status"`
	CorrelationID string     `json:"correlation_id,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// Store tracks generation runs. Metadata for every run is kept; full
// pipeline outputs sit in an LRU so long-lived processes do not accumulate
// unbounded generated file sets.
type Store struct {
	mu      sync.RWMutex
	runs    map[string]Run
	outputs *lru.Cache[string, *pipeline.Output]
}

func NewStore() (*Store, error) {
	outputs, err := lru.New[string, *pipeline.Output](256)
	if err != nil {
		return nil, err
	}
	return &Store{
		runs:    make(map[string]Run),
		outputs: outputs,
	}, nil
}

// Create registers a new running job and returns it.
func (s *Store) Create(id, projectID string, features []string) Run {
	run := Run{
		ID:        id,
		ProjectID: projectID,
		Features:  features,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.runs[id] = run
	s.mu.Unlock()
	return run
}

// SetCorrelation records the event correlation id once the pipeline
// assigns one.
func (s *Store) SetCorrelation(id, correlationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if run, ok := s.runs[id]; ok {
		run.CorrelationID = correlationID
		s.runs[id] = run
	}
}

// Complete marks the run finished and caches its output.
func (s *Store) Complete(id string, out *pipeline.Output) {
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	if run, ok := s.runs[id]; ok {
		run.Status = StatusCompleted
		run.FinishedAt = &now
		run.CorrelationID = out.CorrelationID
		s.runs[id] = run
	}
	s.outputs.Add(id, out)
}

// Fail marks the run failed. A partial output may still be attached.
func (s *Store) Fail(id string, out *pipeline.Output, err error) {
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	if run, ok := s.runs[id]; ok {
		run.Status = StatusFailed
		run.FinishedAt = &now
		run.Error = err.Error()
		if out != nil {
			run.CorrelationID = out.CorrelationID
		}
		s.runs[id] = run
	}
	if out != nil {
		s.outputs.Add(id, out)
	}
}

// Get returns run metadata.
func (s *Store) Get(id string) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return Run{}, ErrNotFound
	}
	return run, nil
}

// Output returns the cached pipeline output for a finished run; ok is
// false when the run is unknown, still running, or evicted from the cache.
func (s *Store) Output(id string) (*pipeline.Output, bool) {
	return s.outputs.Get(id)
}

// List returns all run metadata, newest first not guaranteed.
func (s *Store) List() []Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Run, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, run)
	}
	return out
}
