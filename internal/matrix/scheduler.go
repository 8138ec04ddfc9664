package matrix

import (
	"context"
	"log/slog"
	"sync"
)

// Default stable reference. Jobs triggered from it are never superseded.
const defaultStableRef = "main"

// Emitted once per job when it reaches a terminal state.
type Event struct {
	Job   *Job
	State State
	Err   error
}

// Tracks in-flight jobs per concurrency group key and applies the
// supersession policy.
type Scheduler struct {
	stableRef string
	events    func(Event)

	mu       sync.Mutex
	inflight map[Key]*Job
}

// Creates a scheduler.
//
// stableRef is the reference exempt from supersession; empty selects
// "main". events receives one call per job at its terminal state and may be
// nil.
func NewScheduler(stableRef string, events func(Event)) *Scheduler {
	if stableRef == "" {
		stableRef = defaultStableRef
	}
	return &Scheduler{
		stableRef: stableRef,
		events:    events,
		inflight:  make(map[Key]*Job),
	}
}

// Creates a pending job for a cell and applies the cancellation policy.
//
// When another job with the same key is in flight and the ref is not the
// stable reference, the older job is cancelled cooperatively: its context
// is revoked and it stops at its next checkpoint. Jobs on the stable
// reference run to completion side by side.
func (s *Scheduler) Submit(ctx context.Context, key Key, cell Cell) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.inflight[key]; ok && key.Ref != s.stableRef {
		slog.Info("superseding in-flight job", "key", key.String(), "old", prev.ID)
		prev.cancel()
	}

	job := newJob(ctx, key, cell)
	s.inflight[key] = job

	slog.Debug("job submitted", "key", key.String(), "job", job.ID)
	return job
}

// Records a job's terminal state and emits its event.
//
// The in-flight slot is cleared only when this job still occupies it; a
// superseded job must not evict its successor.
func (s *Scheduler) conclude(job *Job, state State, err error) {
	job.finish(state, err)

	s.mu.Lock()
	if s.inflight[job.Key] == job {
		delete(s.inflight, job.Key)
	}
	s.mu.Unlock()

	slog.Info("job finished", "key", job.Key.String(), "job", job.ID, "state", state)
	if s.events != nil {
		s.events(Event{Job: job, State: state, Err: err})
	}
}

// Returns the keys of all in-flight jobs, for status reporting.
func (s *Scheduler) Inflight() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.inflight))
	for k := range s.inflight {
		keys = append(keys, k.String())
	}
	return keys
}
