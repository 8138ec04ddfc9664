package matrix

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Lifecycle state of a build job.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Reports whether the state is terminal.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateCancelled:
		return true
	}
	return false
}

// Identifies mutually-superseding build jobs.
//
// Two jobs with equal keys target the same logical output; only one should
// be in flight at a time unless the ref is the stable reference.
type Key struct {
	Workflow string
	Ref      string
	Platform string
	Config   string
}

// Returns the key in "workflow/ref/platform/config" form for logging.
func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", k.Workflow, k.Ref, k.Platform, k.Config)
}

// One (platform, configuration) matrix cell scheduled for a build.
type Cell struct {
	Platform string   // Target platform (e.g., "darwin").
	Config   string   // Build configuration (e.g., "release").
	Arches   []string // Architectures to build; more than one triggers assembly.
}

// Job sequence counter, used for stable identifiers in logs and reports.
var jobSeq atomic.Int64

// A scheduled build for one matrix cell.
//
// The job owns a context derived from the run context; cancelling the job
// cancels that context. Running code observes cancellation cooperatively
// via [Job.Checkpoint] between steps.
type Job struct {
	ID   int64
	Key  Key
	Cell Cell

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	state State
	err   error
}

// Creates a pending job for a cell.
func newJob(ctx context.Context, key Key, cell Cell) *Job {
	jctx, cancel := context.WithCancel(ctx)
	return &Job{
		ID:     jobSeq.Add(1),
		Key:    key,
		Cell:   cell,
		ctx:    jctx,
		cancel: cancel,
		state:  StatePending,
	}
}

// Returns the job's context. It is cancelled when the job is superseded or
// the run context ends.
func (j *Job) Context() context.Context {
	return j.ctx
}

// Returns the job's current state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Returns the error recorded at failure, nil otherwise.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// A safe point between runner steps.
//
// Returns the cancellation cause when the job has been superseded, nil
// otherwise. Callers stop before starting the next step; work already
// handed off is never unwound.
func (j *Job) Checkpoint() error {
	select {
	case <-j.ctx.Done():
		return j.ctx.Err()
	default:
		return nil
	}
}

// Moves the job from one state to another.
//
// The expected prior state makes races observable: a job that was cancelled
// between steps fails its transition to Running rather than silently
// resurrecting.
func (j *Job) transition(from, to State) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state != from {
		return fmt.Errorf("%w: %s: expected %s, have %s", ErrTransition, j.Key, from, j.state)
	}
	if !allowedTransition(from, to) {
		return fmt.Errorf("%w: %s: %s -> %s", ErrTransition, j.Key, from, to)
	}
	j.state = to
	return nil
}

// Records a terminal state and releases the job's context.
func (j *Job) finish(state State, err error) {
	j.mu.Lock()
	j.state = state
	j.err = err
	j.mu.Unlock()
	j.cancel()
}

// Validates a single state transition.
func allowedTransition(from, to State) bool {
	switch from {
	case StatePending:
		return to == StateRunning || to == StateCancelled
	case StateRunning:
		return to.Terminal()
	}
	return false
}
