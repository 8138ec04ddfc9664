package matrix

import (
	"context"
	"errors"
	"testing"
)

func TestJobTransitions(t *testing.T) {
	j := newJob(context.Background(), Key{Workflow: "w", Ref: "main", Platform: "linux", Config: "release"}, Cell{})

	if j.State() != StatePending {
		t.Fatalf("initial state = %v, want pending", j.State())
	}
	if err := j.transition(StatePending, StateRunning); err != nil {
		t.Fatalf("pending -> running: %v", err)
	}
	if err := j.transition(StateRunning, StateSucceeded); err != nil {
		t.Fatalf("running -> succeeded: %v", err)
	}
}

func TestJobTransitionWrongPrior(t *testing.T) {
	j := newJob(context.Background(), Key{}, Cell{})
	err := j.transition(StateRunning, StateSucceeded)
	if !errors.Is(err, ErrTransition) {
		t.Fatalf("err = %v, want ErrTransition", err)
	}
	if j.State() != StatePending {
		t.Fatalf("state changed on invalid transition: %v", j.State())
	}
}

func TestJobTransitionFromTerminal(t *testing.T) {
	j := newJob(context.Background(), Key{}, Cell{})
	j.finish(StateCancelled, nil)

	if err := j.transition(StateCancelled, StateRunning); !errors.Is(err, ErrTransition) {
		t.Fatalf("err = %v, want ErrTransition from terminal state", err)
	}
}

func TestJobCheckpoint(t *testing.T) {
	j := newJob(context.Background(), Key{}, Cell{})
	if err := j.Checkpoint(); err != nil {
		t.Fatalf("Checkpoint before cancel: %v", err)
	}

	j.cancel()
	if err := j.Checkpoint(); err == nil {
		t.Fatal("Checkpoint after cancel returned nil")
	}
}

func TestStateTerminal(t *testing.T) {
	for _, s := range []State{StateSucceeded, StateFailed, StateCancelled} {
		if !s.Terminal() {
			t.Fatalf("%v.Terminal() = false", s)
		}
	}
	for _, s := range []State{StatePending, StateRunning} {
		if s.Terminal() {
			t.Fatalf("%v.Terminal() = true", s)
		}
	}
}

func TestKeyString(t *testing.T) {
	k := Key{Workflow: "release", Ref: "feature-x", Platform: "darwin", Config: "release"}
	if k.String() != "release/feature-x/darwin/release" {
		t.Fatalf("String() = %q", k.String())
	}
}
