package matrix

import (
	"context"
	"testing"
)

func TestSubmitSupersedesFeatureRef(t *testing.T) {
	s := NewScheduler("main", nil)
	key := Key{Workflow: "wf", Ref: "feature-x", Platform: "linux", Config: "release"}

	j1 := s.Submit(context.Background(), key, Cell{})
	j2 := s.Submit(context.Background(), key, Cell{})

	if j1.Context().Err() == nil {
		t.Fatal("first job not cancelled after matching submission")
	}
	if j2.Context().Err() != nil {
		t.Fatal("second job cancelled at submission")
	}
}

func TestSubmitStableRefRunsBoth(t *testing.T) {
	s := NewScheduler("main", nil)
	key := Key{Workflow: "wf", Ref: "main", Platform: "linux", Config: "release"}

	j1 := s.Submit(context.Background(), key, Cell{})
	j2 := s.Submit(context.Background(), key, Cell{})

	if j1.Context().Err() != nil {
		t.Fatal("stable-ref job cancelled by a matching submission")
	}
	if j2.Context().Err() != nil {
		t.Fatal("second stable-ref job cancelled at submission")
	}
}

func TestSubmitDistinctKeysIndependent(t *testing.T) {
	s := NewScheduler("main", nil)

	j1 := s.Submit(context.Background(), Key{Workflow: "wf", Ref: "feature-x", Platform: "linux", Config: "release"}, Cell{})
	s.Submit(context.Background(), Key{Workflow: "wf", Ref: "feature-x", Platform: "darwin", Config: "release"}, Cell{})

	if j1.Context().Err() != nil {
		t.Fatal("job cancelled by a submission with a different key")
	}
}

func TestConcludeEmitsEventAndClearsSlot(t *testing.T) {
	var events []Event
	s := NewScheduler("main", func(e Event) { events = append(events, e) })
	key := Key{Workflow: "wf", Ref: "feature-x", Platform: "linux", Config: "release"}

	j := s.Submit(context.Background(), key, Cell{})
	s.conclude(j, StateSucceeded, nil)

	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].State != StateSucceeded {
		t.Fatalf("event state = %v, want succeeded", events[0].State)
	}
	if n := len(s.Inflight()); n != 0 {
		t.Fatalf("inflight = %d after conclude, want 0", n)
	}
}

func TestConcludeSupersededDoesNotEvictSuccessor(t *testing.T) {
	s := NewScheduler("main", nil)
	key := Key{Workflow: "wf", Ref: "feature-x", Platform: "linux", Config: "release"}

	j1 := s.Submit(context.Background(), key, Cell{})
	s.Submit(context.Background(), key, Cell{})

	s.conclude(j1, StateCancelled, nil)

	if n := len(s.Inflight()); n != 1 {
		t.Fatalf("inflight = %d, want 1 (successor must survive)", n)
	}
}
