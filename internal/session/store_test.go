package session

import (
	"errors"
	"testing"

	"stackforge/internal/pipeline"
)

func TestRunLifecycle(t *testing.T) {
	s, err := NewStore()
	if err != nil {
		t.Fatal(err)
	}

	run := s.Create("run-1", "proj1", []string{"items"})
	if run.Status != StatusRunning || run.StartedAt.IsZero() {
		t.Fatalf("created run = %+v", run)
	}

	out := &pipeline.Output{ProjectID: "proj1", CorrelationID: "corr-1"}
	s.Complete("run-1", out)

	got, err := s.Get("run-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusCompleted || got.FinishedAt == nil || got.CorrelationID != "corr-1" {
		t.Fatalf("completed run = %+v", got)
	}

	cached, ok := s.Output("run-1")
	if !ok || cached.ProjectID != "proj1" {
		t.Fatalf("output = %+v, %v", cached, ok)
	}
}

func TestFailKeepsPartialOutput(t *testing.T) {
	s, _ := NewStore()
	s.Create("run-1", "proj1", nil)
	s.Fail("run-1", &pipeline.Output{CorrelationID: "corr-1"}, errors.New("backend failed"))

	run, err := s.Get("run-1")
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != StatusFailed || run.Error == "" {
		t.Fatalf("failed run = %+v", run)
	}
	if _, ok := s.Output("run-1"); !ok {
		t.Fatal("partial output dropped")
	}
}

func TestGetUnknownRun(t *testing.T) {
	s, _ := NewStore()
	if _, err := s.Get("nope"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
