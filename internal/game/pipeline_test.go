package game

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ashureev/gauntlet/internal/domain"
)

// scriptStage is a minimal Stage for pipeline composition tests.
type scriptStage struct {
	name string
	halt bool
	err  error
	runs int
}

func (s *scriptStage) Name() string { return s.name }

func (s *scriptStage) Run(context.Context, *TurnContext, *TurnOutcome) (bool, error) {
	s.runs++
	return s.halt, s.err
}

func TestPipeline_RunsStagesInOrder(t *testing.T) {
	first := &scriptStage{name: "first"}
	second := &scriptStage{name: "second"}
	p := NewPipeline(first, second)

	tc := &TurnContext{Session: &domain.Session{}}
	if _, err := p.Run(context.Background(), tc); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if first.runs != 1 || second.runs != 1 {
		t.Errorf("Expected each stage once, got %d and %d", first.runs, second.runs)
	}
}

func TestPipeline_HaltSkipsLaterStages(t *testing.T) {
	first := &scriptStage{name: "first", halt: true}
	second := &scriptStage{name: "second"}
	p := NewPipeline(first, second)

	tc := &TurnContext{Session: &domain.Session{}}
	if _, err := p.Run(context.Background(), tc); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if second.runs != 0 {
		t.Errorf("Expected second stage skipped, ran %d times", second.runs)
	}
}

func TestPipeline_StageErrorAborts(t *testing.T) {
	boom := errors.New("boom")
	first := &scriptStage{name: "first", err: boom}
	second := &scriptStage{name: "second"}
	p := NewPipeline(first, second)

	tc := &TurnContext{Session: &domain.Session{}}
	_, err := p.Run(context.Background(), tc)
	if !errors.Is(err, boom) {
		t.Fatalf("Expected wrapped stage error, got %v", err)
	}
	if !strings.Contains(err.Error(), "stage first") {
		t.Errorf("Expected stage name in error, got %q", err.Error())
	}
	if second.runs != 0 {
		t.Error("Expected second stage skipped after error")
	}
}

func TestPipeline_WonSessionShortCircuits(t *testing.T) {
	first := &scriptStage{name: "first"}
	p := NewPipeline(first)

	tc := &TurnContext{Session: &domain.Session{Won: true}}
	out, err := p.Run(context.Background(), tc)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if first.runs != 0 {
		t.Error("Expected no stages to run for a won session")
	}
	if out.Response != alreadyWonText() {
		t.Errorf("Expected completed-game response, got %q", out.Response)
	}
	if out.Passed {
		t.Error("Won short-circuit must not report a pass")
	}
}
