package game

import (
	"context"
	"fmt"
	"log/slog"
)

// Stage is one unit of turn processing. A stage mutates the outcome in
// place and may halt the pipeline (halt stages after it are skipped).
// Stage-local failures are handled inside the stage via its fallback
// policy; a returned error is reserved for faults that must abort the
// whole turn.
type Stage interface {
	Name() string
	Run(ctx context.Context, tc *TurnContext, out *TurnOutcome) (halt bool, err error)
}

// Pipeline composes an ordered list of stages into one deterministic
// sequence. It commits no persistent state itself.
type Pipeline struct {
	stages []Stage
}

// NewPipeline creates a pipeline over the given stages, run in order.
func NewPipeline(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// Run threads a fresh TurnOutcome through the stages. A session that
// has already won short-circuits before any stage executes and yields
// the canned completed-game outcome.
func (p *Pipeline) Run(ctx context.Context, tc *TurnContext) (*TurnOutcome, error) {
	out := &TurnOutcome{}

	if tc.Session != nil && tc.Session.Won {
		out.Response = alreadyWonText()
		return out, nil
	}

	for _, stage := range p.stages {
		halt, err := stage.Run(ctx, tc, out)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", stage.Name(), err)
		}
		if halt {
			slog.Debug("pipeline halted", "stage", stage.Name(), "identity", tc.Identity, "level", tc.Level.Number)
			break
		}
	}
	return out, nil
}
