package game

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/gauntlet/internal/reasoner"
)

const generateRetryBackoff = 500 * time.Millisecond

// GenerateStage asks the reasoning service for the guardian's reply.
// One retry with backoff; on exhaustion it substitutes a static
// fallback rather than aborting the turn.
type GenerateStage struct {
	reasoner reasoner.Service
}

// NewGenerateStage creates the response-generation stage.
func NewGenerateStage(r reasoner.Service) *GenerateStage {
	return &GenerateStage{reasoner: r}
}

// Name implements Stage.
func (s *GenerateStage) Name() string { return "generate" }

// Run implements Stage.
func (s *GenerateStage) Run(ctx context.Context, tc *TurnContext, out *TurnOutcome) (bool, error) {
	text, err := s.reasoner.Generate(ctx, tc.Level.PersonaID, tc.History)
	if err != nil {
		slog.Warn("generation failed, retrying once", "identity", tc.Identity, "level", tc.Level.Number, "error", err)

		select {
		case <-time.After(generateRetryBackoff):
		case <-ctx.Done():
		}

		text, err = s.reasoner.Generate(ctx, tc.Level.PersonaID, tc.History)
		if err != nil {
			slog.Error("generation failed after retry, using fallback", "identity", tc.Identity, "level", tc.Level.Number, "error", err)
			out.Generated = generationFallbackText()
			out.Response = out.Generated
			out.InternalNotes = NoteGenerationFailed
			return false, nil
		}
	}

	out.Generated = text
	out.Response = text
	return false, nil
}
