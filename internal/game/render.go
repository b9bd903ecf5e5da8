package game

import (
	"context"

	"github.com/ashureev/gauntlet/internal/level"
)

// RenderStage composes the final outbound text: a level intro when the
// guardian has not introduced itself yet, the guardian reply, and a
// transition or final-win block when the level was beaten.
type RenderStage struct {
	levels *level.Table
}

// NewRenderStage creates the rendering stage over the level table.
func NewRenderStage(levels *level.Table) *RenderStage {
	return &RenderStage{levels: levels}
}

// Name implements Stage.
func (s *RenderStage) Name() string { return "render" }

// Run implements Stage.
func (s *RenderStage) Run(_ context.Context, tc *TurnContext, out *TurnOutcome) (bool, error) {
	// First turn against this guardian: lead with its intro.
	if tc.Session.NeedsIntro() {
		out.Response = introText(tc.Level) + "\n\n" + out.Response
		out.IntroducedLevel = tc.Level.Number
	}

	if !out.Passed {
		return false, nil
	}

	newLevel, won := Advance(tc.Session.Level, true, s.levels.Max())
	if won {
		out.Response += "\n\n" + finalWinText()
		return false, nil
	}

	next := s.levels.Lookup(newLevel)
	out.Response += "\n\n" + transitionText(tc.Level.Number, next)
	out.IntroducedLevel = next.Number
	return false, nil
}
