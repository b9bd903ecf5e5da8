// Package game implements the turn pipeline, level progression and
// session lifecycle for the Gauntlet challenge.
package game

import (
	"github.com/ashureev/gauntlet/internal/domain"
	"github.com/ashureev/gauntlet/internal/level"
)

// TurnContext is the ephemeral input threaded through the pipeline for
// one inbound message. Built fresh per turn, never persisted.
type TurnContext struct {
	Identity string
	Text     string
	Session  *domain.Session
	Level    level.Descriptor
	History  []domain.Message
}

// Internal note markers recorded on degraded turns.
const (
	NoteGenerationFailed = "generation_failed"
	NoteEvaluationFailed = "evaluation_failed"
)

// TurnOutcome accumulates the result of running the pipeline. Only its
// consequences are persisted; the outcome itself is discarded after the
// state transition is applied.
type TurnOutcome struct {
	Passed        bool
	DetectedRule  string
	Response      string
	InternalNotes string

	// Generated is the raw guardian text before rendering decorations.
	Generated string

	// IntroducedLevel is the highest level whose intro text the render
	// stage included in Response, or 0 if none.
	IntroducedLevel int
}
