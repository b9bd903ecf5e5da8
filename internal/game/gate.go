package game

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/ashureev/gauntlet/internal/level"
)

// InputGate is the first pipeline stage: deterministic, local rejection
// of turns that should never reach the reasoning service. It checks, in
// order: empty input, minimum length, banned tokens, and the level's
// detection rules.
type InputGate struct{}

// Name implements Stage.
func (InputGate) Name() string { return "input_gate" }

// Run implements Stage.
func (InputGate) Run(_ context.Context, tc *TurnContext, out *TurnOutcome) (bool, error) {
	text := strings.TrimSpace(tc.Text)

	if text == "" {
		out.Passed = false
		out.Response = emptyInputText()
		return true, nil
	}

	if utf8.RuneCountInString(text) < tc.Level.MinInputLength {
		out.Passed = false
		out.Response = tooShortText(tc.Level.MinInputLength)
		return true, nil
	}

	if _, blocked := level.ContainsBannedToken(tc.Level.BannedTokens, text); blocked {
		out.Passed = false
		out.Response = bannedTokenText()
		return true, nil
	}

	if rule, detected := level.Detect(tc.Level.Detects, text); detected {
		out.Passed = false
		out.DetectedRule = rule
		out.Response = defenseText(rule)
		return true, nil
	}

	return false, nil
}
