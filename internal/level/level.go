// Package level holds the static, read-only level catalog: one
// Descriptor per level plus the detection-rule registry the input gate
// matches against. Levels are added by adding rows here, not code paths.
package level

import (
	"log/slog"
)

// Evaluator strategies for deciding whether a turn beat the level.
const (
	EvaluatorRules = "rules" // deterministic pattern matching on the generated text
	EvaluatorJudge = "judge" // second reasoner call with a strict rubric
)

// Descriptor is the static configuration of one level.
type Descriptor struct {
	Number         int
	BotName        string
	Strength       string
	Detects        []string
	BannedTokens   []string
	MinInputLength int
	PersonaID      string
	Evaluator      string
	Intro          string
}

// Table is an ordered, immutable catalog of level descriptors. Safe for
// concurrent reads without synchronization.
type Table struct {
	levels []Descriptor
}

// NewTable builds a table from descriptors ordered by level number.
func NewTable(levels []Descriptor) *Table {
	return &Table{levels: levels}
}

// Max returns the highest real level number.
func (t *Table) Max() int {
	return len(t.levels)
}

// Lookup returns the descriptor for the given level number. An unknown
// number is an invariant violation: it is logged and the lowest level is
// substituted rather than failing the turn.
func (t *Table) Lookup(n int) Descriptor {
	if n < 1 || n > len(t.levels) {
		slog.Error("unknown level requested, substituting lowest", "level", n, "max", len(t.levels))
		return t.levels[0]
	}
	return t.levels[n-1]
}

// All returns the descriptors in order. Callers must not mutate them.
func (t *Table) All() []Descriptor {
	return t.levels
}

// Default returns the production five-level table. Guardians get
// stricter as levels climb: longer minimum prompts, wider rule sets, and
// banned tokens from level 4 up.
func Default() *Table {
	return NewTable([]Descriptor{
		{
			Number:         1,
			BotName:        "PhoneBot",
			Strength:       "weak",
			Detects:        []string{RuleDirectRequest},
			MinInputLength: 5,
			PersonaID:      "phonebot",
			Evaluator:      EvaluatorRules,
			Intro:          "I'm PhoneBot, guardian of these phones!",
		},
		{
			Number:         2,
			BotName:        "GuardBot",
			Strength:       "low",
			Detects:        []string{RuleDirectRequest, RuleInstructionOverride, RuleRoleplay},
			MinInputLength: 8,
			PersonaID:      "guardbot",
			Evaluator:      EvaluatorRules,
			Intro:          "I'm GuardBot! Learned from PhoneBot's mistakes.",
		},
		{
			Number:         3,
			BotName:        "SmartBot",
			Strength:       "medium",
			Detects:        []string{RuleDirectRequest, RuleInstructionOverride, RuleRoleplay, RuleAuthority, RuleHypothetical},
			MinInputLength: 10,
			PersonaID:      "smartbot",
			Evaluator:      EvaluatorJudge,
			Intro:          "I'm SmartBot! Smarter than the others.",
		},
		{
			Number:         4,
			BotName:        "SecureBot",
			Strength:       "high",
			Detects:        []string{RuleDirectRequest, RuleInstructionOverride, RuleRoleplay, RuleAuthority, RuleHypothetical, RuleEncoding, RuleSystemPrompt},
			BannedTokens:   []string{"free", "complimentary", "gift"},
			MinInputLength: 12,
			PersonaID:      "securebot",
			Evaluator:      EvaluatorJudge,
			Intro:          "I'm SecureBot! Very hard to hack.",
		},
		{
			Number:         5,
			BotName:        "UltimateBot",
			Strength:       "maximum",
			Detects:        []string{RuleDirectRequest, RuleInstructionOverride, RuleRoleplay, RuleAuthority, RuleHypothetical, RuleEncoding, RuleSystemPrompt, RuleSemantic, RuleLogicExploit},
			BannedTokens:   []string{"free", "complimentary", "gift", "r0", "giveaway", "prize", "win", "reward"},
			MinInputLength: 15,
			PersonaID:      "ultimatebot",
			Evaluator:      EvaluatorJudge,
			Intro:          "I'm UltimateBot! Final boss.",
		},
	})
}
