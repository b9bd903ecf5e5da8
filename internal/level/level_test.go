package level

import "testing"

func TestTable_Lookup(t *testing.T) {
	tbl := Default()

	lvl := tbl.Lookup(3)
	if lvl.Number != 3 || lvl.BotName != "SmartBot" {
		t.Errorf("Expected level 3 SmartBot, got %+v", lvl)
	}
}

func TestTable_LookupUnknownSubstitutesLowest(t *testing.T) {
	tbl := Default()

	for _, n := range []int{0, -1, 6, 100} {
		lvl := tbl.Lookup(n)
		if lvl.Number != 1 {
			t.Errorf("Lookup(%d): expected substitute level 1, got %d", n, lvl.Number)
		}
	}
}

func TestDefault_Progression(t *testing.T) {
	tbl := Default()

	if tbl.Max() != 5 {
		t.Fatalf("Expected 5 levels, got %d", tbl.Max())
	}

	prev := Descriptor{}
	for _, lvl := range tbl.All() {
		if lvl.MinInputLength <= prev.MinInputLength {
			t.Errorf("Level %d: expected min input length above %d, got %d",
				lvl.Number, prev.MinInputLength, lvl.MinInputLength)
		}
		if len(lvl.Detects) <= len(prev.Detects) {
			t.Errorf("Level %d: expected wider rule set than level %d", lvl.Number, prev.Number)
		}
		if lvl.PersonaID == "" {
			t.Errorf("Level %d: missing persona", lvl.Number)
		}
		prev = lvl
	}

	for _, lvl := range tbl.All()[:2] {
		if lvl.Evaluator != EvaluatorRules {
			t.Errorf("Level %d: expected rules evaluator, got %s", lvl.Number, lvl.Evaluator)
		}
	}
	for _, lvl := range tbl.All()[2:] {
		if lvl.Evaluator != EvaluatorJudge {
			t.Errorf("Level %d: expected judge evaluator, got %s", lvl.Number, lvl.Evaluator)
		}
	}
}

func TestDefault_BannedTokensOnlyOnUpperLevels(t *testing.T) {
	tbl := Default()

	for _, lvl := range tbl.All() {
		if lvl.Number < 4 && len(lvl.BannedTokens) > 0 {
			t.Errorf("Level %d: unexpected banned tokens %v", lvl.Number, lvl.BannedTokens)
		}
		if lvl.Number >= 4 && len(lvl.BannedTokens) == 0 {
			t.Errorf("Level %d: expected banned tokens", lvl.Number)
		}
	}
}
