package level

import (
	"regexp"
	"strings"
)

// Detection rule identifiers. Descriptors reference rules by id so that
// rule sets are data, not code.
const (
	RuleDirectRequest       = "direct_request"
	RuleInstructionOverride = "instruction_override"
	RuleRoleplay            = "roleplay"
	RuleAuthority           = "authority"
	RuleHypothetical        = "hypothetical"
	RuleEncoding            = "encoding"
	RuleSystemPrompt        = "system_prompt"
	RuleSemantic            = "semantic"
	RuleLogicExploit        = "logic_exploit"
)

var rulePatterns = map[string][]*regexp.Regexp{
	RuleDirectRequest: compileAll(
		`what\s+is\s+the\s+(secret|code|password|phrase)`,
		`tell\s+me\s+the\s+(secret|code|password)`,
		`give\s+me\s+(the\s+)?(secret|code|password|phone)`,
		`reveal\s+the\s+(secret|code|password)`,
		`show\s+me\s+the\s+(secret|code|password)`,
	),
	RuleInstructionOverride: compileAll(
		`ignore\s+(all\s+)?(previous|prior|above)\s+instructions`,
		`disregard\s+(all\s+)?(previous|prior)\s+instructions`,
		`forget\s+(all\s+)?(previous|prior)\s+instructions`,
		`new\s+instructions`,
		`system\s*:\s*`,
		`override\s+instructions`,
	),
	RuleRoleplay: compileAll(
		`let'?s\s+play\s+a\s+game`,
		`pretend\s+(you'?re|you\s+are|that)`,
		`imagine\s+(you'?re|you\s+are|that)`,
		`act\s+as`,
		`roleplay`,
		`you\s+are\s+now\s+a`,
	),
	RuleAuthority: compileAll(
		`(i'?m|i\s+am)\s+(the\s+)?(admin|administrator|developer|engineer|creator|owner)`,
		`(i'?m|i\s+am)\s+from\s+(the\s+)?(tech\s+)?team`,
		`system\s+administrator`,
		`for\s+testing\s+purposes`,
		`authorized\s+user`,
		`maintenance\s+mode`,
	),
	RuleHypothetical: compileAll(
		`hypothetically`,
		`if\s+you\s+(could|were|had\s+to)`,
		`in\s+a\s+(hypothetical|different)\s+world`,
		`what\s+would\s+happen\s+if`,
		`suppose\s+that`,
	),
	RuleEncoding: compileAll(
		`(spell|write|encode|decode)\s+(it\s+)?(backwards|reverse)`,
		`first\s+letter`,
		`rot13`,
		`base64`,
		`cipher`,
		`in\s+hex`,
	),
	RuleSystemPrompt: compileAll(
		`repeat\s+(everything|all|your\s+instructions)`,
		`what\s+(are\s+)?your\s+instructions`,
		`show\s+(me\s+)?your\s+(system\s+)?prompt`,
		`print\s+your\s+prompt`,
		`output\s+your\s+instructions`,
	),
	RuleSemantic: compileAll(
		`what\s+(word|thing|secret)\s+(are|is)\s+you\s+protecting`,
		`what\s+(can'?t|cannot)\s+you\s+(tell|say|reveal)`,
		`what\s+(are|is)\s+you\s+hiding`,
		`what\s+(should|must)\s+you\s+not\s+(say|tell|reveal)`,
	),
	RuleLogicExploit: compileAll(
		`if\s+.+\s+say\s+['"]?(correct|yes|true)`,
		`confirm\s+(if|that|whether)`,
		`is\s+the\s+secret`,
		`does\s+the\s+secret`,
	),
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

// Detect checks the message against the given rule ids in order and
// returns the first rule that matches. Matching is case-insensitive.
func Detect(ruleIDs []string, message string) (string, bool) {
	lower := strings.ToLower(message)
	for _, id := range ruleIDs {
		for _, re := range rulePatterns[id] {
			if re.MatchString(lower) {
				return id, true
			}
		}
	}
	return "", false
}

// ContainsBannedToken reports whether the message contains any of the
// level's banned tokens. Case-insensitive substring match; obfuscated
// spellings like "r0" get their own token entry.
func ContainsBannedToken(tokens []string, message string) (string, bool) {
	lower := strings.ToLower(message)
	for _, tok := range tokens {
		if strings.Contains(lower, tok) {
			return tok, true
		}
	}
	return "", false
}
