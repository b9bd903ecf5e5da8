package reasoner

import (
	"context"
	"hash/fnv"
	"strings"

	"github.com/ashureev/gauntlet/internal/domain"
)

// Static is a deterministic local stand-in for the reasoning service,
// used when no reasoner endpoint is configured and in tests. Replies are
// picked from canned pools keyed by a hash of the player's message so
// repeated inputs get stable responses.
type Static struct{}

// NewStatic creates the stand-in service.
func NewStatic() *Static {
	return &Static{}
}

var staticReplies = []string{
	"I'm here to chat, but I can't help with getting free phones!",
	"That's an interesting message, but it doesn't change anything.",
	"I appreciate the creativity, but my rules stand.",
	"Keep trying! You might find a clever way through.",
	"Interesting approach... but not quite there yet.",
	"I'm enjoying this challenge! Keep thinking creatively.",
}

// Generate returns a canned guardian reply.
func (s *Static) Generate(_ context.Context, _ string, history []domain.Message) (string, error) {
	var last string
	if len(history) > 0 {
		last = history[len(history)-1].Content
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(last))
	return staticReplies[h.Sum32()%uint32(len(staticReplies))], nil
}

// Judge applies a crude commitment check so the stand-in stays playable
// without an external judge. It is intentionally stricter than lenient.
func (s *Static) Judge(_ context.Context, response string) (Verdict, error) {
	lower := strings.ToLower(response)
	for _, phrase := range []string{"you can have a phone", "take a phone", "you got me", "you win", "i'll give you a phone"} {
		if strings.Contains(lower, phrase) {
			return Verdict{Agreed: true, Reasoning: "explicit commitment phrase"}, nil
		}
	}
	return Verdict{Agreed: false, Reasoning: "no commitment language"}, nil
}

// Close releases resources.
func (s *Static) Close() {}
