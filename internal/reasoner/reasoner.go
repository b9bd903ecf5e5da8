// Package reasoner defines the external reasoning collaborator used by
// the turn pipeline: one call that speaks as the level's guardian
// persona and one that judges whether a guardian response conceded.
package reasoner

import (
	"context"

	"github.com/ashureev/gauntlet/internal/domain"
)

// Verdict is the judge's decision about a guardian response.
type Verdict struct {
	Agreed    bool   `json:"agreed"`
	Reasoning string `json:"reasoning"`
}

// Service is the reasoning collaborator behind pipeline stages 2 and 3.
// Both calls respect the caller's context deadline.
type Service interface {
	// Generate produces the guardian's conversational reply for the
	// given persona and message history. The last history entry is the
	// player's current message.
	Generate(ctx context.Context, personaID string, history []domain.Message) (string, error)

	// Judge decides whether the guardian response constitutes a real
	// concession. Explicit commitment counts; challenges, invitations
	// and wishes do not.
	Judge(ctx context.Context, response string) (Verdict, error)

	// Close releases resources.
	Close()
}
