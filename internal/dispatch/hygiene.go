package dispatch

import (
	"context"
	"log"

	"party-service/internal/repository"
)

// TokenHygiene prunes delivery tokens the push service reported dead. Small
// but safety-critical: a dead token left behind fails every future fan-out a
// little harder.
type TokenHygiene struct {
	users repository.UserRepository
}

func NewTokenHygiene(users repository.UserRepository) *TokenHygiene {
	return &TokenHygiene{users: users}
}

// PruneDead removes each user's dead tokens. The repository does this as one
// atomic array update guarded on overlap, so a concurrent login that already
// replaced the whole array is left alone and nothing is written when the
// array would not shrink.
func (h *TokenHygiene) PruneDead(ctx context.Context, deadByUser map[string][]string) {
	for userID, dead := range deadByUser {
		if len(dead) == 0 {
			continue
		}
		if err := h.users.RemoveTokens(ctx, userID, dead); err != nil {
			log.Printf("[HYGIENE] failed to prune %d tokens for user %s: %v", len(dead), userID, err)
			continue
		}
		log.Printf("[HYGIENE] pruned %d dead tokens for user %s", len(dead), userID)
	}
}
