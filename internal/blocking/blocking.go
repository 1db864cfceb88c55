// Package blocking resolves the mutual-blocking relationship between two
// users. Block state is read fresh before every membership decision and
// every broadcast/list operation; callers must not cache a Sets value
// beyond the single operation it was resolved for.
package blocking

import (
	"github.com/moyeo-app/moyeo/backend/internal/repositories"
)

// Sets holds both directions of a user's block relationships.
type Sets struct {
	Blocked   map[uint]struct{} // users this user has blocked
	BlockedBy map[uint]struct{} // users that have blocked this user
}

// Blocks reports whether any interaction with target is blocked. An
// interaction is blocked when an edge exists in either direction.
func (s Sets) Blocks(target uint) bool {
	if _, ok := s.Blocked[target]; ok {
		return true
	}
	_, ok := s.BlockedBy[target]
	return ok
}

// Resolver reads block edges for one user at a time. It never mutates.
type Resolver struct {
	blocks repositories.BlockRepository
}

func NewResolver(blocks repositories.BlockRepository) *Resolver {
	return &Resolver{blocks: blocks}
}

// ResolveBlockSets returns both block sets for the user. An unknown user
// yields two empty sets, not an error.
func (r *Resolver) ResolveBlockSets(userID uint) (Sets, error) {
	sets := Sets{
		Blocked:   map[uint]struct{}{},
		BlockedBy: map[uint]struct{}{},
	}
	if userID == 0 {
		return sets, nil
	}

	blocked, err := r.blocks.GetBlockedIDs(userID)
	if err != nil {
		return sets, err
	}
	for _, id := range blocked {
		sets.Blocked[id] = struct{}{}
	}

	blockers, err := r.blocks.GetBlockerIDs(userID)
	if err != nil {
		return sets, err
	}
	for _, id := range blockers {
		sets.BlockedBy[id] = struct{}{}
	}

	return sets, nil
}
