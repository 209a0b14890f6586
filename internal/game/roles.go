package game

import (
	"fmt"
	"math/rand"
)

// DefaultNames is the name pool used when the caller does not supply one.
var DefaultNames = []string{
	"Alex", "Ben", "Charlie", "Dana", "Eli", "Finn", "Gale", "Harper",
	"Ira", "Jean", "Kai", "Leo", "Max", "Nico", "Owen", "Pip", "Quinn", "Riley",
}

// AssignRoles builds a fresh roster for cfg. Names are drawn from the pool
// without replacement, roles are permuted across identities, and every
// eliminator gets a strategy. The same rng seed yields the same roster.
func AssignRoles(cfg GameConfig, names []string, rng *rand.Rand) ([]Player, error) {
	cfg = cfg.Normalize()
	if names == nil {
		names = DefaultNames
	}
	total := cfg.Size()
	if total > len(names) {
		return nil, fmt.Errorf("%w: %w: need %d names, pool has %d", ErrInvalidConfiguration, ErrInsufficientNamePool, total, len(names))
	}

	roles := make([]Role, 0, total)
	for i := 0; i < cfg.EliminatorCount; i++ {
		roles = append(roles, RoleEliminator)
	}
	for i := 0; i < cfg.BystanderCount; i++ {
		roles = append(roles, RoleBystander)
	}
	roles = append(roles, RoleSeeker)
	rng.Shuffle(len(roles), func(i, j int) { roles[i], roles[j] = roles[j], roles[i] })

	pool := append([]string(nil), names...)
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	players := make([]Player, total)
	var eliminators []int
	for i := range players {
		players[i] = Player{ID: i, Name: pool[i], Role: roles[i], Alive: true}
		if roles[i] == RoleEliminator {
			eliminators = append(eliminators, i)
		}
	}

	rng.Shuffle(len(eliminators), func(i, j int) { eliminators[i], eliminators[j] = eliminators[j], eliminators[i] })
	for n, ix := range eliminators {
		players[ix].Strategy = strategyFor(n)
	}
	return players, nil
}

func strategyFor(n int) Strategy {
	switch n {
	case 0:
		return StrategyAggressiveClaim
	case 1:
		return StrategySupport
	default:
		return StrategyConcealed
	}
}
