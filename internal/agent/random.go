package agent

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/kiliankoe/gptwolf/internal/game"
)

// Random binds agents that decide uniformly at random with canned speeches.
// It needs no network and is the offline default.
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandom(rng *rand.Rand) *Random {
	return &Random{rng: rng}
}

func (r *Random) Bind(p game.Player) game.Agent {
	return &randomAgent{src: r, role: p.Role}
}

func (r *Random) pick(ids []int) int {
	if len(ids) == 0 {
		return game.NoTarget
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return ids[r.rng.Intn(len(ids))]
}

type randomAgent struct {
	src  *Random
	role game.Role
}

func (a *randomAgent) DecideStatement(_ context.Context, req game.Request) (string, error) {
	name := "someone"
	if id := a.src.pick(livingIDs(req.Roster, func(p game.Player) bool { return p.ID != req.Self.ID })); id != game.NoTarget {
		name = req.Roster[id].Name
	}
	switch a.role {
	case game.RoleEliminator:
		return fmt.Sprintf("I've been listening carefully, and I think %s is acting very strangely. Their arguments don't add up.", name), nil
	case game.RoleSeeker:
		return fmt.Sprintf("I have a strong feeling about this. We need to focus on %s. I can't say more, but trust me.", name), nil
	default:
		return fmt.Sprintf("This is tough. I'm not sure who to trust, but %s made me a little suspicious. What does everyone else think?", name), nil
	}
}

func (a *randomAgent) DecideVote(_ context.Context, req game.Request) (int, error) {
	return a.src.pick(livingIDs(req.Roster, func(p game.Player) bool { return p.ID != req.Self.ID })), nil
}

func (a *randomAgent) DecideNightAction(_ context.Context, req game.Request) (int, error) {
	switch a.role {
	case game.RoleEliminator:
		return a.src.pick(livingIDs(req.Roster, func(p game.Player) bool { return p.Role != game.RoleEliminator })), nil
	case game.RoleSeeker:
		return a.src.pick(livingIDs(req.Roster, func(p game.Player) bool { return p.ID != req.Self.ID })), nil
	}
	return game.NoTarget, nil
}

func livingIDs(roster []game.Player, keep func(game.Player) bool) []int {
	var ids []int
	for _, p := range roster {
		if p.Alive && keep(p) {
			ids = append(ids, p.ID)
		}
	}
	return ids
}
