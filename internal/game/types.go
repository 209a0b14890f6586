package game

import (
	"context"
	"fmt"
)

type Phase string

const (
	PhaseSetup         Phase = "Setup"
	PhaseNight         Phase = "Night"
	PhaseDayDiscussion Phase = "DayDiscussion"
	PhaseDayVote       Phase = "DayVote"
	PhaseGameOver      Phase = "GameOver"
)

type Role string

const (
	RoleEliminator Role = "Eliminator"
	RoleSeeker     Role = "Seeker"
	RoleBystander  Role = "Bystander"
)

// Strategy selects how an eliminator behaves on the first discussion round.
// Non-eliminators carry the empty strategy.
type Strategy string

const (
	StrategyAggressiveClaim Strategy = "AggressiveClaim"
	StrategySupport         Strategy = "Support"
	StrategyConcealed       Strategy = "Concealed"
)

type Winner string

const (
	WinnerNone        Winner = ""
	WinnerVillage     Winner = "Village"
	WinnerEliminators Winner = "Eliminators"
)

// NoTarget is returned by an agent that abstains.
const NoTarget = -1

type GameConfig struct {
	EliminatorCount int `json:"eliminatorCount" yaml:"eliminators"`
	BystanderCount  int `json:"bystanderCount" yaml:"bystanders"`
}

// Normalize clamps both counts to at least one.
func (c GameConfig) Normalize() GameConfig {
	if c.EliminatorCount < 1 {
		c.EliminatorCount = 1
	}
	if c.BystanderCount < 1 {
		c.BystanderCount = 1
	}
	return c
}

// Validate rejects non-positive counts. Callers that want the clamping
// behaviour use Normalize instead.
func (c GameConfig) Validate() error {
	if c.EliminatorCount < 1 || c.BystanderCount < 1 {
		return fmt.Errorf("%w: eliminators=%d bystanders=%d", ErrInvalidConfiguration, c.EliminatorCount, c.BystanderCount)
	}
	return nil
}

// Size is the roster size including the single seeker.
func (c GameConfig) Size() int {
	return c.EliminatorCount + c.BystanderCount + 1
}

type Player struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Role     Role     `json:"role"`
	Strategy Strategy `json:"strategy,omitempty"`
	Alive    bool     `json:"alive"`
}

func (p Player) IsEliminator() bool { return p.Role == RoleEliminator }

type Speaker struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
}

type LogEntry struct {
	Key       LogKey         `json:"key"`
	Params    map[string]any `json:"params,omitempty"`
	RawSpeech string         `json:"rawSpeech,omitempty"`
	Speaker   *Speaker       `json:"speaker,omitempty"`
}

// Action describes what the session is currently waiting on. Advisory only.
type Action struct {
	Kind       ActionKind `json:"kind"`
	PlayerName string     `json:"playerName,omitempty"`
}

type ActionKind string

const (
	ActionNone                ActionKind = ""
	ActionEliminatorsChoosing ActionKind = "EliminatorsChoosing"
	ActionSeekerSeeking       ActionKind = "SeekerSeeking"
	ActionPlayerSpeaking      ActionKind = "PlayerSpeaking"
	ActionPlayerVoting        ActionKind = "PlayerVoting"
)

// Request is the observable game state handed to an agent.
type Request struct {
	Self      Player
	Roster    []Player
	RecentLog []string
	Day       int
}

// Agent makes decisions for a single player. Any error or illegal target is
// replaced by a random legal choice.
type Agent interface {
	DecideStatement(ctx context.Context, req Request) (string, error)
	DecideVote(ctx context.Context, req Request) (int, error)
	DecideNightAction(ctx context.Context, req Request) (int, error)
}

// DecisionProvider binds an Agent to each player at setup.
type DecisionProvider interface {
	Bind(p Player) Agent
}

// DecisionProviderFunc adapts a plain function to DecisionProvider.
type DecisionProviderFunc func(p Player) Agent

func (f DecisionProviderFunc) Bind(p Player) Agent { return f(p) }
