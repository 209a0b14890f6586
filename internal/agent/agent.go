// Package agent implements the per-role decision makers bound to each player.
// The variants are closed: eliminator, seeker and bystander, each answering
// the same three decisions through a completion client.
package agent

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kiliankoe/gptwolf/internal/ai"
	"github.com/kiliankoe/gptwolf/internal/game"
)

// Provider binds completion-backed agents. It satisfies game.DecisionProvider.
type Provider struct {
	Client       ai.Provider
	Model        string
	SystemPrompt string
}

func (p Provider) Bind(pl game.Player) game.Agent {
	return New(pl, p.Client, p.Model, p.SystemPrompt)
}

// New returns the variant for pl's role.
func New(pl game.Player, client ai.Provider, model, systemPrompt string) game.Agent {
	base := llm{client: client, model: model, system: systemPrompt}
	switch pl.Role {
	case game.RoleEliminator:
		return &eliminator{llm: base, strategy: pl.Strategy}
	case game.RoleSeeker:
		return &seeker{llm: base}
	default:
		return &bystander{llm: base}
	}
}

type llm struct {
	client ai.Provider
	model  string
	system string
}

func (l llm) ask(ctx context.Context, prompt string) (string, error) {
	if l.client == nil {
		return "", fmt.Errorf("agent: no completion client")
	}
	if l.system != "" {
		return l.client.CompleteWithSystem(ctx, l.model, l.system, prompt)
	}
	return l.client.Complete(ctx, l.model, prompt)
}

func (l llm) askTarget(ctx context.Context, prompt string) (int, error) {
	text, err := l.ask(ctx, prompt)
	if err != nil {
		return game.NoTarget, err
	}
	return ParseTarget(text)
}

type eliminator struct {
	llm
	strategy game.Strategy
}

func (a *eliminator) DecideStatement(ctx context.Context, req game.Request) (string, error) {
	return a.ask(ctx, statementPrompt(req, eliminatorBrief(req, a.strategy)))
}

func (a *eliminator) DecideVote(ctx context.Context, req game.Request) (int, error) {
	return a.askTarget(ctx, votePrompt(req, "You are secretly an eliminator. Never vote for a teammate: "+teammates(req)+"."))
}

func (a *eliminator) DecideNightAction(ctx context.Context, req game.Request) (int, error) {
	prompt := fmt.Sprintf(`You are an eliminator in a game of Werewolf, deciding for your team (%s).
Choose one player to eliminate tonight. Favour whoever looks like the seeker or leads the village.

Players you can target:
%s

Recent events:
%s

Reply with only the ID of your target.`,
		teammates(req), playerList(req.Roster, func(p game.Player) bool { return p.Role != game.RoleEliminator }), history(req))
	return a.askTarget(ctx, prompt)
}

func eliminatorBrief(req game.Request, s game.Strategy) string {
	brief := "You are an eliminator pretending to be a bystander. Do not reveal yourself and never accuse a teammate (" + teammates(req) + ")."
	if req.Day != 1 {
		return brief
	}
	switch s {
	case game.StrategyAggressiveClaim:
		return brief + " Today, boldly claim to be the seeker and accuse a bystander of being an eliminator."
	case game.StrategySupport:
		return brief + " Today, back up whichever teammate claims to be the seeker and push suspicion onto others."
	default:
		return brief + " Today, stay quiet and agreeable; follow the majority."
	}
}

type seeker struct {
	llm
}

func (a *seeker) DecideStatement(ctx context.Context, req game.Request) (string, error) {
	return a.ask(ctx, statementPrompt(req, "You are the seeker. You know the roles of the players you checked. Revealing yourself makes you a target, so hint carefully or reveal only when it will swing the vote."))
}

func (a *seeker) DecideVote(ctx context.Context, req game.Request) (int, error) {
	return a.askTarget(ctx, votePrompt(req, "You are the seeker. Use what your checks revealed."))
}

func (a *seeker) DecideNightAction(ctx context.Context, req game.Request) (int, error) {
	prompt := fmt.Sprintf(`You are the seeker in a game of Werewolf. Each night you learn the role of one player.

Players you can check:
%s

Recent events:
%s

Reply with only the ID of the player you want to check.`,
		playerList(req.Roster, func(p game.Player) bool { return p.ID != req.Self.ID }), history(req))
	return a.askTarget(ctx, prompt)
}

type bystander struct {
	llm
}

func (a *bystander) DecideStatement(ctx context.Context, req game.Request) (string, error) {
	return a.ask(ctx, statementPrompt(req, "You are a bystander trying to find the eliminators. Say who seems suspicious based on the speeches so far, and why."))
}

func (a *bystander) DecideVote(ctx context.Context, req game.Request) (int, error) {
	return a.askTarget(ctx, votePrompt(req, "You are a bystander. Vote for whoever most likely is an eliminator."))
}

// DecideNightAction is never requested for bystanders; they abstain.
func (a *bystander) DecideNightAction(context.Context, game.Request) (int, error) {
	return game.NoTarget, nil
}

func statementPrompt(req game.Request, brief string) string {
	return fmt.Sprintf(`You are %s in a game of Werewolf. It is day %d.
%s

Living players:
%s

Recent events:
%s

Give a short speech (2-3 sentences) for today's discussion.`,
		req.Self.Name, req.Day, brief, playerList(req.Roster, nil), history(req))
}

func votePrompt(req game.Request, brief string) string {
	return fmt.Sprintf(`You are %s in a game of Werewolf, and it is time to vote someone out.
%s

Players you can vote for:
%s

Recent events and speeches:
%s

Reply with only the ID of the player you vote for, or "none" to abstain.`,
		req.Self.Name, brief, playerList(req.Roster, func(p game.Player) bool { return p.ID != req.Self.ID }), history(req))
}

func playerList(roster []game.Player, keep func(game.Player) bool) string {
	var lines []string
	for _, p := range roster {
		if !p.Alive || keep != nil && !keep(p) {
			continue
		}
		lines = append(lines, fmt.Sprintf("ID: %d, Name: %s", p.ID, p.Name))
	}
	return strings.Join(lines, "\n")
}

func teammates(req game.Request) string {
	var names []string
	for _, p := range req.Roster {
		if p.Role == game.RoleEliminator && p.Alive {
			names = append(names, p.Name)
		}
	}
	return strings.Join(names, ", ")
}

func history(req game.Request) string {
	if len(req.RecentLog) == 0 {
		return "(nothing yet)"
	}
	return strings.Join(req.RecentLog, "\n")
}

var firstInt = regexp.MustCompile(`-?\d+`)

// ParseTarget extracts the first integer in a reply. Replies that say
// "none" or "abstain" without a number are abstentions.
func ParseTarget(text string) (int, error) {
	if m := firstInt.FindString(text); m != "" {
		return strconv.Atoi(m)
	}
	lower := strings.ToLower(text)
	if strings.Contains(lower, "none") || strings.Contains(lower, "abstain") {
		return game.NoTarget, nil
	}
	return game.NoTarget, fmt.Errorf("agent: no target in reply %q", text)
}
