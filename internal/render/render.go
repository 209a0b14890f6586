// Package render formats game events for a terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/kiliankoe/gptwolf/internal/game"
)

var (
	bannerStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	nightStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	speakerStyle    = lipgloss.NewStyle().Bold(true)
	eliminatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	seekerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	bystanderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	mutedStyle      = lipgloss.NewStyle().Faint(true)
	deathStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	winnerStyle     = lipgloss.NewStyle().Bold(true).Padding(0, 1).Border(lipgloss.RoundedBorder())
)

func roleStyle(r game.Role) lipgloss.Style {
	switch r {
	case game.RoleEliminator:
		return eliminatorStyle
	case game.RoleSeeker:
		return seekerStyle
	default:
		return bystanderStyle
	}
}

// Entry renders one log entry. showRoles reveals speaker roles and the
// seeker's private checks.
func Entry(e game.LogEntry, showRoles bool) string {
	if _, private := e.PrivateTo(); private && !showRoles {
		return ""
	}
	text := game.RenderEntry(e)
	switch e.Key {
	case game.KeyNightBegins:
		return "\n" + nightStyle.Render(text)
	case game.KeyDayDiscussion, game.KeyDayVote, game.KeyNewGame:
		return "\n" + bannerStyle.Render(text)
	case game.KeyPlayerSpeech, game.KeyPlayerPasses:
		if e.Speaker == nil {
			return text
		}
		name := speakerStyle.Render(e.Speaker.Name)
		if showRoles {
			name += " " + roleStyle(e.Speaker.Role).Render("("+string(e.Speaker.Role)+")")
		}
		if e.Key == game.KeyPlayerPasses {
			return name + mutedStyle.Render(" passes.")
		}
		return fmt.Sprintf("%s: %s", name, e.RawSpeech)
	case game.KeyDawnKill, game.KeyVoteResult:
		return deathStyle.Render(text)
	case game.KeySeekerChecks, game.KeyEliminatorsChoose, game.KeyEliminatorsNoTarget, game.KeyPlayerVotes, game.KeyPlayerAbstains:
		return mutedStyle.Render(text)
	}
	return text
}

// Roster renders one line per player.
func Roster(players []game.Player, showRoles bool) string {
	var lines []string
	for _, p := range players {
		line := fmt.Sprintf("%2d  %s", p.ID, speakerStyle.Render(p.Name))
		if showRoles {
			role := string(p.Role)
			if p.Strategy != "" {
				role += "/" + string(p.Strategy)
			}
			line += "  " + roleStyle(p.Role).Render(role)
		}
		if !p.Alive {
			line = mutedStyle.Render(line + "  (eliminated)")
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func Winner(w game.Winner, day int) string {
	return "\n" + winnerStyle.Render(fmt.Sprintf("%s win on day %d", w, day))
}
