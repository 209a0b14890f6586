package game

import (
	"fmt"
	"sort"
	"strings"
)

type LogKey string

const (
	KeyNewGame              LogKey = "newGame"
	KeyGameSetup            LogKey = "gameSetup"
	KeyNightBegins          LogKey = "nightPhase"
	KeyEliminatorsChoose    LogKey = "eliminatorsChooseTarget"
	KeyEliminatorsNoTarget  LogKey = "eliminatorsNoTarget"
	KeySeekerChecks         LogKey = "seekerChecks"
	KeyDawnKill             LogKey = "dawnKill"
	KeyDawnNoKill           LogKey = "dawnNoKill"
	KeyDayDiscussion        LogKey = "dayDiscussion"
	KeyPlayerSpeech         LogKey = "playerSpeech"
	KeyPlayerPasses         LogKey = "playerPasses"
	KeyDayVote              LogKey = "dayVote"
	KeyPlayerVotes          LogKey = "playerVotes"
	KeyPlayerAbstains       LogKey = "playerAbstains"
	KeyVoteResult           LogKey = "voteResult"
	KeyVoteTie              LogKey = "voteTie"
	KeyEliminatorsPurged    LogKey = "eliminatorsEliminated"
	KeyEliminatorsOutnumber LogKey = "eliminatorsOutnumber"
)

// Log is the append-only record of a game. It is not safe for concurrent
// use on its own; Session guards it.
type Log struct {
	entries []LogEntry
}

func (l *Log) Append(e LogEntry) {
	l.entries = append(l.entries, e)
}

func (l *Log) Len() int { return len(l.entries) }

// Snapshot returns a copy of every entry in order.
func (l *Log) Snapshot() []LogEntry {
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Recent renders the last n entries visible to viewer as plain text for
// agent context.
func (l *Log) Recent(viewer Role, n int) []string {
	var out []string
	for i := len(l.entries) - 1; i >= 0 && len(out) < n; i-- {
		e := l.entries[i]
		if r, ok := e.PrivateTo(); ok && r != viewer {
			continue
		}
		out = append(out, RenderEntry(e))
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// PrivateTo reports the only role allowed to see e in agent context.
func (e LogEntry) PrivateTo() (Role, bool) {
	if e.Key == KeySeekerChecks {
		return RoleSeeker, true
	}
	return "", false
}

// RenderEntry is the plain English rendering agents see. Display strings for
// people belong to the presentation layer.
func RenderEntry(e LogEntry) string {
	p := e.Params
	switch e.Key {
	case KeyPlayerSpeech:
		if e.Speaker != nil {
			return fmt.Sprintf("%s said: %q", e.Speaker.Name, e.RawSpeech)
		}
	case KeyPlayerPasses:
		if e.Speaker != nil {
			return fmt.Sprintf("%s said nothing.", e.Speaker.Name)
		}
	case KeyNewGame:
		return "--- New Game Started ---"
	case KeyGameSetup:
		return fmt.Sprintf("Game setup with %v players: %v eliminators, 1 seeker, %v bystanders.", p["totalPlayers"], p["eliminatorCount"], p["bystanderCount"])
	case KeyNightBegins:
		return fmt.Sprintf("--- Night %v ---", p["day"])
	case KeyEliminatorsChoose:
		return "The eliminators have chosen a target."
	case KeyEliminatorsNoTarget:
		return "The eliminators have no targets or are all gone."
	case KeySeekerChecks:
		return fmt.Sprintf("The seeker checks %v and discovers they are a %v.", p["targetName"], p["targetRole"])
	case KeyDawnKill:
		return fmt.Sprintf("As dawn breaks, the village discovers that %v was eliminated during the night.", p["playerName"])
	case KeyDawnNoKill:
		return "Dawn breaks, and everyone survived the night."
	case KeyDayDiscussion:
		return fmt.Sprintf("--- Day %v: Discussion ---", p["day"])
	case KeyDayVote:
		return fmt.Sprintf("--- Day %v: Voting ---", p["day"])
	case KeyPlayerVotes:
		return fmt.Sprintf("%v votes for %v.", p["voterName"], p["targetName"])
	case KeyPlayerAbstains:
		return fmt.Sprintf("%v abstains.", p["voterName"])
	case KeyVoteTie:
		return "The vote is a tie. No one is eliminated today."
	case KeyVoteResult:
		return fmt.Sprintf("With %v votes, %v has been voted out.", p["count"], p["playerName"])
	case KeyEliminatorsPurged:
		return "All eliminators have been removed."
	case KeyEliminatorsOutnumber:
		return "The eliminators now equal or outnumber the village."
	}
	return fallbackRender(e)
}

func fallbackRender(e LogEntry) string {
	if len(e.Params) == 0 {
		return string(e.Key)
	}
	keys := make([]string, 0, len(e.Params))
	for k := range e.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, e.Params[k]))
	}
	return string(e.Key) + " " + strings.Join(parts, " ")
}
