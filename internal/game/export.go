package game

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExportSession appends a plain-text transcript of the room's current game
// to filename.
func ExportSession(r *Room, filename string) error {
	st := r.State()

	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	fileExists := false
	if _, err := os.Stat(filename); err == nil {
		fileExists = true
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(Transcript(r.Code, st, fileExists)); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	return nil
}

// Transcript formats a finished or running game for export.
func Transcript(code string, st State, separate bool) string {
	var sb strings.Builder
	if separate {
		sb.WriteString("\n\n")
	}
	sb.WriteString(fmt.Sprintf("gptwolf Game - Session %s (game %s)\n", code, st.GameID))
	sb.WriteString(fmt.Sprintf("Exported: %s\n", time.Now().Format("2006-01-02 15:04:05")))
	sb.WriteString(strings.Repeat("=", 50) + "\n\n")

	sb.WriteString("Players:\n")
	for _, p := range st.Players {
		status := "alive"
		if !p.Alive {
			status = "eliminated"
		}
		role := string(p.Role)
		if p.Strategy != "" {
			role += "/" + string(p.Strategy)
		}
		sb.WriteString(fmt.Sprintf("- %s (%s, %s)\n", p.Name, role, status))
	}
	sb.WriteString("\n")

	for _, e := range st.Log {
		sb.WriteString(RenderEntry(e))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	if st.Winner != WinnerNone {
		sb.WriteString(fmt.Sprintf("Winner: %s after %d day(s)\n", st.Winner, st.Day))
	} else {
		sb.WriteString(fmt.Sprintf("No winner yet (phase %s, day %d)\n", st.Phase, st.Day))
	}
	sb.WriteString(strings.Repeat("=", 50) + "\n")
	return sb.String()
}
