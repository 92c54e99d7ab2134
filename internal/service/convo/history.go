package convo

import (
	"strings"

	"pracame/internal/model/convo"
)

const (
	userLabel      = "User"
	assistantLabel = "Assistant"

	// maxEntryRunes caps a single question or answer inside the
	// rendered history so one long exchange cannot blow up the prompt.
	maxEntryRunes = 2000
)

// HistoryWindow renders the bounded recent-history slice that goes
// into a prompt. Only completed turns are eligible; the turn being
// answered never appears in its own history.
type HistoryWindow struct {
	// MaxTurns is how many of the most recent completed turns the
	// summary may carry.
	MaxTurns int
}

// Summary formats the most recent completed turns, oldest first, as
// labeled question/answer pairs separated by blank lines. An empty
// history yields an empty string.
func (w HistoryWindow) Summary(completed []convo.Turn) string {
	if w.MaxTurns <= 0 || len(completed) == 0 {
		return ""
	}

	start := 0
	if len(completed) > w.MaxTurns {
		start = len(completed) - w.MaxTurns
	}

	entries := make([]string, 0, len(completed)-start)
	for _, t := range completed[start:] {
		var b strings.Builder
		b.WriteString(userLabel)
		b.WriteString(": ")
		b.WriteString(clip(t.Question))
		b.WriteString("\n")
		b.WriteString(assistantLabel)
		b.WriteString(": ")
		b.WriteString(clip(t.Answer))
		entries = append(entries, b.String())
	}

	return strings.Join(entries, "\n\n")
}

func clip(s string) string {
	runes := []rune(s)
	if len(runes) <= maxEntryRunes {
		return s
	}
	return string(runes[:maxEntryRunes]) + "…"
}
