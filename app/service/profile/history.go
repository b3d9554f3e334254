package profile

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// recentTurns returns the trailing window of turns in historical order with
// every text capped to maxChars. The input slice is never modified.
func recentTurns(history []Turn, window, maxChars int) []Turn {
	ordered := make([]Turn, len(history))
	copy(ordered, history)

	if allTimestamped(ordered) {
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Timestamp.Before(ordered[j].Timestamp)
		})
	}

	if window > 0 && len(ordered) > window {
		ordered = ordered[len(ordered)-window:]
	}

	for i := range ordered {
		ordered[i].Text = capText(ordered[i].Text, maxChars)
	}

	return ordered
}

func allTimestamped(turns []Turn) bool {
	if len(turns) == 0 {
		return false
	}

	for _, turn := range turns {
		if turn.Timestamp.IsZero() {
			return false
		}
	}

	return true
}

func capText(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}

	cut := maxChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}

	return text[:cut]
}

// FormatTranscript renders turns as "role: text" lines for prompt context.
func FormatTranscript(turns []Turn) string {
	if len(turns) == 0 {
		return "No previous conversation"
	}

	var builder strings.Builder

	for _, turn := range turns {
		if strings.TrimSpace(turn.Text) == "" {
			continue
		}
		builder.WriteString(fmt.Sprintf("%s: %s\n", turn.Role, turn.Text))
	}

	return strings.TrimRight(builder.String(), "\n")
}
