package postprocess

import (
	"strings"
	"unicode/utf8"
)

const (
	Ellipsis = "..."

	// sentenceWindow is how far back from the limit a sentence end is preferred.
	sentenceWindow = 300
	// searchReach bounds every backward search.
	searchReach = 700
)

// Truncate shortens text to at most limit bytes plus the ellipsis. It cuts
// after a sentence end when one is close enough, then at a line break or a
// space, and only then mid-word.
func Truncate(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}

	windowStart := max(limit-sentenceWindow, 0)
	reachStart := max(limit-searchReach, 0)

	if cut := lastSentenceEnd(text, windowStart, limit); cut > 0 {
		return text[:cut]
	}
	if cut := lastSentenceEnd(text, reachStart, windowStart); cut > 0 {
		return text[:cut]
	}

	for _, sep := range []string{"\n", " "} {
		idx := strings.LastIndex(text[reachStart:limit], sep)
		if idx < 0 {
			continue
		}

		kept := strings.TrimRight(text[:reachStart+idx], " \t\r\n")
		if kept == "" {
			continue
		}
		if endsSentence(kept) {
			return kept
		}
		return kept + Ellipsis
	}

	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}

	return text[:cut] + Ellipsis
}

// lastSentenceEnd returns the position just after the last usable sentence
// terminator in text[from:to], or 0.
func lastSentenceEnd(text string, from, to int) int {
	for i := to - 1; i >= from; i-- {
		switch text[i] {
		case '!', '?':
			return i + 1
		case '.':
			if isRepeatedPeriod(text, i) || isListMarker(text, i) {
				continue
			}
			return i + 1
		}
	}

	return 0
}

func isRepeatedPeriod(text string, i int) bool {
	return (i > 0 && text[i-1] == '.') || (i+1 < len(text) && text[i+1] == '.')
}

// isListMarker matches the period of "3. " style numbering.
func isListMarker(text string, i int) bool {
	return i > 0 && isDigit(text[i-1]) && i+1 < len(text) && text[i+1] == ' '
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func endsSentence(text string) bool {
	switch text[len(text)-1] {
	case '.', '!', '?':
		return true
	default:
		return false
	}
}
