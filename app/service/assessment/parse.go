package assessment

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	maxCareers         = 4
	maxSteps           = 7
	defaultConfidence  = 0.75
	summaryFallbackLen = 200
)

var (
	careerPattern = regexp.MustCompile(`([^,\n\[\]]+?)\s*\(\s*(?:confidence:?\s*)?([0-9]+(?:\.[0-9]+)?)?\s*%?\s*\)`)
	stepMarker    = regexp.MustCompile(`^(?:[-*•]+|\d+[.)])\s*`)
)

type Career struct {
	Title      string  `json:"title"`
	Confidence float64 `json:"confidence"`
}

// Parsed is what could be read from a model answer; empty parts failed to parse.
type Parsed struct {
	Summary string
	Careers []Career
	Steps   []string
}

// Parse reads the SUMMARY/CAREERS/ROADMAP sections of text.
func Parse(text string) Parsed {
	var result Parsed

	summary, careers, roadmap := split(text)

	switch {
	case summary != "":
		result.Summary = summary
	case strings.Contains(text, "\n\n"):
		result.Summary = strings.TrimSpace(strings.SplitN(text, "\n\n", 2)[0])
	default:
		result.Summary = strings.TrimSpace(prefix(text, summaryFallbackLen))
	}

	result.Careers = parseCareers(careers)
	result.Steps = parseSteps(roadmap)

	return result
}

func split(text string) (summary, careers, roadmap string) {
	rest := text

	if idx := strings.Index(rest, "ROADMAP:"); idx >= 0 {
		roadmap = strings.TrimSpace(rest[idx+len("ROADMAP:"):])
		rest = rest[:idx]
	}
	if idx := strings.Index(rest, "CAREERS:"); idx >= 0 {
		careers = strings.TrimSpace(rest[idx+len("CAREERS:"):])
		rest = rest[:idx]
	}
	if idx := strings.Index(rest, "SUMMARY:"); idx >= 0 {
		summary = strings.TrimSpace(rest[idx+len("SUMMARY:"):])
	}

	return summary, careers, roadmap
}

func parseCareers(section string) []Career {
	var result []Career

	for _, match := range careerPattern.FindAllStringSubmatch(section, -1) {
		title := strings.TrimSpace(stepMarker.ReplaceAllString(strings.TrimSpace(match[1]), ""))
		if title == "" {
			continue
		}

		confidence := defaultConfidence
		if match[2] != "" {
			if value, err := strconv.ParseFloat(match[2], 64); err == nil && value <= 100 {
				confidence = value / 100
			}
		}

		result = append(result, Career{Title: title, Confidence: confidence})
		if len(result) == maxCareers {
			break
		}
	}

	return result
}

func parseSteps(section string) []string {
	lines := strings.Split(section, "\n")

	// single bracketed line: [Step 1, Step 2, ...]
	if len(lines) == 1 && strings.HasPrefix(strings.TrimSpace(lines[0]), "[") {
		lines = strings.Split(strings.Trim(strings.TrimSpace(lines[0]), "[]"), ",")
	}

	var result []string
	for _, line := range lines {
		step := strings.TrimSpace(stepMarker.ReplaceAllString(strings.TrimSpace(line), ""))
		if step == "" {
			continue
		}

		result = append(result, step)
		if len(result) == maxSteps {
			break
		}
	}

	return result
}

func prefix(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
