package profile

import (
	_ "embed"
	"os"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

//go:embed vocabulary.yaml
var defaultVocabulary []byte

// Tag maps a canonical value to the keywords that signal it.
type Tag struct {
	Value    string   `yaml:"value"`
	Keywords []string `yaml:"keywords"`
}

type Vocabulary struct {
	Education        []Tag    `yaml:"education"`
	Streams          []Tag    `yaml:"streams"`
	Directions       []Tag    `yaml:"directions"`
	DirectionIntent  []string `yaml:"direction_intent"`
	InterestMarkers  []string `yaml:"interest_markers"`
	RejectionMarkers []string `yaml:"rejection_markers"`
	RejectionTopics  []Tag    `yaml:"rejection_topics"`
	Greetings        []string `yaml:"greetings"`
	RoadmapTriggers  []string `yaml:"roadmap_triggers"`
	Hesitation       []string `yaml:"hesitation"`
	FieldQuestions   []string `yaml:"field_questions"`
}

// LoadVocabulary parses the file at path, or the built-in vocabulary when path is empty.
func LoadVocabulary(path string) (*Vocabulary, error) {
	data := defaultVocabulary
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, oops.With("path", path).Errorf("failed to read vocabulary: %w", err)
		}
	}

	var vocab Vocabulary
	if err := yaml.Unmarshal(data, &vocab); err != nil {
		return nil, oops.With("path", path).Errorf("failed to parse vocabulary: %w", err)
	}

	return &vocab, nil
}

// Normalize lowercases text and folds typographic apostrophes.
func Normalize(text string) string {
	text = strings.ToLower(text)
	text = strings.ReplaceAll(text, "’", "'")
	return strings.TrimSpace(text)
}

// ContainsAny reports whether normalized text contains any of the terms.
func ContainsAny(text string, terms []string) bool {
	for _, term := range terms {
		if containsTerm(text, term) {
			return true
		}
	}

	return false
}

// MatchTags returns the values of every tag with a keyword present in text,
// in vocabulary order.
func MatchTags(text string, tags []Tag) []string {
	var result []string

	for _, tag := range tags {
		if ContainsAny(text, tag.Keywords) {
			result = append(result, tag.Value)
		}
	}

	return result
}

// LastTag returns the tag whose keyword match ends last in text. A longer
// keyword wins when two matches end at the same place, so "political
// science" beats "science".
func LastTag(text string, tags []Tag) (string, bool) {
	bestEnd, bestLen := -1, 0
	var best string

	for _, tag := range tags {
		for _, keyword := range tag.Keywords {
			term := Normalize(keyword)
			start := lastTermIndex(text, term)
			if start < 0 {
				continue
			}

			end := start + len(term)
			if end > bestEnd || (end == bestEnd && len(term) > bestLen) {
				bestEnd, bestLen, best = end, len(term), tag.Value
			}
		}
	}

	return best, bestEnd >= 0
}

var clauseBreak = regexp.MustCompile(`[,;!?]+|\.(?:\s|$)|\s(?:but|though|although|however|whereas)\s`)

// AffirmedText drops the clauses of normalized text that carry one of the
// refusal markers. "12th commerce, but i hate accounts" keeps "12th commerce".
func AffirmedText(text string, markers []string) string {
	var kept []string

	for _, clause := range clauseBreak.Split(text, -1) {
		clause = strings.TrimSpace(clause)
		if clause == "" || ContainsAny(clause, markers) {
			continue
		}
		kept = append(kept, clause)
	}

	return strings.Join(kept, " . ")
}

// containsTerm is a substring test that refuses matches glued to a letter or
// digit on either side.
func containsTerm(text, term string) bool {
	return lastTermIndex(text, Normalize(term)) >= 0
}

// lastTermIndex is the start of the last word-bounded match of a normalized
// term, or -1.
func lastTermIndex(text, term string) int {
	if term == "" {
		return -1
	}

	last := -1
	for offset := 0; offset < len(text); {
		idx := strings.Index(text[offset:], term)
		if idx < 0 {
			break
		}

		start := offset + idx
		end := start + len(term)

		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			last = start
		}

		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}

	return last
}

func boundaryBefore(text string, pos int) bool {
	if pos == 0 {
		return true
	}

	r, _ := utf8.DecodeLastRuneInString(text[:pos])
	return !isWordRune(r)
}

func boundaryAfter(text string, pos int) bool {
	if pos >= len(text) {
		return true
	}

	r, _ := utf8.DecodeRuneInString(text[pos:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
