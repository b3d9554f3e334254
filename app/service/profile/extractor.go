package profile

import (
	"careerai/app/config"
	"fmt"
	"strings"

	"github.com/samber/do"
)

// Extractor derives a Profile from a conversation using keyword vocabularies.
// It holds no mutable state, so one instance serves all requests.
type Extractor struct {
	vocab    *Vocabulary
	window   int
	maxChars int
}

func NewExtractor(vocab *Vocabulary, window, maxChars int) *Extractor {
	return &Extractor{
		vocab:    vocab,
		window:   window,
		maxChars: maxChars,
	}
}

func New(di *do.Injector) (*Extractor, error) {
	cfg := do.MustInvoke[*config.Config](di)

	vocab, err := LoadVocabulary(cfg.Conversation.VocabularyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load vocabulary: %w", err)
	}

	return NewExtractor(vocab, cfg.Conversation.HistoryWindow, cfg.Conversation.MaxTurnChars), nil
}

func (e *Extractor) Vocabulary() *Vocabulary {
	return e.vocab
}

// Extract builds the profile for history followed by the current message.
// The message is treated as the newest user turn and is not subject to the window.
func (e *Extractor) Extract(history []Turn, message string) Profile {
	var result Profile

	result.Recent = recentTurns(history, e.window, e.maxChars)

	for _, turn := range result.Recent {
		if turn.Role != RoleUser {
			continue
		}
		e.apply(&result, turn.Text)
	}

	e.apply(&result, capText(message, e.maxChars))

	return result
}

func (e *Extractor) apply(p *Profile, text string) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return
	}

	norm := Normalize(raw)

	// facts stated inside a refusal ("i don't like physics") are not facts
	affirmed := AffirmedText(norm, e.vocab.RejectionMarkers)
	if value, ok := LastTag(affirmed, e.vocab.Education); ok {
		p.EducationLevel = EducationLevel(value)
	}
	if value, ok := LastTag(affirmed, e.vocab.Streams); ok {
		p.Stream = Stream(value)
	}

	if ContainsAny(norm, e.vocab.RejectionMarkers) {
		p.RejectionCount++
		for _, topic := range MatchTags(norm, e.vocab.RejectionTopics) {
			p.addRejectedTopic(topic)
		}
		return
	}

	if ContainsAny(norm, e.vocab.DirectionIntent) {
		if values := MatchTags(norm, e.vocab.Directions); len(values) > 0 {
			p.ChosenDirection = values[0]
		}
	}

	if ContainsAny(norm, e.vocab.InterestMarkers) {
		p.InterestNotes = append(p.InterestNotes, raw)
	}
}
