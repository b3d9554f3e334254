package prompt

import (
	"careerai/app/service/profile"
	"embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/do"
	"github.com/tmc/langchaingo/prompts"
)

//go:embed templates/*.txt
var templateFS embed.FS

const (
	unknownValue   = "not mentioned"
	noneValue      = "none"
	enumerationBan = "The student already pushed back once. Do not list degrees, entrance exams or certifications. Walk through two or three concrete real-world situations this person would handle instead."
)

type Selection struct {
	Strategy Strategy
	System   string
	Prompt   string
}

// Selector picks a strategy for a message and renders its prompts.
type Selector struct {
	vocab     *profile.Vocabulary
	system    prompts.PromptTemplate
	templates map[Strategy]prompts.PromptTemplate
}

func NewSelector(vocab *profile.Vocabulary) (*Selector, error) {
	system, err := loadTemplate("templates/system.txt")
	if err != nil {
		return nil, err
	}

	templates := make(map[Strategy]prompts.PromptTemplate, len(strategies))
	for _, strategy := range strategies {
		tmpl, err := loadTemplate(strategy.templateFile())
		if err != nil {
			return nil, err
		}
		templates[strategy] = tmpl
	}

	return &Selector{
		vocab:     vocab,
		system:    system,
		templates: templates,
	}, nil
}

func New(di *do.Injector) (*Selector, error) {
	extractor := do.MustInvoke[*profile.Extractor](di)
	return NewSelector(extractor.Vocabulary())
}

func loadTemplate(name string) (prompts.PromptTemplate, error) {
	data, err := templateFS.ReadFile(name)
	if err != nil {
		return prompts.PromptTemplate{}, fmt.Errorf("failed to read template %s: %w", name, err)
	}

	return prompts.PromptTemplate{
		Template:       string(data),
		TemplateFormat: prompts.TemplateFormatFString,
	}, nil
}

// Choose applies the decision list; the first matching rule wins.
func (s *Selector) Choose(p *profile.Profile, message string) Strategy {
	msg := profile.Normalize(message)

	switch {
	case s.isGreeting(msg):
		return StrategyGreeting
	case profile.ContainsAny(msg, s.vocab.RoadmapTriggers),
		p.HasDirection() && profile.ContainsAny(msg, s.vocab.Hesitation):
		return StrategyRoadmap
	case p.HasDirection():
		return StrategyExpandDirection
	case p.PartiallyKnown():
		switch {
		case p.RejectionCount >= 2:
			return StrategyMentorRedirect
		case p.RejectionCount == 1:
			return StrategySwitch
		case profile.ContainsAny(msg, s.vocab.FieldQuestions):
			return StrategyRoleDescription
		default:
			return StrategyDefaultOptions
		}
	default:
		return StrategyColdStart
	}
}

func (s *Selector) Select(p *profile.Profile, message string) (Selection, error) {
	strategy := s.Choose(p, message)
	values := templateValues(p, message)

	system, err := s.system.Format(values)
	if err != nil {
		return Selection{}, fmt.Errorf("failed to render system prompt: %w", err)
	}

	userPrompt, err := s.templates[strategy].Format(values)
	if err != nil {
		return Selection{}, fmt.Errorf("failed to render %s prompt: %w", strategy, err)
	}

	return Selection{
		Strategy: strategy,
		System:   strings.TrimSpace(system),
		Prompt:   strings.TrimSpace(userPrompt),
	}, nil
}

func (s *Selector) isGreeting(msg string) bool {
	msg = strings.TrimRight(msg, " !.?,~")
	if msg == "" {
		return false
	}

	for _, greeting := range s.vocab.Greetings {
		if msg == profile.Normalize(greeting) {
			return true
		}
	}

	return false
}

func templateValues(p *profile.Profile, message string) map[string]any {
	styleRule := ""
	if p.RejectionCount >= 1 {
		styleRule = enumerationBan
	}

	return map[string]any{
		"message":          strings.TrimSpace(message),
		"history":          profile.FormatTranscript(p.Recent),
		"education":        orDefault(string(p.EducationLevel), unknownValue),
		"stream":           orDefault(string(p.Stream), unknownValue),
		"direction":        orDefault(p.ChosenDirection, unknownValue),
		"interests":        orDefault(strings.Join(p.InterestNotes, "; "), noneValue),
		"forbidden_topics": orDefault(strings.Join(p.RejectedTopics, ", "), noneValue),
		"rejection_count":  strconv.Itoa(p.RejectionCount),
		"style_rule":       styleRule,
	}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
