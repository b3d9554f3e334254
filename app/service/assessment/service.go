package assessment

import (
	"careerai/app/service/provider"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/do"
	"github.com/tmc/langchaingo/prompts"
)

//go:embed assessment_prompt.txt
var promptTemplate string

//go:embed assessment_system.txt
var systemPrompt string

var ErrInvalidRequest = errors.New("invalid assessment request")

var (
	defaultCareers = []Career{
		{Title: "Software Engineer", Confidence: 0.80},
		{Title: "Data Scientist", Confidence: 0.70},
	}
	defaultSteps = []string{
		"Strengthen your core skills in your area of interest",
		"Build practical projects to showcase your abilities",
		"Seek mentorship or guidance from professionals in your field",
		"Explore internship or entry-level opportunities",
		"Continue learning and stay updated with industry trends",
	}
)

type Request struct {
	Name           string `json:"name" validate:"required"`
	EducationLevel string `json:"educationLevel"`
	Interests      string `json:"interests"`
	Goals          string `json:"goals"`
}

type Summary struct {
	Greeting       string `json:"greeting"`
	Text           string `json:"text"`
	Recommendation string `json:"recommendation"`
}

type Dashboard struct {
	Summary          Summary  `json:"summary"`
	SuggestedCareers []Career `json:"suggestedCareers"`
	NextSteps        []string `json:"nextSteps"`
}

type completer interface {
	Dispatch(ctx context.Context, system, user string) (provider.Result, error)
}

type Service struct {
	dispatcher completer
	validate   *validator.Validate
	prompt     prompts.PromptTemplate
}

func NewService(dispatcher completer) *Service {
	return &Service{
		dispatcher: dispatcher,
		validate:   validator.New(),
		prompt: prompts.PromptTemplate{
			Template:       promptTemplate,
			TemplateFormat: prompts.TemplateFormatFString,
		},
	}
}

func New(di *do.Injector) (*Service, error) {
	return NewService(do.MustInvoke[*provider.Dispatcher](di)), nil
}

// Assess asks the model for a summary, careers and next steps. When the model
// cannot be reached the canned dashboard is returned instead of an error.
func (s *Service) Assess(ctx context.Context, req Request) (Dashboard, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validate.Struct(req); err != nil {
		return Dashboard{}, fmt.Errorf("%w: name is required", ErrInvalidRequest)
	}

	userPrompt, err := s.prompt.Format(map[string]any{
		"name":      req.Name,
		"education": req.EducationLevel,
		"interests": req.Interests,
		"goals":     req.Goals,
	})
	if err != nil {
		return Dashboard{}, fmt.Errorf("failed to render assessment prompt: %w", err)
	}

	var parsed Parsed

	result, err := s.dispatcher.Dispatch(ctx, strings.TrimSpace(systemPrompt), userPrompt)
	switch {
	case err == nil:
		parsed = Parse(result.Text)
	case ctx.Err() != nil:
		return Dashboard{}, err
	default:
		slog.WarnContext(ctx, "Assessment generation failed, using defaults", "error", err)
	}

	return buildDashboard(req, parsed), nil
}

func buildDashboard(req Request, parsed Parsed) Dashboard {
	careers := parsed.Careers
	if len(careers) == 0 {
		careers = defaultCareers
	}

	steps := parsed.Steps
	if len(steps) == 0 {
		steps = defaultSteps
	}

	summary := parsed.Summary
	if summary == "" {
		summary = fmt.Sprintf("Based on your assessment, %s shows strong potential in their chosen field. "+
			"With dedication and the right guidance, you can achieve your career goals.", req.Name)
	}

	return Dashboard{
		Summary: Summary{
			Greeting: fmt.Sprintf("Great to meet you, %s!", req.Name),
			Text:     summary,
			Recommendation: fmt.Sprintf("Based on your %s level and interests in %s..., here's your personalized career guidance.",
				req.EducationLevel, prefix(req.Interests, 50)),
		},
		SuggestedCareers: careers,
		NextSteps:        steps,
	}
}
