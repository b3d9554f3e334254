package advisor

import (
	"careerai/app/metrics"
	"careerai/app/service/postprocess"
	"careerai/app/service/profile"
	"careerai/app/service/prompt"
	"careerai/app/service/provider"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/samber/do"
)

// ErrUnavailable means no reply could be produced. It wraps the dispatch error.
var ErrUnavailable = errors.New("career advisor is unavailable")

const (
	notConfiguredMessage = "The AI service is not configured. Please set GEMINI_API_KEY or OPENAI_API_KEY."
	failedMessage        = "I'm having trouble connecting to the AI service right now. Please try again in a moment."
	quotaMessage         = "I'm getting a lot of questions right now and have hit my usage limit. Please try again in %s."
)

// Reply is the payload every caller gets back, whichever provider answered.
type Reply struct {
	Reply      string  `json:"reply"`
	Career     *string `json:"career"`
	Fallback   bool    `json:"fallback"`
	Confidence float64 `json:"confidence"`
}

type completer interface {
	Configured() bool
	Dispatch(ctx context.Context, system, user string) (provider.Result, error)
}

type Service struct {
	extractor  *profile.Extractor
	selector   *prompt.Selector
	dispatcher completer
}

func NewService(extractor *profile.Extractor, selector *prompt.Selector, dispatcher completer) *Service {
	return &Service{
		extractor:  extractor,
		selector:   selector,
		dispatcher: dispatcher,
	}
}

func New(di *do.Injector) (*Service, error) {
	return NewService(
		do.MustInvoke[*profile.Extractor](di),
		do.MustInvoke[*prompt.Selector](di),
		do.MustInvoke[*provider.Dispatcher](di),
	), nil
}

// Available reports whether any provider has credentials.
func (s *Service) Available() bool {
	return s.dispatcher.Configured()
}

// GenerateReply answers message given the earlier turns. Quota exhaustion is a
// normal reply carrying a wait estimate; other failures return ErrUnavailable.
func (s *Service) GenerateReply(ctx context.Context, message string, history []profile.Turn) (Reply, error) {
	p := s.extractor.Extract(history, message)

	selection, err := s.selector.Select(&p, message)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to select prompt: %w", err)
	}

	slog.DebugContext(ctx, "Prompt strategy selected",
		"strategy", selection.Strategy.String(),
		"education", p.EducationLevel,
		"stream", p.Stream,
		"direction", p.ChosenDirection,
		"rejections", p.RejectionCount,
	)

	result, err := s.dispatcher.Dispatch(ctx, selection.System, selection.Prompt)
	if err != nil {
		var exhausted *provider.ExhaustedError
		if !errors.As(err, &exhausted) {
			return Reply{}, err
		}

		if exhausted.Kind == provider.KindQuotaExceeded {
			metrics.RepliesTotal.WithLabelValues("quota").Inc()
			return Reply{
				Reply:    fmt.Sprintf(quotaMessage, FormatWait(exhausted.RetryAfter)),
				Fallback: true,
			}, nil
		}

		return Reply{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	text := postprocess.Truncate(result.Text, result.Limits.MaxChars)
	if len(text) != len(result.Text) {
		metrics.ReplyTruncatedTotal.Inc()
	}
	metrics.RepliesTotal.WithLabelValues(selection.Strategy.String()).Inc()

	slog.InfoContext(ctx, "Reply generated",
		"strategy", selection.Strategy.String(),
		"candidate", result.Candidate.String(),
		"attempts", result.Attempts,
		"length", len(text),
	)

	return Reply{
		Reply:      text,
		Fallback:   true,
		Confidence: result.Limits.Confidence,
	}, nil
}

// UnavailableMessage is the user-facing text for an ErrUnavailable failure.
func UnavailableMessage(err error) string {
	var exhausted *provider.ExhaustedError
	if errors.As(err, &exhausted) && exhausted.Kind == provider.KindConfigurationAbsent {
		return notConfiguredMessage
	}
	return failedMessage
}

// FormatWait renders a wait as "about 40 seconds" or "about 2 minutes".
func FormatWait(d time.Duration) string {
	if d <= 0 {
		d = time.Minute
	}

	if d < time.Minute {
		seconds := int(math.Ceil(d.Seconds()/10) * 10)
		if seconds >= 60 {
			return "about 1 minute"
		}
		return fmt.Sprintf("about %d seconds", seconds)
	}

	minutes := int(math.Ceil(d.Minutes()))
	if minutes == 1 {
		return "about 1 minute"
	}
	return fmt.Sprintf("about %d minutes", minutes)
}
