package provider

import (
	"careerai/app/client/gemini"
	"careerai/app/client/openai"
	"careerai/app/config"
	"careerai/app/metrics"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/do"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Options struct {
	// QuotaShortCircuit skips a backend's remaining candidates after its first quota failure.
	QuotaShortCircuit bool
	// DefaultRetryAfter is reported when a quota failure carries no hint.
	DefaultRetryAfter time.Duration
}

// Dispatcher walks backends in order and their candidates in priority order,
// one call at a time, until a candidate returns text.
type Dispatcher struct {
	backends []Backend
	opts     Options
	tracer   trace.Tracer
}

func NewDispatcher(backends []Backend, opts Options) *Dispatcher {
	if opts.DefaultRetryAfter <= 0 {
		opts.DefaultRetryAfter = time.Minute
	}

	return &Dispatcher{
		backends: backends,
		opts:     opts,
		tracer:   otel.Tracer("careerai/provider"),
	}
}

func New(di *do.Injector) (*Dispatcher, error) {
	cfg := do.MustInvoke[*config.Config](di)

	backends := make([]Backend, 0, len(cfg.Dispatch.Order))
	for _, name := range cfg.Dispatch.Order {
		switch name {
		case GeminiName:
			backends = append(backends, NewGeminiBackend(do.MustInvoke[*gemini.Client](di), cfg.Gemini))
		case OpenAIName:
			backends = append(backends, NewOpenAIBackend(do.MustInvoke[*openai.Client](di), cfg.OpenAI))
		default:
			return nil, fmt.Errorf("unknown provider %q", name)
		}
	}

	return NewDispatcher(backends, Options{
		QuotaShortCircuit: cfg.Dispatch.QuotaShortCircuit,
		DefaultRetryAfter: cfg.Dispatch.DefaultRetryAfter,
	}), nil
}

// Configured reports whether at least one backend has credentials.
func (d *Dispatcher) Configured() bool {
	for _, backend := range d.backends {
		if backend.Configured() {
			return true
		}
	}
	return false
}

// Dispatch returns the first non-empty completion. Failures are
// *ExhaustedError, or the context error if ctx ends first.
func (d *Dispatcher) Dispatch(ctx context.Context, system, user string) (Result, error) {
	var (
		configured int
		attempts   int
		last       error
		quotaHit   bool
		retryAfter time.Duration
	)

	for _, backend := range d.backends {
		if !backend.Configured() {
			slog.DebugContext(ctx, "Provider not configured, skipping", "provider", backend.Name())
			continue
		}
		configured++

		if err := ctx.Err(); err != nil {
			return Result{}, d.cancelled(err)
		}

		for _, candidate := range backend.Candidates(ctx) {
			if err := ctx.Err(); err != nil {
				return Result{}, d.cancelled(err)
			}

			attempts++
			text, err := d.attempt(ctx, backend, candidate, system, user)
			if err == nil {
				metrics.DispatchTotal.WithLabelValues("success").Inc()
				return Result{
					Text:      text,
					Provider:  backend.Name(),
					Candidate: candidate,
					Attempts:  attempts,
					Primary:   attempts == 1,
					Limits:    backend.Limits(),
				}, nil
			}

			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, d.cancelled(ctxErr)
			}

			last = err

			kind, hint := classify(err)
			if kind != KindQuotaExceeded {
				continue
			}

			quotaHit = true
			if hint > retryAfter {
				retryAfter = hint
			}
			if d.opts.QuotaShortCircuit {
				slog.InfoContext(ctx, "Quota exceeded, skipping remaining models", "provider", backend.Name())
				break
			}
		}
	}

	if configured == 0 {
		metrics.DispatchTotal.WithLabelValues("unconfigured").Inc()
		return Result{}, &ExhaustedError{Kind: KindConfigurationAbsent}
	}

	if quotaHit {
		if retryAfter <= 0 {
			retryAfter = d.opts.DefaultRetryAfter
		}

		metrics.DispatchTotal.WithLabelValues("quota").Inc()
		slog.WarnContext(ctx, "All providers failed, quota exceeded",
			"attempts", attempts,
			"retry_after", retryAfter,
			"error", last,
		)

		return Result{}, &ExhaustedError{
			Kind:       KindQuotaExceeded,
			Last:       last,
			RetryAfter: retryAfter,
			Attempts:   attempts,
		}
	}

	metrics.DispatchTotal.WithLabelValues("exhausted").Inc()
	slog.ErrorContext(ctx, "All providers failed", "attempts", attempts, "error", last)

	return Result{}, &ExhaustedError{
		Kind:     KindAllProvidersExhausted,
		Last:     last,
		Attempts: attempts,
	}
}

func (d *Dispatcher) attempt(ctx context.Context, backend Backend, candidate Candidate, system, user string) (string, error) {
	ctx, span := d.tracer.Start(ctx, "provider.attempt", trace.WithAttributes(
		attribute.String("provider", candidate.Provider),
		attribute.String("api_version", candidate.APIVersion),
		attribute.String("model", candidate.Model),
		attribute.Int("priority", candidate.Priority),
	))
	defer span.End()

	started := time.Now()
	text, err := backend.Generate(ctx, candidate, system, user)
	metrics.ProviderAttemptDuration.WithLabelValues(backend.Name()).Observe(time.Since(started).Seconds())

	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyText
	}

	outcome := "success"
	switch {
	case err == nil:
	case ctx.Err() != nil:
		outcome = "cancelled"
	default:
		kind, _ := classify(err)
		outcome = "transient"
		if kind == KindQuotaExceeded {
			outcome = "quota"
		}
	}
	metrics.ProviderAttemptsTotal.WithLabelValues(backend.Name(), candidate.Model, outcome).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		slog.WarnContext(ctx, "Completion attempt failed",
			"candidate", candidate.String(),
			"outcome", outcome,
			"elapsed", time.Since(started),
			"error", err,
		)
		return "", err
	}

	slog.InfoContext(ctx, "Completion attempt succeeded",
		"candidate", candidate.String(),
		"elapsed", time.Since(started),
		"length", len(text),
	)

	return text, nil
}

func (d *Dispatcher) cancelled(err error) error {
	metrics.DispatchTotal.WithLabelValues("cancelled").Inc()
	return fmt.Errorf("dispatch cancelled: %w", err)
}
