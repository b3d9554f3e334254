package provider

import (
	"careerai/app/config"
	"context"
	"time"
)

const OpenAIName = "openai"

type openaiAPI interface {
	Configured() bool
	Complete(ctx context.Context, model, system, prompt string) (string, error)
}

type OpenAIBackend struct {
	client openaiAPI
	cfg    config.OpenAI
}

func NewOpenAIBackend(client openaiAPI, cfg config.OpenAI) *OpenAIBackend {
	return &OpenAIBackend{
		client: client,
		cfg:    cfg,
	}
}

func (b *OpenAIBackend) Name() string {
	return OpenAIName
}

func (b *OpenAIBackend) Configured() bool {
	return b.client.Configured()
}

func (b *OpenAIBackend) Limits() ReplyLimits {
	return ReplyLimits{
		MaxChars:   b.cfg.MaxReplyChars,
		Confidence: b.cfg.Confidence,
	}
}

// Candidates is the configured model list in order.
func (b *OpenAIBackend) Candidates(_ context.Context) []Candidate {
	result := make([]Candidate, 0, len(b.cfg.Models))
	for i, model := range b.cfg.Models {
		result = append(result, Candidate{
			Provider: OpenAIName,
			Model:    model,
			Priority: i,
		})
	}
	return result
}

func (b *OpenAIBackend) Generate(ctx context.Context, candidate Candidate, system, user string) (string, error) {
	ctx, cancel := withTimeout(ctx, b.cfg.RequestTimeout)
	defer cancel()

	return b.client.Complete(ctx, candidate.Model, system, user)
}

var _ Backend = (*OpenAIBackend)(nil)

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
