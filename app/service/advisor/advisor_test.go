package advisor

import (
	"careerai/app/service/profile"
	"careerai/app/service/prompt"
	"careerai/app/service/provider"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedBackend struct {
	name       string
	configured bool
	limits     provider.ReplyLimits
	reply      string
	err        error

	prompts []string
}

func (b *scriptedBackend) Name() string                  { return b.name }
func (b *scriptedBackend) Configured() bool              { return b.configured }
func (b *scriptedBackend) Limits() provider.ReplyLimits { return b.limits }

func (b *scriptedBackend) Candidates(_ context.Context) []provider.Candidate {
	return []provider.Candidate{
		{Provider: b.name, Model: "first"},
		{Provider: b.name, Model: "second", Priority: 1},
	}
}

func (b *scriptedBackend) Generate(_ context.Context, _ provider.Candidate, system, user string) (string, error) {
	b.prompts = append(b.prompts, system+"\n---\n"+user)
	return b.reply, b.err
}

type quotaError struct{}

func (quotaError) Error() string             { return "RESOURCE_EXHAUSTED" }
func (quotaError) HTTPStatus() int           { return 429 }
func (quotaError) RetryAfter() time.Duration { return 37 * time.Second }

func newTestService(t *testing.T, backends ...provider.Backend) *Service {
	t.Helper()

	vocab, err := profile.LoadVocabulary("")
	require.NoError(t, err)

	selector, err := prompt.NewSelector(vocab)
	require.NoError(t, err)

	return NewService(
		profile.NewExtractor(vocab, 10, 400),
		selector,
		provider.NewDispatcher(backends, provider.Options{DefaultRetryAfter: time.Minute}),
	)
}

func TestGenerateReplyGreeting(t *testing.T) {
	backend := &scriptedBackend{
		name: "gemini", configured: true,
		limits: provider.ReplyLimits{MaxChars: 1200, Confidence: 0},
		reply:  "Hello! What are you studying right now?",
	}
	svc := newTestService(t, backend)

	reply, err := svc.GenerateReply(context.Background(), "hi", nil)
	require.NoError(t, err)

	assert.Equal(t, "Hello! What are you studying right now?", reply.Reply)
	assert.LessOrEqual(t, len(strings.Fields(reply.Reply)), 40)
	assert.True(t, reply.Fallback)
	assert.Zero(t, reply.Confidence)
	assert.Nil(t, reply.Career)
	require.Len(t, backend.prompts, 1)
	assert.Contains(t, backend.prompts[0], "under 40 words")
}

func TestGenerateReplyTruncatesToProviderCap(t *testing.T) {
	long := strings.Repeat("a", 899) + ". " + strings.Repeat("more words ", 200)
	backend := &scriptedBackend{
		name: "openai", configured: true,
		limits: provider.ReplyLimits{MaxChars: 1500, Confidence: 0.8},
		reply:  long,
	}
	svc := newTestService(t, backend)

	reply, err := svc.GenerateReply(context.Background(), "tell me about design", nil)
	require.NoError(t, err)

	assert.Len(t, reply.Reply, 900)
	assert.Equal(t, 0.8, reply.Confidence)
}

func TestGenerateReplyQuota(t *testing.T) {
	gemini := &scriptedBackend{name: "gemini", configured: true, err: quotaError{}}
	openai := &scriptedBackend{name: "openai", configured: true, err: errors.New("API returned unexpected status code: 429: Rate limit reached")}
	svc := newTestService(t, gemini, openai)

	reply, err := svc.GenerateReply(context.Background(), "what should I do", nil)
	require.NoError(t, err)

	assert.Contains(t, reply.Reply, "about 40 seconds")
	assert.True(t, reply.Fallback)
	assert.Zero(t, reply.Confidence)
	assert.Len(t, gemini.prompts, 2)
	assert.Len(t, openai.prompts, 2)
}

func TestGenerateReplyNoProviderConfigured(t *testing.T) {
	gemini := &scriptedBackend{name: "gemini"}
	openai := &scriptedBackend{name: "openai"}
	svc := newTestService(t, gemini, openai)

	_, err := svc.GenerateReply(context.Background(), "hi", nil)

	require.ErrorIs(t, err, ErrUnavailable)
	var exhausted *provider.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, provider.KindConfigurationAbsent, exhausted.Kind)
	assert.Empty(t, gemini.prompts)
	assert.Empty(t, openai.prompts)
	assert.False(t, svc.Available())
	assert.Equal(t, notConfiguredMessage, UnavailableMessage(err))
}

func TestGenerateReplyAllFailed(t *testing.T) {
	gemini := &scriptedBackend{name: "gemini", configured: true, err: errors.New("503 unavailable")}
	svc := newTestService(t, gemini)

	_, err := svc.GenerateReply(context.Background(), "hi", nil)

	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, failedMessage, UnavailableMessage(err))
}

func TestGenerateReplyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gemini := &scriptedBackend{name: "gemini", configured: true, reply: "unused"}
	svc := newTestService(t, gemini)

	_, err := svc.GenerateReply(ctx, "hi", nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrUnavailable)
	assert.Empty(t, gemini.prompts)
}

func TestReplyJSONShape(t *testing.T) {
	data, err := json.Marshal(Reply{Reply: "hey", Fallback: true})
	require.NoError(t, err)

	assert.JSONEq(t, `{"reply":"hey","career":null,"fallback":true,"confidence":0}`, string(data))
}

func TestFormatWait(t *testing.T) {
	assert.Equal(t, "about 40 seconds", FormatWait(37*time.Second))
	assert.Equal(t, "about 10 seconds", FormatWait(time.Second))
	assert.Equal(t, "about 1 minute", FormatWait(55*time.Second))
	assert.Equal(t, "about 1 minute", FormatWait(0))
	assert.Equal(t, "about 2 minutes", FormatWait(90*time.Second))
}
