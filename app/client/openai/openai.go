package openai

import (
	"careerai/app/config"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/do"
	"github.com/samber/oops"
	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
)

var (
	ErrNotConfigured = errors.New("openai api key is not configured")

	statusCodePattern = regexp.MustCompile(`status code: (\d{3})`)
)

type Client struct {
	llm         *lcopenai.LLM
	temperature float64
	maxTokens   int
}

type Options struct {
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

// NewClient returns a client; without an API key it is a valid but unconfigured client.
func NewClient(opts Options) (*Client, error) {
	result := &Client{
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
	}

	if opts.APIKey == "" {
		return result, nil
	}

	llmOpts := []lcopenai.Option{
		lcopenai.WithToken(opts.APIKey),
		lcopenai.WithCallback(LogCallbackHandler{}),
	}
	if opts.BaseURL != "" {
		llmOpts = append(llmOpts, lcopenai.WithBaseURL(opts.BaseURL))
	}

	llm, err := lcopenai.New(llmOpts...)
	if err != nil {
		return nil, oops.Errorf("failed to create openai client: %w", err)
	}
	result.llm = llm

	return result, nil
}

func New(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewClient(Options{
		APIKey:      cfg.OpenAI.APIKey,
		BaseURL:     cfg.OpenAI.BaseURL,
		Temperature: cfg.OpenAI.Temperature,
		MaxTokens:   cfg.OpenAI.MaxTokens,
	})
}

func (c *Client) Configured() bool {
	return c.llm != nil
}

// Complete runs a single chat completion with a system and a user message.
func (c *Client) Complete(ctx context.Context, model, system, prompt string) (string, error) {
	if c.llm == nil {
		return "", ErrNotConfigured
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	resp, err := c.llm.GenerateContent(ctx, messages,
		llms.WithModel(model),
		llms.WithTemperature(c.temperature),
		llms.WithMaxTokens(c.maxTokens),
	)
	if err != nil {
		return "", oops.Code("openai_completion").
			With("model", model).
			Wrap(toAPIError(err))
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return strings.TrimSpace(resp.Choices[0].Content), nil
}

// APIError carries the HTTP status recovered from a langchaingo error.
type APIError struct {
	StatusCode int
	Message    string
	cause      error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.cause
}

func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

func toAPIError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	match := statusCodePattern.FindStringSubmatch(err.Error())
	if match == nil {
		return err
	}

	code, convErr := strconv.Atoi(match[1])
	if convErr != nil {
		return err
	}

	return &APIError{
		StatusCode: code,
		Message:    err.Error(),
		cause:      err,
	}
}
