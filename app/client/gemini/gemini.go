package gemini

import (
	"careerai/app/config"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/elliotchance/pie/v2"
	"github.com/go-resty/resty/v2"
	"github.com/samber/do"
	"github.com/samber/oops"
)

// DiscoveryVersion is the release channel used to list models.
const DiscoveryVersion = "v1beta"

type Client struct {
	http   *resty.Client
	apiKey string
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetHeader("Content-Type", "application/json"),
		apiKey: apiKey,
	}
}

func New(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)
	return NewClient(cfg.Gemini.BaseURL, cfg.Gemini.APIKey), nil
}

func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type Model struct {
	// Name is the resource name, e.g. "models/gemini-1.5-flash".
	Name                       string   `json:"name"`
	DisplayName                string   `json:"displayName"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
}

// ID returns the model name without the "models/" prefix.
func (m Model) ID() string {
	return strings.TrimPrefix(m.Name, "models/")
}

func (m Model) Supports(method string) bool {
	return pie.Contains(m.SupportedGenerationMethods, method)
}

type listModelsResponse struct {
	Models        []Model `json:"models"`
	NextPageToken string  `json:"nextPageToken"`
}

// ListModels returns every model visible to the key, following pagination.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	var result []Model
	pageToken := ""

	for {
		var page listModelsResponse

		request := c.http.R().
			SetContext(ctx).
			SetQueryParam("key", c.apiKey).
			SetQueryParam("pageSize", "1000").
			SetResult(&page)
		if pageToken != "" {
			request.SetQueryParam("pageToken", pageToken)
		}

		resp, err := request.Get("/" + DiscoveryVersion + "/models")
		if err != nil {
			return nil, oops.Code("gemini_list_models").Errorf("failed to list models: %w", err)
		}
		if resp.IsError() {
			return nil, oops.Code("gemini_list_models").Wrap(parseAPIError(resp))
		}

		result = append(result, page.Models...)

		if page.NextPageToken == "" || page.NextPageToken == pageToken {
			return result, nil
		}
		pageToken = page.NextPageToken
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	// Error is sometimes sent with a 200 status.
	Error *errorBody `json:"error"`
}

// GenerateContent sends one prompt to the model and returns the first candidate's text.
// The system prompt is prepended to the user prompt since not every release channel
// accepts a separate system instruction.
func (c *Client) GenerateContent(ctx context.Context, apiVersion, model, system, prompt string) (string, error) {
	text := prompt
	if system != "" {
		text = system + "\n\n" + prompt
	}

	var body generateResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetBody(generateRequest{
			Contents: []content{{Parts: []part{{Text: text}}}},
		}).
		SetResult(&body).
		Post(fmt.Sprintf("/%s/models/%s:generateContent", apiVersion, model))
	if err != nil {
		return "", oops.Code("gemini_generate").
			With("api_version", apiVersion, "model", model).
			Errorf("failed to call generateContent: %w", err)
	}
	if resp.IsError() {
		return "", oops.Code("gemini_generate").
			With("api_version", apiVersion, "model", model).
			Wrap(parseAPIError(resp))
	}

	if body.Error != nil {
		return "", oops.Code("gemini_generate").
			With("api_version", apiVersion, "model", model).
			Wrap(newAPIError(resp.StatusCode(), body.Error))
	}

	if len(body.Candidates) == 0 {
		if body.PromptFeedback != nil && body.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("prompt blocked: %s", body.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("no candidates in response")
	}

	parts := body.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return "", fmt.Errorf("empty candidate content, finish reason %q", body.Candidates[0].FinishReason)
	}

	return strings.TrimSpace(parts[0].Text), nil
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
	// RetryDelay is the server's RetryInfo hint, zero when absent.
	RetryDelay time.Duration
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("gemini api error %d %s: %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("gemini api error %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

func (e *APIError) RetryAfter() time.Duration {
	return e.RetryDelay
}

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
	Details []struct {
		Type       string `json:"@type"`
		RetryDelay string `json:"retryDelay"`
	} `json:"details"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func parseAPIError(resp *resty.Response) *APIError {
	var envelope errorEnvelope
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		message := strings.TrimSpace(resp.String())
		if message == "" {
			message = http.StatusText(resp.StatusCode())
		}
		return &APIError{
			StatusCode: resp.StatusCode(),
			Message:    message,
		}
	}

	result := newAPIError(resp.StatusCode(), &envelope.Error)
	if result.Message == "" {
		result.Message = strings.TrimSpace(resp.String())
	}
	return result
}

// newAPIError prefers the code in the body, which is the real one when the
// error arrives with a 200 status.
func newAPIError(statusCode int, body *errorBody) *APIError {
	result := &APIError{
		StatusCode: statusCode,
		Status:     body.Status,
		Message:    body.Message,
	}
	if body.Code != 0 {
		result.StatusCode = body.Code
	}

	for _, detail := range body.Details {
		if detail.RetryDelay == "" {
			continue
		}
		if delay, err := time.ParseDuration(detail.RetryDelay); err == nil {
			result.RetryDelay = delay
			break
		}
	}

	return result
}
