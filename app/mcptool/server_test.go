package mcptool

import (
	"careerai/app/service/advisor"
	"careerai/app/service/profile"
	"careerai/app/service/prompt"
	"careerai/app/service/provider"
	"careerai/app/service/roadmap"
	"context"
	"encoding/json"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDispatcher struct {
	text     string
	err      error
	lastUser string
}

func (f *fakeDispatcher) Configured() bool {
	return f.err == nil
}

func (f *fakeDispatcher) Dispatch(_ context.Context, _, user string) (provider.Result, error) {
	f.lastUser = user
	if f.err != nil {
		return provider.Result{}, f.err
	}
	return provider.Result{Text: f.text, Attempts: 1, Primary: true}, nil
}

func newTestServer(t *testing.T, dispatcher *fakeDispatcher) *Server {
	t.Helper()

	vocab, err := profile.LoadVocabulary("")
	require.NoError(t, err)
	selector, err := prompt.NewSelector(vocab)
	require.NoError(t, err)

	return NewServer(
		advisor.NewService(profile.NewExtractor(vocab, 10, 400), selector, dispatcher),
		roadmap.NewService(roadmap.NewMemoryStore()),
	)
}

func call(args map[string]any) mcpgo.CallToolRequest {
	req := mcpgo.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()

	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	content, ok := result.Content[0].(mcpgo.TextContent)
	require.True(t, ok)
	return content.Text
}

func TestCareerAdvice(t *testing.T) {
	dispatcher := &fakeDispatcher{text: "Consider design."}
	s := newTestServer(t, dispatcher)

	result, err := s.careerAdvice(context.Background(), call(map[string]any{
		"message": "i like drawing",
		"history": `[{"role":"assistant","text":"What do you enjoy?"},{"role":"robot","text":"skip"}]`,
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "Consider design.", text(t, result))
	assert.Contains(t, dispatcher.lastUser, "i like drawing")
	assert.NotContains(t, dispatcher.lastUser, "skip")
}

func TestCareerAdviceErrors(t *testing.T) {
	s := newTestServer(t, &fakeDispatcher{})

	result, err := s.careerAdvice(context.Background(), call(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = s.careerAdvice(context.Background(), call(map[string]any{
		"message": "hello there",
		"history": "{broken",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	unavailable := newTestServer(t, &fakeDispatcher{
		err: &provider.ExhaustedError{Kind: provider.KindConfigurationAbsent},
	})
	result, err = unavailable.careerAdvice(context.Background(), call(map[string]any{"message": "help me"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, text(t, result), "not configured")
}

func TestRoadmapTools(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, &fakeDispatcher{})

	result, err := s.addRoadmapItem(ctx, call(map[string]any{
		"user_id":        "u1",
		"title":          "Prepare for CLAT",
		"priority":       "high",
		"estimated_time": "6 months",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var item roadmap.Item
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &item))
	assert.Equal(t, roadmap.SourceAIGenerated, item.Source)
	assert.Equal(t, roadmap.PriorityHigh, item.Priority)
	assert.Equal(t, 1, item.StepNumber)

	result, err = s.addRoadmapItem(ctx, call(map[string]any{
		"user_id":  "u1",
		"title":    "x",
		"priority": "urgent",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = s.listRoadmapItems(ctx, call(map[string]any{"user_id": "u1"}))
	require.NoError(t, err)

	var items []roadmap.Item
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Prepare for CLAT", items[0].Title)

	result, err = s.listRoadmapItems(ctx, call(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestParseHistory(t *testing.T) {
	turns, err := parseHistory("")
	require.NoError(t, err)
	assert.Empty(t, turns)

	turns, err = parseHistory(`[{"role":"user","text":"a"},{"role":"bot","text":"b"}]`)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, profile.RoleAssistant, turns[1].Role)
}

func TestJSONResult(t *testing.T) {
	ok := jsonResult(map[string]int{"a": 1})
	assert.False(t, ok.IsError)
	assert.JSONEq(t, `{"a":1}`, text(t, ok))

	failed := jsonResult(make(chan int))
	assert.True(t, failed.IsError)
	assert.Contains(t, text(t, failed), "encode result")
}
