package api

import (
	"careerai/app/config"
	"careerai/app/service/advisor"
	"careerai/app/service/assessment"
	"careerai/app/service/profile"
	"careerai/app/service/prompt"
	"careerai/app/service/provider"
	"careerai/app/service/roadmap"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDispatcher struct {
	configured bool
	text       string
	err        error
	lastUser   string

	// block makes Dispatch wait for ctx and report ctx.Err() on done
	block   bool
	entered chan struct{}
	done    chan error
}

func newBlockingDispatcher() *fakeDispatcher {
	return &fakeDispatcher{
		configured: true,
		block:      true,
		entered:    make(chan struct{}, 1),
		done:       make(chan error, 1),
	}
}

func (f *fakeDispatcher) Configured() bool {
	return f.configured
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, _, user string) (provider.Result, error) {
	if f.block {
		f.entered <- struct{}{}
		<-ctx.Done()
		f.done <- ctx.Err()
		return provider.Result{}, fmt.Errorf("dispatch cancelled: %w", ctx.Err())
	}

	f.lastUser = user
	if f.err != nil {
		return provider.Result{}, f.err
	}
	return provider.Result{
		Text:     f.text,
		Provider: "fake",
		Attempts: 1,
		Primary:  true,
		Limits:   provider.ReplyLimits{MaxChars: 1200, Confidence: 0.8},
	}, nil
}

func newTestServer(t *testing.T, dispatcher *fakeDispatcher) *Server {
	t.Helper()

	return newTestServerWithHTTP(t, dispatcher, config.HTTP{
		Addr:            "127.0.0.1:0",
		ShutdownTimeout: time.Second,
		RequestTimeout:  time.Minute,
	})
}

func newTestServerWithHTTP(t *testing.T, dispatcher *fakeDispatcher, httpCfg config.HTTP) *Server {
	t.Helper()

	vocab, err := profile.LoadVocabulary("")
	require.NoError(t, err)

	selector, err := prompt.NewSelector(vocab)
	require.NoError(t, err)

	cfg := &config.Config{HTTP: httpCfg}

	return NewServer(
		cfg,
		advisor.NewService(profile.NewExtractor(vocab, 10, 400), selector, dispatcher),
		assessment.NewService(dispatcher),
		roadmap.NewService(roadmap.NewMemoryStore()),
	)
}

func send(t *testing.T, s *Server, method, path, body, user string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(userHeader, user)
	}

	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()

	return resp, data
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &fakeDispatcher{configured: true})

	resp, body := send(t, s, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","aiAvailable":true}`, string(body))

	resp, _ = send(t, s, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, &fakeDispatcher{})

	resp, body := send(t, s, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestChatReply(t *testing.T) {
	dispatcher := &fakeDispatcher{configured: true, text: "Law suits you."}
	s := newTestServer(t, dispatcher)

	resp, body := send(t, s, http.MethodPost, "/api/chat", `{
		"message": "I am in 12th commerce",
		"history": [
			{"role": "bot", "text": "Hi! What are you studying?"},
			{"role": "system", "text": "ignored"}
		]
	}`, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reply advisor.Reply
	require.NoError(t, json.Unmarshal(body, &reply))
	assert.Equal(t, "Law suits you.", reply.Reply)
	assert.True(t, reply.Fallback)
	assert.Nil(t, reply.Career)
	assert.InDelta(t, 0.8, reply.Confidence, 1e-9)

	assert.Contains(t, dispatcher.lastUser, "I am in 12th commerce")
	assert.NotContains(t, dispatcher.lastUser, "ignored")
}

func TestChatRequiresMessage(t *testing.T) {
	s := newTestServer(t, &fakeDispatcher{configured: true})

	resp, body := send(t, s, http.MethodPost, "/api/chat", `{"message": "   "}`, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "error")

	resp, _ = send(t, s, http.MethodPost, "/api/chat", `{not json`, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatUnavailable(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		s := newTestServer(t, &fakeDispatcher{
			err: &provider.ExhaustedError{Kind: provider.KindConfigurationAbsent},
		})

		resp, body := send(t, s, http.MethodPost, "/api/chat", `{"message": "hi there, help me"}`, "")
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Contains(t, string(body), "not configured")
	})

	t.Run("providers failed", func(t *testing.T) {
		s := newTestServer(t, &fakeDispatcher{
			configured: true,
			err:        &provider.ExhaustedError{Kind: provider.KindAllProvidersExhausted, Attempts: 3},
		})

		resp, body := send(t, s, http.MethodPost, "/api/chat", `{"message": "hi there, help me"}`, "")
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Contains(t, string(body), "trouble connecting")
	})

	t.Run("quota is a normal reply", func(t *testing.T) {
		s := newTestServer(t, &fakeDispatcher{
			configured: true,
			err: &provider.ExhaustedError{
				Kind:       provider.KindQuotaExceeded,
				RetryAfter: 37 * time.Second,
				Attempts:   2,
			},
		})

		resp, body := send(t, s, http.MethodPost, "/api/chat", `{"message": "hi there, help me"}`, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var reply advisor.Reply
		require.NoError(t, json.Unmarshal(body, &reply))
		assert.Contains(t, reply.Reply, "about 40 seconds")
		assert.True(t, reply.Fallback)
	})
}

func TestAssessment(t *testing.T) {
	s := newTestServer(t, &fakeDispatcher{
		configured: true,
		text:       "SUMMARY: You like people.\nCAREERS: Lawyer (confidence: 90%)\nROADMAP:\n- Take CLAT",
	})

	resp, body := send(t, s, http.MethodPost, "/api/assessment", `{
		"name": "Asha", "educationLevel": "12th", "interests": "debating", "goals": "court"
	}`, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var dashboard assessment.Dashboard
	require.NoError(t, json.Unmarshal(body, &dashboard))
	assert.Equal(t, "Great to meet you, Asha!", dashboard.Summary.Greeting)
	require.NotEmpty(t, dashboard.SuggestedCareers)
	assert.Equal(t, "Lawyer", dashboard.SuggestedCareers[0].Title)

	resp, _ = send(t, s, http.MethodPost, "/api/assessment", `{"name": ""}`, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func receive(t *testing.T, ch <-chan error) error {
	t.Helper()

	select {
	case err := <-ch:
		return err
	case <-time.After(5 * time.Second):
		require.FailNow(t, "dispatcher did not observe cancellation")
		return nil
	}
}

func TestRequestTimeout(t *testing.T) {
	httpCfg := config.HTTP{
		Addr:            "127.0.0.1:0",
		ShutdownTimeout: time.Second,
		RequestTimeout:  50 * time.Millisecond,
	}

	t.Run("chat", func(t *testing.T) {
		dispatcher := newBlockingDispatcher()
		s := newTestServerWithHTTP(t, dispatcher, httpCfg)

		resp, body := send(t, s, http.MethodPost, "/api/chat", `{"message": "what should I study?"}`, "")
		assert.Equal(t, http.StatusRequestTimeout, resp.StatusCode)
		assert.Contains(t, string(body), "error")
		assert.ErrorIs(t, receive(t, dispatcher.done), context.DeadlineExceeded)
	})

	t.Run("assessment", func(t *testing.T) {
		dispatcher := newBlockingDispatcher()
		s := newTestServerWithHTTP(t, dispatcher, httpCfg)

		resp, _ := send(t, s, http.MethodPost, "/api/assessment", `{"name": "Asha", "interests": "debating"}`, "")
		assert.Equal(t, http.StatusRequestTimeout, resp.StatusCode)
		assert.ErrorIs(t, receive(t, dispatcher.done), context.DeadlineExceeded)
	})
}

func TestShutdownCancelsInFlightRequests(t *testing.T) {
	dispatcher := newBlockingDispatcher()
	s := newTestServer(t, dispatcher)

	type result struct {
		status int
		err    error
	}
	results := make(chan result, 1)
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message": "what should I study?"}`))
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.App().Test(req, -1)
		if err != nil {
			results <- result{err: err}
			return
		}
		_ = resp.Body.Close()
		results <- result{status: resp.StatusCode}
	}()

	select {
	case <-dispatcher.entered:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "request never reached the dispatcher")
	}

	_ = s.Shutdown()

	assert.ErrorIs(t, receive(t, dispatcher.done), context.Canceled)

	select {
	case res := <-results:
		require.NoError(t, res.err)
		assert.Equal(t, http.StatusServiceUnavailable, res.status)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "request did not finish after shutdown")
	}
}

func TestRoadmapItems(t *testing.T) {
	s := newTestServer(t, &fakeDispatcher{})

	resp, body := send(t, s, http.MethodGet, "/api/roadmap/items", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))

	resp, _ = send(t, s, http.MethodPost, "/api/roadmap/items", `{"title": "Learn SQL"}`, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = send(t, s, http.MethodPost, "/api/roadmap/items", `{"title": ""}`, "u1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = send(t, s, http.MethodPost, "/api/roadmap/items", `{
		"title": "Learn SQL",
		"skills": ["sql"],
		"resources": ["SQLBolt", {"name": "Docs", "url": "https://www.postgresql.org/docs/"}]
	}`, "u1")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created map[string]any
	require.NoError(t, json.Unmarshal(body, &created))
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "pending", created["status"])
	assert.Equal(t, "medium", created["priority"])
	assert.Equal(t, "user-added", created["source"])
	assert.EqualValues(t, 1, created["stepNumber"])
	assert.Equal(t, "SQLBolt", created["resources"].([]any)[0])
	assert.NotContains(t, created, "userId")

	resp, body = send(t, s, http.MethodGet, "/api/roadmap/items", "", "u1")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var items []map[string]any
	require.NoError(t, json.Unmarshal(body, &items))
	assert.Len(t, items, 1)

	resp, body = send(t, s, http.MethodPatch, "/api/roadmap/items/"+id, `{"status": "completed"}`, "u1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"completed"`)

	resp, _ = send(t, s, http.MethodPatch, "/api/roadmap/items/"+id, `{"status": "done"}`, "u1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = send(t, s, http.MethodPatch, "/api/roadmap/items/"+id, `{"status": "completed"}`, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = send(t, s, http.MethodGet, "/api/roadmap/items/"+id, "", "u2")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = send(t, s, http.MethodDelete, "/api/roadmap/items/"+id, "", "u2")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = send(t, s, http.MethodDelete, "/api/roadmap/items/"+id, "", "u1")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = send(t, s, http.MethodGet, "/api/roadmap/items/"+id, "", "u1")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestToTurns(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	turns := toTurns([]historyEntry{
		{Role: "user", Content: "from content", Timestamp: &ts},
		{Role: "model", Text: "reply"},
		{Role: "tool", Text: "dropped"},
	})

	require.Len(t, turns, 2)
	assert.Equal(t, profile.RoleUser, turns[0].Role)
	assert.Equal(t, "from content", turns[0].Text)
	assert.Equal(t, ts, turns[0].Timestamp)
	assert.Equal(t, profile.RoleAssistant, turns[1].Role)
}
