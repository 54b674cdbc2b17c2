package proxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messagebridge/config"
	"messagebridge/logger"
)

func testHandler(t *testing.T, upstream *httptest.Server) *Handler {
	t.Helper()
	cfg := &config.Config{
		OpenAIBaseURL:         upstream.URL,
		HaikuModel:            "openai/gpt-4.1-mini",
		ConnectionTimeout:     0,
		IdleConnectionTimeout: 0,
	}
	cfg.SetOverrides(nil)
	return NewHandler(cfg, logger.New())
}

func TestHandleMessagesMissingAPIKey(t *testing.T) {
	h := testHandler(t, httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("upstream should not be called")
	})))

	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(`{"model":"gpt-4o","messages":[]}`))
	w := httptest.NewRecorder()

	h.HandleMessages(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleMessagesNonStreaming(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "hello")

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "chatcmpl-1",
			"model": "gpt-4o",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "hi there"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 2}
		}`)
	}))
	defer upstream.Close()

	h := testHandler(t, upstream)

	body := `{"model":"gpt-4o","messages":[{"role":"user","content":"hello"}],"max_tokens":100}`
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(body))
	req.Header.Set("x-api-key", "sk-test")
	w := httptest.NewRecorder()

	h.HandleMessages(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hi there")
	assert.Contains(t, w.Body.String(), `"role":"assistant"`)
}

func TestHandleMessagesUpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, `{"error": "boom"}`)
	}))
	defer upstream.Close()

	h := testHandler(t, upstream)

	body := `{"model":"gpt-4o","messages":[{"role":"user","content":"hello"}],"max_tokens":100}`
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(body))
	req.Header.Set("x-api-key", "sk-test")
	w := httptest.NewRecorder()

	h.HandleMessages(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "boom")
}

func TestHandleMessagesHaikuModelSubstitution(t *testing.T) {
	var sawModel string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		sawModel = string(body)
		io.WriteString(w, `{
			"id": "c1", "model": "x",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "ok"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 1, "completion_tokens": 1}
		}`)
	}))
	defer upstream.Close()

	h := testHandler(t, upstream)

	body := `{"model":"claude-3-5-haiku-20241022","messages":[{"role":"user","content":"hi"}],"max_tokens":10}`
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(body))
	req.Header.Set("x-api-key", "sk-test")
	w := httptest.NewRecorder()

	h.HandleMessages(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, sawModel, "openai/gpt-4.1-mini")
}
