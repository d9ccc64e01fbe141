package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

// TestChatClientRequest проверяет формат запроса chat/completions и разбор ответа.
func TestChatClientRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("unexpected authorization header %q", r.Header.Get("Authorization"))
		}

		body, _ := io.ReadAll(r.Body)
		var req chatRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("invalid request body: %v", err)
		}
		if req.Model != "test-model" || req.MaxTokens != 500 || len(req.Messages) != 1 {
			t.Errorf("unexpected request %+v", req)
		}

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"}}]}`))
	}))
	defer server.Close()

	client := NewChatClient(ProviderOpenRouter, "secret", server.URL+"/", "test-model")
	content, raw, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if content != "hello" {
		t.Fatalf("expected hello, got %s", content)
	}
	if len(raw) == 0 {
		t.Fatal("expected raw body")
	}
}

// TestChatClientMissingKey проверяет, что без ключа запрос в сеть не уходит.
func TestChatClientMissingKey(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	client := NewChatClient(ProviderOpenRouter, " ", server.URL, "m")
	_, _, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatal("expected no network call")
	}
}

// TestChatClientAPIError проверяет ошибку при неуспешном статусе провайдера.
func TestChatClientAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer server.Close()

	client := NewClient(ProviderGroq, "key", server.URL, "m", WithMaxTokens(100))
	_, raw, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests || apiErr.Message != "rate limited" || apiErr.Provider != ProviderGroq {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
	if !strings.Contains(string(raw), "rate limited") {
		t.Fatalf("expected raw body, got %s", raw)
	}
}

// TestGeminiClientRequest проверяет перенос system-сообщения в systemInstruction.
func TestGeminiClientRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-test:generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "k" || r.URL.RawQuery != "" {
			t.Errorf("expected api key in header only")
		}

		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("invalid body: %v", err)
		}
		if req.SystemInstruction == nil || len(req.Contents) != 1 || req.Contents[0].Role != "user" {
			t.Errorf("unexpected request %+v", req)
		}

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"a\":"},{"text":"1}"}]}}]}`))
	}))
	defer server.Close()

	client := NewClient(ProviderGemini, "k", server.URL, "gemini-test")
	content, _, err := client.Chat(context.Background(), []Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if content != `{"a":1}` {
		t.Fatalf("expected joined parts, got %s", content)
	}
}

// TestGeminiClientBlockedPrompt проверяет ошибку при заблокированном запросе.
func TestGeminiClientBlockedPrompt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`))
	}))
	defer server.Close()

	client := NewGeminiClient("k", server.URL, "gemini-test")
	_, raw, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err == nil || !strings.Contains(err.Error(), "SAFETY") {
		t.Fatalf("expected blocked prompt error, got %v", err)
	}
	if len(raw) == 0 {
		t.Fatal("expected raw body for logs")
	}
}

// TestGeminiContentsRoles проверяет раскладку ролей и пропуск пустых сообщений.
func TestGeminiContentsRoles(t *testing.T) {
	system, contents := geminiContents([]Message{
		{Role: "user", Content: "  "},
		{Role: "assistant", Content: "earlier"},
		{Role: "USER", Content: "now"},
	})
	if system != nil {
		t.Fatalf("expected no system instruction, got %+v", system)
	}
	if len(contents) != 2 || contents[0].Role != "model" || contents[1].Role != "user" {
		t.Fatalf("unexpected contents %+v", contents)
	}
}
