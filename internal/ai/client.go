package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderGroq       = "groq"
	ProviderGemini     = "gemini"

	defaultMaxTokens = 500
)

var ErrMissingAPIKey = errors.New("ai api key is missing")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Client interface {
	Chat(ctx context.Context, messages []Message) (string, []byte, error)
}

// APIError описывает неуспешный HTTP-ответ провайдера. Тело ответа предназначено только для логов.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// NewClient выбирает реализацию клиента по имени провайдера.
func NewClient(provider, apiKey, baseURL, model string, opts ...Option) Client {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case ProviderGemini:
		return NewGeminiClient(apiKey, baseURL, model, opts...)
	default:
		return NewChatClient(provider, apiKey, baseURL, model, opts...)
	}
}

func resolveMaxTokens(value int) int {
	if value > 0 {
		return value
	}

	return defaultMaxTokens
}

func newAPIError(provider string, status int, message string, body []byte) *APIError {
	trimmed := strings.TrimSpace(string(body))
	if strings.TrimSpace(message) == "" {
		message = trimmed
	}

	return &APIError{
		Provider:   provider,
		StatusCode: status,
		Message:    message,
		Body:       trimmed,
	}
}

// postJSON сериализует payload, отправляет POST и возвращает статус и тело ответа.
func postJSON(ctx context.Context, client *http.Client, endpoint string, header http.Header, payload interface{}) (int, []byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("encode request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return 0, nil, err
	}

	for key, values := range header {
		for _, value := range values {
			request.Header.Add(key, value)
		}
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := client.Do(request)
	if err != nil {
		return 0, nil, err
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return response.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}

	return response.StatusCode, body, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
