package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ChatClient вызывает OpenAI-совместимый эндпоинт chat/completions (OpenRouter, Groq).
type ChatClient struct {
	provider   string
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewChatClient создает клиент chat/completions.
func NewChatClient(provider, apiKey, baseURL, model string, opts ...Option) *ChatClient {
	options := buildOptions(opts)
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		provider = ProviderOpenRouter
	}

	return &ChatClient{
		provider:   provider,
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		maxTokens:  options.maxTokens,
		httpClient: options.httpClient,
	}
}

// Chat отправляет сообщения и возвращает текст первого варианта и сырой ответ API.
func (c *ChatClient) Chat(ctx context.Context, messages []Message) (string, []byte, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", nil, ErrMissingAPIKey
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.apiKey)

	status, body, err := postJSON(ctx, c.httpClient, c.baseURL+"/chat/completions", header, chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.2,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", body, err
	}

	var parsed chatResponse
	decodeErr := json.Unmarshal(body, &parsed)

	if !isSuccess(status) {
		message := ""
		if decodeErr == nil && parsed.Error != nil {
			message = parsed.Error.Message
		}
		return "", body, newAPIError(c.provider, status, message, body)
	}
	if decodeErr != nil {
		return "", body, fmt.Errorf("decode %s response: %w", c.provider, decodeErr)
	}

	if len(parsed.Choices) == 0 {
		return "", body, errors.New(c.provider + " response missing choices")
	}

	content := parsed.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", body, errors.New(c.provider + " response missing content")
	}

	return content, body, nil
}
