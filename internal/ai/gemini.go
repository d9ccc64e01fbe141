package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// GeminiClient вызывает generateContent Google Generative Language API.
type GeminiClient struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  *geminiConfig   `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiConfig struct {
	Temperature      float64 `json:"temperature,omitempty"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiResponse struct {
	Candidates     []geminiCandidate `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewGeminiClient создает клиент Gemini.
func NewGeminiClient(apiKey, baseURL, model string, opts ...Option) *GeminiClient {
	options := buildOptions(opts)
	return &GeminiClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		maxTokens:  options.maxTokens,
		httpClient: options.httpClient,
	}
}

// Chat отправляет диалог в Gemini. System-сообщения уходят в systemInstruction,
// части первого кандидата склеиваются в один текст.
func (c *GeminiClient) Chat(ctx context.Context, messages []Message) (string, []byte, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", nil, ErrMissingAPIKey
	}

	system, contents := geminiContents(messages)
	if len(contents) == 0 {
		return "", nil, errors.New("gemini request has no user content")
	}

	request := geminiRequest{
		SystemInstruction: system,
		Contents:          contents,
		GenerationConfig: &geminiConfig{
			Temperature:      0.2,
			MaxOutputTokens:  c.maxTokens,
			ResponseMimeType: "application/json",
		},
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	header := http.Header{}
	header.Set("x-goog-api-key", c.apiKey)

	status, body, err := postJSON(ctx, c.httpClient, endpoint, header, request)
	if err != nil {
		return "", body, err
	}

	var parsed geminiResponse
	decodeErr := json.Unmarshal(body, &parsed)

	if !isSuccess(status) {
		message := ""
		if decodeErr == nil && parsed.Error != nil {
			message = parsed.Error.Message
		}
		return "", body, newAPIError(ProviderGemini, status, message, body)
	}
	if decodeErr != nil {
		return "", body, fmt.Errorf("decode gemini response: %w", decodeErr)
	}

	if parsed.PromptFeedback != nil && parsed.PromptFeedback.BlockReason != "" {
		return "", body, fmt.Errorf("gemini prompt blocked: %s", parsed.PromptFeedback.BlockReason)
	}
	if len(parsed.Candidates) == 0 {
		return "", body, errors.New("gemini response missing candidates")
	}

	candidate := parsed.Candidates[0]
	var builder strings.Builder
	for _, part := range candidate.Content.Parts {
		builder.WriteString(part.Text)
	}

	if strings.TrimSpace(builder.String()) == "" {
		if candidate.FinishReason != "" {
			return "", body, fmt.Errorf("gemini response empty: finish reason %s", candidate.FinishReason)
		}
		return "", body, errors.New("gemini response missing content")
	}

	return builder.String(), body, nil
}

func geminiContents(messages []Message) (*geminiContent, []geminiContent) {
	var systemParts []geminiPart
	contents := make([]geminiContent, 0, len(messages))

	for _, message := range messages {
		text := strings.TrimSpace(message.Content)
		if text == "" {
			continue
		}

		role := "user"
		switch strings.ToLower(strings.TrimSpace(message.Role)) {
		case "system":
			systemParts = append(systemParts, geminiPart{Text: text})
			continue
		case "assistant", "model":
			role = "model"
		}
		contents = append(contents, geminiContent{Role: role, Parts: []geminiPart{{Text: text}}})
	}

	if len(systemParts) == 0 {
		return nil, contents
	}
	return &geminiContent{Role: "system", Parts: systemParts}, contents
}
