package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
)

const insightsSystemPrompt = `You are a personal finance advisor.
You receive a list of expenses (category and amount) and a monthly budget.
Respond with:
1. "analysis": a short summary of the spending pattern compared with the budget.
2. "tips": 3 to 5 practical ways to save money.
3. "alerts": warnings about overspending categories or budget risk, or an empty list.
Output ONLY a valid JSON object, without markdown, code fences or any other text:
{"analysis": "<text>", "tips": ["<tip>"], "alerts": ["<alert>"]}`

var ErrInvalidResponse = errors.New("ai response invalid")

// InvalidResponseError хранит текст ответа модели, который не прошел проверку.
// Текст предназначен только для логов.
type InvalidResponseError struct {
	Reason  string
	Content string
}

func (e *InvalidResponseError) Error() string {
	return "ai response invalid: " + e.Reason
}

func (e *InvalidResponseError) Unwrap() error {
	return ErrInvalidResponse
}

type Service struct {
	client Client
}

// NewService создает сервис работы с AI-клиентом.
func NewService(client Client) *Service {
	return &Service{client: client}
}

// Insights запрашивает у модели анализ расходов и возвращает проверенный ответ
// вместе с исходным JSON-объектом для передачи клиенту без изменений.
func (s *Service) Insights(ctx context.Context, input InsightRequest) (Insights, json.RawMessage, []byte, error) {
	if input.Expenses == nil {
		input.Expenses = []InsightExpense{}
	}

	userContent, err := json.Marshal(input)
	if err != nil {
		return Insights{}, nil, nil, err
	}

	messages := []Message{
		{Role: "system", Content: insightsSystemPrompt},
		{Role: "user", Content: string(userContent)},
	}

	content, raw, err := s.client.Chat(ctx, messages)
	if err != nil {
		return Insights{}, nil, raw, err
	}

	insights, payload, err := ParseInsights(content)
	if err != nil {
		return Insights{}, nil, raw, err
	}

	return insights, payload, raw, nil
}

// ParseInsights разбирает текст модели и проверяет наличие analysis, tips и alerts.
func ParseInsights(content string) (Insights, json.RawMessage, error) {
	payload := extractJSON(content)
	if payload == "" {
		return Insights{}, nil, &InvalidResponseError{Reason: "no json object", Content: content}
	}

	var insights Insights
	if err := json.Unmarshal([]byte(payload), &insights); err != nil {
		return Insights{}, nil, &InvalidResponseError{Reason: err.Error(), Content: content}
	}

	if err := validateInsights(insights); err != nil {
		return Insights{}, nil, &InvalidResponseError{Reason: err.Error(), Content: content}
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, []byte(payload)); err != nil {
		return Insights{}, nil, &InvalidResponseError{Reason: err.Error(), Content: content}
	}

	return insights, json.RawMessage(compact.Bytes()), nil
}

// ValidateInsights повторяет проверку ответа на стороне вызывающего прокси.
func ValidateInsights(insights Insights) error {
	if err := validateInsights(insights); err != nil {
		return &InvalidResponseError{Reason: err.Error()}
	}
	return nil
}

// Пустые массивы допустимы, отсутствующие или null - нет.
func validateInsights(insights Insights) error {
	if insights.Analysis == "" {
		return errors.New("analysis is required")
	}
	if insights.Tips == nil {
		return errors.New("tips are required")
	}
	if insights.Alerts == nil {
		return errors.New("alerts are required")
	}
	return nil
}

func extractJSON(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}

	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimPrefix(strings.TrimSpace(trimmed), "json")
		trimmed = strings.TrimSpace(trimmed)
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}

	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return ""
	}

	return trimmed
}
