package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"example.com/finance-tracker/internal/ai"
	"example.com/finance-tracker/internal/config"
)

const (
	MessageKeyMissing     = "AI API key not configured"
	MessageRequestFailed  = "AI service request failed"
	MessageInvalidAnswer  = "AI response invalid"
	MessageInternalError  = "internal server error"
	MessageInvalidPayload = "invalid request body"
)

// CORSHeaders добавляются к каждому ответу прокси, включая ошибки и preflight.
var CORSHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Headers": "authorization, x-client-info, apikey, content-type",
}

// ClientFactory создает AI-клиент на момент запроса.
// Возвращает ai.ErrMissingAPIKey, если ключ не настроен.
type ClientFactory func() (ai.Client, error)

// Settings - параметры подключения к провайдеру.
type Settings struct {
	Provider  string
	APIKey    string
	BaseURL   string
	Model     string
	Timeout   time.Duration
	MaxTokens int
}

// Client собирает AI-клиент по настройкам.
func (s Settings) Client() (ai.Client, error) {
	if strings.TrimSpace(s.APIKey) == "" {
		return nil, ai.ErrMissingAPIKey
	}

	return ai.NewClient(s.Provider, s.APIKey, s.BaseURL, s.Model,
		ai.WithTimeout(s.Timeout),
		ai.WithMaxTokens(s.MaxTokens),
	), nil
}

// SettingsFrom переносит AI-секцию конфигурации в настройки клиента.
func SettingsFrom(cfg config.AIConfig) Settings {
	return Settings{
		Provider:  cfg.Provider,
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		Model:     cfg.Model,
		Timeout:   cfg.Timeout,
		MaxTokens: cfg.MaxOutputTokens,
	}
}

// LoadClient перечитывает конфигурацию провайдера при каждом вызове.
func LoadClient() (ai.Client, error) {
	cfg, err := config.LoadAI()
	if err != nil {
		return nil, err
	}

	return SettingsFrom(cfg).Client()
}

// Response - транспортно-независимый ответ прокси.
type Response struct {
	Status int
	Body   []byte
}

// Headers возвращает заголовки ответа: CORS всегда, Content-Type только при наличии тела.
func (r Response) Headers() map[string]string {
	headers := make(map[string]string, len(CORSHeaders)+1)
	for key, value := range CORSHeaders {
		headers[key] = value
	}
	if len(r.Body) > 0 {
		headers["Content-Type"] = "application/json"
	}
	return headers
}

type expenseInput struct {
	Category string   `json:"category" validate:"required"`
	Amount   *float64 `json:"amount" validate:"required,gte=0"`
}

type insightInput struct {
	Expenses []expenseInput `json:"expenses" validate:"required,dive"`
	Budget   *float64       `json:"budget" validate:"required,gte=0"`
}

type Handler struct {
	clients   ClientFactory
	validator *validator.Validate
	logger    *slog.Logger
}

// NewHandler создает обработчик прокси.
func NewHandler(clients ClientFactory, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Handler{
		clients:   clients,
		validator: validate,
		logger:    logger,
	}
}

// Handle обрабатывает один запрос к прокси.
func (h *Handler) Handle(ctx context.Context, method string, body []byte) (response Response) {
	defer func() {
		if recovered := recover(); recovered != nil {
			h.logger.Error("ai proxy panic", slog.String("panic", fmt.Sprint(recovered)))
			response = errorResponse(http.StatusInternalServerError, MessageInternalError)
		}
	}()

	if strings.EqualFold(method, http.MethodOptions) {
		return Response{Status: http.StatusOK}
	}

	request, err := h.decode(body)
	if err != nil {
		h.logger.Warn("ai proxy invalid input", slog.String("error", err.Error()))
		return errorResponse(http.StatusBadRequest, MessageInvalidPayload+": "+err.Error())
	}

	h.logger.Info("ai proxy request received",
		slog.Int("expenses", len(request.Expenses)),
		slog.Float64("budget", request.Budget),
	)

	client, err := h.clients()
	if err != nil {
		if errors.Is(err, ai.ErrMissingAPIKey) {
			h.logger.Error("ai api key not configured")
			return errorResponse(http.StatusInternalServerError, MessageKeyMissing)
		}
		h.logger.Error("ai client init failed", slog.String("error", err.Error()))
		return errorResponse(http.StatusInternalServerError, MessageInternalError)
	}

	_, payload, _, err := ai.NewService(client).Insights(ctx, request)
	if err != nil {
		return h.failure(err)
	}

	return Response{Status: http.StatusOK, Body: payload}
}

func (h *Handler) decode(body []byte) (ai.InsightRequest, error) {
	var input insightInput
	if err := json.Unmarshal(body, &input); err != nil {
		return ai.InsightRequest{}, errors.New("malformed json")
	}

	if err := h.validator.Struct(input); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
			field := validationErrs[0]
			path := field.Namespace()
			if idx := strings.Index(path, "."); idx >= 0 {
				path = path[idx+1:]
			}
			return ai.InsightRequest{}, fmt.Errorf("%s failed %s", path, field.Tag())
		}
		return ai.InsightRequest{}, err
	}

	request := ai.InsightRequest{
		Expenses: make([]ai.InsightExpense, 0, len(input.Expenses)),
		Budget:   *input.Budget,
	}
	for _, expense := range input.Expenses {
		request.Expenses = append(request.Expenses, ai.InsightExpense{
			Category: expense.Category,
			Amount:   *expense.Amount,
		})
	}

	return request, nil
}

func (h *Handler) failure(err error) Response {
	var apiErr *ai.APIError
	var invalid *ai.InvalidResponseError

	switch {
	case errors.As(err, &apiErr):
		h.logger.Error("ai service request failed",
			slog.String("provider", apiErr.Provider),
			slog.Int("status", apiErr.StatusCode),
			slog.String("body", apiErr.Body),
		)
		return errorResponse(http.StatusInternalServerError, MessageRequestFailed)
	case errors.As(err, &invalid):
		h.logger.Error("ai response invalid",
			slog.String("reason", invalid.Reason),
			slog.String("content", invalid.Content),
		)
		return errorResponse(http.StatusInternalServerError, MessageInvalidAnswer)
	case errors.Is(err, ai.ErrMissingAPIKey):
		h.logger.Error("ai api key not configured")
		return errorResponse(http.StatusInternalServerError, MessageKeyMissing)
	default:
		h.logger.Error("ai proxy failed", slog.String("error", err.Error()))
		return errorResponse(http.StatusInternalServerError, MessageInternalError)
	}
}

func errorResponse(status int, message string) Response {
	body, _ := json.Marshal(map[string]string{"error": message})
	return Response{Status: status, Body: body}
}
