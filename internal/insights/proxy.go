package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"example.com/finance-tracker/internal/ai"
	"example.com/finance-tracker/internal/proxy"
)

const maxReplySize = 1 << 20

// Proxy отправляет данные о расходах в AI-прокси и возвращает проверенный ответ.
type Proxy interface {
	Suggest(ctx context.Context, request ai.InsightRequest) (ai.Insights, error)
}

// ReplyError описывает ошибку, которую вернул прокси.
type ReplyError struct {
	Status  int
	Message string
}

func (e *ReplyError) Error() string {
	return fmt.Sprintf("ai proxy error (status %d): %s", e.Status, e.Message)
}

// LocalProxy вызывает обработчик прокси в том же процессе.
type LocalProxy struct {
	handler *proxy.Handler
}

// NewLocalProxy создает прокси поверх локального обработчика.
func NewLocalProxy(handler *proxy.Handler) *LocalProxy {
	return &LocalProxy{handler: handler}
}

func (p *LocalProxy) Suggest(ctx context.Context, request ai.InsightRequest) (ai.Insights, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return ai.Insights{}, err
	}

	response := p.handler.Handle(ctx, http.MethodPost, body)
	return decodeReply(response.Status, response.Body)
}

// HTTPProxy вызывает развернутую serverless-функцию по HTTP.
type HTTPProxy struct {
	url        string
	httpClient *http.Client
}

// NewHTTPProxy создает HTTP-клиент прокси.
func NewHTTPProxy(url string, timeout time.Duration) *HTTPProxy {
	return &HTTPProxy{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProxy) Suggest(ctx context.Context, request ai.InsightRequest) (ai.Insights, error) {
	payload, err := json.Marshal(request)
	if err != nil {
		return ai.Insights{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return ai.Insights{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	response, err := p.httpClient.Do(req)
	if err != nil {
		return ai.Insights{}, err
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxReplySize))
	if err != nil {
		return ai.Insights{}, err
	}

	return decodeReply(response.StatusCode, body)
}

type reply struct {
	ai.Insights
	Error string `json:"error"`
}

func decodeReply(status int, body []byte) (ai.Insights, error) {
	var parsed reply
	decodeErr := json.Unmarshal(body, &parsed)

	if status < 200 || status >= 300 {
		message := parsed.Error
		if decodeErr != nil || message == "" {
			message = http.StatusText(status)
		}
		return ai.Insights{}, &ReplyError{Status: status, Message: message}
	}

	if decodeErr != nil {
		return ai.Insights{}, &ai.InvalidResponseError{Reason: decodeErr.Error(), Content: string(body)}
	}

	if parsed.Error != "" {
		return ai.Insights{}, &ReplyError{Status: status, Message: parsed.Error}
	}

	if err := ai.ValidateInsights(parsed.Insights); err != nil {
		return ai.Insights{}, err
	}

	return parsed.Insights, nil
}
