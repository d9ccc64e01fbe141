package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"example.com/finance-tracker/internal/ai"
	"example.com/finance-tracker/internal/proxy"
)

type stubClient struct {
	content string
}

func (s stubClient) Chat(ctx context.Context, messages []ai.Message) (string, []byte, error) {
	return s.content, []byte(`{}`), nil
}

func newTestHandler(client ai.Client, err error) *proxy.Handler {
	return proxy.NewHandler(func() (ai.Client, error) {
		return client, err
	}, nil)
}

// TestLambdaOptions проверяет ответ на preflight через API Gateway.
func TestLambdaOptions(t *testing.T) {
	handle := newLambdaHandler(newTestHandler(nil, ai.ErrMissingAPIKey))

	response, err := handle(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodOptions})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", response.StatusCode)
	}
	if response.Body != "" {
		t.Fatalf("expected empty body, got %q", response.Body)
	}
	if response.Headers["Access-Control-Allow-Origin"] != "*" {
		t.Fatalf("expected CORS headers, got %v", response.Headers)
	}
}

// TestLambdaSuccess проверяет, что разобранный ответ модели возвращается клиенту.
func TestLambdaSuccess(t *testing.T) {
	client := stubClient{content: `{"analysis":"ok","tips":["a","b","c"],"alerts":[]}`}
	handle := newLambdaHandler(newTestHandler(client, nil))

	body := base64.StdEncoding.EncodeToString([]byte(`{"expenses":[{"category":"Food","amount":12.5}],"budget":1000}`))
	response, err := handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:      http.MethodPost,
		Body:            body,
		IsBase64Encoded: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", response.StatusCode, response.Body)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(response.Body), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if payload["analysis"] != "ok" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if response.Headers["Content-Type"] != "application/json" {
		t.Fatalf("expected json content type, got %v", response.Headers)
	}
}

// TestLambdaConfigError проверяет, что ошибка конфигурации не раскрывается клиенту.
func TestLambdaConfigError(t *testing.T) {
	handle := newLambdaHandler(newTestHandler(nil, errors.New("invalid AI_PROVIDER")))

	response, err := handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Body:       `{"expenses":[],"budget":0}`,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", response.StatusCode)
	}
	if response.Body != `{"error":"internal server error"}` {
		t.Fatalf("unexpected body: %s", response.Body)
	}
}

// TestLambdaBadBase64 проверяет отказ на некорректно закодированное тело.
func TestLambdaBadBase64(t *testing.T) {
	handle := newLambdaHandler(newTestHandler(nil, ai.ErrMissingAPIKey))

	response, _ := handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:      http.MethodPost,
		Body:            "%%%",
		IsBase64Encoded: true,
	})
	if response.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", response.StatusCode)
	}
	if response.Headers["Access-Control-Allow-Headers"] == "" {
		t.Fatalf("expected CORS headers on error")
	}
}
