package main

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"example.com/finance-tracker/internal/proxy"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	handler := proxy.NewHandler(proxy.LoadClient, logger)
	lambda.Start(newLambdaHandler(handler))
}

func newLambdaHandler(handler *proxy.Handler) func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return func(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		body := []byte(request.Body)
		if request.IsBase64Encoded {
			decoded, err := base64.StdEncoding.DecodeString(request.Body)
			if err != nil {
				return toGatewayResponse(proxy.Response{
					Status: http.StatusBadRequest,
					Body:   []byte(`{"error":"` + proxy.MessageInvalidPayload + `"}`),
				}), nil
			}
			body = decoded
		}

		return toGatewayResponse(handler.Handle(ctx, request.HTTPMethod, body)), nil
	}
}

func toGatewayResponse(response proxy.Response) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: response.Status,
		Headers:    response.Headers(),
		Body:       string(response.Body),
	}
}
