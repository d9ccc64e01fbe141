package ai

import (
	"net/http"
	"time"
)

const defaultTimeout = 20 * time.Second

type clientOptions struct {
	timeout    time.Duration
	maxTokens  int
	httpClient *http.Client
}

type Option func(*clientOptions)

// WithTimeout ограничивает время одного запроса к провайдеру.
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		o.timeout = timeout
	}
}

// WithMaxTokens задает потолок размера ответа модели.
func WithMaxTokens(maxTokens int) Option {
	return func(o *clientOptions) {
		o.maxTokens = maxTokens
	}
}

// WithHTTPClient подменяет HTTP-клиент (используется в тестах).
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = client
	}
}

func buildOptions(opts []Option) clientOptions {
	options := clientOptions{timeout: defaultTimeout}
	for _, opt := range opts {
		opt(&options)
	}

	if options.timeout <= 0 {
		options.timeout = defaultTimeout
	}

	if options.httpClient == nil {
		options.httpClient = &http.Client{Timeout: options.timeout}
	}

	options.maxTokens = resolveMaxTokens(options.maxTokens)
	return options
}
