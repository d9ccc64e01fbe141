package handlers

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"example.com/finance-tracker/internal/proxy"
)

const maxProxyBodyBytes = 1 << 20

type AIProxyHandler struct {
	Proxy *proxy.Handler
}

// NewAIProxyHandler публикует функцию AI-подсказок как HTTP-маршрут.
func NewAIProxyHandler(handler *proxy.Handler) *AIProxyHandler {
	return &AIProxyHandler{Proxy: handler}
}

// Serve передает запрос в ядро прокси и отдает его ответ как есть.
func (h *AIProxyHandler) Serve(c echo.Context) error {
	req := c.Request()

	header := c.Response().Header()
	setProxyCORS(header)

	var body []byte
	if req.Method != http.MethodOptions && req.Body != nil {
		data, err := io.ReadAll(io.LimitReader(req.Body, maxProxyBodyBytes))
		if err != nil {
			return badRequest(c, proxy.MessageInvalidPayload)
		}
		body = data
	}

	response := h.Proxy.Handle(req.Context(), req.Method, body)

	for key, value := range response.Headers() {
		header.Set(key, value)
	}

	if len(response.Body) == 0 {
		return c.NoContent(response.Status)
	}

	return c.Blob(response.Status, echo.MIMEApplicationJSON, response.Body)
}

// CORS выставляет заголовки прокси до остальных middleware маршрута,
// чтобы их получали и ответы, не дошедшие до Serve (например, 429).
func (h *AIProxyHandler) CORS(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		setProxyCORS(c.Response().Header())
		return next(c)
	}
}

func setProxyCORS(header http.Header) {
	for key, value := range proxy.CORSHeaders {
		header.Set(key, value)
	}
}
