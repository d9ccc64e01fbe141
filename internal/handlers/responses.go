package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorResponse - единый формат ошибок API.
type ErrorResponse struct {
	Error string `json:"error"`
}

func errorJSON(c echo.Context, status int, message string) error {
	return c.JSON(status, ErrorResponse{Error: message})
}

func badRequest(c echo.Context, message string) error {
	return errorJSON(c, http.StatusBadRequest, message)
}

func unauthorized(c echo.Context) error {
	return errorJSON(c, http.StatusUnauthorized, "invalid credentials")
}

func conflict(c echo.Context, message string) error {
	return errorJSON(c, http.StatusConflict, message)
}

func notFound(c echo.Context, message string) error {
	return errorJSON(c, http.StatusNotFound, message)
}

// serverError пишет причину в лог, а клиенту отдает общий текст.
func serverError(c echo.Context, causes ...error) error {
	if cause := errors.Join(causes...); cause != nil {
		slog.Error("request failed",
			slog.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			slog.String("path", c.Path()),
			slog.String("error", cause.Error()),
		)
	}
	return errorJSON(c, http.StatusInternalServerError, "internal server error")
}
