package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/finance-tracker/internal/auth"
	"example.com/finance-tracker/internal/insights"
)

// InsightSessions управляет сессиями AI-аналитики пользователей.
type InsightSessions interface {
	Request(ctx context.Context, userID uuid.UUID) (insights.Snapshot, error)
	Snapshot(userID uuid.UUID) (insights.Snapshot, error)
}

type InsightHandler struct {
	Sessions InsightSessions
}

// NewInsightHandler создает обработчик AI-аналитики.
func NewInsightHandler(sessions InsightSessions) *InsightHandler {
	return &InsightHandler{Sessions: sessions}
}

// Request запрашивает аналитику по расходам текущего месяца.
func (h *InsightHandler) Request(c echo.Context) error {
	userID, _ := auth.UserIDFromContext(c)

	snapshot, err := h.Sessions.Request(c.Request().Context(), userID)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, snapshot)
	case errors.Is(err, insights.ErrNotAuthenticated):
		return unauthorized(c)
	case errors.Is(err, insights.ErrInFlight):
		return conflict(c, "insights request already in progress")
	case errors.Is(err, insights.ErrFailed):
		return c.JSON(http.StatusBadGateway, snapshot)
	default:
		return serverError(c, err)
	}
}

// Get возвращает текущее состояние сессии аналитики.
func (h *InsightHandler) Get(c echo.Context) error {
	userID, _ := auth.UserIDFromContext(c)

	snapshot, err := h.Sessions.Snapshot(userID)
	if err != nil {
		if errors.Is(err, insights.ErrNotAuthenticated) {
			return unauthorized(c)
		}
		return serverError(c, err)
	}

	return c.JSON(http.StatusOK, snapshot)
}
