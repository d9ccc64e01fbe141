package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"example.com/finance-tracker/internal/auth"
	"example.com/finance-tracker/internal/budget"
	"example.com/finance-tracker/internal/period"
)

const (
	defaultTrendMonths = 6
	maxTrendMonths     = 24
)

type StatsHandler struct {
	Stats TrendStore
}

// NewStatsHandler создает обработчик статистики.
func NewStatsHandler(stats TrendStore) *StatsHandler {
	return &StatsHandler{Stats: stats}
}

type MonthlyTrendResponse struct {
	Months []budget.TrendPoint `json:"months"`
}

// Monthly возвращает траты и лимиты по месяцам, заканчивая указанным.
func (h *StatsHandler) Monthly(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	count, err := parseMonthsCount(c.QueryParam("months"))
	if err != nil {
		return badRequest(c, err.Error())
	}

	month, err := period.ResolveMonth(c.QueryParam("month"))
	if err != nil {
		return badRequest(c, err.Error())
	}

	months, err := period.PreviousMonths(month, count)
	if err != nil {
		return badRequest(c, err.Error())
	}

	totals, err := h.Stats.MonthlyTotals(c.Request().Context(), userID, months)
	if err != nil {
		return serverError(c, err)
	}

	return c.JSON(http.StatusOK, MonthlyTrendResponse{Months: budget.MonthlyTrend(months, totals)})
}

func parseMonthsCount(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultTrendMonths, nil
	}

	count, err := strconv.Atoi(value)
	if err != nil || count <= 0 || count > maxTrendMonths {
		return 0, errors.New("months must be between 1 and 24")
	}

	return count, nil
}
