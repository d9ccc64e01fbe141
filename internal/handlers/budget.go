package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"example.com/finance-tracker/internal/auth"
	"example.com/finance-tracker/internal/budget"
	"example.com/finance-tracker/internal/models"
	"example.com/finance-tracker/internal/notifications"
	"example.com/finance-tracker/internal/period"
	"example.com/finance-tracker/internal/repository"
)

type BudgetHandler struct {
	Budgets  BudgetStore
	Expenses ExpenseStore
	Notifier notifications.Publisher
}

// NewBudgetHandler создает обработчик месячного бюджета.
func NewBudgetHandler(budgets BudgetStore, expenses ExpenseStore, notifier notifications.Publisher) *BudgetHandler {
	return &BudgetHandler{
		Budgets:  budgets,
		Expenses: expenses,
		Notifier: notifier,
	}
}

type BudgetRequest struct {
	Month       string          `json:"month" validate:"omitempty,month"`
	LimitAmount decimal.Decimal `json:"limit_amount"`
}

type BudgetResponse struct {
	Month   string         `json:"month"`
	Budget  *models.Budget `json:"budget"`
	Summary budget.Summary `json:"summary"`
}

// Get возвращает бюджет месяца и разбивку трат по категориям.
func (h *BudgetHandler) Get(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	month, err := period.ResolveMonth(c.QueryParam("month"))
	if err != nil {
		return badRequest(c, err.Error())
	}

	monthBudget, err := h.Budgets.GetByMonth(c.Request().Context(), userID, month)
	if err != nil {
		return serverError(c, err)
	}

	return h.respond(c, userID, month, monthBudget)
}

// Put задает лимит на месяц: создает бюджет или обновляет существующий.
func (h *BudgetHandler) Put(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req BudgetRequest
	if message, ok := decodeRequest(c, &req); !ok {
		return badRequest(c, message)
	}

	month, err := period.ResolveMonth(req.Month)
	if err != nil {
		return badRequest(c, err.Error())
	}

	limit := req.LimitAmount.Round(2)
	if !limit.IsPositive() {
		return badRequest(c, "limit_amount must be greater than 0")
	}

	saved, err := h.Budgets.Upsert(c.Request().Context(), userID, month, limit)
	if err != nil {
		if errors.Is(err, repository.ErrInvalid) {
			return badRequest(c, "invalid budget")
		}
		return serverError(c, err)
	}

	publishEvent(h.Notifier, userID, notifications.EventBudgetUpdated, map[string]interface{}{
		"month":        month,
		"limit_amount": saved.LimitAmount.String(),
	})

	return h.respond(c, userID, month, &saved)
}

func (h *BudgetHandler) respond(c echo.Context, userID uuid.UUID, month string, monthBudget *models.Budget) error {
	from, to, err := period.MonthBounds(month)
	if err != nil {
		return badRequest(c, err.Error())
	}

	expenses, err := h.Expenses.ListByRange(c.Request().Context(), userID, from, to)
	if err != nil {
		return serverError(c, err)
	}

	return c.JSON(http.StatusOK, BudgetResponse{
		Month:   month,
		Budget:  monthBudget,
		Summary: budget.Summarize(monthBudget, expenses),
	})
}
