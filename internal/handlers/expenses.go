package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

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

const (
	defaultRecentLimit = 5
	maxRecentLimit     = 50
)

type ExpenseHandler struct {
	Expenses ExpenseStore
	Notifier notifications.Publisher
	now      func() time.Time
}

// NewExpenseHandler создает обработчик расходов.
func NewExpenseHandler(expenses ExpenseStore, notifier notifications.Publisher) *ExpenseHandler {
	return &ExpenseHandler{
		Expenses: expenses,
		Notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type ExpenseRequest struct {
	Date     string          `json:"date"`
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category" validate:"required,category"`
	Notes    *string         `json:"notes" validate:"omitempty,max=500"`
}

type ExpenseResponse struct {
	ID        uuid.UUID       `json:"id"`
	Date      string          `json:"date"`
	Amount    decimal.Decimal `json:"amount"`
	Category  models.Category `json:"category"`
	Color     string          `json:"color"`
	Notes     *string         `json:"notes,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type ExpenseListResponse struct {
	Month    string            `json:"month"`
	Total    decimal.Decimal   `json:"total"`
	Expenses []ExpenseResponse `json:"expenses"`
}

// Create сохраняет новый расход.
func (h *ExpenseHandler) Create(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req ExpenseRequest
	if message, ok := decodeRequest(c, &req); !ok {
		return badRequest(c, message)
	}

	amount := req.Amount.Round(2)
	if !amount.IsPositive() {
		return badRequest(c, "amount must be greater than 0")
	}

	category, ok := models.ParseCategory(req.Category)
	if !ok {
		return badRequest(c, "invalid category")
	}

	date, err := parseExpenseDate(req.Date, h.now())
	if err != nil {
		return badRequest(c, err.Error())
	}

	expense, err := h.Expenses.Create(c.Request().Context(), userID, repository.ExpenseInput{
		Date:     date,
		Amount:   amount,
		Category: category,
		Notes:    normalizeName(req.Notes),
	})
	if err != nil {
		if errors.Is(err, repository.ErrInvalid) {
			return badRequest(c, "invalid expense")
		}
		return serverError(c, err)
	}

	publishEvent(h.Notifier, userID, notifications.EventExpenseCreated, map[string]interface{}{
		"expense_id": expense.ID.String(),
		"month":      period.MonthOf(expense.Date),
		"category":   string(expense.Category),
		"amount":     expense.Amount.String(),
	})

	return c.JSON(http.StatusCreated, toExpenseResponse(expense))
}

// List возвращает расходы за месяц.
func (h *ExpenseHandler) List(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	month, err := period.ResolveMonth(c.QueryParam("month"))
	if err != nil {
		return badRequest(c, err.Error())
	}

	from, to, err := period.MonthBounds(month)
	if err != nil {
		return badRequest(c, err.Error())
	}

	expenses, err := h.Expenses.ListByRange(c.Request().Context(), userID, from, to)
	if err != nil {
		return serverError(c, err)
	}

	return c.JSON(http.StatusOK, ExpenseListResponse{
		Month:    month,
		Total:    budget.TotalSpent(expenses),
		Expenses: toExpenseResponses(expenses),
	})
}

// Recent возвращает последние расходы пользователя.
func (h *ExpenseHandler) Recent(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	limit, err := parseLimit(c.QueryParam("limit"), defaultRecentLimit, maxRecentLimit)
	if err != nil {
		return badRequest(c, err.Error())
	}

	expenses, err := h.Expenses.ListRecent(c.Request().Context(), userID, limit)
	if err != nil {
		return serverError(c, err)
	}

	return c.JSON(http.StatusOK, map[string][]ExpenseResponse{"expenses": toExpenseResponses(expenses)})
}

func parseExpenseDate(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}

	date, err := time.Parse(period.DateLayout, value)
	if err != nil {
		return time.Time{}, errors.New("date must be in YYYY-MM-DD format")
	}

	return date, nil
}

func parseLimit(value string, fallback, max int) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}

	limit, err := strconv.Atoi(value)
	if err != nil || limit <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}

	if limit > max {
		limit = max
	}

	return limit, nil
}

func toExpenseResponse(expense models.Expense) ExpenseResponse {
	return ExpenseResponse{
		ID:        expense.ID,
		Date:      expense.Date.Format(period.DateLayout),
		Amount:    expense.Amount,
		Category:  expense.Category,
		Color:     expense.Category.Color(),
		Notes:     expense.Notes,
		CreatedAt: expense.CreatedAt,
	}
}

func toExpenseResponses(expenses []models.Expense) []ExpenseResponse {
	response := make([]ExpenseResponse, 0, len(expenses))
	for _, expense := range expenses {
		response = append(response, toExpenseResponse(expense))
	}
	return response
}
