package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"example.com/finance-tracker/internal/auth"
	"example.com/finance-tracker/internal/budget"
	"example.com/finance-tracker/internal/models"
	"example.com/finance-tracker/internal/period"
)

const dashboardTrendMonths = 6

type DashboardHandler struct {
	Budgets  BudgetStore
	Expenses ExpenseStore
	Trend    TrendStore
}

// NewDashboardHandler создает обработчик главной страницы.
func NewDashboardHandler(budgets BudgetStore, expenses ExpenseStore, trend TrendStore) *DashboardHandler {
	return &DashboardHandler{
		Budgets:  budgets,
		Expenses: expenses,
		Trend:    trend,
	}
}

type DashboardResponse struct {
	Month   string              `json:"month"`
	Summary budget.Summary      `json:"summary"`
	Recent  []ExpenseResponse   `json:"recent"`
	Trend   []budget.TrendPoint `json:"trend"`
}

// Get собирает сводку месяца, последние расходы и динамику за полгода.
// Независимые чтения выполняются параллельно.
func (h *DashboardHandler) Get(c echo.Context) error {
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

	months, err := period.PreviousMonths(month, dashboardTrendMonths)
	if err != nil {
		return badRequest(c, err.Error())
	}

	var (
		monthBudget *models.Budget
		expenses    []models.Expense
		recent      []models.Expense
		totals      []budget.MonthTotals
	)

	group, ctx := errgroup.WithContext(c.Request().Context())
	group.Go(func() error {
		var err error
		monthBudget, err = h.Budgets.GetByMonth(ctx, userID, month)
		return err
	})
	group.Go(func() error {
		var err error
		expenses, err = h.Expenses.ListByRange(ctx, userID, from, to)
		return err
	})
	group.Go(func() error {
		var err error
		recent, err = h.Expenses.ListRecent(ctx, userID, defaultRecentLimit)
		return err
	})
	group.Go(func() error {
		var err error
		totals, err = h.Trend.MonthlyTotals(ctx, userID, months)
		return err
	})

	if err := group.Wait(); err != nil {
		return serverError(c, err)
	}

	return c.JSON(http.StatusOK, DashboardResponse{
		Month:   month,
		Summary: budget.Summarize(monthBudget, expenses),
		Recent:  toExpenseResponses(recent),
		Trend:   budget.MonthlyTrend(months, totals),
	})
}
