package budget

import (
	"github.com/shopspring/decimal"

	"example.com/finance-tracker/internal/models"
)

const (
	StatusOK      = "ok"
	StatusWarning = "warning"
	StatusDanger  = "danger"
)

var (
	hundred          = decimal.NewFromInt(100)
	warningThreshold = decimal.NewFromInt(75)
	dangerThreshold  = decimal.NewFromInt(90)
)

type Summary struct {
	HasBudget       bool                `json:"has_budget"`
	Limit           decimal.Decimal     `json:"limit"`
	TotalSpent      decimal.Decimal     `json:"total_spent"`
	Remaining       decimal.Decimal     `json:"remaining"`
	SpentPercentage float64             `json:"spent_percentage"`
	Progress        float64             `json:"progress"`
	OverBudget      bool                `json:"over_budget"`
	Status          string              `json:"status"`
	Categories      []CategoryBreakdown `json:"categories"`
}

type CategoryBreakdown struct {
	Category   models.Category `json:"category"`
	Budgeted   decimal.Decimal `json:"budgeted"`
	Spent      decimal.Decimal `json:"spent"`
	Color      string          `json:"color"`
	Percentage float64         `json:"percentage"`
	Progress   float64         `json:"progress"`
	OverBudget bool            `json:"over_budget"`
	OverBy     decimal.Decimal `json:"over_by"`
	Left       decimal.Decimal `json:"left"`
}

// Summarize считает траты, остаток и разбивку по категориям для месяца.
// Отсутствующий бюджет (nil) - нормальное состояние, а не ошибка.
func Summarize(b *models.Budget, expenses []models.Expense) Summary {
	limit := decimal.Zero
	if b != nil {
		limit = b.LimitAmount
	}

	spentByCategory := SpentByCategory(expenses)
	total := TotalSpent(expenses)
	percentage := Percentage(total, limit)

	summary := Summary{
		HasBudget:       b != nil,
		Limit:           limit,
		TotalSpent:      total,
		Remaining:       limit.Sub(total),
		SpentPercentage: percentage,
		Progress:        Clamp(percentage),
		OverBudget:      b != nil && IsOverBudget(total, limit),
		Status:          status(total, limit),
		Categories:      make([]CategoryBreakdown, 0, len(models.Categories())),
	}

	for _, category := range models.Categories() {
		budgeted := limit.Mul(category.Ratio())
		spent := spentByCategory[category]
		categoryPercentage := Percentage(spent, budgeted)

		summary.Categories = append(summary.Categories, CategoryBreakdown{
			Category:   category,
			Budgeted:   budgeted,
			Spent:      spent,
			Color:      category.Color(),
			Percentage: categoryPercentage,
			Progress:   Clamp(categoryPercentage),
			OverBudget: IsOverBudget(spent, budgeted),
			OverBy:     OverBy(spent, budgeted),
			Left:       decimal.Max(budgeted.Sub(spent), decimal.Zero),
		})
	}

	return summary
}

// TotalSpent суммирует расходы; для пустого набора возвращает 0.
func TotalSpent(expenses []models.Expense) decimal.Decimal {
	total := decimal.Zero
	for _, expense := range expenses {
		total = total.Add(expense.Amount)
	}
	return total
}

// SpentByCategory группирует суммы расходов по категориям.
func SpentByCategory(expenses []models.Expense) map[models.Category]decimal.Decimal {
	out := make(map[models.Category]decimal.Decimal, len(models.Categories()))
	for _, category := range models.Categories() {
		out[category] = decimal.Zero
	}

	for _, expense := range expenses {
		current, ok := out[expense.Category]
		if !ok {
			current = decimal.Zero
		}
		out[expense.Category] = current.Add(expense.Amount)
	}

	return out
}

// Percentage возвращает spent/limit*100 или 0, если лимит не положительный.
func Percentage(spent, limit decimal.Decimal) float64 {
	if !limit.IsPositive() {
		return 0
	}

	return spent.Div(limit).Mul(hundred).InexactFloat64()
}

// Clamp ограничивает процент значением 100 для индикаторов прогресса.
func Clamp(percentage float64) float64 {
	if percentage > 100 {
		return 100
	}
	if percentage < 0 {
		return 0
	}
	return percentage
}

// IsOverBudget - строгое сравнение: равенство не считается перерасходом.
func IsOverBudget(spent, budgeted decimal.Decimal) bool {
	return spent.GreaterThan(budgeted)
}

// OverBy возвращает сумму перерасхода или 0.
func OverBy(spent, budgeted decimal.Decimal) decimal.Decimal {
	if !IsOverBudget(spent, budgeted) {
		return decimal.Zero
	}
	return spent.Sub(budgeted)
}

func status(spent, limit decimal.Decimal) string {
	if !limit.IsPositive() {
		return StatusOK
	}

	percentage := spent.Div(limit).Mul(hundred)
	switch {
	case percentage.GreaterThan(dangerThreshold):
		return StatusDanger
	case percentage.GreaterThan(warningThreshold):
		return StatusWarning
	default:
		return StatusOK
	}
}
