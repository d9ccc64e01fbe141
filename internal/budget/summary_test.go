package budget

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"example.com/finance-tracker/internal/models"
)

func expense(category models.Category, amount string) models.Expense {
	return models.Expense{Category: category, Amount: decimal.RequireFromString(amount)}
}

func findCategory(t *testing.T, summary Summary, category models.Category) CategoryBreakdown {
	t.Helper()
	for _, item := range summary.Categories {
		if item.Category == category {
			return item
		}
	}
	t.Fatalf("category %s not found", category)
	return CategoryBreakdown{}
}

// TestTotalSpent проверяет сумму расходов и ноль для пустого набора.
func TestTotalSpent(t *testing.T) {
	if !TotalSpent(nil).IsZero() {
		t.Fatal("expected zero for empty set")
	}

	got := TotalSpent([]models.Expense{
		expense(models.CategoryFood, "10.10"),
		expense(models.CategoryRent, "0.20"),
		expense(models.CategoryOther, "5"),
	})
	if !got.Equal(decimal.RequireFromString("15.30")) {
		t.Fatalf("expected 15.30, got %s", got)
	}
}

// TestSummarizeWithoutBudget проверяет, что отсутствие бюджета не ломает расчет.
func TestSummarizeWithoutBudget(t *testing.T) {
	summary := Summarize(nil, []models.Expense{expense(models.CategoryFood, "40")})

	if summary.HasBudget {
		t.Fatal("expected no budget")
	}
	if summary.SpentPercentage != 0 || math.IsNaN(summary.SpentPercentage) {
		t.Fatalf("expected 0 percentage, got %v", summary.SpentPercentage)
	}
	if !summary.Remaining.Equal(decimal.NewFromInt(-40)) {
		t.Fatalf("expected remaining -40, got %s", summary.Remaining)
	}
	if summary.OverBudget {
		t.Fatal("missing budget must not be reported as over budget")
	}

	food := findCategory(t, summary, models.CategoryFood)
	if food.Percentage != 0 || math.IsInf(food.Percentage, 0) {
		t.Fatalf("expected 0 category percentage, got %v", food.Percentage)
	}
}

// TestSummarizeZeroBudget проверяет защиту от деления на ноль.
func TestSummarizeZeroBudget(t *testing.T) {
	summary := Summarize(&models.Budget{LimitAmount: decimal.Zero}, []models.Expense{expense(models.CategoryFood, "1")})

	if !summary.HasBudget {
		t.Fatal("expected zero budget to be distinguished from missing budget")
	}
	if summary.SpentPercentage != 0 {
		t.Fatalf("expected 0 percentage, got %v", summary.SpentPercentage)
	}
}

// TestSummarizeCategoryOverBudget проверяет пример Food: 600 * 0.25 = 150, потрачено 200.
func TestSummarizeCategoryOverBudget(t *testing.T) {
	summary := Summarize(
		&models.Budget{LimitAmount: decimal.NewFromInt(600)},
		[]models.Expense{expense(models.CategoryFood, "120"), expense(models.CategoryFood, "80")},
	)

	food := findCategory(t, summary, models.CategoryFood)
	if !food.Budgeted.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected budgeted 150, got %s", food.Budgeted)
	}
	if !food.OverBudget {
		t.Fatal("expected food to be over budget")
	}
	if !food.OverBy.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected over by 50, got %s", food.OverBy)
	}
	if food.Progress != 100 {
		t.Fatalf("expected progress clamped to 100, got %v", food.Progress)
	}
	if math.Abs(food.Percentage-133.333) > 0.01 {
		t.Fatalf("expected unclamped percentage ~133.33, got %v", food.Percentage)
	}
	if !food.Left.IsZero() {
		t.Fatalf("expected nothing left, got %s", food.Left)
	}

	if !summary.TotalSpent.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected total 200, got %s", summary.TotalSpent)
	}
	if !summary.Remaining.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("expected remaining 400, got %s", summary.Remaining)
	}
}

// TestIsOverBudgetStrict проверяет, что равенство не является перерасходом.
func TestIsOverBudgetStrict(t *testing.T) {
	equal := decimal.NewFromInt(150)
	if IsOverBudget(equal, equal) {
		t.Fatal("exactly equal must not be over budget")
	}
	if !OverBy(equal, equal).IsZero() {
		t.Fatal("expected zero over amount")
	}

	summary := Summarize(&models.Budget{LimitAmount: decimal.NewFromInt(100)}, []models.Expense{expense(models.CategoryRent, "100")})
	if summary.OverBudget {
		t.Fatal("total equal to limit must not be over budget")
	}
	if summary.SpentPercentage != 100 {
		t.Fatalf("expected 100 percent, got %v", summary.SpentPercentage)
	}
	if summary.Status != StatusDanger {
		t.Fatalf("expected danger status, got %s", summary.Status)
	}
}

// TestSummarizeBreakdownOrder проверяет полный набор категорий и сумму плановых долей.
func TestSummarizeBreakdownOrder(t *testing.T) {
	summary := Summarize(&models.Budget{LimitAmount: decimal.NewFromInt(2500)}, nil)

	if len(summary.Categories) != len(models.Categories()) {
		t.Fatalf("expected %d categories, got %d", len(models.Categories()), len(summary.Categories))
	}

	total := decimal.Zero
	for i, item := range summary.Categories {
		if item.Category != models.Categories()[i] {
			t.Fatalf("unexpected order at %d: %s", i, item.Category)
		}
		total = total.Add(item.Budgeted)
	}

	if !total.Equal(decimal.NewFromInt(2500)) {
		t.Fatalf("expected budgeted total 2500, got %s", total)
	}
	if summary.Status != StatusOK {
		t.Fatalf("expected ok status, got %s", summary.Status)
	}
}

// TestStatusThresholds проверяет пороги предупреждений.
func TestStatusThresholds(t *testing.T) {
	limit := decimal.NewFromInt(100)
	if got := status(decimal.NewFromInt(75), limit); got != StatusOK {
		t.Fatalf("expected ok at 75%%, got %s", got)
	}
	if got := status(decimal.NewFromInt(80), limit); got != StatusWarning {
		t.Fatalf("expected warning at 80%%, got %s", got)
	}
	if got := status(decimal.NewFromInt(91), limit); got != StatusDanger {
		t.Fatalf("expected danger at 91%%, got %s", got)
	}
}

// TestMonthlyTrend проверяет заполнение пропущенных месяцев.
func TestMonthlyTrend(t *testing.T) {
	limit := decimal.NewFromInt(500)
	points := MonthlyTrend(
		[]string{"2025-01", "2025-02"},
		[]MonthTotals{{Month: "2025-02", Spent: decimal.NewFromInt(120), Budget: &limit}},
	)

	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if !points[0].Spent.IsZero() || points[0].HasBudget {
		t.Fatalf("expected empty first month, got %+v", points[0])
	}
	if !points[1].Budget.Equal(limit) || !points[1].HasBudget {
		t.Fatalf("unexpected second month %+v", points[1])
	}
}
