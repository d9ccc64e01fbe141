package budget

import "github.com/shopspring/decimal"

type MonthTotals struct {
	Month  string
	Spent  decimal.Decimal
	Budget *decimal.Decimal
}

type TrendPoint struct {
	Month     string          `json:"month"`
	Spent     decimal.Decimal `json:"spent"`
	Budget    decimal.Decimal `json:"budget"`
	HasBudget bool            `json:"has_budget"`
}

// MonthlyTrend выравнивает итоги по месяцам: месяцы без данных получают нули.
func MonthlyTrend(months []string, totals []MonthTotals) []TrendPoint {
	index := make(map[string]MonthTotals, len(totals))
	for _, total := range totals {
		index[total.Month] = total
	}

	points := make([]TrendPoint, 0, len(months))
	for _, month := range months {
		point := TrendPoint{Month: month, Spent: decimal.Zero, Budget: decimal.Zero}
		if total, ok := index[month]; ok {
			point.Spent = total.Spent
			if total.Budget != nil {
				point.Budget = *total.Budget
				point.HasBudget = true
			}
		}
		points = append(points, point)
	}

	return points
}
