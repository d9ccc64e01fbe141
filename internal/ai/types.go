package ai

// InsightExpense - расход в запросе к AI: только категория и сумма, без идентификаторов.
type InsightExpense struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

type InsightRequest struct {
	Expenses []InsightExpense `json:"expenses"`
	Budget   float64          `json:"budget"`
}

type Insights struct {
	Analysis string   `json:"analysis"`
	Tips     []string `json:"tips"`
	Alerts   []string `json:"alerts"`
}
