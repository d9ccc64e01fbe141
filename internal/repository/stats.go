package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"example.com/finance-tracker/internal/budget"
	"example.com/finance-tracker/internal/period"
)

type StatsRepository struct {
	db *pgxpool.Pool
}

// NewStatsRepository создает репозиторий статистики.
func NewStatsRepository(db *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{db: db}
}

// MonthlyTotals возвращает траты и лимит по каждому из месяцев.
// Месяцы должны идти по возрастанию.
func (r *StatsRepository) MonthlyTotals(ctx context.Context, userID uuid.UUID, months []string) ([]budget.MonthTotals, error) {
	if len(months) == 0 {
		return []budget.MonthTotals{}, nil
	}

	from, _, err := period.MonthBounds(months[0])
	if err != nil {
		return nil, ErrInvalid
	}
	_, to, err := period.MonthBounds(months[len(months)-1])
	if err != nil {
		return nil, ErrInvalid
	}

	rows, err := r.db.Query(ctx,
		`SELECT m.month,
		        COALESCE(e.spent, 0)::text,
		        b.limit_amount::text
		 FROM unnest($2::text[]) AS m(month)
		 LEFT JOIN (
		     SELECT to_char(date, 'YYYY-MM') AS month, SUM(amount) AS spent
		     FROM expenses
		     WHERE user_id = $1 AND date >= $3 AND date < $4
		     GROUP BY 1
		 ) e ON e.month = m.month
		 LEFT JOIN budgets b ON b.user_id = $1 AND b.month = m.month
		 ORDER BY m.month`,
		userID, months, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make([]budget.MonthTotals, 0, len(months))
	for rows.Next() {
		var month, spent string
		var limit *string

		if err := rows.Scan(&month, &spent, &limit); err != nil {
			return nil, err
		}

		total := budget.MonthTotals{Month: month}
		if total.Spent, err = decimal.NewFromString(spent); err != nil {
			return nil, err
		}
		if limit != nil {
			value, err := decimal.NewFromString(*limit)
			if err != nil {
				return nil, err
			}
			total.Budget = &value
		}

		totals = append(totals, total)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return totals, nil
}
