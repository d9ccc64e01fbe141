package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"example.com/finance-tracker/internal/models"
)

const budgetColumns = `id, user_id, month, limit_amount::text, spent::text, created_at, updated_at`

type BudgetRepository struct {
	db *pgxpool.Pool
}

// NewBudgetRepository создает репозиторий месячных бюджетов.
func NewBudgetRepository(db *pgxpool.Pool) *BudgetRepository {
	return &BudgetRepository{db: db}
}

// GetByMonth возвращает бюджет на месяц или nil, если он не задан.
func (r *BudgetRepository) GetByMonth(ctx context.Context, userID uuid.UUID, month string) (*models.Budget, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+budgetColumns+`
		 FROM budgets
		 WHERE user_id = $1 AND month = $2`,
		userID, month,
	)

	budget, err := scanBudget(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &budget, nil
}

// Upsert создает бюджет на месяц или обновляет лимит существующего.
func (r *BudgetRepository) Upsert(ctx context.Context, userID uuid.UUID, month string, limit decimal.Decimal) (models.Budget, error) {
	if !limit.IsPositive() {
		return models.Budget{}, ErrInvalid
	}

	row := r.db.QueryRow(ctx,
		`INSERT INTO budgets (user_id, month, limit_amount)
		 VALUES ($1, $2, $3::text::numeric)
		 ON CONFLICT (user_id, month)
		 DO UPDATE SET limit_amount = EXCLUDED.limit_amount, updated_at = NOW()
		 RETURNING `+budgetColumns,
		userID, month, limit.String(),
	)

	return scanBudget(row)
}

// ListByMonths возвращает бюджеты пользователя за указанные месяцы.
func (r *BudgetRepository) ListByMonths(ctx context.Context, userID uuid.UUID, months []string) ([]models.Budget, error) {
	if len(months) == 0 {
		return []models.Budget{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+budgetColumns+`
		 FROM budgets
		 WHERE user_id = $1 AND month = ANY($2)
		 ORDER BY month`,
		userID, months,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	budgets := make([]models.Budget, 0)
	for rows.Next() {
		budget, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, budget)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return budgets, nil
}

func scanBudget(row pgx.Row) (models.Budget, error) {
	var budget models.Budget
	var limit, spent string

	err := row.Scan(&budget.ID, &budget.UserID, &budget.Month, &limit, &spent, &budget.CreatedAt, &budget.UpdatedAt)
	if err != nil {
		return budget, err
	}

	if budget.LimitAmount, err = decimal.NewFromString(limit); err != nil {
		return budget, err
	}
	if budget.Spent, err = decimal.NewFromString(spent); err != nil {
		return budget, err
	}

	return budget, nil
}
