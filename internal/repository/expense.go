package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"example.com/finance-tracker/internal/models"
)

const expenseColumns = `id, user_id, date, amount::text, category, notes, created_at`

type ExpenseRepository struct {
	db *pgxpool.Pool
}

type ExpenseInput struct {
	Date     time.Time
	Amount   decimal.Decimal
	Category models.Category
	Notes    *string
}

// NewExpenseRepository создает репозиторий расходов.
func NewExpenseRepository(db *pgxpool.Pool) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// Create сохраняет расход пользователя.
func (r *ExpenseRepository) Create(ctx context.Context, userID uuid.UUID, input ExpenseInput) (models.Expense, error) {
	if !input.Category.Valid() || input.Amount.IsNegative() {
		return models.Expense{}, ErrInvalid
	}

	row := r.db.QueryRow(ctx,
		`INSERT INTO expenses (user_id, date, amount, category, notes)
		 VALUES ($1, $2, $3::text::numeric, $4, $5)
		 RETURNING `+expenseColumns,
		userID, input.Date, input.Amount.String(), string(input.Category), input.Notes,
	)

	return scanExpense(row)
}

// ListByRange возвращает расходы пользователя в полуинтервале [from, to).
func (r *ExpenseRepository) ListByRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.Expense, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+expenseColumns+`
		 FROM expenses
		 WHERE user_id = $1 AND date >= $2 AND date < $3
		 ORDER BY date DESC, created_at DESC`,
		userID, from, to,
	)
	if err != nil {
		return nil, err
	}

	return collectExpenses(rows)
}

// ListRecent возвращает последние расходы пользователя.
func (r *ExpenseRepository) ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]models.Expense, error) {
	if limit <= 0 {
		return []models.Expense{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+expenseColumns+`
		 FROM expenses
		 WHERE user_id = $1
		 ORDER BY date DESC, created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}

	return collectExpenses(rows)
}

func collectExpenses(rows pgx.Rows) ([]models.Expense, error) {
	defer rows.Close()

	expenses := make([]models.Expense, 0)
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, expense)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return expenses, nil
}

func scanExpense(row pgx.Row) (models.Expense, error) {
	var expense models.Expense
	var amount, category string

	err := row.Scan(&expense.ID, &expense.UserID, &expense.Date, &amount, &category, &expense.Notes, &expense.CreatedAt)
	if err != nil {
		return expense, err
	}

	expense.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return expense, err
	}
	expense.Category = models.Category(category)

	return expense, nil
}
