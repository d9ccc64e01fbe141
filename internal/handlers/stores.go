package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"example.com/finance-tracker/internal/budget"
	"example.com/finance-tracker/internal/models"
	"example.com/finance-tracker/internal/repository"
)

type UserStore interface {
	Create(ctx context.Context, email, passwordHash string, name *string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (models.User, error)
}

type TokenStore interface {
	Create(ctx context.Context, token models.RefreshToken) error
	GetByID(ctx context.Context, id uuid.UUID) (models.RefreshToken, error)
	Revoke(ctx context.Context, id uuid.UUID, replacedBy *uuid.UUID) error
	Rotate(ctx context.Context, oldID uuid.UUID, newToken models.RefreshToken) error
}

type ExpenseStore interface {
	Create(ctx context.Context, userID uuid.UUID, input repository.ExpenseInput) (models.Expense, error)
	ListByRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.Expense, error)
	ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]models.Expense, error)
}

type BudgetStore interface {
	GetByMonth(ctx context.Context, userID uuid.UUID, month string) (*models.Budget, error)
	Upsert(ctx context.Context, userID uuid.UUID, month string, limit decimal.Decimal) (models.Budget, error)
}

type ReminderStore interface {
	Create(ctx context.Context, userID uuid.UUID, title string, dueDate time.Time, amount *decimal.Decimal) (models.Reminder, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.Reminder, error)
	Delete(ctx context.Context, userID, reminderID uuid.UUID) error
}

type TrendStore interface {
	MonthlyTotals(ctx context.Context, userID uuid.UUID, months []string) ([]budget.MonthTotals, error)
}
