package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"example.com/finance-tracker/internal/models"
)

const reminderColumns = `id, user_id, title, due_date, amount::text, created_at`

type ReminderRepository struct {
	db *pgxpool.Pool
}

// NewReminderRepository создает репозиторий напоминаний о платежах.
func NewReminderRepository(db *pgxpool.Pool) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// Create сохраняет напоминание.
func (r *ReminderRepository) Create(ctx context.Context, userID uuid.UUID, title string, dueDate time.Time, amount *decimal.Decimal) (models.Reminder, error) {
	if strings.TrimSpace(title) == "" {
		return models.Reminder{}, ErrInvalid
	}

	var amountValue *string
	if amount != nil {
		if amount.IsNegative() {
			return models.Reminder{}, ErrInvalid
		}
		value := amount.String()
		amountValue = &value
	}

	row := r.db.QueryRow(ctx,
		`INSERT INTO reminders (user_id, title, due_date, amount)
		 VALUES ($1, $2, $3, $4::text::numeric)
		 RETURNING `+reminderColumns,
		userID, title, dueDate, amountValue,
	)

	return scanReminder(row)
}

// List возвращает напоминания пользователя по возрастанию срока.
func (r *ReminderRepository) List(ctx context.Context, userID uuid.UUID) ([]models.Reminder, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+reminderColumns+`
		 FROM reminders
		 WHERE user_id = $1
		 ORDER BY due_date ASC, created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reminders := make([]models.Reminder, 0)
	for rows.Next() {
		reminder, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, reminder)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return reminders, nil
}

// Delete удаляет напоминание пользователя.
func (r *ReminderRepository) Delete(ctx context.Context, userID, reminderID uuid.UUID) error {
	cmd, err := r.db.Exec(ctx,
		`DELETE FROM reminders
		 WHERE id = $1 AND user_id = $2`,
		reminderID, userID,
	)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func scanReminder(row pgx.Row) (models.Reminder, error) {
	var reminder models.Reminder
	var amount *string

	err := row.Scan(&reminder.ID, &reminder.UserID, &reminder.Title, &reminder.DueDate, &amount, &reminder.CreatedAt)
	if err != nil {
		return reminder, err
	}

	if amount != nil {
		value, err := decimal.NewFromString(*amount)
		if err != nil {
			return reminder, err
		}
		reminder.Amount = &value
	}

	return reminder, nil
}
