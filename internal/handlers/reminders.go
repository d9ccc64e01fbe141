package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"example.com/finance-tracker/internal/auth"
	"example.com/finance-tracker/internal/models"
	"example.com/finance-tracker/internal/notifications"
	"example.com/finance-tracker/internal/period"
	"example.com/finance-tracker/internal/repository"
)

type ReminderHandler struct {
	Reminders ReminderStore
	Notifier  notifications.Publisher
	now       func() time.Time
}

// NewReminderHandler создает обработчик напоминаний о платежах.
func NewReminderHandler(reminders ReminderStore, notifier notifications.Publisher) *ReminderHandler {
	return &ReminderHandler{
		Reminders: reminders,
		Notifier:  notifier,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type ReminderRequest struct {
	Title   string           `json:"title" validate:"required,max=200"`
	DueDate string           `json:"due_date" validate:"required"`
	Amount  *decimal.Decimal `json:"amount"`
}

type ReminderResponse struct {
	ID        uuid.UUID        `json:"id"`
	Title     string           `json:"title"`
	DueDate   string           `json:"due_date"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
	IsOverdue bool             `json:"is_overdue"`
	CreatedAt time.Time        `json:"created_at"`
}

// List возвращает напоминания пользователя по возрастанию срока.
func (h *ReminderHandler) List(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	reminders, err := h.Reminders.List(c.Request().Context(), userID)
	if err != nil {
		return serverError(c, err)
	}

	now := h.now()
	response := make([]ReminderResponse, 0, len(reminders))
	for _, reminder := range reminders {
		response = append(response, toReminderResponse(reminder, now))
	}

	return c.JSON(http.StatusOK, map[string][]ReminderResponse{"reminders": response})
}

// Create добавляет напоминание.
func (h *ReminderHandler) Create(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req ReminderRequest
	if message, ok := decodeRequest(c, &req); !ok {
		return badRequest(c, message)
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return badRequest(c, "title is required")
	}

	dueDate, err := time.Parse(period.DateLayout, strings.TrimSpace(req.DueDate))
	if err != nil {
		return badRequest(c, "due_date must be in YYYY-MM-DD format")
	}

	var amount *decimal.Decimal
	if req.Amount != nil {
		if req.Amount.IsNegative() {
			return badRequest(c, "amount must not be negative")
		}
		rounded := req.Amount.Round(2)
		amount = &rounded
	}

	reminder, err := h.Reminders.Create(c.Request().Context(), userID, title, dueDate, amount)
	if err != nil {
		if errors.Is(err, repository.ErrInvalid) {
			return badRequest(c, "invalid reminder")
		}
		return serverError(c, err)
	}

	publishEvent(h.Notifier, userID, notifications.EventReminderCreated, map[string]interface{}{
		"reminder_id": reminder.ID.String(),
		"due_date":    reminder.DueDate.Format(period.DateLayout),
	})

	return c.JSON(http.StatusCreated, toReminderResponse(reminder, h.now()))
}

// Delete удаляет напоминание пользователя.
func (h *ReminderHandler) Delete(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	reminderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid reminder id")
	}

	if err := h.Reminders.Delete(c.Request().Context(), userID, reminderID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "reminder not found")
		}
		return serverError(c, err)
	}

	publishEvent(h.Notifier, userID, notifications.EventReminderDeleted, map[string]interface{}{
		"reminder_id": reminderID.String(),
	})

	return c.NoContent(http.StatusNoContent)
}

func toReminderResponse(reminder models.Reminder, now time.Time) ReminderResponse {
	return ReminderResponse{
		ID:        reminder.ID,
		Title:     reminder.Title,
		DueDate:   reminder.DueDate.Format(period.DateLayout),
		Amount:    reminder.Amount,
		IsOverdue: reminder.IsOverdue(now),
		CreatedAt: reminder.CreatedAt,
	}
}
