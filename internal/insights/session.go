package insights

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"example.com/finance-tracker/internal/ai"
	"example.com/finance-tracker/internal/models"
	"example.com/finance-tracker/internal/notifications"
	"example.com/finance-tracker/internal/period"
)

type State string

const (
	StateIdle       State = "idle"
	StateRequesting State = "requesting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// FailureMessage - единственный текст ошибки, который видит пользователь.
const FailureMessage = "Failed to generate insights. Please try again."

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrInFlight         = errors.New("insights request already in progress")
	ErrFailed           = errors.New(FailureMessage)
)

type ExpenseSource interface {
	ListByRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.Expense, error)
}

type BudgetSource interface {
	GetByMonth(ctx context.Context, userID uuid.UUID, month string) (*models.Budget, error)
}

// Snapshot - состояние сессии для отдачи клиенту.
type Snapshot struct {
	State     State        `json:"state"`
	Month     string       `json:"month,omitempty"`
	Insights  *ai.Insights `json:"insights,omitempty"`
	Error     string       `json:"error,omitempty"`
	UpdatedAt *time.Time   `json:"updated_at,omitempty"`
}

// Session - конечный автомат запроса AI-аналитики одного пользователя.
type Session struct {
	userID uuid.UUID
	deps   *Registry

	mu        sync.Mutex
	state     State
	month     string
	insights  *ai.Insights
	errorText string
	updatedAt time.Time
	dropped   bool
}

func newSession(userID uuid.UUID, deps *Registry) *Session {
	return &Session{userID: userID, deps: deps, state: StateIdle}
}

// Snapshot возвращает текущее состояние сессии.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := Snapshot{
		State:    s.state,
		Month:    s.month,
		Insights: s.insights,
		Error:    s.errorText,
	}
	if !s.updatedAt.IsZero() {
		updatedAt := s.updatedAt
		snapshot.UpdatedAt = &updatedAt
	}

	return snapshot
}

// Request собирает расходы текущего месяца, отправляет их в прокси и
// сохраняет результат. Повтор допускается из любого конечного состояния.
func (s *Session) Request(ctx context.Context) (Snapshot, error) {
	if !s.begin() {
		return s.Snapshot(), ErrInFlight
	}

	month := period.MonthOf(s.deps.now())
	insights, err := s.fetch(ctx, month)
	if err != nil {
		s.deps.logger.Error("insights request failed",
			slog.String("user_id", s.userID.String()),
			slog.String("month", month),
			slog.String("error", err.Error()),
		)
		s.finish(month, nil)
		return s.Snapshot(), ErrFailed
	}

	if s.finish(month, &insights) {
		s.deps.publish(s.userID, month, insights)
	}

	return s.Snapshot(), nil
}

func (s *Session) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRequesting {
		return false
	}

	s.state = StateRequesting
	s.errorText = ""
	s.updatedAt = s.deps.now()
	return true
}

// finish фиксирует результат и сообщает, жива ли еще сессия.
func (s *Session) finish(month string, insights *ai.Insights) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.month = month
	s.updatedAt = s.deps.now()
	if insights == nil {
		s.state = StateFailed
		s.insights = nil
		s.errorText = FailureMessage
		return !s.dropped
	}

	s.state = StateSucceeded
	s.insights = insights
	s.errorText = ""
	return !s.dropped
}

// drop отвязывает сессию от пользователя: незавершенный запрос больше ничего не публикует.
func (s *Session) drop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dropped = true
}

func (s *Session) fetch(ctx context.Context, month string) (ai.Insights, error) {
	from, to, err := period.MonthBounds(month)
	if err != nil {
		return ai.Insights{}, err
	}

	expenses, err := s.deps.expenses.ListByRange(ctx, s.userID, from, to)
	if err != nil {
		return ai.Insights{}, err
	}

	monthBudget, err := s.deps.budgets.GetByMonth(ctx, s.userID, month)
	if err != nil {
		return ai.Insights{}, err
	}

	return s.deps.proxy.Suggest(ctx, BuildRequest(expenses, monthBudget))
}

// BuildRequest формирует запрос к прокси: только категория и сумма каждого
// расхода и лимит бюджета (0, если бюджет не задан).
func BuildRequest(expenses []models.Expense, monthBudget *models.Budget) ai.InsightRequest {
	request := ai.InsightRequest{
		Expenses: make([]ai.InsightExpense, 0, len(expenses)),
	}

	for _, expense := range expenses {
		amount, _ := expense.Amount.Float64()
		request.Expenses = append(request.Expenses, ai.InsightExpense{
			Category: string(expense.Category),
			Amount:   amount,
		})
	}

	if monthBudget != nil {
		request.Budget, _ = monthBudget.LimitAmount.Float64()
	}

	return request
}

func (r *Registry) publish(userID uuid.UUID, month string, insights ai.Insights) {
	if r.events == nil {
		return
	}

	r.events.Publish(userID, notifications.Event{
		Type: notifications.EventInsightsReady,
		Data: map[string]interface{}{
			"month":  month,
			"tips":   len(insights.Tips),
			"alerts": len(insights.Alerts),
		},
	})
}
