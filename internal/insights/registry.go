package insights

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"example.com/finance-tracker/internal/notifications"
)

// Registry хранит сессии AI-аналитики по пользователям.
// Создается один раз при сборке приложения и передается явно.
type Registry struct {
	expenses ExpenseSource
	budgets  BudgetSource
	proxy    Proxy
	events   notifications.Publisher
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

// NewRegistry создает реестр сессий.
func NewRegistry(expenses ExpenseSource, budgets BudgetSource, proxy Proxy, events notifications.Publisher, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		expenses: expenses,
		budgets:  budgets,
		proxy:    proxy,
		events:   events,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Session возвращает сессию пользователя, создавая ее при первом обращении.
func (r *Registry) Session(userID uuid.UUID) (*Session, error) {
	if userID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[userID]
	if !ok {
		session = newSession(userID, r)
		r.sessions[userID] = session
	}

	return session, nil
}

// Request запускает запрос аналитики для пользователя.
func (r *Registry) Request(ctx context.Context, userID uuid.UUID) (Snapshot, error) {
	session, err := r.Session(userID)
	if err != nil {
		return Snapshot{State: StateIdle}, err
	}

	return session.Request(ctx)
}

// Snapshot возвращает состояние сессии без ее создания.
func (r *Registry) Snapshot(userID uuid.UUID) (Snapshot, error) {
	if userID == uuid.Nil {
		return Snapshot{}, ErrNotAuthenticated
	}

	r.mu.Lock()
	session, ok := r.sessions[userID]
	r.mu.Unlock()

	if !ok {
		return Snapshot{State: StateIdle}, nil
	}

	return session.Snapshot(), nil
}

// Drop удаляет сессию пользователя (при выходе из системы).
// Запрос, начатый до выхода, завершится без события insights_ready.
func (r *Registry) Drop(userID uuid.UUID) {
	r.mu.Lock()
	session, ok := r.sessions[userID]
	delete(r.sessions, userID)
	r.mu.Unlock()

	if ok {
		session.drop()
	}
}

// Close удаляет все сессии.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[uuid.UUID]*Session)
	r.mu.Unlock()

	for _, session := range sessions {
		session.drop()
	}
}

// Len возвращает число активных сессий.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.sessions)
}
