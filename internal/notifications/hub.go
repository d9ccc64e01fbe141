package notifications

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	EventExpenseCreated  = "expense_created"
	EventBudgetUpdated   = "budget_updated"
	EventReminderCreated = "reminder_created"
	EventReminderDeleted = "reminder_deleted"
	EventInsightsReady   = "insights_ready"
)

const subscriberBuffer = 16

// Publisher доставляет доменные события пользователя.
type Publisher interface {
	Publish(userID uuid.UUID, event Event)
}

type Event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

func (e *Event) stamp() {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
}

type subscription struct {
	events chan Event
	once   sync.Once
}

// Hub держит открытые SSE-потоки по пользователям. Доставка неблокирующая:
// медленный поток теряет событие, а не тормозит публикацию.
type Hub struct {
	mu      sync.RWMutex
	streams map[uuid.UUID]map[*subscription]struct{}
	dropped atomic.Int64
}

func NewHub() *Hub {
	return &Hub{streams: make(map[uuid.UUID]map[*subscription]struct{})}
}

// Subscribe регистрирует поток пользователя. Функция отписки идемпотентна и закрывает канал.
func (h *Hub) Subscribe(userID uuid.UUID) (<-chan Event, func()) {
	sub := &subscription{events: make(chan Event, subscriberBuffer)}

	h.mu.Lock()
	if h.streams[userID] == nil {
		h.streams[userID] = make(map[*subscription]struct{})
	}
	h.streams[userID][sub] = struct{}{}
	h.mu.Unlock()

	return sub.events, func() {
		sub.once.Do(func() { h.remove(userID, sub) })
	}
}

func (h *Hub) remove(userID uuid.UUID, sub *subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.streams[userID], sub)
	if len(h.streams[userID]) == 0 {
		delete(h.streams, userID)
	}
	close(sub.events)
}

func (h *Hub) Publish(userID uuid.UUID, event Event) {
	event.stamp()

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.streams[userID] {
		select {
		case sub.events <- event:
		default:
			h.dropped.Add(1)
		}
	}
}

// Subscribers возвращает число открытых потоков пользователя.
func (h *Hub) Subscribers(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.streams[userID])
}

// Dropped возвращает число событий, не доставленных из-за переполнения.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Fanout публикует событие во все заданные получатели с общей меткой времени.
type Fanout []Publisher

func (f Fanout) Publish(userID uuid.UUID, event Event) {
	event.stamp()

	for _, publisher := range f {
		if publisher != nil {
			publisher.Publish(userID, event)
		}
	}
}
