package insights

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"example.com/finance-tracker/internal/ai"
	"example.com/finance-tracker/internal/models"
	"example.com/finance-tracker/internal/notifications"
	"example.com/finance-tracker/internal/proxy"
)

type fakeExpenses struct {
	items    []models.Expense
	err      error
	from, to time.Time
}

func (f *fakeExpenses) ListByRange(_ context.Context, _ uuid.UUID, from, to time.Time) ([]models.Expense, error) {
	f.from, f.to = from, to
	return f.items, f.err
}

type fakeBudgets struct {
	budget *models.Budget
	month  string
}

func (f *fakeBudgets) GetByMonth(_ context.Context, _ uuid.UUID, month string) (*models.Budget, error) {
	f.month = month
	return f.budget, nil
}

type fakeProxy struct {
	mu       sync.Mutex
	insights ai.Insights
	err      error
	calls    int
	request  ai.InsightRequest
	block    chan struct{}
}

func (f *fakeProxy) Suggest(_ context.Context, request ai.InsightRequest) (ai.Insights, error) {
	f.mu.Lock()
	f.calls++
	f.request = request
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	return f.insights, f.err
}

type recordingEvents struct {
	events []notifications.Event
}

func (r *recordingEvents) Publish(_ uuid.UUID, event notifications.Event) {
	r.events = append(r.events, event)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRegistry(p Proxy, events notifications.Publisher) (*Registry, *fakeExpenses, *fakeBudgets) {
	notes := "dinner"
	expenses := &fakeExpenses{items: []models.Expense{
		{ID: uuid.New(), Category: models.CategoryFood, Amount: decimal.RequireFromString("450"), Notes: &notes},
		{ID: uuid.New(), Category: models.CategoryRent, Amount: decimal.RequireFromString("100.5")},
	}}
	budgets := &fakeBudgets{budget: &models.Budget{LimitAmount: decimal.RequireFromString("600")}}

	registry := NewRegistry(expenses, budgets, p, events, quietLogger())
	registry.now = func() time.Time { return time.Date(2024, time.December, 15, 10, 0, 0, 0, time.UTC) }
	return registry, expenses, budgets
}

// TestRequestNotAuthenticated проверяет отказ без пользователя и без обращения к прокси.
func TestRequestNotAuthenticated(t *testing.T) {
	p := &fakeProxy{}
	registry, _, _ := newTestRegistry(p, nil)

	_, err := registry.Request(context.Background(), uuid.Nil)
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if err.Error() != "not authenticated" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if p.calls != 0 {
		t.Fatal("expected no proxy call")
	}
	if registry.Len() != 0 {
		t.Fatal("expected no session to be created")
	}
}

// TestRequestSuccess проверяет переход в succeeded и состав запроса.
func TestRequestSuccess(t *testing.T) {
	p := &fakeProxy{insights: ai.Insights{Analysis: "ok", Tips: []string{"a", "b", "c"}, Alerts: []string{}}}
	events := &recordingEvents{}
	registry, expenses, budgets := newTestRegistry(p, events)
	userID := uuid.New()

	snapshot, err := registry.Request(context.Background(), userID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if snapshot.State != StateSucceeded || snapshot.Insights == nil || snapshot.Insights.Analysis != "ok" {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}
	if snapshot.Month != "2024-12" || budgets.month != "2024-12" {
		t.Fatalf("expected current month, got %s and %s", snapshot.Month, budgets.month)
	}
	if expenses.from.Format("2006-01-02") != "2024-12-01" || expenses.to.Format("2006-01-02") != "2025-01-01" {
		t.Fatalf("unexpected range %v - %v", expenses.from, expenses.to)
	}

	if p.request.Budget != 600 || len(p.request.Expenses) != 2 {
		t.Fatalf("unexpected request %+v", p.request)
	}
	if p.request.Expenses[1].Category != "Rent" || p.request.Expenses[1].Amount != 100.5 {
		t.Fatalf("unexpected expense %+v", p.request.Expenses[1])
	}

	if len(events.events) != 1 || events.events[0].Type != notifications.EventInsightsReady {
		t.Fatalf("expected insights_ready event, got %+v", events.events)
	}
}

// TestRequestFailureCollapses проверяет единый текст ошибки для любых причин.
func TestRequestFailureCollapses(t *testing.T) {
	causes := []error{
		errors.New("connection refused"),
		&ReplyError{Status: http.StatusInternalServerError, Message: "AI service request failed"},
		ai.ValidateInsights(ai.Insights{Analysis: "x", Tips: []string{}}),
	}

	for _, cause := range causes {
		p := &fakeProxy{err: cause}
		events := &recordingEvents{}
		registry, _, _ := newTestRegistry(p, events)

		snapshot, err := registry.Request(context.Background(), uuid.New())
		if !errors.Is(err, ErrFailed) {
			t.Fatalf("expected ErrFailed, got %v", err)
		}
		if snapshot.State != StateFailed || snapshot.Error != FailureMessage || snapshot.Insights != nil {
			t.Fatalf("unexpected snapshot %+v", snapshot)
		}
		if len(events.events) != 0 {
			t.Fatal("expected no events on failure")
		}
	}
}

// TestRequestDataSourceFailure проверяет переход в failed при ошибке чтения расходов.
func TestRequestDataSourceFailure(t *testing.T) {
	p := &fakeProxy{}
	registry, expenses, _ := newTestRegistry(p, nil)
	expenses.err = errors.New("db down")

	snapshot, err := registry.Request(context.Background(), uuid.New())
	if !errors.Is(err, ErrFailed) || snapshot.State != StateFailed {
		t.Fatalf("expected failed state, got %+v (%v)", snapshot, err)
	}
	if p.calls != 0 {
		t.Fatal("expected no proxy call")
	}
}

// TestRequestRetryAfterFailure проверяет повтор из состояния failed.
func TestRequestRetryAfterFailure(t *testing.T) {
	p := &fakeProxy{err: errors.New("timeout")}
	registry, _, _ := newTestRegistry(p, nil)
	userID := uuid.New()

	if _, err := registry.Request(context.Background(), userID); !errors.Is(err, ErrFailed) {
		t.Fatalf("expected ErrFailed, got %v", err)
	}

	p.err = nil
	p.insights = ai.Insights{Analysis: "ok", Tips: []string{"t"}, Alerts: []string{"a"}}

	snapshot, err := registry.Request(context.Background(), userID)
	if err != nil || snapshot.State != StateSucceeded || snapshot.Error != "" {
		t.Fatalf("expected succeeded, got %+v (%v)", snapshot, err)
	}
}

// TestRequestSingleFlight проверяет отказ второго запроса во время первого.
func TestRequestSingleFlight(t *testing.T) {
	p := &fakeProxy{
		insights: ai.Insights{Analysis: "ok", Tips: []string{}, Alerts: []string{}},
		block:    make(chan struct{}),
	}
	registry, _, _ := newTestRegistry(p, nil)
	userID := uuid.New()

	done := make(chan error, 1)
	go func() {
		_, err := registry.Request(context.Background(), userID)
		done <- err
	}()

	deadline := time.After(time.Second)
	for {
		snapshot, _ := registry.Snapshot(userID)
		if snapshot.State == StateRequesting {
			break
		}
		select {
		case <-deadline:
			t.Fatal("expected session to enter requesting state")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if _, err := registry.Request(context.Background(), userID); !errors.Is(err, ErrInFlight) {
		t.Fatalf("expected ErrInFlight, got %v", err)
	}

	close(p.block)
	if err := <-done; err != nil {
		t.Fatalf("expected first request to succeed, got %v", err)
	}
	if p.calls != 1 {
		t.Fatalf("expected one proxy call, got %d", p.calls)
	}
}

// TestDropResetsSession проверяет сброс сессии при выходе пользователя.
func TestDropResetsSession(t *testing.T) {
	p := &fakeProxy{insights: ai.Insights{Analysis: "ok", Tips: []string{}, Alerts: []string{}}}
	registry, _, _ := newTestRegistry(p, nil)
	userID := uuid.New()

	if _, err := registry.Request(context.Background(), userID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	registry.Drop(userID)

	snapshot, err := registry.Snapshot(userID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if snapshot.State != StateIdle || snapshot.Insights != nil {
		t.Fatalf("expected idle snapshot, got %+v", snapshot)
	}
	if registry.Len() != 0 {
		t.Fatal("expected no sessions")
	}
}

// TestDropDuringRequest проверяет, что запрос, начатый до выхода, не публикует результат.
func TestDropDuringRequest(t *testing.T) {
	p := &fakeProxy{
		insights: ai.Insights{Analysis: "ok", Tips: []string{}, Alerts: []string{}},
		block:    make(chan struct{}),
	}
	events := &recordingEvents{}
	registry, _, _ := newTestRegistry(p, events)
	userID := uuid.New()

	done := make(chan error, 1)
	go func() {
		_, err := registry.Request(context.Background(), userID)
		done <- err
	}()

	deadline := time.After(time.Second)
	for {
		snapshot, _ := registry.Snapshot(userID)
		if snapshot.State == StateRequesting {
			break
		}
		select {
		case <-deadline:
			t.Fatal("expected session to enter requesting state")
		case <-time.After(5 * time.Millisecond):
		}
	}

	registry.Drop(userID)
	close(p.block)
	if err := <-done; err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(events.events) != 0 {
		t.Fatalf("expected no events after drop, got %d", len(events.events))
	}
	if snapshot, _ := registry.Snapshot(userID); snapshot.State != StateIdle {
		t.Fatalf("expected idle state after drop, got %s", snapshot.State)
	}
}

// TestBuildRequestWithoutBudget проверяет нулевой бюджет при его отсутствии.
func TestBuildRequestWithoutBudget(t *testing.T) {
	request := BuildRequest(nil, nil)
	if request.Budget != 0 || request.Expenses == nil || len(request.Expenses) != 0 {
		t.Fatalf("unexpected request %+v", request)
	}
}

// TestLocalProxyRoundTrip проверяет работу сессии через локальный обработчик прокси.
func TestLocalProxyRoundTrip(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"analysis\":\"fine\",\"tips\":[\"save\"],\"alerts\":[]}"}}]}`))
	}))
	defer upstream.Close()

	settings := proxy.Settings{Provider: ai.ProviderOpenRouter, APIKey: "key", BaseURL: upstream.URL, Model: "m"}
	local := NewLocalProxy(proxy.NewHandler(settings.Client, quietLogger()))

	insights, err := local.Suggest(context.Background(), ai.InsightRequest{Budget: 100})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if insights.Analysis != "fine" || len(insights.Tips) != 1 || insights.Alerts == nil {
		t.Fatalf("unexpected insights %+v", insights)
	}
}

// TestLocalProxyMissingKey проверяет, что ошибка прокси становится ReplyError.
func TestLocalProxyMissingKey(t *testing.T) {
	settings := proxy.Settings{Provider: ai.ProviderOpenRouter}
	local := NewLocalProxy(proxy.NewHandler(settings.Client, quietLogger()))

	_, err := local.Suggest(context.Background(), ai.InsightRequest{})
	var replyErr *ReplyError
	if !errors.As(err, &replyErr) || replyErr.Status != http.StatusInternalServerError {
		t.Fatalf("expected ReplyError, got %v", err)
	}
	if replyErr.Message != proxy.MessageKeyMissing {
		t.Fatalf("unexpected message %q", replyErr.Message)
	}
}

// TestHTTPProxyReplies проверяет разбор ответов развернутого прокси.
func TestHTTPProxyReplies(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		ok     bool
	}{
		{name: "success", status: http.StatusOK, body: `{"analysis":"a","tips":["t"],"alerts":[]}`, ok: true},
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":"AI response invalid"}`},
		{name: "error in body", status: http.StatusOK, body: `{"error":"quota"}`},
		{name: "missing alerts", status: http.StatusOK, body: `{"analysis":"a","tips":["t"]}`},
		{name: "not json", status: http.StatusOK, body: `<html>`},
	}

	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
				t.Errorf("%s: unexpected request %s %s", tc.name, r.Method, r.Header.Get("Content-Type"))
			}
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(tc.body))
		}))

		_, err := NewHTTPProxy(server.URL, time.Second).Suggest(context.Background(), ai.InsightRequest{})
		server.Close()

		if tc.ok && err != nil {
			t.Fatalf("%s: expected no error, got %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}
