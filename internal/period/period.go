package period

import (
	"errors"
	"strings"
	"time"
)

const (
	MonthLayout = "2006-01"
	DateLayout  = "2006-01-02"
)

var ErrInvalidMonth = errors.New("month must be in YYYY-MM format")

// ParseMonth разбирает идентификатор месяца вида YYYY-MM.
func ParseMonth(monthID string) (time.Time, error) {
	parsed, err := time.Parse(MonthLayout, strings.TrimSpace(monthID))
	if err != nil {
		return time.Time{}, ErrInvalidMonth
	}

	return parsed, nil
}

// MonthRange возвращает границы месяца [start, end): первый день месяца и первый день следующего.
func MonthRange(monthID string) (string, string, error) {
	start, end, err := MonthBounds(monthID)
	if err != nil {
		return "", "", err
	}

	return start.Format(DateLayout), end.Format(DateLayout), nil
}

// MonthBounds возвращает те же границы, что и MonthRange, в виде дат.
func MonthBounds(monthID string) (time.Time, time.Time, error) {
	start, err := ParseMonth(monthID)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	// AddDate нормализует декабрь в январь следующего года.
	return start, start.AddDate(0, 1, 0), nil
}

// CurrentMonth возвращает текущий месяц в формате YYYY-MM (UTC).
func CurrentMonth() string {
	return MonthOf(time.Now())
}

// MonthOf возвращает идентификатор месяца YYYY-MM для даты.
func MonthOf(t time.Time) string {
	return t.UTC().Format(MonthLayout)
}

// PreviousMonths возвращает n идентификаторов месяцев, заканчивая monthID, от старых к новым.
func PreviousMonths(monthID string, n int) ([]string, error) {
	if n <= 0 {
		return nil, errors.New("months count must be greater than 0")
	}

	last, err := ParseMonth(monthID)
	if err != nil {
		return nil, err
	}

	months := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		months = append(months, last.AddDate(0, -i, 0).Format(MonthLayout))
	}

	return months, nil
}

// ResolveMonth возвращает monthID, а для пустого значения текущий месяц.
func ResolveMonth(monthID string) (string, error) {
	trimmed := strings.TrimSpace(monthID)
	if trimmed == "" {
		return CurrentMonth(), nil
	}

	if _, err := ParseMonth(trimmed); err != nil {
		return "", err
	}

	return trimmed, nil
}
