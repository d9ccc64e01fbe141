package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryFood          Category = "Food"
	CategoryRent          Category = "Rent"
	CategoryTravel        Category = "Travel"
	CategoryShopping      Category = "Shopping"
	CategoryEntertainment Category = "Entertainment"
	CategoryOther         Category = "Other"
)

type categoryEntry struct {
	category Category
	ratio    decimal.Decimal
	color    string
}

// categoryTable - единственный источник категорий: категория не может появиться без доли и цвета.
var categoryTable = [...]categoryEntry{
	{category: CategoryFood, ratio: decimal.RequireFromString("0.25"), color: "#3b82f6"},
	{category: CategoryRent, ratio: decimal.RequireFromString("0.40"), color: "#10b981"},
	{category: CategoryTravel, ratio: decimal.RequireFromString("0.10"), color: "#f59e0b"},
	{category: CategoryShopping, ratio: decimal.RequireFromString("0.10"), color: "#ef4444"},
	{category: CategoryEntertainment, ratio: decimal.RequireFromString("0.10"), color: "#8b5cf6"},
	{category: CategoryOther, ratio: decimal.RequireFromString("0.05"), color: "#6b7280"},
}

// Categories возвращает все категории в порядке отображения.
func Categories() []Category {
	out := make([]Category, 0, len(categoryTable))
	for _, entry := range categoryTable {
		out = append(out, entry.category)
	}
	return out
}

// ParseCategory сопоставляет строку с категорией без учета регистра.
func ParseCategory(value string) (Category, bool) {
	trimmed := strings.TrimSpace(value)
	for _, entry := range categoryTable {
		if strings.EqualFold(string(entry.category), trimmed) {
			return entry.category, true
		}
	}
	return "", false
}

func (c Category) Valid() bool {
	_, ok := c.entry()
	return ok
}

// Ratio возвращает долю месячного бюджета, выделенную на категорию.
func (c Category) Ratio() decimal.Decimal {
	entry, _ := c.entry()
	return entry.ratio
}

// Color возвращает цвет категории для графиков.
func (c Category) Color() string {
	entry, _ := c.entry()
	return entry.color
}

func (c Category) entry() (categoryEntry, bool) {
	for _, entry := range categoryTable {
		if entry.category == c {
			return entry, true
		}
	}
	return categoryEntry{}, false
}
