package server

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"

	"example.com/finance-tracker/internal/handlers"
)

// TestValidatorDomainTags проверяет теги category и month на запросах.
func TestValidatorDomainTags(t *testing.T) {
	v := NewValidator()

	if err := v.Validate(&handlers.ExpenseRequest{Category: "food"}); err != nil {
		t.Fatalf("expected valid category, got %v", err)
	}

	err := v.Validate(&handlers.ExpenseRequest{Category: "Gifts"})
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	if validationErrs[0].Field() != "category" {
		t.Fatalf("expected json field name, got %s", validationErrs[0].Field())
	}

	if err := v.Validate(&handlers.BudgetRequest{Month: "2024-13"}); err == nil {
		t.Fatal("expected error for invalid month")
	}
	if err := v.Validate(&handlers.BudgetRequest{}); err != nil {
		t.Fatalf("expected empty month to be allowed, got %v", err)
	}
}
