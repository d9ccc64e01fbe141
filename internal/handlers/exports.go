package handlers

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"example.com/finance-tracker/internal/auth"
	"example.com/finance-tracker/internal/models"
	"example.com/finance-tracker/internal/period"
)

const timeLayout = time.RFC3339

// ExportCSV выгружает расходы месяца в CSV-файл.
func (h *ExpenseHandler) ExportCSV(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	month, err := period.ResolveMonth(c.QueryParam("month"))
	if err != nil {
		return badRequest(c, err.Error())
	}

	from, to, err := period.MonthBounds(month)
	if err != nil {
		return badRequest(c, err.Error())
	}

	expenses, err := h.Expenses.ListByRange(c.Request().Context(), userID, from, to)
	if err != nil {
		return serverError(c, err)
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writeExpensesCSV(writer, expenses); err != nil {
		return serverError(c, err)
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return serverError(c, err)
	}

	filename := "expenses-" + month + ".csv"
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=\""+filename+"\"")
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func writeExpensesCSV(writer *csv.Writer, expenses []models.Expense) error {
	header := []string{
		"expense_id",
		"date",
		"category",
		"amount",
		"notes",
		"created_at",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, expense := range expenses {
		notes := ""
		if expense.Notes != nil {
			notes = *expense.Notes
		}

		record := []string{
			expense.ID.String(),
			expense.Date.Format(period.DateLayout),
			string(expense.Category),
			expense.Amount.StringFixed(2),
			notes,
			expense.CreatedAt.Format(timeLayout),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return nil
}
