package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/roomie/internal/model"
	"github.com/mmeshcher/roomie/internal/service"
)

type createExpenseRequest struct {
	Title        string          `json:"title"`
	Amount       decimal.Decimal `json:"amount"`
	PaidBy       string          `json:"paidBy"`
	SplitBetween []string        `json:"splitBetween"`
	Date         string          `json:"date"`
	Category     string          `json:"category"`
	Notes        string          `json:"notes"`
	ImageURL     string          `json:"imageUrl"`
}

type updateExpenseRequest struct {
	Title        *string          `json:"title"`
	Amount       *decimal.Decimal `json:"amount"`
	PaidBy       *string          `json:"paidBy"`
	SplitBetween *[]string        `json:"splitBetween"`
	Date         *string          `json:"date"`
	Category     *string          `json:"category"`
	Notes        *string          `json:"notes"`
	ImageURL     *string          `json:"imageUrl"`
}

// ListExpenses возвращает расходы квартиры.
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	flatID, ok := pathID(w, r, "flatID")
	if !ok {
		return
	}

	expenses, err := h.service.ListExpenses(r.Context(), userID, flatID)
	if err != nil {
		h.writeError(w, r, err, "list expenses")
		return
	}

	writeJSON(w, http.StatusOK, toExpenses(expenses))
}

// CreateExpense добавляет расход в квартиру.
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	flatID, ok := pathID(w, r, "flatID")
	if !ok {
		return
	}
	var req createExpenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in := service.ExpenseInput{
		Title:    req.Title,
		Amount:   req.Amount,
		Category: model.Category(req.Category),
		Notes:    req.Notes,
		ImageURL: req.ImageURL,
	}
	if req.PaidBy == "" {
		in.PaidBy = userID
	} else if in.PaidBy, ok = parseID(w, req.PaidBy, "paidBy"); !ok {
		return
	}
	if in.SplitBetween, ok = parseIDs(req.SplitBetween); !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid splitBetween")
		return
	}
	if in.Date, ok = parseDate(req.Date); !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid date")
		return
	}

	expense, err := h.service.CreateExpense(r.Context(), userID, flatID, in)
	if err != nil {
		h.writeError(w, r, err, "create expense")
		return
	}

	writeJSON(w, http.StatusCreated, toExpense(*expense))
}

// UpdateExpense частично обновляет расход.
func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	expenseID, ok := pathID(w, r, "expenseID")
	if !ok {
		return
	}
	var req updateExpenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	upd := service.ExpenseUpdate{
		Title:    req.Title,
		Amount:   req.Amount,
		Notes:    req.Notes,
		ImageURL: req.ImageURL,
	}
	if req.PaidBy != nil {
		id, ok := parseID(w, *req.PaidBy, "paidBy")
		if !ok {
			return
		}
		upd.PaidBy = &id
	}
	if req.SplitBetween != nil {
		ids, ok := parseIDs(*req.SplitBetween)
		if !ok {
			writeMessage(w, http.StatusBadRequest, "Invalid splitBetween")
			return
		}
		upd.SplitBetween = &ids
	}
	if req.Date != nil {
		date, ok := parseDate(*req.Date)
		if !ok || date.IsZero() {
			writeMessage(w, http.StatusBadRequest, "Invalid date")
			return
		}
		upd.Date = &date
	}
	if req.Category != nil {
		c := model.Category(*req.Category)
		upd.Category = &c
	}

	expense, err := h.service.UpdateExpense(r.Context(), userID, expenseID, upd)
	if err != nil {
		h.writeError(w, r, err, "update expense")
		return
	}

	writeJSON(w, http.StatusOK, toExpense(*expense))
}

// DeleteExpense удаляет расход.
func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	expenseID, ok := pathID(w, r, "expenseID")
	if !ok {
		return
	}

	if err := h.service.DeleteExpense(r.Context(), userID, expenseID); err != nil {
		h.writeError(w, r, err, "delete expense")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseID(w http.ResponseWriter, s, field string) (uuid.UUID, bool) {
	id, err := uuid.Parse(s)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid "+field)
		return uuid.Nil, false
	}
	return id, true
}

func optionalDate(w http.ResponseWriter, s string) (*time.Time, bool) {
	date, ok := parseDate(s)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid dueDate")
		return nil, false
	}
	if date.IsZero() {
		return nil, true
	}
	return &date, true
}
