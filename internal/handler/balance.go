package handler

import (
	"net/http"
	"time"

	"github.com/mmeshcher/roomie/internal/service"
)

type flatBalanceResponse struct {
	Totals      []balanceEntryResponse `json:"totals"`
	Settlements []settlementResponse   `json:"settlements"`
}

type myBalanceResponse struct {
	PerUser            []balanceEntryResponse `json:"perUser"`
	Me                 balanceEntryResponse   `json:"me"`
	SettlementsForUser []settlementResponse   `json:"settlementsForUser"`
}

type categoryTotalResponse struct {
	Name  string `json:"name"`
	Total money  `json:"total"`
}

type dashboardResponse struct {
	Flat struct {
		ID          string    `json:"_id"`
		Name        string    `json:"name"`
		Description string    `json:"description"`
		CreatedAt   time.Time `json:"createdAt"`
	} `json:"flat"`
	Summary struct {
		MembersCount      int    `json:"membersCount"`
		MonthTotal        money  `json:"monthTotal"`
		PendingTasksCount int    `json:"pendingTasksCount"`
		MonthLabel        string `json:"monthLabel"`
	} `json:"summary"`
	RecentExpenses []expenseResponse `json:"recentExpenses"`
	Charts         struct {
		ByCategory []categoryTotalResponse `json:"byCategory"`
		ByUser     []balanceEntryResponse  `json:"byUser"`
	} `json:"charts"`
}

// FlatBalance возвращает балансы участников и план взаиморасчётов.
func (h *Handler) FlatBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	flatID, ok := pathID(w, r, "flatID")
	if !ok {
		return
	}

	b, err := h.service.FlatBalance(r.Context(), userID, flatID)
	if err != nil {
		h.writeError(w, r, err, "flat balance")
		return
	}

	writeJSON(w, http.StatusOK, flatBalanceResponse{
		Totals:      toBalanceEntries(b.Totals),
		Settlements: toSettlements(b.Settlements),
	})
}

// MyBalance возвращает баланс текущего пользователя и его переводы.
func (h *Handler) MyBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	flatID, ok := pathID(w, r, "flatID")
	if !ok {
		return
	}

	b, err := h.service.MyBalance(r.Context(), userID, flatID)
	if err != nil {
		h.writeError(w, r, err, "my balance")
		return
	}

	me := toBalanceEntries([]service.MemberBalance{b.Me})[0]
	writeJSON(w, http.StatusOK, myBalanceResponse{
		PerUser:            toBalanceEntries(b.PerUser),
		Me:                 me,
		SettlementsForUser: toSettlements(b.SettlementsForUser),
	})
}

// Dashboard возвращает сводку по квартире за текущий месяц.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	flatID, ok := pathID(w, r, "flatID")
	if !ok {
		return
	}

	d, err := h.service.Dashboard(r.Context(), userID, flatID)
	if err != nil {
		h.writeError(w, r, err, "dashboard")
		return
	}

	var res dashboardResponse
	res.Flat.ID = d.Flat.ID.String()
	res.Flat.Name = d.Flat.Name
	res.Flat.Description = d.Flat.Description
	res.Flat.CreatedAt = d.Flat.CreatedAt
	res.Summary.MembersCount = d.MembersCount
	res.Summary.MonthTotal = money(d.MonthTotal)
	res.Summary.PendingTasksCount = d.PendingTasksCount
	res.Summary.MonthLabel = d.MonthLabel
	res.RecentExpenses = toExpenses(d.RecentExpenses)
	res.Charts.ByCategory = make([]categoryTotalResponse, 0, len(d.ByCategory))
	for _, c := range d.ByCategory {
		res.Charts.ByCategory = append(res.Charts.ByCategory, categoryTotalResponse{Name: string(c.Name), Total: money(c.Total)})
	}
	res.Charts.ByUser = toBalanceEntries(d.ByUser)

	writeJSON(w, http.StatusOK, res)
}
