package service

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/roomie/internal/model"
)

const recentExpensesLimit = 5

// CategoryTotal — сумма расходов за месяц по категории.
type CategoryTotal struct {
	Name  model.Category
	Total decimal.Decimal
}

// Dashboard — сводка по квартире для главного экрана.
type Dashboard struct {
	Flat              model.Flat
	MembersCount      int
	MonthTotal        decimal.Decimal
	PendingTasksCount int
	MonthLabel        string
	RecentExpenses    []ExpenseDetails
	ByCategory        []CategoryTotal
	ByUser            []MemberBalance
}

// Dashboard собирает сводку по квартире за текущий календарный месяц (UTC).
// Балансы по пользователям считаются по всем расходам, а не только за месяц.
func (s *Service) Dashboard(ctx context.Context, userID, flatID uuid.UUID) (*Dashboard, error) {
	f, err := s.memberFlat(ctx, userID, flatID)
	if err != nil {
		return nil, err
	}

	start, end := monthRange(s.now())

	monthExpenses, err := s.repo.ListExpenses(ctx, flatID, model.ExpenseFilter{From: start, To: end})
	if err != nil {
		return nil, err
	}

	recent, err := s.repo.ListExpenses(ctx, flatID, model.ExpenseFilter{Limit: recentExpensesLimit})
	if err != nil {
		return nil, err
	}
	recentDetails, err := s.expenseDetails(ctx, recent)
	if err != nil {
		return nil, err
	}

	pending, err := s.repo.CountOpenTasks(ctx, flatID)
	if err != nil {
		return nil, err
	}

	res, err := s.computeBalance(ctx, f)
	if err != nil {
		return nil, err
	}
	users, err := s.usersByID(ctx, netIDs(res.Net))
	if err != nil {
		return nil, err
	}

	monthTotal := decimal.Zero
	for _, e := range monthExpenses {
		monthTotal = monthTotal.Add(e.Amount)
	}

	return &Dashboard{
		Flat:              *f,
		MembersCount:      len(f.MemberIDs),
		MonthTotal:        monthTotal,
		PendingTasksCount: pending,
		MonthLabel:        start.Format("January 2006"),
		RecentExpenses:    recentDetails,
		ByCategory:        byCategory(monthExpenses),
		ByUser:            memberBalances(res, users),
	}, nil
}

func monthRange(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// byCategory суммирует расходы по категориям, по убыванию суммы, при равенстве по названию.
func byCategory(expenses []model.Expense) []CategoryTotal {
	totals := make(map[model.Category]decimal.Decimal)
	for _, e := range expenses {
		c := e.Category
		if c == "" {
			c = model.CategoryGeneral
		}
		totals[c] = totals[c].Add(e.Amount)
	}

	out := make([]CategoryTotal, 0, len(totals))
	for c, t := range totals {
		out = append(out, CategoryTotal{Name: c, Total: t})
	}
	slices.SortFunc(out, func(a, b CategoryTotal) int {
		if c := b.Total.Cmp(a.Total); c != 0 {
			return c
		}
		return strings.Compare(string(a.Name), string(b.Name))
	})
	return out
}
