package service

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/roomie/internal/balance"
	"github.com/mmeshcher/roomie/internal/model"
)

// MemberBalance — чистый баланс пользователя в квартире.
// NonMember отмечает пользователей, которые уже покинули квартиру, но упомянуты в расходах.
type MemberBalance struct {
	User      model.User
	Net       decimal.Decimal
	NonMember bool
}

// Settlement — рекомендуемый перевод между пользователями.
type Settlement struct {
	From   model.User
	To     model.User
	Amount decimal.Decimal
}

// FlatBalance — балансы всех пользователей квартиры и общий план взаиморасчётов.
type FlatBalance struct {
	Totals      []MemberBalance
	Settlements []Settlement
}

// MyBalance — балансы квартиры и переводы с участием текущего пользователя.
type MyBalance struct {
	PerUser            []MemberBalance
	Me                 MemberBalance
	SettlementsForUser []Settlement
}

// FlatBalance рассчитывает балансы участников и общий план взаиморасчётов. Доступно только участникам.
func (s *Service) FlatBalance(ctx context.Context, userID, flatID uuid.UUID) (*FlatBalance, error) {
	f, err := s.memberFlat(ctx, userID, flatID)
	if err != nil {
		return nil, err
	}

	res, err := s.computeBalance(ctx, f)
	if err != nil {
		return nil, err
	}

	plan := balance.Settle(res.Net)
	s.checkPlan(f.ID, plan, len(res.Net))

	users, err := s.usersByID(ctx, netIDs(res.Net))
	if err != nil {
		return nil, err
	}

	return &FlatBalance{
		Totals:      memberBalances(res, users),
		Settlements: settlements(plan, users),
	}, nil
}

// MyBalance рассчитывает балансы квартиры и переводы, в которых участвует текущий пользователь.
func (s *Service) MyBalance(ctx context.Context, userID, flatID uuid.UUID) (*MyBalance, error) {
	f, err := s.memberFlat(ctx, userID, flatID)
	if err != nil {
		return nil, err
	}

	res, err := s.computeBalance(ctx, f)
	if err != nil {
		return nil, err
	}

	plan := balance.SettleFor(res.Net, userID)

	users, err := s.usersByID(ctx, netIDs(res.Net))
	if err != nil {
		return nil, err
	}

	return &MyBalance{
		PerUser:            memberBalances(res, users),
		Me:                 MemberBalance{User: users[userID], Net: res.Net[userID]},
		SettlementsForUser: settlements(plan, users),
	}, nil
}

// computeBalance загружает все расходы квартиры и сворачивает их в чистые балансы.
func (s *Service) computeBalance(ctx context.Context, f *model.Flat) (balance.Result, error) {
	expenses, err := s.repo.ListExpenses(ctx, f.ID, model.ExpenseFilter{})
	if err != nil {
		return balance.Result{}, err
	}

	ledger := make([]balance.Expense, 0, len(expenses))
	for _, e := range expenses {
		ledger = append(ledger, balance.Expense{
			ID:           e.ID,
			PaidBy:       e.PaidBy,
			SplitBetween: e.SplitBetween,
			Amount:       e.Amount,
		})
	}

	res := balance.Compute(f.MemberIDs, ledger)

	for _, w := range res.Warnings {
		s.metrics.BalanceWarnings.WithLabelValues(string(w.Kind)).Inc()
		if w.Kind == balance.WarnNonMember {
			s.logger.Debug("balance warning", zap.String("flat_id", f.ID.String()), zap.Stringer("warning", w))
			continue
		}
		s.logger.Warn("balance warning", zap.String("flat_id", f.ID.String()), zap.Stringer("warning", w))
	}

	if sum := balance.Sum(res.Net); sum.Abs().GreaterThan(balance.Tolerance(len(res.Net))) {
		s.logger.Warn("balance does not sum to zero",
			zap.String("flat_id", f.ID.String()),
			zap.String("sum", sum.String()),
		)
	}

	return res, nil
}

func (s *Service) checkPlan(flatID uuid.UUID, plan balance.Plan, n int) {
	if plan.Unmatched.GreaterThan(balance.Tolerance(n)) {
		s.metrics.SettlementResidual.Inc()
		s.logger.Warn("settlement plan left unmatched amount",
			zap.String("flat_id", flatID.String()),
			zap.String("unmatched", plan.Unmatched.String()),
		)
	}
}

// memberBalances упорядочивает балансы по убыванию, при равенстве по идентификатору.
func memberBalances(res balance.Result, users map[uuid.UUID]model.User) []MemberBalance {
	out := make([]MemberBalance, 0, len(res.Net))
	for id, net := range res.Net {
		out = append(out, MemberBalance{
			User:      users[id],
			Net:       net,
			NonMember: slices.Contains(res.NonMembers, id),
		})
	}

	slices.SortFunc(out, func(a, b MemberBalance) int {
		if c := b.Net.Cmp(a.Net); c != 0 {
			return c
		}
		return strings.Compare(a.User.ID.String(), b.User.ID.String())
	})
	return out
}

func settlements(plan balance.Plan, users map[uuid.UUID]model.User) []Settlement {
	out := make([]Settlement, 0, len(plan.Transfers))
	for _, t := range plan.Transfers {
		out = append(out, Settlement{From: users[t.From], To: users[t.To], Amount: t.Amount})
	}
	return out
}

func netIDs(net map[uuid.UUID]decimal.Decimal) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(net))
	for id := range net {
		ids = append(ids, id)
	}
	return ids
}
