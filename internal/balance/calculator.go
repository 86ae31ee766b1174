// Package balance рассчитывает чистые балансы участников квартиры по журналу расходов
// и строит жадный план взаиморасчётов.
//
// Пакет не обращается к хранилищу и не возвращает ошибок: некорректные записи
// пропускаются и попадают в список предупреждений, чтобы одна испорченная запись
// не ломала расчёт для всей квартиры.
package balance

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Epsilon — допуск округления в денежных единицах. Остаток меньше Epsilon считается погашенным.
var Epsilon = decimal.New(1, -2)

// displayPlaces — число знаков после запятой для отображаемых сумм.
const displayPlaces = 2

// Expense содержит поля расхода, необходимые для расчёта балансов.
type Expense struct {
	ID           uuid.UUID
	PaidBy       uuid.UUID
	SplitBetween []uuid.UUID
	Amount       decimal.Decimal
}

// WarningKind описывает вид проблемы, обнаруженной при расчёте.
type WarningKind string

const (
	// WarnMalformedAmount — сумма расхода отрицательна, расход пропущен.
	WarnMalformedAmount WarningKind = "malformed_amount"
	// WarnEmptySplit — у расхода нет участников разделения, расход пропущен.
	WarnEmptySplit WarningKind = "empty_split"
	// WarnNonMember — в расходе упомянут пользователь, не входящий в список участников.
	WarnNonMember WarningKind = "non_member"
)

// Warning — диагностическое сообщение расчёта.
type Warning struct {
	Kind      WarningKind
	ExpenseID uuid.UUID
	MemberID  uuid.UUID
}

func (w Warning) String() string {
	if w.Kind == WarnNonMember {
		return fmt.Sprintf("%s: member %s in expense %s", w.Kind, w.MemberID, w.ExpenseID)
	}
	return fmt.Sprintf("%s: expense %s", w.Kind, w.ExpenseID)
}

// Result — результат расчёта балансов.
type Result struct {
	// Net содержит чистый баланс каждого участника, округлённый до копеек.
	// Положительное значение означает, что участнику должны; отрицательное, что должен он.
	Net map[uuid.UUID]decimal.Decimal
	// NonMembers перечисляет пользователей из расходов, которых нет среди участников.
	NonMembers []uuid.UUID
	Warnings   []Warning
}

// Compute сворачивает журнал расходов в чистые балансы участников.
//
// Каждый участник из members присутствует в результате, даже если у него нет расходов.
// Плательщик получает полную сумму расхода, каждый участник разделения списывает равную долю.
// Доли не округляются по отдельности: округление выполняется один раз для итоговых значений.
// Расходы с отрицательной суммой или пустым списком разделения пропускаются.
func Compute(members []uuid.UUID, expenses []Expense) Result {
	net := make(map[uuid.UUID]decimal.Decimal, len(members))
	for _, m := range members {
		net[m] = decimal.Zero
	}

	var res Result
	outsiders := make(map[uuid.UUID]struct{})

	touch := func(id, expenseID uuid.UUID) {
		if _, ok := net[id]; ok {
			return
		}
		net[id] = decimal.Zero
		outsiders[id] = struct{}{}
		res.Warnings = append(res.Warnings, Warning{Kind: WarnNonMember, ExpenseID: expenseID, MemberID: id})
	}

	for _, e := range expenses {
		if e.Amount.IsNegative() {
			res.Warnings = append(res.Warnings, Warning{Kind: WarnMalformedAmount, ExpenseID: e.ID})
			continue
		}
		if len(e.SplitBetween) == 0 {
			res.Warnings = append(res.Warnings, Warning{Kind: WarnEmptySplit, ExpenseID: e.ID})
			continue
		}

		share := e.Amount.Div(decimal.NewFromInt(int64(len(e.SplitBetween))))

		touch(e.PaidBy, e.ID)
		net[e.PaidBy] = net[e.PaidBy].Add(e.Amount)

		for _, p := range e.SplitBetween {
			touch(p, e.ID)
			net[p] = net[p].Sub(share)
		}
	}

	for id, v := range net {
		net[id] = v.Round(displayPlaces)
	}
	res.Net = net

	res.NonMembers = make([]uuid.UUID, 0, len(outsiders))
	for id := range outsiders {
		res.NonMembers = append(res.NonMembers, id)
	}
	slices.SortFunc(res.NonMembers, compareIDs)

	return res
}

// Sum возвращает сумму всех балансов. Для согласованных данных она близка к нулю.
func Sum(net map[uuid.UUID]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range net {
		total = total.Add(v)
	}
	return total
}

// Tolerance возвращает допустимое расхождение суммы балансов для n участников,
// возникающее из-за независимого округления каждого баланса.
func Tolerance(n int) decimal.Decimal {
	return Epsilon.Mul(decimal.NewFromInt(int64(n)))
}

func compareIDs(a, b uuid.UUID) int {
	return strings.Compare(a.String(), b.String())
}
