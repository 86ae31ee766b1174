package balance

import (
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transfer — рекомендуемый платёж от должника кредитору.
type Transfer struct {
	From   uuid.UUID
	To     uuid.UUID
	Amount decimal.Decimal
}

// Plan — план взаиморасчётов.
type Plan struct {
	Transfers []Transfer
	// Unmatched — сумма, оставшаяся без пары после завершения сопоставления.
	// Значение больше Tolerance указывает на несогласованные входные данные.
	Unmatched decimal.Decimal
}

type party struct {
	id        uuid.UUID
	remaining decimal.Decimal
}

// Settle строит план взаиморасчётов жадным сопоставлением крупнейших должников
// с крупнейшими кредиторами. Результат детерминирован для одинаковых входных данных,
// число переводов не превышает число должников плюс число кредиторов минус один.
func Settle(net map[uuid.UUID]decimal.Decimal) Plan {
	debtors, creditors := partition(net)

	var transfers []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		d, c := debtors[i], creditors[j]

		amount := decimal.Min(d.remaining, c.remaining)
		if !settled(amount) {
			transfers = append(transfers, Transfer{
				From:   d.id,
				To:     c.id,
				Amount: amount.Round(displayPlaces),
			})
		}

		d.remaining = d.remaining.Sub(amount)
		c.remaining = c.remaining.Sub(amount)

		if settled(d.remaining) {
			i++
		}
		if settled(c.remaining) {
			j++
		}
	}

	return Plan{
		Transfers: transfers,
		Unmatched: remainingTotal(debtors).Add(remainingTotal(creditors)),
	}
}

// SettleFor строит переводы с участием одного пользователя: кому он должен заплатить,
// если его баланс отрицателен, или кто должен заплатить ему, если положителен.
// Противоположная группа перебирается в том же порядке, что и в Settle.
func SettleFor(net map[uuid.UUID]decimal.Decimal, member uuid.UUID) Plan {
	mine, ok := net[member]
	if !ok || settled(mine) {
		return Plan{Unmatched: decimal.Zero}
	}

	debtors, creditors := partition(net)
	counterparts := creditors
	if mine.IsPositive() {
		counterparts = debtors
	}

	remaining := mine.Abs()
	var transfers []Transfer
	for _, other := range counterparts {
		if settled(remaining) {
			break
		}

		amount := decimal.Min(remaining, other.remaining)
		if !settled(amount) {
			t := Transfer{From: member, To: other.id, Amount: amount.Round(displayPlaces)}
			if mine.IsPositive() {
				t.From, t.To = other.id, member
			}
			transfers = append(transfers, t)
		}
		remaining = remaining.Sub(amount)
	}

	return Plan{Transfers: transfers, Unmatched: remaining}
}

// partition делит участников на должников и кредиторов, отбрасывая погашенные балансы.
// Обе группы отсортированы по убыванию модуля баланса, затем по идентификатору.
func partition(net map[uuid.UUID]decimal.Decimal) (debtors, creditors []*party) {
	for id, v := range net {
		if settled(v) {
			continue
		}
		p := &party{id: id, remaining: v.Abs()}
		if v.IsNegative() {
			debtors = append(debtors, p)
		} else {
			creditors = append(creditors, p)
		}
	}

	slices.SortFunc(debtors, compareParties)
	slices.SortFunc(creditors, compareParties)

	return debtors, creditors
}

func compareParties(a, b *party) int {
	if c := b.remaining.Cmp(a.remaining); c != 0 {
		return c
	}
	return compareIDs(a.id, b.id)
}

func settled(v decimal.Decimal) bool {
	return v.Abs().LessThan(Epsilon)
}

func remainingTotal(parties []*party) decimal.Decimal {
	total := decimal.Zero
	for _, p := range parties {
		total = total.Add(p.remaining)
	}
	return total
}
