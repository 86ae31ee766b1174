package model

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category — категория расхода.
type Category string

const (
	CategoryGeneral       Category = "general"
	CategoryRent          Category = "rent"
	CategoryFood          Category = "food"
	CategoryBills         Category = "bills"
	CategoryTransport     Category = "transport"
	CategoryShopping      Category = "shopping"
	CategoryEntertainment Category = "entertainment"
	CategoryOther         Category = "other"
)

// Categories перечисляет допустимые категории в порядке отображения.
var Categories = []Category{
	CategoryGeneral,
	CategoryRent,
	CategoryFood,
	CategoryBills,
	CategoryTransport,
	CategoryShopping,
	CategoryEntertainment,
	CategoryOther,
}

// Valid сообщает, входит ли категория в допустимый список.
func (c Category) Valid() bool {
	return slices.Contains(Categories, c)
}

// Expense описывает общий расход квартиры.
// Amount хранится с точностью до копейки; SplitBetween не пуст для сохранённых расходов.
type Expense struct {
	ID           uuid.UUID
	FlatID       uuid.UUID
	Title        string
	Amount       decimal.Decimal
	PaidBy       uuid.UUID
	SplitBetween []uuid.UUID
	Category     Category
	Notes        string
	ImageURL     string
	Date         time.Time
	CreatedBy    uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ExpenseFilter ограничивает выборку расходов по дате и количеству.
// Нулевые значения означают отсутствие ограничения.
type ExpenseFilter struct {
	From  time.Time
	To    time.Time
	Limit int
}
