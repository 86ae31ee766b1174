package service

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/roomie/internal/model"
	"github.com/mmeshcher/roomie/internal/validation"
)

// ExpenseInput — данные для создания расхода.
type ExpenseInput struct {
	Title        string
	Amount       decimal.Decimal
	PaidBy       uuid.UUID
	SplitBetween []uuid.UUID
	Date         time.Time
	Category     model.Category
	Notes        string
	ImageURL     string
}

// ExpenseUpdate — частичное обновление расхода. nil означает «не менять».
type ExpenseUpdate struct {
	Title        *string
	Amount       *decimal.Decimal
	PaidBy       *uuid.UUID
	SplitBetween *[]uuid.UUID
	Date         *time.Time
	Category     *model.Category
	Notes        *string
	ImageURL     *string
}

// ExpenseDetails — расход с профилями плательщика, автора и участников разделения.
type ExpenseDetails struct {
	model.Expense
	Payer        model.User
	Creator      model.User
	Participants []model.User
}

// ListExpenses возвращает расходы квартиры, начиная с последних. Доступно только участникам.
func (s *Service) ListExpenses(ctx context.Context, userID, flatID uuid.UUID) ([]ExpenseDetails, error) {
	if _, err := s.memberFlat(ctx, userID, flatID); err != nil {
		return nil, err
	}

	expenses, err := s.repo.ListExpenses(ctx, flatID, model.ExpenseFilter{})
	if err != nil {
		return nil, err
	}
	return s.expenseDetails(ctx, expenses)
}

// CreateExpense добавляет расход в квартиру. Пустой список разделения заменяется
// на всех текущих участников, поэтому сохранённые расходы всегда его содержат.
func (s *Service) CreateExpense(ctx context.Context, userID, flatID uuid.UUID, in ExpenseInput) (*ExpenseDetails, error) {
	f, err := s.memberFlat(ctx, userID, flatID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalidf("Title is required")
	}
	if !validation.IsValidAmount(in.Amount, true) {
		return nil, invalidf("Amount must be a positive number with at most two decimals")
	}
	if in.PaidBy == uuid.Nil {
		return nil, invalidf("paidBy is required")
	}
	if !f.HasMember(in.PaidBy) {
		return nil, invalidf("paidBy must be a flat member")
	}

	split := dedupe(in.SplitBetween)
	if len(split) == 0 {
		split = slices.Clone(f.MemberIDs)
	}
	for _, id := range split {
		if !f.HasMember(id) {
			return nil, invalidf("splitBetween must contain only flat members")
		}
	}

	category := in.Category
	if category == "" {
		category = model.CategoryGeneral
	}
	if !category.Valid() {
		return nil, invalidf("Unknown category %q", category)
	}

	date := in.Date
	if date.IsZero() {
		date = s.now()
	}

	e := &model.Expense{
		FlatID:       flatID,
		Title:        title,
		Amount:       in.Amount,
		PaidBy:       in.PaidBy,
		SplitBetween: split,
		Category:     category,
		Notes:        strings.TrimSpace(in.Notes),
		ImageURL:     strings.TrimSpace(in.ImageURL),
		Date:         date,
		CreatedBy:    userID,
	}
	if err := s.repo.CreateExpense(ctx, e); err != nil {
		return nil, err
	}

	details, err := s.expenseDetails(ctx, []model.Expense{*e})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// UpdateExpense частично обновляет расход. Доступно только автору расхода.
func (s *Service) UpdateExpense(ctx context.Context, userID, expenseID uuid.UUID, upd ExpenseUpdate) (*ExpenseDetails, error) {
	e, f, err := s.ownExpense(ctx, userID, expenseID)
	if err != nil {
		return nil, err
	}

	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return nil, invalidf("Title is required")
		}
		e.Title = title
	}
	if upd.Amount != nil {
		if !validation.IsValidAmount(*upd.Amount, false) {
			return nil, invalidf("Amount must be a number >= 0 with at most two decimals")
		}
		e.Amount = *upd.Amount
	}
	if upd.PaidBy != nil {
		if !f.HasMember(*upd.PaidBy) {
			return nil, invalidf("paidBy must be a flat member")
		}
		e.PaidBy = *upd.PaidBy
	}
	if upd.SplitBetween != nil {
		split := dedupe(*upd.SplitBetween)
		if len(split) == 0 {
			return nil, invalidf("splitBetween must be a non-empty array")
		}
		for _, id := range split {
			if !f.HasMember(id) {
				return nil, invalidf("splitBetween must contain only flat members")
			}
		}
		e.SplitBetween = split
	}
	if upd.Category != nil {
		if !upd.Category.Valid() {
			return nil, invalidf("Unknown category %q", *upd.Category)
		}
		e.Category = *upd.Category
	}
	if upd.Date != nil && !upd.Date.IsZero() {
		e.Date = *upd.Date
	}
	if upd.Notes != nil {
		e.Notes = strings.TrimSpace(*upd.Notes)
	}
	if upd.ImageURL != nil {
		e.ImageURL = strings.TrimSpace(*upd.ImageURL)
	}

	if err := s.repo.UpdateExpense(ctx, e); err != nil {
		return nil, err
	}

	details, err := s.expenseDetails(ctx, []model.Expense{*e})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// DeleteExpense удаляет расход. Доступно только автору расхода.
func (s *Service) DeleteExpense(ctx context.Context, userID, expenseID uuid.UUID) error {
	if _, _, err := s.ownExpense(ctx, userID, expenseID); err != nil {
		return err
	}
	return s.repo.DeleteExpense(ctx, expenseID)
}

// ownExpense загружает расход и проверяет, что пользователь состоит в квартире и является автором.
func (s *Service) ownExpense(ctx context.Context, userID, expenseID uuid.UUID) (*model.Expense, *model.Flat, error) {
	e, err := s.repo.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, nil, err
	}

	f, err := s.memberFlat(ctx, userID, e.FlatID)
	if err != nil {
		return nil, nil, err
	}

	if e.CreatedBy != userID {
		return nil, nil, ErrForbidden
	}
	return e, f, nil
}

func (s *Service) expenseDetails(ctx context.Context, expenses []model.Expense) ([]ExpenseDetails, error) {
	var ids []uuid.UUID
	for _, e := range expenses {
		ids = append(ids, e.PaidBy, e.CreatedBy)
		ids = append(ids, e.SplitBetween...)
	}

	users, err := s.usersByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	res := make([]ExpenseDetails, 0, len(expenses))
	for _, e := range expenses {
		d := ExpenseDetails{
			Expense:      e,
			Payer:        users[e.PaidBy],
			Creator:      users[e.CreatedBy],
			Participants: make([]model.User, 0, len(e.SplitBetween)),
		}
		for _, id := range e.SplitBetween {
			d.Participants = append(d.Participants, users[id])
		}
		res = append(res, d)
	}
	return res, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	res := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || slices.Contains(res, id) {
			continue
		}
		res = append(res, id)
	}
	return res
}
