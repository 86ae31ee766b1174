package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/roomie/internal/model"
)

// Суммы хранятся в копейках (BIGINT), в коде используются decimal.Decimal.
const centsExp = 2

// toCents переводит сумму в копейки. Суммы, не помещающиеся в int64, отклоняются.
func toCents(d decimal.Decimal) (int64, error) {
	cents := d.Shift(centsExp).Round(0)
	if !cents.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: %s", ErrAmountOutOfRange, d)
	}
	return cents.IntPart(), nil
}

func fromCents(c int64) decimal.Decimal {
	return decimal.New(c, -centsExp)
}

const expenseColumns = `e.id, e.flat_id, e.title, e.amount, e.paid_by, e.category, e.notes, e.image_url,
	e.date, e.created_by, e.created_at, e.updated_at,
	COALESCE(ARRAY(SELECT p.user_id::text FROM expense_participants p WHERE p.expense_id = e.id ORDER BY p.user_id), '{}')`

// CreateExpense сохраняет расход и список участников разделения в одной транзакции.
func (r *PostgresRepository) CreateExpense(ctx context.Context, e *model.Expense) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	cents, err := toCents(e.Amount)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO expenses (id, flat_id, title, amount, paid_by, category, notes, image_url, date, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING created_at, updated_at`,
		e.ID, e.FlatID, e.Title, cents, e.PaidBy, string(e.Category),
		e.Notes, e.ImageURL, e.Date, e.CreatedBy,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}

	if err := insertParticipants(ctx, tx, e.ID, e.SplitBetween); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func insertParticipants(ctx context.Context, tx pgx.Tx, expenseID uuid.UUID, ids []uuid.UUID) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO expense_participants (expense_id, user_id)
		 SELECT $1, unnest($2::uuid[])
		 ON CONFLICT DO NOTHING`,
		expenseID, uuidStrings(ids),
	)
	if err != nil {
		return fmt.Errorf("insert participants: %w", err)
	}
	return nil
}

// GetExpense возвращает расход по идентификатору.
func (r *PostgresRepository) GetExpense(ctx context.Context, id uuid.UUID) (*model.Expense, error) {
	var e *model.Expense
	err := r.withRetry(ctx, func() error {
		var err error
		e, err = scanExpense(r.pool.QueryRow(ctx,
			`SELECT `+expenseColumns+` FROM expenses e WHERE e.id = $1`,
			id,
		))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExpenseNotFound
		}
		return nil, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// ListExpenses возвращает расходы квартиры, начиная с последних по дате.
func (r *PostgresRepository) ListExpenses(ctx context.Context, flatID uuid.UUID, filter model.ExpenseFilter) ([]model.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses e WHERE e.flat_id = $1`
	args := []any{flatID}

	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += fmt.Sprintf(" AND e.date >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += fmt.Sprintf(" AND e.date < $%d", len(args))
	}
	query += " ORDER BY e.date DESC, e.created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	var expenses []model.Expense
	err := r.withRetry(ctx, func() error {
		expenses = nil

		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			e, err := scanExpense(rows)
			if err != nil {
				return err
			}
			expenses = append(expenses, *e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	return expenses, nil
}

// UpdateExpense перезаписывает поля расхода и заменяет список участников разделения.
func (r *PostgresRepository) UpdateExpense(ctx context.Context, e *model.Expense) error {
	cents, err := toCents(e.Amount)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`UPDATE expenses
		 SET title = $2, amount = $3, paid_by = $4, category = $5, notes = $6, image_url = $7, date = $8,
		     updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`,
		e.ID, e.Title, cents, e.PaidBy, string(e.Category), e.Notes, e.ImageURL, e.Date,
	).Scan(&e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrExpenseNotFound
		}
		return fmt.Errorf("update expense: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM expense_participants WHERE expense_id = $1`, e.ID); err != nil {
		return fmt.Errorf("delete participants: %w", err)
	}

	if err := insertParticipants(ctx, tx, e.ID, e.SplitBetween); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// DeleteExpense удаляет расход. Участники разделения удаляются каскадно.
func (r *PostgresRepository) DeleteExpense(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrExpenseNotFound
	}
	return nil
}

func scanExpense(row scanner) (*model.Expense, error) {
	var (
		e        model.Expense
		cents    int64
		category string
		split    []string
	)

	err := row.Scan(
		&e.ID, &e.FlatID, &e.Title, &cents, &e.PaidBy, &category, &e.Notes, &e.ImageURL,
		&e.Date, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt,
		&split,
	)
	if err != nil {
		return nil, err
	}

	e.Amount = fromCents(cents)
	e.Category = model.Category(category)
	e.SplitBetween = make([]uuid.UUID, 0, len(split))
	for _, s := range split {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("parse participant id %q: %w", s, err)
		}
		e.SplitBetween = append(e.SplitBetween, id)
	}

	return &e, nil
}
