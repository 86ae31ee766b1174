package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/roomie/internal/model"
)

const taskColumns = `id, flat_id, title, description, created_by, assigned_to, status, due_date, image_url, created_at, updated_at`

// CreateTask сохраняет новую задачу.
func (r *PostgresRepository) CreateTask(ctx context.Context, t *model.Task) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = model.TaskStatusPending
	}

	err := r.pool.QueryRow(ctx,
		`INSERT INTO tasks (id, flat_id, title, description, created_by, assigned_to, status, due_date, image_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at, updated_at`,
		t.ID, t.FlatID, t.Title, t.Description, t.CreatedBy, t.AssignedTo, string(t.Status), t.DueDate, t.ImageURL,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// GetTask возвращает задачу по идентификатору.
func (r *PostgresRepository) GetTask(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// ListTasks возвращает задачи квартиры, начиная с новых.
func (r *PostgresRepository) ListTasks(ctx context.Context, flatID uuid.UUID) ([]model.Task, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE flat_id = $1 ORDER BY created_at DESC`,
		flatID,
	)
	if err != nil {
		return nil, fmt.Errorf("select tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return tasks, nil
}

// UpdateTask перезаписывает изменяемые поля задачи.
func (r *PostgresRepository) UpdateTask(ctx context.Context, t *model.Task) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE tasks
		 SET title = $2, description = $3, assigned_to = $4, status = $5, due_date = $6, image_url = $7,
		     updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`,
		t.ID, t.Title, t.Description, t.AssignedTo, string(t.Status), t.DueDate, t.ImageURL,
	).Scan(&t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// DeleteTask удаляет задачу.
func (r *PostgresRepository) DeleteTask(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// CountOpenTasks возвращает число невыполненных задач квартиры.
func (r *PostgresRepository) CountOpenTasks(ctx context.Context, flatID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM tasks WHERE flat_id = $1 AND status IN ($2, $3)`,
		flatID, string(model.TaskStatusPending), string(model.TaskStatusDoing),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count open tasks: %w", err)
	}
	return n, nil
}

func scanTask(row scanner) (*model.Task, error) {
	var (
		t      model.Task
		status string
	)
	err := row.Scan(
		&t.ID, &t.FlatID, &t.Title, &t.Description, &t.CreatedBy, &t.AssignedTo,
		&status, &t.DueDate, &t.ImageURL, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Status = model.TaskStatus(status)
	return &t, nil
}
