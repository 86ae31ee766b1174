package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/roomie/internal/model"
)

// CreateFlat создаёт квартиру и добавляет владельца в число участников в одной транзакции.
func (r *PostgresRepository) CreateFlat(ctx context.Context, f *model.Flat) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO flats (id, name, description, owner_id) VALUES ($1, $2, $3, $4) RETURNING created_at`,
		f.ID, f.Name, f.Description, f.OwnerID,
	).Scan(&f.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert flat: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO flat_members (flat_id, user_id) VALUES ($1, $2)`,
		f.ID, f.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("insert owner membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	f.MemberIDs = []uuid.UUID{f.OwnerID}
	return nil
}

// GetFlat возвращает квартиру вместе со списком участников.
func (r *PostgresRepository) GetFlat(ctx context.Context, id uuid.UUID) (*model.Flat, error) {
	var f model.Flat
	err := r.withRetry(ctx, func() error {
		f = model.Flat{}
		err := r.pool.QueryRow(ctx,
			`SELECT id, name, description, owner_id, created_at FROM flats WHERE id = $1`,
			id,
		).Scan(&f.ID, &f.Name, &f.Description, &f.OwnerID, &f.CreatedAt)
		if err != nil {
			return err
		}

		f.MemberIDs, err = r.memberIDs(ctx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFlatNotFound
		}
		return nil, fmt.Errorf("get flat: %w", err)
	}

	return &f, nil
}

func (r *PostgresRepository) memberIDs(ctx context.Context, flatID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id FROM flat_members WHERE flat_id = $1 ORDER BY joined_at, user_id`,
		flatID,
	)
	if err != nil {
		return nil, fmt.Errorf("select members: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return ids, nil
}

// ListFlatsByMember возвращает квартиры, в которых состоит пользователь, начиная с новых.
func (r *PostgresRepository) ListFlatsByMember(ctx context.Context, userID uuid.UUID) ([]model.Flat, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT f.id, f.name, f.description, f.owner_id, f.created_at
		 FROM flats f
		 JOIN flat_members m ON m.flat_id = f.id
		 WHERE m.user_id = $1
		 ORDER BY f.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select flats: %w", err)
	}
	defer rows.Close()

	var flats []model.Flat
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var f model.Flat
		if err := rows.Scan(&f.ID, &f.Name, &f.Description, &f.OwnerID, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan flat: %w", err)
		}
		index[f.ID] = len(flats)
		flats = append(flats, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if len(flats) == 0 {
		return flats, nil
	}

	memberRows, err := r.pool.Query(ctx,
		`SELECT flat_id, user_id
		 FROM flat_members
		 WHERE flat_id IN (SELECT flat_id FROM flat_members WHERE user_id = $1)
		 ORDER BY joined_at, user_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select members: %w", err)
	}
	defer memberRows.Close()

	for memberRows.Next() {
		var flatID, memberID uuid.UUID
		if err := memberRows.Scan(&flatID, &memberID); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		if i, ok := index[flatID]; ok {
			flats[i].MemberIDs = append(flats[i].MemberIDs, memberID)
		}
	}

	if err := memberRows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return flats, nil
}

// ListFlatMembers возвращает профили участников квартиры в порядке вступления.
func (r *PostgresRepository) ListFlatMembers(ctx context.Context, flatID uuid.UUID) ([]model.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.email, u.name, u.password_hash, u.created_at
		 FROM users u
		 JOIN flat_members m ON m.user_id = u.id
		 WHERE m.flat_id = $1
		 ORDER BY m.joined_at, u.id`,
		flatID,
	)
	if err != nil {
		return nil, fmt.Errorf("select flat members: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return users, nil
}

// AddFlatMember добавляет пользователя в квартиру.
func (r *PostgresRepository) AddFlatMember(ctx context.Context, flatID, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO flat_members (flat_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		flatID, userID,
	)
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyMember
	}
	return nil
}

// RemoveFlatMember исключает пользователя из квартиры. Его прошлые расходы сохраняются.
func (r *PostgresRepository) RemoveFlatMember(ctx context.Context, flatID, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM flat_members WHERE flat_id = $1 AND user_id = $2`,
		flatID, userID,
	)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return nil
}
