package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/roomie/internal/model"
)

const invitationColumns = `id, flat_id, email, invited_by, token_hash, status, expires_at, accepted_by, accepted_at, created_at`

// CreateInvitation сохраняет приглашение. Предыдущие ожидающие приглашения
// на тот же email в ту же квартиру отзываются в той же транзакции.
func (r *PostgresRepository) CreateInvitation(ctx context.Context, inv *model.Invitation) error {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	if inv.Status == "" {
		inv.Status = model.InvitationStatusPending
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE invitations SET status = $3 WHERE flat_id = $1 AND email = $2 AND status = $4`,
		inv.FlatID, inv.Email, string(model.InvitationStatusRevoked), string(model.InvitationStatusPending),
	)
	if err != nil {
		return fmt.Errorf("revoke previous invitations: %w", err)
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO invitations (id, flat_id, email, invited_by, token_hash, status, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`,
		inv.ID, inv.FlatID, inv.Email, inv.InvitedBy, inv.TokenHash, string(inv.Status), inv.ExpiresAt,
	).Scan(&inv.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert invitation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetInvitation возвращает приглашение по идентификатору.
func (r *PostgresRepository) GetInvitation(ctx context.Context, id uuid.UUID) (*model.Invitation, error) {
	return r.getInvitation(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE id = $1`, id)
}

// GetInvitationByTokenHash возвращает приглашение по хешу токена.
func (r *PostgresRepository) GetInvitationByTokenHash(ctx context.Context, tokenHash string) (*model.Invitation, error) {
	return r.getInvitation(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE token_hash = $1`, tokenHash)
}

func (r *PostgresRepository) getInvitation(ctx context.Context, query string, arg any) (*model.Invitation, error) {
	inv, err := scanInvitation(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	return inv, nil
}

// ListPendingInvitations возвращает ожидающие приглашения квартиры, начиная с новых.
func (r *PostgresRepository) ListPendingInvitations(ctx context.Context, flatID uuid.UUID) ([]model.Invitation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+invitationColumns+` FROM invitations
		 WHERE flat_id = $1 AND status = $2
		 ORDER BY created_at DESC`,
		flatID, string(model.InvitationStatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("select invitations: %w", err)
	}
	defer rows.Close()

	var invitations []model.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		invitations = append(invitations, *inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return invitations, nil
}

// RevokeInvitation отзывает ожидающее приглашение.
func (r *PostgresRepository) RevokeInvitation(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE invitations SET status = $2 WHERE id = $1 AND status = $3`,
		id, string(model.InvitationStatusRevoked), string(model.InvitationStatusPending),
	)
	if err != nil {
		return fmt.Errorf("revoke invitation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetInvitation(ctx, id); err != nil {
			return err
		}
		return ErrInvitationNotPending
	}
	return nil
}

// AcceptInvitation добавляет пользователя в квартиру и помечает приглашение принятым
// в одной транзакции. Повторное вступление участника не считается ошибкой.
func (r *PostgresRepository) AcceptInvitation(ctx context.Context, id, userID uuid.UUID, now time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	inv, err := scanInvitation(tx.QueryRow(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE id = $1 FOR UPDATE`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvitationNotFound
		}
		return fmt.Errorf("lock invitation: %w", err)
	}

	if inv.Status != model.InvitationStatusPending {
		return ErrInvitationNotPending
	}

	if err := acceptLocked(ctx, tx, inv, userID, now); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// AcceptPendingInvitationsForEmail принимает все действующие приглашения на email
// от имени только что зарегистрированного пользователя. Возвращает идентификаторы квартир.
func (r *PostgresRepository) AcceptPendingInvitationsForEmail(ctx context.Context, email string, userID uuid.UUID, now time.Time) ([]uuid.UUID, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx,
		`SELECT `+invitationColumns+` FROM invitations
		 WHERE email = $1 AND status = $2 AND expires_at > $3
		 ORDER BY created_at
		 FOR UPDATE`,
		email, string(model.InvitationStatusPending), now,
	)
	if err != nil {
		return nil, fmt.Errorf("select pending invitations: %w", err)
	}

	var pending []*model.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		pending = append(pending, inv)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	flatIDs := make([]uuid.UUID, 0, len(pending))
	for _, inv := range pending {
		if err := acceptLocked(ctx, tx, inv, userID, now); err != nil {
			return nil, err
		}
		flatIDs = append(flatIDs, inv.FlatID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return flatIDs, nil
}

func acceptLocked(ctx context.Context, tx pgx.Tx, inv *model.Invitation, userID uuid.UUID, now time.Time) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO flat_members (flat_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		inv.FlatID, userID,
	)
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE invitations SET status = $2, accepted_by = $3, accepted_at = $4 WHERE id = $1`,
		inv.ID, string(model.InvitationStatusAccepted), userID, now,
	)
	if err != nil {
		return fmt.Errorf("mark invitation accepted: %w", err)
	}
	return nil
}

// ExpireInvitations переводит просроченные ожидающие приглашения в статус expired.
// Возвращает число обновлённых записей.
func (r *PostgresRepository) ExpireInvitations(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.withRetry(ctx, func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE invitations SET status = $1 WHERE status = $2 AND expires_at <= $3`,
			string(model.InvitationStatusExpired), string(model.InvitationStatusPending), now,
		)
		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("expire invitations: %w", err)
	}
	return n, nil
}

func scanInvitation(row scanner) (*model.Invitation, error) {
	var (
		inv    model.Invitation
		status string
	)
	err := row.Scan(
		&inv.ID, &inv.FlatID, &inv.Email, &inv.InvitedBy, &inv.TokenHash, &status,
		&inv.ExpiresAt, &inv.AcceptedBy, &inv.AcceptedAt, &inv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.Status = model.InvitationStatus(status)
	return &inv, nil
}
