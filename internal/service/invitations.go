package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/roomie/internal/mailer"
	"github.com/mmeshcher/roomie/internal/model"
	"github.com/mmeshcher/roomie/internal/repository"
	"github.com/mmeshcher/roomie/internal/validation"
)

const inviteTokenBytes = 32

// InvitationReceipt — результат отправки приглашения.
type InvitationReceipt struct {
	InvitationID uuid.UUID
	ExpiresAt    time.Time
	MessageID    string
}

// ListInvitations возвращает ожидающие приглашения квартиры. Доступно только владельцу.
func (s *Service) ListInvitations(ctx context.Context, userID, flatID uuid.UUID) ([]model.Invitation, error) {
	if _, err := s.ownedFlat(ctx, userID, flatID); err != nil {
		return nil, err
	}
	return s.repo.ListPendingInvitations(ctx, flatID)
}

// CreateInvitation создаёт приглашение и отправляет письмо со ссылкой.
// Предыдущие ожидающие приглашения на тот же email отзываются.
func (s *Service) CreateInvitation(ctx context.Context, userID, flatID uuid.UUID, email string) (*InvitationReceipt, error) {
	email = validation.NormalizeEmail(email)
	if email == "" {
		return nil, invalidf("Email is required")
	}
	if !validation.IsValidEmail(email) {
		return nil, invalidf("Provide a valid email address.")
	}

	f, err := s.ownedFlat(ctx, userID, flatID)
	if err != nil {
		return nil, err
	}

	members, err := s.repo.ListFlatMembers(ctx, flatID)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if strings.EqualFold(m.Email, email) {
			return nil, fmt.Errorf("%w: %s", repository.ErrAlreadyMember, email)
		}
	}

	token, tokenHash, err := newInviteToken()
	if err != nil {
		return nil, err
	}

	inv := &model.Invitation{
		FlatID:    flatID,
		Email:     email,
		InvitedBy: userID,
		TokenHash: tokenHash,
		Status:    model.InvitationStatusPending,
		ExpiresAt: s.now().Add(s.opts.InviteTTL),
	}
	if err := s.repo.CreateInvitation(ctx, inv); err != nil {
		return nil, err
	}

	inviter := "Owner"
	for _, m := range members {
		if m.ID == userID {
			inviter = m.DisplayName()
		}
	}

	link := strings.TrimRight(s.opts.ClientURL, "/") + "/invite/" + token
	msg := mailer.InvitationMessage(email, f.Name, inviter, link, inv.ExpiresAt)

	messageID, err := s.mail.Send(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("send invitation email: %w", err)
	}
	s.metrics.InvitationsSent.Inc()

	s.logger.Info("invitation sent",
		zap.String("flat_id", flatID.String()),
		zap.String("invitation_id", inv.ID.String()),
		zap.String("message_id", messageID),
	)

	return &InvitationReceipt{
		InvitationID: inv.ID,
		ExpiresAt:    inv.ExpiresAt,
		MessageID:    messageID,
	}, nil
}

// RevokeInvitation отзывает ожидающее приглашение. Доступно только владельцу квартиры.
func (s *Service) RevokeInvitation(ctx context.Context, userID, invitationID uuid.UUID) error {
	inv, err := s.repo.GetInvitation(ctx, invitationID)
	if err != nil {
		return err
	}
	if _, err := s.ownedFlat(ctx, userID, inv.FlatID); err != nil {
		return err
	}
	if inv.Status != model.InvitationStatusPending {
		return fmt.Errorf("%w: invitation is %s", ErrInvitationNotPending, inv.Status)
	}
	return s.repo.RevokeInvitation(ctx, invitationID)
}

// AcceptInvitation принимает приглашение по токену из письма от имени пользователя с указанным email.
// Возвращает идентификатор квартиры.
func (s *Service) AcceptInvitation(ctx context.Context, userID uuid.UUID, email, token string) (uuid.UUID, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return uuid.Nil, invalidf("Token is required")
	}

	inv, err := s.repo.GetInvitationByTokenHash(ctx, hashToken(token))
	if err != nil {
		return uuid.Nil, err
	}

	if inv.Status != model.InvitationStatusPending {
		return uuid.Nil, fmt.Errorf("%w: invitation is %s", ErrInvitationNotPending, inv.Status)
	}

	now := s.now()
	if inv.Expired(now) {
		if _, err := s.repo.ExpireInvitations(ctx, now); err != nil {
			s.logger.Warn("mark invitations expired", zap.Error(err))
		}
		return uuid.Nil, ErrInvitationExpired
	}

	if !strings.EqualFold(inv.Email, validation.NormalizeEmail(email)) {
		return uuid.Nil, fmt.Errorf("%w: this invitation was sent to %s", ErrEmailMismatch, inv.Email)
	}

	if _, err := s.repo.GetFlat(ctx, inv.FlatID); err != nil {
		return uuid.Nil, err
	}

	if err := s.repo.AcceptInvitation(ctx, inv.ID, userID, now); err != nil {
		return uuid.Nil, err
	}
	s.metrics.InvitationsAccepted.Inc()

	return inv.FlatID, nil
}

// RunInvitationSweeper периодически переводит просроченные приглашения в статус expired.
// Возвращает nil после отмены контекста.
func (s *Service) RunInvitationSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweepInvitations(ctx)
		}
	}
}

func (s *Service) sweepInvitations(ctx context.Context) {
	n, err := s.repo.ExpireInvitations(ctx, s.now())
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("expire invitations", zap.Error(err))
		}
		return
	}
	if n > 0 {
		s.metrics.InvitationsExpired.Add(float64(n))
		s.logger.Info("invitations expired", zap.Int64("count", n))
	}
}

func newInviteToken() (token, tokenHash string, err error) {
	buf := make([]byte, inviteTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate invite token: %w", err)
	}
	token = hex.EncodeToString(buf)
	return token, hashToken(token), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
