package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/roomie/internal/model"
	"github.com/mmeshcher/roomie/internal/repository"
	"github.com/mmeshcher/roomie/internal/validation"
)

// RegisterUser регистрирует нового пользователя и принимает ожидающие приглашения на его email.
func (s *Service) RegisterUser(ctx context.Context, email, password, name string) (*model.User, error) {
	email = validation.NormalizeEmail(email)
	name = strings.TrimSpace(name)

	if email == "" || password == "" || name == "" {
		return nil, invalidf("Provide email, password and name")
	}
	if !validation.IsValidEmail(email) {
		return nil, invalidf("Provide a valid email address.")
	}
	if !validation.IsStrongPassword(password) {
		return nil, invalidf("Password must have at least %d characters and contain at least one number, one lowercase and one uppercase letter.", validation.MinPasswordLength)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{
		Email:        email,
		Name:         name,
		PasswordHash: hashed,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	flatIDs, err := s.repo.AcceptPendingInvitationsForEmail(ctx, u.Email, u.ID, s.now())
	if err != nil {
		s.logger.Warn("accept pending invitations on signup", zap.Error(err), zap.String("email", u.Email))
	} else if len(flatIDs) > 0 {
		s.metrics.InvitationsAccepted.Add(float64(len(flatIDs)))
		s.logger.Info("pending invitations accepted on signup",
			zap.String("user_id", u.ID.String()),
			zap.Int("flats", len(flatIDs)),
		)
	}

	return u, nil
}

// AuthenticateUser проверяет email и пароль и возвращает пользователя.
func (s *Service) AuthenticateUser(ctx context.Context, email, password string) (*model.User, error) {
	email = validation.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, invalidf("Provide email and password.")
	}

	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}
