package service

import (
	"errors"
	"fmt"

	"github.com/mmeshcher/roomie/internal/repository"
)

var (
	// ErrForbidden возвращается, если у пользователя нет прав на операцию.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredentials возвращается при неверном email или пароле.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrOwnerRemoval возвращается при попытке исключить владельца квартиры.
	ErrOwnerRemoval = errors.New("owner cannot be removed")
	// ErrInvitationExpired возвращается при попытке принять просроченное приглашение.
	ErrInvitationExpired = errors.New("invitation expired")
	// ErrEmailMismatch возвращается, если приглашение отправлено на другой email.
	ErrEmailMismatch = errors.New("invitation was sent to another email")
	// ErrInvitationNotPending возвращается для уже принятого, отозванного или просроченного приглашения.
	ErrInvitationNotPending = repository.ErrInvitationNotPending
)

// ValidationError описывает ошибку во входных данных запроса.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalidf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
