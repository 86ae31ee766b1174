package model

import (
	"time"

	"github.com/google/uuid"
)

// InvitationStatus описывает состояние приглашения в квартиру.
type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
	InvitationStatusRevoked  InvitationStatus = "revoked"
	InvitationStatusExpired  InvitationStatus = "expired"
)

// Invitation описывает приглашение пользователя по email.
// Хранится только хеш токена, исходный токен уходит в письме.
type Invitation struct {
	ID         uuid.UUID
	FlatID     uuid.UUID
	Email      string
	InvitedBy  uuid.UUID
	TokenHash  string
	Status     InvitationStatus
	ExpiresAt  time.Time
	AcceptedBy *uuid.UUID
	AcceptedAt *time.Time
	CreatedAt  time.Time
}

// Expired сообщает, истёк ли срок действия приглашения к моменту now.
func (i *Invitation) Expired(now time.Time) bool {
	return i.ExpiresAt.IsZero() || i.ExpiresAt.Before(now)
}
