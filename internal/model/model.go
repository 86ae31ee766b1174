// Package model содержит доменные сущности сервиса совместного проживания Roomie.
package model

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// User представляет зарегистрированного пользователя.
type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash []byte
	CreatedAt    time.Time
}

// DisplayName возвращает имя пользователя, а при его отсутствии email.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Flat описывает квартиру (домохозяйство) и её участников.
// Владелец всегда входит в MemberIDs.
type Flat struct {
	ID          uuid.UUID
	Name        string
	Description string
	OwnerID     uuid.UUID
	MemberIDs   []uuid.UUID
	CreatedAt   time.Time
}

// HasMember сообщает, является ли пользователь участником квартиры.
func (f *Flat) HasMember(userID uuid.UUID) bool {
	return slices.Contains(f.MemberIDs, userID)
}

// IsOwner сообщает, является ли пользователь владельцем квартиры.
func (f *Flat) IsOwner(userID uuid.UUID) bool {
	return f.OwnerID == userID
}
