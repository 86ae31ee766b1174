package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mmeshcher/roomie/internal/model"
	"github.com/mmeshcher/roomie/internal/repository"
	"github.com/mmeshcher/roomie/internal/validation"
)

// FlatDetails — квартира вместе с профилями участников.
type FlatDetails struct {
	model.Flat
	Members []model.User
}

// CreateFlat создаёт квартиру, владельцем и единственным участником которой становится пользователь.
func (s *Service) CreateFlat(ctx context.Context, userID uuid.UUID, name, description string) (*model.Flat, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidf("Name is required")
	}

	f := &model.Flat{
		Name:        name,
		Description: strings.TrimSpace(description),
		OwnerID:     userID,
	}
	if err := s.repo.CreateFlat(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// ListFlats возвращает квартиры пользователя.
func (s *Service) ListFlats(ctx context.Context, userID uuid.UUID) ([]model.Flat, error) {
	return s.repo.ListFlatsByMember(ctx, userID)
}

// GetFlat возвращает квартиру с участниками. Доступно только участникам.
func (s *Service) GetFlat(ctx context.Context, userID, flatID uuid.UUID) (*FlatDetails, error) {
	f, err := s.memberFlat(ctx, userID, flatID)
	if err != nil {
		return nil, err
	}
	return s.flatDetails(ctx, f)
}

// ListMembers возвращает профили участников квартиры.
func (s *Service) ListMembers(ctx context.Context, userID, flatID uuid.UUID) ([]model.User, error) {
	if _, err := s.memberFlat(ctx, userID, flatID); err != nil {
		return nil, err
	}
	return s.repo.ListFlatMembers(ctx, flatID)
}

// AddMember добавляет зарегистрированного пользователя в квартиру по email. Доступно только владельцу.
func (s *Service) AddMember(ctx context.Context, userID, flatID uuid.UUID, email string) (*FlatDetails, error) {
	email = validation.NormalizeEmail(email)
	if email == "" {
		return nil, invalidf("Email is required")
	}

	f, err := s.ownedFlat(ctx, userID, flatID)
	if err != nil {
		return nil, err
	}

	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if err := s.repo.AddFlatMember(ctx, f.ID, u.ID); err != nil {
		return nil, err
	}

	return s.reloadFlat(ctx, flatID)
}

// RemoveMember исключает участника из квартиры. Доступно только владельцу, владельца исключить нельзя.
// Расходы исключённого участника сохраняются и продолжают учитываться в балансе.
func (s *Service) RemoveMember(ctx context.Context, userID, flatID, memberID uuid.UUID) (*FlatDetails, error) {
	f, err := s.ownedFlat(ctx, userID, flatID)
	if err != nil {
		return nil, err
	}
	if f.IsOwner(memberID) {
		return nil, ErrOwnerRemoval
	}

	if err := s.repo.RemoveFlatMember(ctx, f.ID, memberID); err != nil {
		return nil, err
	}

	return s.reloadFlat(ctx, flatID)
}

func (s *Service) reloadFlat(ctx context.Context, flatID uuid.UUID) (*FlatDetails, error) {
	f, err := s.repo.GetFlat(ctx, flatID)
	if err != nil {
		return nil, err
	}
	return s.flatDetails(ctx, f)
}

func (s *Service) flatDetails(ctx context.Context, f *model.Flat) (*FlatDetails, error) {
	members, err := s.repo.ListFlatMembers(ctx, f.ID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return &FlatDetails{Flat: *f, Members: members}, nil
}

// memberFlat загружает квартиру и проверяет, что пользователь в ней состоит.
func (s *Service) memberFlat(ctx context.Context, userID, flatID uuid.UUID) (*model.Flat, error) {
	f, err := s.repo.GetFlat(ctx, flatID)
	if err != nil {
		return nil, err
	}
	if !f.HasMember(userID) {
		return nil, ErrForbidden
	}
	return f, nil
}

// ownedFlat загружает квартиру и проверяет, что пользователь её владелец.
func (s *Service) ownedFlat(ctx context.Context, userID, flatID uuid.UUID) (*model.Flat, error) {
	f, err := s.repo.GetFlat(ctx, flatID)
	if err != nil {
		return nil, err
	}
	if !f.IsOwner(userID) {
		return nil, ErrForbidden
	}
	return f, nil
}

// usersByID загружает профили и раскладывает их по идентификаторам.
// Для отсутствующих в хранилище идентификаторов создаётся пустой профиль с одним ID.
func (s *Service) usersByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.User, error) {
	unique := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	users, err := s.repo.GetUsersByIDs(ctx, unique)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("load users: %w", err)
	}

	res := make(map[uuid.UUID]model.User, len(unique))
	for _, u := range users {
		res[u.ID] = u
	}
	for _, id := range unique {
		if _, ok := res[id]; !ok {
			res[id] = model.User{ID: id}
		}
	}
	return res, nil
}
