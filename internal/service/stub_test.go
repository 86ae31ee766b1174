package service

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/roomie/internal/mailer"
	"github.com/mmeshcher/roomie/internal/model"
	"github.com/mmeshcher/roomie/internal/repository"
)

type stubRepo struct {
	users       map[uuid.UUID]*model.User
	flats       map[uuid.UUID]*model.Flat
	expenses    []model.Expense
	tasks       map[uuid.UUID]*model.Task
	invitations map[uuid.UUID]*model.Invitation

	createUserErr error
	acceptedFor   []string
	expireCalls   int
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		users:       make(map[uuid.UUID]*model.User),
		flats:       make(map[uuid.UUID]*model.Flat),
		tasks:       make(map[uuid.UUID]*model.Task),
		invitations: make(map[uuid.UUID]*model.Invitation),
	}
}

func (s *stubRepo) addUser(id uuid.UUID, email, name string) *model.User {
	u := &model.User{ID: id, Email: email, Name: name}
	s.users[id] = u
	return u
}

func (s *stubRepo) addFlat(id, owner uuid.UUID, members ...uuid.UUID) *model.Flat {
	f := &model.Flat{ID: id, Name: "Flat", OwnerID: owner, MemberIDs: append([]uuid.UUID{owner}, members...)}
	s.flats[id] = f
	return f
}

func (s *stubRepo) Ping(ctx context.Context) error { return nil }
func (s *stubRepo) Close() error                   { return nil }

func (s *stubRepo) CreateUser(ctx context.Context, u *model.User) error {
	if s.createUserErr != nil {
		return s.createUserErr
	}
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return repository.ErrUserExists
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *stubRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *stubRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *stubRepo) GetUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]model.User, error) {
	var res []model.User
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			res = append(res, *u)
		}
	}
	return res, nil
}

func (s *stubRepo) CreateFlat(ctx context.Context, f *model.Flat) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	f.MemberIDs = []uuid.UUID{f.OwnerID}
	cp := *f
	s.flats[f.ID] = &cp
	return nil
}

func (s *stubRepo) GetFlat(ctx context.Context, id uuid.UUID) (*model.Flat, error) {
	f, ok := s.flats[id]
	if !ok {
		return nil, repository.ErrFlatNotFound
	}
	cp := *f
	cp.MemberIDs = slices.Clone(f.MemberIDs)
	return &cp, nil
}

func (s *stubRepo) ListFlatsByMember(ctx context.Context, userID uuid.UUID) ([]model.Flat, error) {
	var res []model.Flat
	for _, f := range s.flats {
		if f.HasMember(userID) {
			res = append(res, *f)
		}
	}
	return res, nil
}

func (s *stubRepo) ListFlatMembers(ctx context.Context, flatID uuid.UUID) ([]model.User, error) {
	f, ok := s.flats[flatID]
	if !ok {
		return nil, repository.ErrFlatNotFound
	}
	var res []model.User
	for _, id := range f.MemberIDs {
		if u, ok := s.users[id]; ok {
			res = append(res, *u)
		}
	}
	return res, nil
}

func (s *stubRepo) AddFlatMember(ctx context.Context, flatID, userID uuid.UUID) error {
	f, ok := s.flats[flatID]
	if !ok {
		return repository.ErrFlatNotFound
	}
	if f.HasMember(userID) {
		return repository.ErrAlreadyMember
	}
	f.MemberIDs = append(f.MemberIDs, userID)
	return nil
}

func (s *stubRepo) RemoveFlatMember(ctx context.Context, flatID, userID uuid.UUID) error {
	f, ok := s.flats[flatID]
	if !ok {
		return repository.ErrFlatNotFound
	}
	f.MemberIDs = slices.DeleteFunc(f.MemberIDs, func(id uuid.UUID) bool { return id == userID })
	return nil
}

func (s *stubRepo) CreateExpense(ctx context.Context, e *model.Expense) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	s.expenses = append(s.expenses, *e)
	return nil
}

func (s *stubRepo) GetExpense(ctx context.Context, id uuid.UUID) (*model.Expense, error) {
	for _, e := range s.expenses {
		if e.ID == id {
			cp := e
			return &cp, nil
		}
	}
	return nil, repository.ErrExpenseNotFound
}

func (s *stubRepo) ListExpenses(ctx context.Context, flatID uuid.UUID, filter model.ExpenseFilter) ([]model.Expense, error) {
	var res []model.Expense
	for _, e := range s.expenses {
		if e.FlatID != flatID {
			continue
		}
		if !filter.From.IsZero() && e.Date.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !e.Date.Before(filter.To) {
			continue
		}
		res = append(res, e)
	}
	slices.SortStableFunc(res, func(a, b model.Expense) int { return b.Date.Compare(a.Date) })
	if filter.Limit > 0 && len(res) > filter.Limit {
		res = res[:filter.Limit]
	}
	return res, nil
}

func (s *stubRepo) UpdateExpense(ctx context.Context, e *model.Expense) error {
	for i := range s.expenses {
		if s.expenses[i].ID == e.ID {
			s.expenses[i] = *e
			return nil
		}
	}
	return repository.ErrExpenseNotFound
}

func (s *stubRepo) DeleteExpense(ctx context.Context, id uuid.UUID) error {
	before := len(s.expenses)
	s.expenses = slices.DeleteFunc(s.expenses, func(e model.Expense) bool { return e.ID == id })
	if len(s.expenses) == before {
		return repository.ErrExpenseNotFound
	}
	return nil
}

func (s *stubRepo) CreateTask(ctx context.Context, t *model.Task) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	cp := *t
	s.tasks[t.ID] = &cp
	return nil
}

func (s *stubRepo) GetTask(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return nil, repository.ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *stubRepo) ListTasks(ctx context.Context, flatID uuid.UUID) ([]model.Task, error) {
	var res []model.Task
	for _, t := range s.tasks {
		if t.FlatID == flatID {
			res = append(res, *t)
		}
	}
	return res, nil
}

func (s *stubRepo) UpdateTask(ctx context.Context, t *model.Task) error {
	if _, ok := s.tasks[t.ID]; !ok {
		return repository.ErrTaskNotFound
	}
	cp := *t
	s.tasks[t.ID] = &cp
	return nil
}

func (s *stubRepo) DeleteTask(ctx context.Context, id uuid.UUID) error {
	if _, ok := s.tasks[id]; !ok {
		return repository.ErrTaskNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *stubRepo) CountOpenTasks(ctx context.Context, flatID uuid.UUID) (int, error) {
	n := 0
	for _, t := range s.tasks {
		if t.FlatID == flatID && t.Status.Open() {
			n++
		}
	}
	return n, nil
}

func (s *stubRepo) CreateInvitation(ctx context.Context, inv *model.Invitation) error {
	for _, other := range s.invitations {
		if other.FlatID == inv.FlatID && other.Email == inv.Email && other.Status == model.InvitationStatusPending {
			other.Status = model.InvitationStatusRevoked
		}
	}
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	cp := *inv
	s.invitations[inv.ID] = &cp
	return nil
}

func (s *stubRepo) GetInvitation(ctx context.Context, id uuid.UUID) (*model.Invitation, error) {
	inv, ok := s.invitations[id]
	if !ok {
		return nil, repository.ErrInvitationNotFound
	}
	cp := *inv
	return &cp, nil
}

func (s *stubRepo) GetInvitationByTokenHash(ctx context.Context, tokenHash string) (*model.Invitation, error) {
	for _, inv := range s.invitations {
		if inv.TokenHash == tokenHash {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, repository.ErrInvitationNotFound
}

func (s *stubRepo) ListPendingInvitations(ctx context.Context, flatID uuid.UUID) ([]model.Invitation, error) {
	var res []model.Invitation
	for _, inv := range s.invitations {
		if inv.FlatID == flatID && inv.Status == model.InvitationStatusPending {
			res = append(res, *inv)
		}
	}
	return res, nil
}

func (s *stubRepo) RevokeInvitation(ctx context.Context, id uuid.UUID) error {
	inv, ok := s.invitations[id]
	if !ok {
		return repository.ErrInvitationNotFound
	}
	if inv.Status != model.InvitationStatusPending {
		return repository.ErrInvitationNotPending
	}
	inv.Status = model.InvitationStatusRevoked
	return nil
}

func (s *stubRepo) AcceptInvitation(ctx context.Context, id, userID uuid.UUID, now time.Time) error {
	inv, ok := s.invitations[id]
	if !ok {
		return repository.ErrInvitationNotFound
	}
	if inv.Status != model.InvitationStatusPending {
		return repository.ErrInvitationNotPending
	}
	if f, ok := s.flats[inv.FlatID]; ok && !f.HasMember(userID) {
		f.MemberIDs = append(f.MemberIDs, userID)
	}
	inv.Status = model.InvitationStatusAccepted
	inv.AcceptedBy = &userID
	inv.AcceptedAt = &now
	return nil
}

func (s *stubRepo) AcceptPendingInvitationsForEmail(ctx context.Context, email string, userID uuid.UUID, now time.Time) ([]uuid.UUID, error) {
	s.acceptedFor = append(s.acceptedFor, email)

	var flats []uuid.UUID
	for _, inv := range s.invitations {
		if inv.Email != email || inv.Status != model.InvitationStatusPending || inv.Expired(now) {
			continue
		}
		if err := s.AcceptInvitation(ctx, inv.ID, userID, now); err != nil {
			return nil, err
		}
		flats = append(flats, inv.FlatID)
	}
	return flats, nil
}

func (s *stubRepo) ExpireInvitations(ctx context.Context, now time.Time) (int64, error) {
	s.expireCalls++
	var n int64
	for _, inv := range s.invitations {
		if inv.Status == model.InvitationStatusPending && !inv.ExpiresAt.After(now) {
			inv.Status = model.InvitationStatusExpired
			n++
		}
	}
	return n, nil
}

type stubSender struct {
	sent []mailer.Message
	err  error
}

func (s *stubSender) Send(ctx context.Context, msg mailer.Message) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.sent = append(s.sent, msg)
	return "msg-1", nil
}
