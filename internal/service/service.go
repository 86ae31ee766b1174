// Package service реализует бизнес-логику сервиса Roomie.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/roomie/internal/mailer"
	"github.com/mmeshcher/roomie/internal/metrics"
	"github.com/mmeshcher/roomie/internal/model"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Ping(ctx context.Context) error
	Close() error

	CreateUser(ctx context.Context, u *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]model.User, error)

	CreateFlat(ctx context.Context, f *model.Flat) error
	GetFlat(ctx context.Context, id uuid.UUID) (*model.Flat, error)
	ListFlatsByMember(ctx context.Context, userID uuid.UUID) ([]model.Flat, error)
	ListFlatMembers(ctx context.Context, flatID uuid.UUID) ([]model.User, error)
	AddFlatMember(ctx context.Context, flatID, userID uuid.UUID) error
	RemoveFlatMember(ctx context.Context, flatID, userID uuid.UUID) error

	CreateExpense(ctx context.Context, e *model.Expense) error
	GetExpense(ctx context.Context, id uuid.UUID) (*model.Expense, error)
	ListExpenses(ctx context.Context, flatID uuid.UUID, filter model.ExpenseFilter) ([]model.Expense, error)
	UpdateExpense(ctx context.Context, e *model.Expense) error
	DeleteExpense(ctx context.Context, id uuid.UUID) error

	CreateTask(ctx context.Context, t *model.Task) error
	GetTask(ctx context.Context, id uuid.UUID) (*model.Task, error)
	ListTasks(ctx context.Context, flatID uuid.UUID) ([]model.Task, error)
	UpdateTask(ctx context.Context, t *model.Task) error
	DeleteTask(ctx context.Context, id uuid.UUID) error
	CountOpenTasks(ctx context.Context, flatID uuid.UUID) (int, error)

	CreateInvitation(ctx context.Context, inv *model.Invitation) error
	GetInvitation(ctx context.Context, id uuid.UUID) (*model.Invitation, error)
	GetInvitationByTokenHash(ctx context.Context, tokenHash string) (*model.Invitation, error)
	ListPendingInvitations(ctx context.Context, flatID uuid.UUID) ([]model.Invitation, error)
	RevokeInvitation(ctx context.Context, id uuid.UUID) error
	AcceptInvitation(ctx context.Context, id, userID uuid.UUID, now time.Time) error
	AcceptPendingInvitationsForEmail(ctx context.Context, email string, userID uuid.UUID, now time.Time) ([]uuid.UUID, error)
	ExpireInvitations(ctx context.Context, now time.Time) (int64, error)
}

// Options содержит настройки сервиса, не связанные с хранилищем.
type Options struct {
	// ClientURL — адрес веб-клиента, из него строятся ссылки в письмах.
	ClientURL string
	// InviteTTL — срок действия приглашения.
	InviteTTL time.Duration
}

// Service содержит бизнес-логику сервиса Roomie.
type Service struct {
	repo    Repository
	mail    mailer.Sender
	metrics *metrics.Metrics
	logger  *zap.Logger
	opts    Options
	now     func() time.Time
}

// NewService создаёт новый сервис.
func NewService(repo Repository, mail mailer.Sender, m *metrics.Metrics, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}
	if mail == nil {
		mail = mailer.NewLogSender(logger)
	}
	if opts.InviteTTL <= 0 {
		opts.InviteTTL = 48 * time.Hour
	}
	if opts.ClientURL == "" {
		opts.ClientURL = "http://localhost:5173"
	}

	return &Service{
		repo:    repo,
		mail:    mail,
		metrics: m,
		logger:  logger,
		opts:    opts,
		now:     time.Now,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
