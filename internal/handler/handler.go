// Package handler содержит HTTP-обработчики API сервиса Roomie.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/roomie/internal/metrics"
	"github.com/mmeshcher/roomie/internal/middleware"
	"github.com/mmeshcher/roomie/internal/model"
	"github.com/mmeshcher/roomie/internal/repository"
	"github.com/mmeshcher/roomie/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Ping(ctx context.Context) error

	RegisterUser(ctx context.Context, email, password, name string) (*model.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (*model.User, error)

	CreateFlat(ctx context.Context, userID uuid.UUID, name, description string) (*model.Flat, error)
	ListFlats(ctx context.Context, userID uuid.UUID) ([]model.Flat, error)
	GetFlat(ctx context.Context, userID, flatID uuid.UUID) (*service.FlatDetails, error)
	ListMembers(ctx context.Context, userID, flatID uuid.UUID) ([]model.User, error)
	AddMember(ctx context.Context, userID, flatID uuid.UUID, email string) (*service.FlatDetails, error)
	RemoveMember(ctx context.Context, userID, flatID, memberID uuid.UUID) (*service.FlatDetails, error)

	ListExpenses(ctx context.Context, userID, flatID uuid.UUID) ([]service.ExpenseDetails, error)
	CreateExpense(ctx context.Context, userID, flatID uuid.UUID, in service.ExpenseInput) (*service.ExpenseDetails, error)
	UpdateExpense(ctx context.Context, userID, expenseID uuid.UUID, upd service.ExpenseUpdate) (*service.ExpenseDetails, error)
	DeleteExpense(ctx context.Context, userID, expenseID uuid.UUID) error

	ListTasks(ctx context.Context, userID, flatID uuid.UUID) ([]service.TaskDetails, error)
	CreateTask(ctx context.Context, userID, flatID uuid.UUID, in service.TaskInput) (*service.TaskDetails, error)
	UpdateTask(ctx context.Context, userID, taskID uuid.UUID, upd service.TaskUpdate) (*service.TaskDetails, error)
	DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error

	FlatBalance(ctx context.Context, userID, flatID uuid.UUID) (*service.FlatBalance, error)
	MyBalance(ctx context.Context, userID, flatID uuid.UUID) (*service.MyBalance, error)
	Dashboard(ctx context.Context, userID, flatID uuid.UUID) (*service.Dashboard, error)

	ListInvitations(ctx context.Context, userID, flatID uuid.UUID) ([]model.Invitation, error)
	CreateInvitation(ctx context.Context, userID, flatID uuid.UUID, email string) (*service.InvitationReceipt, error)
	RevokeInvitation(ctx context.Context, userID, invitationID uuid.UUID) error
	AcceptInvitation(ctx context.Context, userID uuid.UUID, email, token string) (uuid.UUID, error)
}

// Options содержит необязательные зависимости маршрутизатора.
type Options struct {
	Metrics        *metrics.Metrics
	RateLimiter    *middleware.RateLimiter
	AllowedOrigins []string
}

// Handler реализует HTTP-обработчики API сервиса Roomie.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	opts           Options
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, opts Options) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		opts:           opts,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}

// writeError переводит ошибку сервиса в HTTP-статус. Непредвиденные ошибки логируются.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, op string) {
	var vErr *service.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeMessage(w, http.StatusBadRequest, vErr.Message)
	case errors.Is(err, service.ErrInvalidCredentials):
		writeMessage(w, http.StatusUnauthorized, "Unable to authenticate the user")
	case errors.Is(err, service.ErrForbidden):
		writeMessage(w, http.StatusForbidden, "Not allowed")
	case errors.Is(err, service.ErrEmailMismatch):
		writeMessage(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrOwnerRemoval),
		errors.Is(err, service.ErrInvitationNotPending),
		errors.Is(err, service.ErrInvitationExpired):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrUserNotFound):
		writeMessage(w, http.StatusNotFound, "User not found")
	case errors.Is(err, repository.ErrFlatNotFound):
		writeMessage(w, http.StatusNotFound, "Flat not found")
	case errors.Is(err, repository.ErrExpenseNotFound):
		writeMessage(w, http.StatusNotFound, "Expense not found")
	case errors.Is(err, repository.ErrTaskNotFound):
		writeMessage(w, http.StatusNotFound, "Task not found")
	case errors.Is(err, repository.ErrInvitationNotFound):
		writeMessage(w, http.StatusNotFound, "Invitation not found")
	case errors.Is(err, repository.ErrUserExists):
		writeMessage(w, http.StatusConflict, "User already exists.")
	case errors.Is(err, repository.ErrAlreadyMember):
		writeMessage(w, http.StatusConflict, "User is already a member")
	default:
		h.logger.Error(op+" error", zap.Error(err), zap.String("path", r.URL.Path))
		writeMessage(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

// currentUser извлекает идентификатор пользователя, добавленный AuthMiddleware.
func currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return uuid.Nil, false
	}
	return userID, true
}

// pathID разбирает идентификатор из параметра маршрута chi.
func pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid "+param)
		return uuid.Nil, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// Health проверяет доступность базы данных.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
