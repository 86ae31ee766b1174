package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/roomie/internal/middleware"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Signup регистрирует нового пользователя.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.service.RegisterUser(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		h.writeError(w, r, err, "signup")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]userResponse{"user": toUser(*user)})
}

// Login проверяет учётные данные и выдаёт JWT.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Provide email and password.")
		return
	}

	user, err := h.service.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err, "login")
		return
	}

	token, err := h.authMiddleware.IssueToken(user)
	if err != nil {
		h.logger.Error("failed to issue token", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"authToken": token})
}

// Verify возвращает содержимое токена текущего пользователя.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaimsFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}
	writeJSON(w, http.StatusOK, claims)
}
