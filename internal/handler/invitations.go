package handler

import (
	"net/http"
	"time"

	"github.com/mmeshcher/roomie/internal/middleware"
)

type createInvitationRequest struct {
	FlatID string `json:"flatId"`
	Email  string `json:"email"`
}

type acceptInvitationRequest struct {
	Token string `json:"token"`
}

type invitationCreatedResponse struct {
	OK           bool      `json:"ok"`
	InvitationID string    `json:"invitationId"`
	ExpiresAt    time.Time `json:"expiresAt"`
	MessageID    string    `json:"messageId"`
}

type invitationAcceptedResponse struct {
	OK     bool   `json:"ok"`
	FlatID string `json:"flatId"`
}

// ListInvitations возвращает ожидающие приглашения квартиры из параметра flatId.
func (h *Handler) ListInvitations(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	flatID, ok := parseID(w, r.URL.Query().Get("flatId"), "flatId")
	if !ok {
		return
	}

	invitations, err := h.service.ListInvitations(r.Context(), userID, flatID)
	if err != nil {
		h.writeError(w, r, err, "list invitations")
		return
	}

	res := make([]invitationResponse, 0, len(invitations))
	for _, inv := range invitations {
		res = append(res, toInvitation(inv))
	}
	writeJSON(w, http.StatusOK, res)
}

// CreateInvitation отправляет приглашение в квартиру на email.
func (h *Handler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req createInvitationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	flatID, ok := parseID(w, req.FlatID, "flatId")
	if !ok {
		return
	}

	receipt, err := h.service.CreateInvitation(r.Context(), userID, flatID, req.Email)
	if err != nil {
		h.writeError(w, r, err, "create invitation")
		return
	}

	writeJSON(w, http.StatusCreated, invitationCreatedResponse{
		OK:           true,
		InvitationID: receipt.InvitationID.String(),
		ExpiresAt:    receipt.ExpiresAt,
		MessageID:    receipt.MessageID,
	})
}

// RevokeInvitation отзывает ожидающее приглашение.
func (h *Handler) RevokeInvitation(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	invitationID, ok := pathID(w, r, "invitationID")
	if !ok {
		return
	}

	if err := h.service.RevokeInvitation(r.Context(), userID, invitationID); err != nil {
		h.writeError(w, r, err, "revoke invitation")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// AcceptInvitation принимает приглашение по токену из письма.
func (h *Handler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaimsFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req acceptInvitationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	flatID, err := h.service.AcceptInvitation(r.Context(), userID, claims.Email, req.Token)
	if err != nil {
		h.writeError(w, r, err, "accept invitation")
		return
	}

	writeJSON(w, http.StatusOK, invitationAcceptedResponse{OK: true, FlatID: flatID.String()})
}
