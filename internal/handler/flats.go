package handler

import (
	"net/http"
)

type flatRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type memberRequest struct {
	Email string `json:"email"`
}

// CreateFlat создаёт квартиру, текущий пользователь становится владельцем.
func (h *Handler) CreateFlat(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req flatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	flat, err := h.service.CreateFlat(r.Context(), userID, req.Name, req.Description)
	if err != nil {
		h.writeError(w, r, err, "create flat")
		return
	}

	writeJSON(w, http.StatusCreated, toFlat(*flat))
}

// ListFlats возвращает квартиры текущего пользователя.
func (h *Handler) ListFlats(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	flats, err := h.service.ListFlats(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err, "list flats")
		return
	}

	res := make([]flatResponse, 0, len(flats))
	for _, f := range flats {
		res = append(res, toFlat(f))
	}
	writeJSON(w, http.StatusOK, res)
}

// GetFlat возвращает квартиру с профилями участников.
func (h *Handler) GetFlat(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	flatID, ok := pathID(w, r, "flatID")
	if !ok {
		return
	}

	flat, err := h.service.GetFlat(r.Context(), userID, flatID)
	if err != nil {
		h.writeError(w, r, err, "get flat")
		return
	}

	writeJSON(w, http.StatusOK, toFlatDetails(flat))
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	flatID, ok := pathID(w, r, "flatID")
	if !ok {
		return
	}

	members, err := h.service.ListMembers(r.Context(), userID, flatID)
	if err != nil {
		h.writeError(w, r, err, "list members")
		return
	}

	writeJSON(w, http.StatusOK, toUsers(members))
}

// AddMember добавляет зарегистрированного пользователя в квартиру по email.
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	flatID, ok := pathID(w, r, "flatID")
	if !ok {
		return
	}
	var req memberRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	flat, err := h.service.AddMember(r.Context(), userID, flatID, req.Email)
	if err != nil {
		h.writeError(w, r, err, "add member")
		return
	}

	writeJSON(w, http.StatusOK, toFlatDetails(flat))
}

// RemoveMember исключает участника из квартиры.
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	flatID, ok := pathID(w, r, "flatID")
	if !ok {
		return
	}
	memberID, ok := pathID(w, r, "memberID")
	if !ok {
		return
	}

	flat, err := h.service.RemoveMember(r.Context(), userID, flatID, memberID)
	if err != nil {
		h.writeError(w, r, err, "remove member")
		return
	}

	writeJSON(w, http.StatusOK, toFlatDetails(flat))
}
