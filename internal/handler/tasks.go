package handler

import (
	"encoding/json"
	"net/http"

	"github.com/mmeshcher/roomie/internal/model"
	"github.com/mmeshcher/roomie/internal/service"
)

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	AssignedTo  string `json:"assignedTo"`
	Status      string `json:"status"`
	DueDate     string `json:"dueDate"`
	ImageURL    string `json:"imageUrl"`
}

// updateTaskRequest различает отсутствующие поля и явный null для assignedTo и dueDate.
type updateTaskRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	AssignedTo  json.RawMessage `json:"assignedTo"`
	Status      *string         `json:"status"`
	DueDate     json.RawMessage `json:"dueDate"`
	ImageURL    *string         `json:"imageUrl"`
}

// ListTasks возвращает задачи квартиры.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	flatID, ok := pathID(w, r, "flatID")
	if !ok {
		return
	}

	tasks, err := h.service.ListTasks(r.Context(), userID, flatID)
	if err != nil {
		h.writeError(w, r, err, "list tasks")
		return
	}

	res := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		res = append(res, toTask(t))
	}
	writeJSON(w, http.StatusOK, res)
}

// CreateTask добавляет задачу в квартиру.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	flatID, ok := pathID(w, r, "flatID")
	if !ok {
		return
	}
	var req createTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in := service.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      model.TaskStatus(req.Status),
		ImageURL:    req.ImageURL,
	}
	if req.AssignedTo != "" {
		id, ok := parseID(w, req.AssignedTo, "assignedTo")
		if !ok {
			return
		}
		in.AssignedTo = &id
	}
	if in.DueDate, ok = optionalDate(w, req.DueDate); !ok {
		return
	}

	task, err := h.service.CreateTask(r.Context(), userID, flatID, in)
	if err != nil {
		h.writeError(w, r, err, "create task")
		return
	}

	writeJSON(w, http.StatusCreated, toTask(*task))
}

// UpdateTask частично обновляет задачу.
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "taskID")
	if !ok {
		return
	}
	var req updateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	upd := service.TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	}
	if req.Status != nil {
		st := model.TaskStatus(*req.Status)
		upd.Status = &st
	}

	assignee, present, ok := nullableString(w, req.AssignedTo, "assignedTo")
	if !ok {
		return
	}
	if present {
		if assignee == "" {
			upd.ClearAssignee = true
		} else {
			id, ok := parseID(w, assignee, "assignedTo")
			if !ok {
				return
			}
			upd.AssignedTo = &id
		}
	}

	due, present, ok := nullableString(w, req.DueDate, "dueDate")
	if !ok {
		return
	}
	if present {
		if upd.DueDate, ok = optionalDate(w, due); !ok {
			return
		}
		upd.ClearDueDate = upd.DueDate == nil
	}

	task, err := h.service.UpdateTask(r.Context(), userID, taskID, upd)
	if err != nil {
		h.writeError(w, r, err, "update task")
		return
	}

	writeJSON(w, http.StatusOK, toTask(*task))
}

// DeleteTask удаляет задачу.
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "taskID")
	if !ok {
		return
	}

	if err := h.service.DeleteTask(r.Context(), userID, taskID); err != nil {
		h.writeError(w, r, err, "delete task")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// nullableString разбирает необязательное строковое поле: present=false, если поле
// отсутствует; пустая строка, если передан null.
func nullableString(w http.ResponseWriter, raw json.RawMessage, field string) (value string, present, ok bool) {
	if len(raw) == 0 {
		return "", false, true
	}
	if string(raw) == "null" {
		return "", true, true
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid "+field)
		return "", false, false
	}
	return value, true, true
}
