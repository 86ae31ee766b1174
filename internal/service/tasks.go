package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/roomie/internal/model"
)

// TaskInput — данные для создания задачи.
type TaskInput struct {
	Title       string
	Description string
	AssignedTo  *uuid.UUID
	Status      model.TaskStatus
	DueDate     *time.Time
	ImageURL    string
}

// TaskUpdate — частичное обновление задачи. nil означает «не менять»,
// флаги Clear* снимают исполнителя и срок.
type TaskUpdate struct {
	Title         *string
	Description   *string
	AssignedTo    *uuid.UUID
	ClearAssignee bool
	Status        *model.TaskStatus
	DueDate       *time.Time
	ClearDueDate  bool
	ImageURL      *string
}

// TaskDetails — задача с профилями автора и исполнителя.
type TaskDetails struct {
	model.Task
	Creator  model.User
	Assignee *model.User
}

// ListTasks возвращает задачи квартиры, начиная с новых. Доступно только участникам.
func (s *Service) ListTasks(ctx context.Context, userID, flatID uuid.UUID) ([]TaskDetails, error) {
	if _, err := s.memberFlat(ctx, userID, flatID); err != nil {
		return nil, err
	}

	tasks, err := s.repo.ListTasks(ctx, flatID)
	if err != nil {
		return nil, err
	}
	return s.taskDetails(ctx, tasks)
}

// CreateTask добавляет задачу в квартиру. Исполнитель, если указан, должен быть участником.
func (s *Service) CreateTask(ctx context.Context, userID, flatID uuid.UUID, in TaskInput) (*TaskDetails, error) {
	f, err := s.memberFlat(ctx, userID, flatID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalidf("Title is required")
	}

	status := in.Status
	if status == "" {
		status = model.TaskStatusPending
	}
	if !status.Valid() {
		return nil, invalidf("Unknown status %q", status)
	}

	if in.AssignedTo != nil && !f.HasMember(*in.AssignedTo) {
		return nil, invalidf("assignedTo must be a flat member")
	}

	t := &model.Task{
		FlatID:      flatID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		CreatedBy:   userID,
		AssignedTo:  in.AssignedTo,
		Status:      status,
		DueDate:     in.DueDate,
		ImageURL:    strings.TrimSpace(in.ImageURL),
	}
	if err := s.repo.CreateTask(ctx, t); err != nil {
		return nil, err
	}

	details, err := s.taskDetails(ctx, []model.Task{*t})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// UpdateTask частично обновляет задачу. Доступно любому участнику квартиры.
func (s *Service) UpdateTask(ctx context.Context, userID, taskID uuid.UUID, upd TaskUpdate) (*TaskDetails, error) {
	t, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	f, err := s.memberFlat(ctx, userID, t.FlatID)
	if err != nil {
		return nil, err
	}

	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return nil, invalidf("Title is required")
		}
		t.Title = title
	}
	if upd.Description != nil {
		t.Description = strings.TrimSpace(*upd.Description)
	}
	switch {
	case upd.ClearAssignee:
		t.AssignedTo = nil
	case upd.AssignedTo != nil:
		if !f.HasMember(*upd.AssignedTo) {
			return nil, invalidf("assignedTo must be a flat member")
		}
		t.AssignedTo = upd.AssignedTo
	}
	if upd.Status != nil {
		if !upd.Status.Valid() {
			return nil, invalidf("Unknown status %q", *upd.Status)
		}
		t.Status = *upd.Status
	}
	switch {
	case upd.ClearDueDate:
		t.DueDate = nil
	case upd.DueDate != nil:
		t.DueDate = upd.DueDate
	}
	if upd.ImageURL != nil {
		t.ImageURL = strings.TrimSpace(*upd.ImageURL)
	}

	if err := s.repo.UpdateTask(ctx, t); err != nil {
		return nil, err
	}

	details, err := s.taskDetails(ctx, []model.Task{*t})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// DeleteTask удаляет задачу. Доступно любому участнику квартиры.
func (s *Service) DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error {
	t, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if _, err := s.memberFlat(ctx, userID, t.FlatID); err != nil {
		return err
	}
	return s.repo.DeleteTask(ctx, taskID)
}

func (s *Service) taskDetails(ctx context.Context, tasks []model.Task) ([]TaskDetails, error) {
	var ids []uuid.UUID
	for _, t := range tasks {
		ids = append(ids, t.CreatedBy)
		if t.AssignedTo != nil {
			ids = append(ids, *t.AssignedTo)
		}
	}

	users, err := s.usersByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	res := make([]TaskDetails, 0, len(tasks))
	for _, t := range tasks {
		d := TaskDetails{Task: t, Creator: users[t.CreatedBy]}
		if t.AssignedTo != nil {
			u := users[*t.AssignedTo]
			d.Assignee = &u
		}
		res = append(res, d)
	}
	return res, nil
}
