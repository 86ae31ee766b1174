package model

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// TaskStatus описывает статус выполнения задачи по дому.
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusDoing   TaskStatus = "doing"
	TaskStatusDone    TaskStatus = "done"
)

// TaskStatuses перечисляет допустимые статусы задач.
var TaskStatuses = []TaskStatus{TaskStatusPending, TaskStatusDoing, TaskStatusDone}

// Valid сообщает, является ли статус допустимым.
func (s TaskStatus) Valid() bool {
	return slices.Contains(TaskStatuses, s)
}

// Open сообщает, что задача ещё не выполнена.
func (s TaskStatus) Open() bool {
	return s == TaskStatusPending || s == TaskStatusDoing
}

// Task описывает домашнюю задачу, которую можно назначить участнику квартиры.
type Task struct {
	ID          uuid.UUID
	FlatID      uuid.UUID
	Title       string
	Description string
	CreatedBy   uuid.UUID
	AssignedTo  *uuid.UUID
	Status      TaskStatus
	DueDate     *time.Time
	ImageURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
