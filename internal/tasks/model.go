package tasks

import (
	"time"

	"github.com/s1natex/taskmanager-api/internal/apperr"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// ParseStatus accepts only the closed set of statuses.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusCompleted:
		return Status(s), true
	}
	return "", false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority accepts only the closed set of priorities.
func ParsePriority(s string) (Priority, bool) {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return Priority(s), true
	}
	return "", false
}

// rank orders priorities by severity, high being largest.
func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

var (
	ErrTitleRequired   = apperr.New(apperr.KindValidation, "Please provide a task title")
	ErrInvalidStatus   = apperr.New(apperr.KindValidation, "Status must be pending or completed")
	ErrInvalidPriority = apperr.New(apperr.KindValidation, "Priority must be low, medium or high")
	ErrInvalidDueDate  = apperr.New(apperr.KindValidation, "Due date must be YYYY-MM-DD or RFC 3339")
	// ErrNotFound covers both a missing task and someone else's task.
	ErrNotFound = apperr.New(apperr.KindNotFound, "Task not found")
)

// Task belongs to exactly one owner for its whole life.
type Task struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"ownerId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
