package domain

import "time"

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
)

// ValidStatus reports whether s is one of the known task statuses.
func ValidStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// Task represents a unit of work owned by the user that created it.
type Task struct {
	ID          string
	Title       string
	Description string
	Status      TaskStatus
	OwnerID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
