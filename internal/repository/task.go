package repository

import (
	"context"

	"taskboard/internal/domain"
)

// TaskFilter narrows task queries. Zero-value fields are ignored.
type TaskFilter struct {
	OwnerID string
	Status  domain.TaskStatus
}

// TaskRepository exposes persistence operations for Task aggregates.
type TaskRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, task *domain.Task) error
	Get(ctx context.Context, id string) (*domain.Task, error)
	Update(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter TaskFilter, limit, offset int) ([]domain.Task, error)
	Count(ctx context.Context, filter TaskFilter) (int, error)
}
