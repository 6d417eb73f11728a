package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"taskboard/internal/auth"
	"taskboard/internal/domain"
	"taskboard/internal/repository"
)

// CreateTaskInput carries the fields accepted when creating a task. The
// owner is never part of the input; it is always the authenticated caller.
type CreateTaskInput struct {
	Title       string            `json:"title" validate:"required,min=1"`
	Description string            `json:"description"`
	Status      domain.TaskStatus `json:"status"`
}

// UpdateTaskInput is a partial update; nil fields are left untouched.
type UpdateTaskInput struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	Status      *domain.TaskStatus `json:"status"`
}

// ListTasksInput carries listing filters and pagination parameters.
type ListTasksInput struct {
	Status domain.TaskStatus
	Page   int
	Limit  int
}

// TaskService implements task CRUD under the ownership rule: a task is
// visible and mutable by its owner or by an administrator.
type TaskService interface {
	Create(ctx context.Context, callerID string, in CreateTaskInput) (*domain.Task, error)
	Get(ctx context.Context, ident auth.Identity, id string) (*domain.Task, error)
	List(ctx context.Context, ident auth.Identity, in ListTasksInput) ([]domain.Task, Pagination, error)
	Update(ctx context.Context, ident auth.Identity, id string, in UpdateTaskInput) (*domain.Task, error)
	Delete(ctx context.Context, ident auth.Identity, id string) error
}

type taskService struct {
	tasks    repository.TaskRepository
	validate *validator.Validate
}

func NewTaskService(tasks repository.TaskRepository) TaskService {
	return &taskService{
		tasks:    tasks,
		validate: validator.New(),
	}
}

func (s *taskService) Create(ctx context.Context, callerID string, in CreateTaskInput) (*domain.Task, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	if in.Status == "" {
		in.Status = domain.TaskStatusPending
	} else if !domain.ValidStatus(in.Status) {
		return nil, newValidationError("status", "must be one of PENDING, IN_PROGRESS, COMPLETED")
	}

	task := &domain.Task{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		OwnerID:     callerID,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

func (s *taskService) Get(ctx context.Context, ident auth.Identity, id string) (*domain.Task, error) {
	task, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canModify(ident, task) {
		return nil, ErrForbidden
	}
	return task, nil
}

func (s *taskService) List(ctx context.Context, ident auth.Identity, in ListTasksInput) ([]domain.Task, Pagination, error) {
	page, limit := normalizePage(in.Page, in.Limit)

	filter := repository.TaskFilter{Status: in.Status}
	// Non-admins only ever see their own tasks, whatever they asked for.
	if !ident.IsAdmin() {
		filter.OwnerID = ident.UserID
	}

	tasks, err := s.tasks.List(ctx, filter, limit, (page-1)*limit)
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("list tasks: %w", err)
	}
	total, err := s.tasks.Count(ctx, filter)
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("count tasks: %w", err)
	}
	return tasks, newPagination(page, limit, total), nil
}

func (s *taskService) Update(ctx context.Context, ident auth.Identity, id string, in UpdateTaskInput) (*domain.Task, error) {
	task, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	// Authorization is decided before any field is touched.
	if !canModify(ident, task) {
		return nil, ErrForbidden
	}

	if in.Title != nil {
		if *in.Title == "" {
			return nil, newValidationError("title", "is required")
		}
		task.Title = *in.Title
	}
	if in.Description != nil {
		task.Description = *in.Description
	}
	if in.Status != nil {
		if !domain.ValidStatus(*in.Status) {
			return nil, newValidationError("status", "must be one of PENDING, IN_PROGRESS, COMPLETED")
		}
		task.Status = *in.Status
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("update task: %w", err)
	}
	return task, nil
}

func (s *taskService) Delete(ctx context.Context, ident auth.Identity, id string) error {
	task, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	if !canModify(ident, task) {
		return ErrForbidden
	}

	if err := s.tasks.Delete(ctx, task.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func (s *taskService) fetch(ctx context.Context, id string) (*domain.Task, error) {
	task, err := s.tasks.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

func canModify(ident auth.Identity, task *domain.Task) bool {
	return ident.IsAdmin() || task.OwnerID == ident.UserID
}
