package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskboard/internal/domain"
	"taskboard/internal/repository"
)

// Storage is an in-memory backing store for both repositories. It serves
// tests and acts as a fallback when the database file cannot be opened.
type Storage struct {
	mu    sync.RWMutex
	users map[string]domain.User
	tasks map[string]domain.Task
}

func NewStorage() *Storage {
	return &Storage{
		users: make(map[string]domain.User),
		tasks: make(map[string]domain.Task),
	}
}

// UserStore returns the storage viewed as a UserRepository.
func (s *Storage) UserStore() repository.UserRepository {
	return &userStore{s: s}
}

// TaskStore returns the storage viewed as a TaskRepository.
func (s *Storage) TaskStore() repository.TaskRepository {
	return &taskStore{s: s}
}

type userStore struct {
	s *Storage
}

func (u *userStore) Init(ctx context.Context) error { return nil }

func (u *userStore) Create(ctx context.Context, user *domain.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	for _, existing := range u.s.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	u.s.users[user.ID] = *user
	return nil
}

func (u *userStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	for _, user := range u.s.users {
		if user.Email == email {
			found := user
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (u *userStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	user, ok := u.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (u *userStore) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	users := make([]domain.User, 0, len(u.s.users))
	for _, user := range u.s.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return page(users, limit, offset), nil
}

func (u *userStore) Count(ctx context.Context) (int, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	return len(u.s.users), nil
}

type taskStore struct {
	s *Storage
}

func (t *taskStore) Init(ctx context.Context) error { return nil }

func (t *taskStore) Create(ctx context.Context, task *domain.Task) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	t.s.tasks[task.ID] = *task
	return nil
}

func (t *taskStore) Get(ctx context.Context, id string) (*domain.Task, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	task, ok := t.s.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &task, nil
}

func (t *taskStore) Update(ctx context.Context, task *domain.Task) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if _, ok := t.s.tasks[task.ID]; !ok {
		return repository.ErrNotFound
	}
	task.UpdatedAt = time.Now().UTC()
	t.s.tasks[task.ID] = *task
	return nil
}

func (t *taskStore) Delete(ctx context.Context, id string) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if _, ok := t.s.tasks[id]; !ok {
		return repository.ErrNotFound
	}
	delete(t.s.tasks, id)
	return nil
}

func (t *taskStore) List(ctx context.Context, filter repository.TaskFilter, limit, offset int) ([]domain.Task, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return page(t.matching(filter), limit, offset), nil
}

func (t *taskStore) Count(ctx context.Context, filter repository.TaskFilter) (int, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return len(t.matching(filter)), nil
}

// matching must be called with the lock held.
func (t *taskStore) matching(filter repository.TaskFilter) []domain.Task {
	tasks := make([]domain.Task, 0, len(t.s.tasks))
	for _, task := range t.s.tasks {
		if filter.OwnerID != "" && task.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		tasks = append(tasks, task)
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
