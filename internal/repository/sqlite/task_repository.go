package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskboard/internal/domain"
	"taskboard/internal/repository"
)

const createTasksTable = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	owner_id TEXT NOT NULL REFERENCES users(id),
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) repository.TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createTasksTable); err != nil {
		return fmt.Errorf("create tasks table: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_tasks_owner ON tasks(owner_id)`); err != nil {
		return fmt.Errorf("create tasks owner index: %w", err)
	}
	return nil
}

func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
INSERT INTO tasks (id, title, description, status, owner_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		task.ID,
		task.Title,
		task.Description,
		string(task.Status),
		task.OwnerID,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (r *TaskRepository) Get(ctx context.Context, id string) (*domain.Task, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, title, description, status, owner_id, created_at, updated_at
FROM tasks
WHERE id = ?`,
		id,
	)
	return scanTask(row)
}

func (r *TaskRepository) Update(ctx context.Context, task *domain.Task) error {
	task.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
UPDATE tasks
SET title=?, description=?, status=?, updated_at=?
WHERE id=?`,
		task.Title,
		task.Description,
		string(task.Status),
		task.UpdatedAt,
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("task update rows affected: %w", err)
	}
	if aff == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("task delete rows affected: %w", err)
	}
	if aff == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *TaskRepository) List(ctx context.Context, filter repository.TaskFilter, limit, offset int) ([]domain.Task, error) {
	where, args := buildTaskFilter(filter)
	query := fmt.Sprintf(`
SELECT id, title, description, status, owner_id, created_at, updated_at
FROM tasks%s
ORDER BY created_at, id
LIMIT ? OFFSET ?`, where)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func (r *TaskRepository) Count(ctx context.Context, filter repository.TaskFilter) (int, error) {
	where, args := buildTaskFilter(filter)
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return total, nil
}

func buildTaskFilter(filter repository.TaskFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.OwnerID != "" {
		conds = append(conds, "owner_id = ?")
		args = append(args, filter.OwnerID)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "\nWHERE " + strings.Join(conds, " AND "), args
}

func scanTask(scanner interface {
	Scan(dest ...any) error
}) (*domain.Task, error) {
	var (
		task   domain.Task
		status string
	)
	if err := scanner.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&status,
		&task.OwnerID,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	task.Status = domain.TaskStatus(status)
	return &task, nil
}
