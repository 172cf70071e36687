package handlers

import (
	"context"

	"taskdeck/internal/models/category"
	"taskdeck/internal/models/task"
	"taskdeck/internal/query"
	"taskdeck/internal/service"

	"github.com/google/uuid"
)

type TaskService interface {
	List(ctx context.Context, owner uuid.UUID, f query.Filter) (*service.ListResult, error)
	GetByID(ctx context.Context, owner, id uuid.UUID) (*task.Task, error)
	Create(ctx context.Context, owner uuid.UUID, c service.TaskCreate) (*task.Task, error)
	Update(ctx context.Context, owner, id uuid.UUID, changes service.TaskChanges) (*task.Task, error)
	SoftDelete(ctx context.Context, owner, id uuid.UUID) error
	Restore(ctx context.Context, owner, id uuid.UUID) (*task.Task, error)
	Reorder(ctx context.Context, owner uuid.UUID, items []service.ReorderItem) (service.ReorderResult, error)
	ListTrash(ctx context.Context, owner uuid.UUID) ([]*task.Task, error)
	Stats(ctx context.Context, owner uuid.UUID) (task.Stats, error)
}

type CategoryService interface {
	List(ctx context.Context, owner uuid.UUID) ([]*category.Category, error)
	Create(ctx context.Context, owner uuid.UUID, name, color string) (*category.Category, error)
	Update(ctx context.Context, owner, id uuid.UUID, changes service.CategoryChanges) (*category.Category, error)
	Delete(ctx context.Context, owner, id uuid.UUID, force bool) error
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
