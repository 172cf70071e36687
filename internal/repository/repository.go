// Package repository declares the storage contracts the service layer
// depends on. Two implementations exist: postgres (pgx) and inmemory.
package repository

import (
	"context"
	"errors"
	"time"

	"taskdeck/internal/models/category"
	"taskdeck/internal/models/task"
	"taskdeck/internal/query"

	"github.com/google/uuid"
)

// ErrNotFound covers both a genuinely missing row and an ownership
// mismatch; the two are deliberately indistinguishable.
var ErrNotFound = errors.New("not found")

type TaskStore interface {
	// List executes a compiled plan and returns the window of hydrated
	// rows plus the total count over the unpaginated predicate set.
	List(ctx context.Context, plan query.Plan) ([]*task.Task, int, error)

	// GetByID returns a hydrated task. Trashed rows are invisible unless
	// withTrashed is set.
	GetByID(ctx context.Context, owner, id uuid.UUID, withTrashed bool) (*task.Task, error)

	// MaxActivePosition reports the highest position among the owner's
	// active tasks; ok is false when the active set is empty.
	MaxActivePosition(ctx context.Context, owner uuid.UUID) (pos int64, ok bool, err error)

	Create(ctx context.Context, t *task.Task) error

	// Update writes the scalar fields of an active task, scoped by owner.
	Update(ctx context.Context, t *task.Task) error

	// SoftDelete stamps deleted_at on an active task; Restore clears it
	// on a trashed one. Both return ErrNotFound when no row transitions.
	SoftDelete(ctx context.Context, owner, id uuid.UUID, at time.Time) error
	Restore(ctx context.Context, owner, id uuid.UUID) error

	// UpdatePosition writes one positional assignment and reports how
	// many rows matched (0 when the id is absent or owned by someone
	// else).
	UpdatePosition(ctx context.Context, owner, id uuid.UUID, pos int64) (int64, error)

	// ListTrash returns every trashed task for the owner, most recently
	// deleted first.
	ListTrash(ctx context.Context, owner uuid.UUID) ([]*task.Task, error)

	// ReplaceLinks swaps the task's category set.
	ReplaceLinks(ctx context.Context, taskID uuid.UUID, categoryIDs []uuid.UUID) error

	// Stats aggregates the owner's tasks for the dashboard.
	Stats(ctx context.Context, owner uuid.UUID, today time.Time) (task.Stats, error)
}

type CategoryStore interface {
	// List returns the owner's categories ordered by name, with counts of
	// linked active tasks.
	List(ctx context.Context, owner uuid.UUID) ([]*category.Category, error)
	GetByID(ctx context.Context, owner, id uuid.UUID) (*category.Category, error)
	Create(ctx context.Context, c *category.Category) error
	Update(ctx context.Context, c *category.Category) error
	Delete(ctx context.Context, owner, id uuid.UUID) error

	// LinkCount counts every link to the category, trashed tasks
	// included; the delete guard uses it.
	LinkCount(ctx context.Context, id uuid.UUID) (int, error)
	DeleteLinks(ctx context.Context, id uuid.UUID) error

	// CountOwned reports how many of the given ids exist under the owner.
	CountOwned(ctx context.Context, owner uuid.UUID, ids []uuid.UUID) (int, error)
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
