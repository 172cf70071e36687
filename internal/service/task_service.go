package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskdeck/internal/logger"
	"taskdeck/internal/models/task"
	"taskdeck/internal/position"
	"taskdeck/internal/query"
	"taskdeck/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TaskService orchestrates the allocator, the filter compiler and the
// stores to serve list/detail/create/update/delete/reorder, and owns the
// ACTIVE -> TRASHED -> ACTIVE lifecycle.
type TaskService struct {
	tasks      repository.TaskStore
	categories repository.CategoryStore
	now        func() time.Time
}

func NewTaskService(tasks repository.TaskStore, categories repository.CategoryStore) *TaskService {
	return &TaskService{
		tasks:      tasks,
		categories: categories,
		now:        time.Now,
	}
}

type ListResult struct {
	Tasks []*task.Task
	Total int
	Page  int
	Limit int
}

type TaskCreate struct {
	Title       string
	Description *string
	DueDate     *time.Time
	Priority    task.Priority // empty defaults to medium
	Status      task.Status   // empty defaults to todo
	CategoryIDs []uuid.UUID
}

// TaskChanges is a partial update; Set flags distinguish "clear the
// field" from "leave it alone" for nullable fields.
type TaskChanges struct {
	Title          *string
	Description    *string
	DescriptionSet bool
	DueDate        *time.Time
	DueDateSet     bool
	Priority       *task.Priority
	Status         *task.Status
	CategoryIDs    []uuid.UUID
	CategoriesSet  bool
}

func (c TaskChanges) apply(t *task.Task) {
	opts := []task.Option{}
	if c.Title != nil {
		opts = append(opts, task.WithTitle(*c.Title))
	}
	if c.DescriptionSet {
		opts = append(opts, task.WithDescription(c.Description))
	}
	if c.DueDateSet {
		opts = append(opts, task.WithDueDate(c.DueDate))
	}
	if c.Priority != nil {
		opts = append(opts, task.WithPriority(*c.Priority))
	}
	if c.Status != nil {
		opts = append(opts, task.WithStatus(*c.Status))
	}
	for _, opt := range opts {
		opt(t)
	}
}

type ReorderItem struct {
	ID       uuid.UUID
	Position int64
}

// ReorderResult surfaces the affected-row count: items referencing rows
// the caller does not own match nothing and are counted as skipped
// rather than silently folded into success.
type ReorderResult struct {
	Requested int
	Updated   int
}

func (s *TaskService) List(ctx context.Context, owner uuid.UUID, f query.Filter) (*ListResult, error) {
	plan := query.Compile(owner, f, s.now())

	tasks, total, err := s.tasks.List(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}

	return &ListResult{Tasks: tasks, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

func (s *TaskService) GetByID(ctx context.Context, owner, id uuid.UUID) (*task.Task, error) {
	t, err := s.tasks.GetByID(ctx, owner, id, false)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFound("task")
		}
		return nil, fmt.Errorf("getting task: %w", err)
	}
	return t, nil
}

func (s *TaskService) Create(ctx context.Context, owner uuid.UUID, c TaskCreate) (*task.Task, error) {
	t := &task.Task{
		ID:          uuid.New(),
		OwnerID:     owner,
		Title:       c.Title,
		Description: c.Description,
		DueDate:     c.DueDate,
		Priority:    c.Priority,
		Status:      c.Status,
	}
	if t.Priority == "" {
		t.Priority = task.PriorityMedium
	}
	if t.Status == "" {
		t.Status = task.StatusTodo
	}

	if err := validateTask(t); err != nil {
		return nil, err
	}
	categoryIDs, err := s.checkCategoryIDs(ctx, owner, c.CategoryIDs)
	if err != nil {
		return nil, err
	}

	last, hasActive, err := s.tasks.MaxActivePosition(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("allocating position: %w", err)
	}
	t.Position = position.Next(last, hasActive)

	if err := s.tasks.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	// Links are best-effort enrichment: the task row is already
	// committed, so a link failure returns the created task anyway.
	if len(categoryIDs) > 0 {
		if err := s.tasks.ReplaceLinks(ctx, t.ID, categoryIDs); err != nil {
			logger.Warn("Service: category links not saved on create",
				zap.String("task_id", t.ID.String()),
				zap.Error(err))
		}
	}

	created, err := s.tasks.GetByID(ctx, owner, t.ID, false)
	if err != nil {
		return nil, fmt.Errorf("reloading created task: %w", err)
	}
	return created, nil
}

func (s *TaskService) Update(ctx context.Context, owner, id uuid.UUID, changes TaskChanges) (*task.Task, error) {
	t, err := s.tasks.GetByID(ctx, owner, id, false)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFound("task")
		}
		return nil, fmt.Errorf("getting task: %w", err)
	}

	changes.apply(t)
	if err := validateTask(t); err != nil {
		return nil, err
	}
	var categoryIDs []uuid.UUID
	if changes.CategoriesSet {
		ids, err := s.checkCategoryIDs(ctx, owner, changes.CategoryIDs)
		if err != nil {
			return nil, err
		}
		categoryIDs = ids
	}

	if err := s.tasks.Update(ctx, t); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFound("task")
		}
		return nil, fmt.Errorf("updating task: %w", err)
	}

	if changes.CategoriesSet {
		if err := s.tasks.ReplaceLinks(ctx, t.ID, categoryIDs); err != nil {
			return nil, fmt.Errorf("replacing category links: %w", err)
		}
	}

	updated, err := s.tasks.GetByID(ctx, owner, id, false)
	if err != nil {
		return nil, fmt.Errorf("reloading updated task: %w", err)
	}
	return updated, nil
}

func (s *TaskService) SoftDelete(ctx context.Context, owner, id uuid.UUID) error {
	err := s.tasks.SoftDelete(ctx, owner, id, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewNotFound("task")
		}
		return fmt.Errorf("deleting task: %w", err)
	}
	return nil
}

func (s *TaskService) Restore(ctx context.Context, owner, id uuid.UUID) (*task.Task, error) {
	if err := s.tasks.Restore(ctx, owner, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFound("task")
		}
		return nil, fmt.Errorf("restoring task: %w", err)
	}

	t, err := s.tasks.GetByID(ctx, owner, id, false)
	if err != nil {
		return nil, fmt.Errorf("reloading restored task: %w", err)
	}
	return t, nil
}

func (s *TaskService) Reorder(ctx context.Context, owner uuid.UUID, items []ReorderItem) (ReorderResult, error) {
	if len(items) == 0 {
		return ReorderResult{}, NewFieldValidation("items", "at least one item is required")
	}
	for _, item := range items {
		if item.Position <= 0 {
			return ReorderResult{}, NewFieldValidation("items", "positions must be positive")
		}
		if item.ID == uuid.Nil {
			return ReorderResult{}, NewFieldValidation("items", "item id must be set")
		}
	}

	res := ReorderResult{Requested: len(items)}
	for _, item := range items {
		n, err := s.tasks.UpdatePosition(ctx, owner, item.ID, item.Position)
		if err != nil {
			return res, fmt.Errorf("reordering tasks: %w", err)
		}
		res.Updated += int(n)
	}

	if res.Updated < res.Requested {
		logger.Warn("Service: reorder skipped unknown or foreign rows",
			zap.String("owner_id", owner.String()),
			zap.Int("requested", res.Requested),
			zap.Int("updated", res.Updated))
	}
	return res, nil
}

func (s *TaskService) ListTrash(ctx context.Context, owner uuid.UUID) ([]*task.Task, error) {
	tasks, err := s.tasks.ListTrash(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("listing trash: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) Stats(ctx context.Context, owner uuid.UUID) (task.Stats, error) {
	st, err := s.tasks.Stats(ctx, owner, s.now())
	if err != nil {
		return task.Stats{}, fmt.Errorf("reading stats: %w", err)
	}
	return st, nil
}

// checkCategoryIDs enforces the link cap and rejects ids that do not
// exist under the owner, all before any row is written. Duplicate ids
// collapse to one; the returned slice is what gets linked, keeping the
// link table's primary key out of reach.
func (s *TaskService) checkCategoryIDs(ctx context.Context, owner uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	unique := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	if err := validateCategoryCap(len(unique)); err != nil {
		return nil, err
	}
	if len(unique) == 0 {
		return unique, nil
	}

	owned, err := s.categories.CountOwned(ctx, owner, unique)
	if err != nil {
		return nil, fmt.Errorf("checking categories: %w", err)
	}
	if owned != len(unique) {
		return nil, NewFieldValidation("category_ids", "contains an unknown category")
	}
	return unique, nil
}
