// Package client is the consumer-side counterpart of the task API: a
// gateway speaking the HTTP surface and a coordinator that applies
// mutations to cached lists before the server confirms them.
package client

import (
	"context"
	"time"

	"taskdeck/internal/models/task"
	"taskdeck/internal/query"

	"github.com/google/uuid"
)

// ListPage is one cached page of results for a filter.
type ListPage struct {
	Tasks []*task.Task
	Total int
	Page  int
	Limit int
}

func (p *ListPage) clone() *ListPage {
	c := &ListPage{Total: p.Total, Page: p.Page, Limit: p.Limit}
	c.Tasks = make([]*task.Task, len(p.Tasks))
	for i, t := range p.Tasks {
		c.Tasks[i] = t.Clone()
	}
	return c
}

// TaskPatch is a partial update; Set flags distinguish clearing a
// nullable field from leaving it untouched.
type TaskPatch struct {
	Title          *string
	Description    *string
	DescriptionSet bool
	DueDate        *time.Time
	DueDateSet     bool
	Priority       *task.Priority
	Status         *task.Status
}

func (p TaskPatch) apply(t *task.Task) {
	opts := []task.Option{}
	if p.Title != nil {
		opts = append(opts, task.WithTitle(*p.Title))
	}
	if p.DescriptionSet {
		opts = append(opts, task.WithDescription(p.Description))
	}
	if p.DueDateSet {
		opts = append(opts, task.WithDueDate(p.DueDate))
	}
	if p.Priority != nil {
		opts = append(opts, task.WithPriority(*p.Priority))
	}
	if p.Status != nil {
		opts = append(opts, task.WithStatus(*p.Status))
	}
	for _, opt := range opts {
		opt(t)
	}
}

// ReorderItem pairs a task with its target position.
type ReorderItem struct {
	ID       uuid.UUID
	Position int64
}

// Gateway is the server surface the coordinator drives.
type Gateway interface {
	List(ctx context.Context, f query.Filter) (*ListPage, error)
	Update(ctx context.Context, id uuid.UUID, patch TaskPatch) (*task.Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Reorder(ctx context.Context, items []ReorderItem) error
}
