package task

import (
	"time"

	"github.com/google/uuid"
)

type Status string
type Priority string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// CategorySummary is the hydrated view of a linked category.
type CategorySummary struct {
	ID    uuid.UUID `json:"id" db:"id"`
	Name  string    `json:"name" db:"name"`
	Color string    `json:"color" db:"color"`
}

// Task is the core row. Position is unique per owner among tasks with
// DeletedAt == nil; trashed rows may share position values freely.
type Task struct {
	ID          uuid.UUID         `json:"id" db:"id"`
	OwnerID     uuid.UUID         `json:"-" db:"owner_id"`
	Title       string            `json:"title" db:"title"`
	Description *string           `json:"description" db:"description"`
	Priority    Priority          `json:"priority" db:"priority"`
	Status      Status            `json:"status" db:"status"`
	DueDate     *time.Time        `json:"due_date" db:"due_date"`
	Position    int64             `json:"position" db:"position"`
	DeletedAt   *time.Time        `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" db:"updated_at"`
	Categories  []CategorySummary `json:"categories"`
}

func (t *Task) Active() bool {
	return t.DeletedAt == nil
}

// Clone returns a deep copy; the optimistic cache and the in-memory store
// both hand out copies so callers can never mutate shared state.
func (t *Task) Clone() *Task {
	c := *t
	if t.Description != nil {
		d := *t.Description
		c.Description = &d
	}
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.DeletedAt != nil {
		d := *t.DeletedAt
		c.DeletedAt = &d
	}
	if t.Categories != nil {
		c.Categories = make([]CategorySummary, len(t.Categories))
		copy(c.Categories, t.Categories)
	}
	return &c
}

// Stats are the dashboard aggregates over one owner's tasks.
type Stats struct {
	Total      int `json:"total"`
	Todo       int `json:"todo"`
	InProgress int `json:"in_progress"`
	Done       int `json:"done"`
	Overdue    int `json:"overdue"`
	DueToday   int `json:"due_today"`
	Trashed    int `json:"trashed"`
}
