package task

import "time"

// Option mutates a task in place; the service applies options on the
// hydrated row before writing it back, so PATCH requests only touch the
// fields they carry.
type Option func(*Task)

func WithTitle(title string) Option {
	return func(t *Task) {
		t.Title = title
	}
}

// WithDescription accepts nil to clear the field.
func WithDescription(description *string) Option {
	return func(t *Task) {
		t.Description = description
	}
}

func WithStatus(status Status) Option {
	return func(t *Task) {
		t.Status = status
	}
}

func WithPriority(priority Priority) Option {
	return func(t *Task) {
		t.Priority = priority
	}
}

// WithDueDate accepts nil to clear the field.
func WithDueDate(due *time.Time) Option {
	return func(t *Task) {
		t.DueDate = due
	}
}
