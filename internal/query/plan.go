package query

import (
	"strings"
	"time"

	"taskdeck/internal/models/task"

	"github.com/google/uuid"
)

// Window is the pagination slice applied after filtering.
type Window struct {
	Offset int
	Limit  int
}

// DueWindow is a due-bucket compiled against a concrete day. Bounds are
// inclusive; Before is exclusive. Null selects rows without a due date.
type DueWindow struct {
	From        *time.Time
	Until       *time.Time
	Before      *time.Time
	Null        bool
	ExcludeDone bool
}

// Plan restricts to one owner's active tasks, sorted by position
// ascending. That sort is the sole ordering key: the allocator guarantees
// no ties among active rows, so no secondary sort exists.
type Plan struct {
	Owner      uuid.UUID
	Status     *task.Status
	Priority   *task.Priority
	CategoryID *uuid.UUID
	Search     string
	Due        *DueWindow
	Window     Window
}

// Compile binds the filter to an owner and resolves the due bucket
// against today (server-local date, time-of-day discarded).
func Compile(owner uuid.UUID, f Filter, today time.Time) Plan {
	p := Plan{
		Owner:      owner,
		Status:     f.Status,
		Priority:   f.Priority,
		CategoryID: f.CategoryID,
		Search:     f.Search,
		Window: Window{
			Offset: (f.Page - 1) * f.Limit,
			Limit:  f.Limit,
		},
	}

	if f.Due == nil {
		return p
	}

	day := Day(today)
	switch *f.Due {
	case DueToday:
		p.Due = &DueWindow{From: &day, Until: &day, ExcludeDone: true}
	case DueWeek:
		end := day.AddDate(0, 0, 7)
		p.Due = &DueWindow{From: &day, Until: &end, ExcludeDone: true}
	case DueOverdue:
		p.Due = &DueWindow{Before: &day, ExcludeDone: true}
	case DueNone:
		p.Due = &DueWindow{Null: true}
	}
	return p
}

// Day truncates a timestamp to local midnight.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// dayKey flattens a timestamp to its calendar date so comparisons ignore
// the zone it was parsed in. Request due dates decode at UTC midnight
// while plan bounds are server-local midnights; comparing instants would
// shift buckets by a day on non-UTC servers.
func dayKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// SameDay reports whether two timestamps fall on the same calendar date,
// regardless of their locations.
func SameDay(a, b time.Time) bool {
	return dayKey(a) == dayKey(b)
}

// DayBefore reports whether a's calendar date is earlier than b's.
func DayBefore(a, b time.Time) bool {
	return dayKey(a) < dayKey(b)
}

// Match evaluates every predicate except the category link, which only
// the store can resolve. The in-memory store runs lists through this; the
// postgres store translates the same plan to SQL.
func (p Plan) Match(t *task.Task) bool {
	if t.OwnerID != p.Owner || !t.Active() {
		return false
	}
	if p.Status != nil && t.Status != *p.Status {
		return false
	}
	if p.Priority != nil && t.Priority != *p.Priority {
		return false
	}
	if p.Search != "" && !matchSearch(t, p.Search) {
		return false
	}
	if p.Due != nil && !p.Due.match(t) {
		return false
	}
	return true
}

func matchSearch(t *task.Task, search string) bool {
	needle := strings.ToLower(search)
	if strings.Contains(strings.ToLower(t.Title), needle) {
		return true
	}
	return t.Description != nil && strings.Contains(strings.ToLower(*t.Description), needle)
}

func (w *DueWindow) match(t *task.Task) bool {
	if w.Null {
		return t.DueDate == nil
	}
	if w.ExcludeDone && t.Status == task.StatusDone {
		return false
	}
	if t.DueDate == nil {
		return false
	}
	due := dayKey(*t.DueDate)
	if w.From != nil && due < dayKey(*w.From) {
		return false
	}
	if w.Until != nil && due > dayKey(*w.Until) {
		return false
	}
	if w.Before != nil && due >= dayKey(*w.Before) {
		return false
	}
	return true
}
