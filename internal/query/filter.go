// Package query turns a raw list request into an explicit plan the
// storage layer executes in one call: a set of predicates, the single
// position sort, and a pagination window.
package query

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"taskdeck/internal/models/task"

	"github.com/google/uuid"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
	MaxSearchLen = 200
)

type DueBucket string

const (
	DueToday   DueBucket = "today"
	DueWeek    DueBucket = "week"
	DueOverdue DueBucket = "overdue"
	DueNone    DueBucket = "none"
)

func (d DueBucket) Valid() bool {
	switch d {
	case DueToday, DueWeek, DueOverdue, DueNone:
		return true
	}
	return false
}

// Filter is the validated list request.
type Filter struct {
	Page       int
	Limit      int
	Status     *task.Status
	Priority   *task.Priority
	CategoryID *uuid.UUID
	Due        *DueBucket
	Search     string
}

// ValidationError reports every malformed field at once.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "invalid filter: " + strings.Join(keys, ", ")
}

// ParseFilter validates raw query parameters. Numeric-looking strings for
// page/limit are coerced before range checks; everything else is rejected
// rather than coerced.
func ParseFilter(values url.Values) (Filter, error) {
	f := Filter{Page: DefaultPage, Limit: DefaultLimit}
	problems := map[string]string{}

	if raw := values.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			problems["page"] = "must be an integer"
		case page < 1:
			problems["page"] = "must be >= 1"
		default:
			f.Page = page
		}
	}

	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			problems["limit"] = "must be an integer"
		case limit < 1 || limit > MaxLimit:
			problems["limit"] = fmt.Sprintf("must be between 1 and %d", MaxLimit)
		default:
			f.Limit = limit
		}
	}

	if raw := values.Get("status"); raw != "" {
		s := task.Status(raw)
		if !s.Valid() {
			problems["status"] = "must be one of: todo, in_progress, done"
		} else {
			f.Status = &s
		}
	}

	if raw := values.Get("priority"); raw != "" {
		p := task.Priority(raw)
		if !p.Valid() {
			problems["priority"] = "must be one of: low, medium, high, urgent"
		} else {
			f.Priority = &p
		}
	}

	if raw := values.Get("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			problems["category_id"] = "must be a valid uuid"
		} else {
			f.CategoryID = &id
		}
	}

	if raw := values.Get("due"); raw != "" {
		d := DueBucket(raw)
		if !d.Valid() {
			problems["due"] = "must be one of: today, week, overdue, none"
		} else {
			f.Due = &d
		}
	}

	if raw := values.Get("search"); raw != "" {
		if utf8.RuneCountInString(raw) > MaxSearchLen {
			problems["search"] = fmt.Sprintf("must be at most %d characters", MaxSearchLen)
		} else {
			f.Search = raw
		}
	}

	if len(problems) > 0 {
		return Filter{}, &ValidationError{Fields: problems}
	}
	return f, nil
}

// Values renders the filter back to query parameters; the client uses it
// both for request URLs and as a stable cache key.
func (f Filter) Values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(f.Page))
	v.Set("limit", strconv.Itoa(f.Limit))
	if f.Status != nil {
		v.Set("status", string(*f.Status))
	}
	if f.Priority != nil {
		v.Set("priority", string(*f.Priority))
	}
	if f.CategoryID != nil {
		v.Set("category_id", f.CategoryID.String())
	}
	if f.Due != nil {
		v.Set("due", string(*f.Due))
	}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	return v
}
