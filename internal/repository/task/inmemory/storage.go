// Package inmemory is a mutex-guarded map storage used for tests and
// local development. It evaluates the same query plans the postgres
// store translates to SQL.
package inmemory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"taskdeck/internal/models/category"
	"taskdeck/internal/models/task"
	"taskdeck/internal/query"
	"taskdeck/internal/repository"

	"github.com/google/uuid"
)

type Storage struct {
	mtx        *sync.RWMutex
	tasks      map[uuid.UUID]*task.Task
	categories map[uuid.UUID]*category.Category
	links      map[uuid.UUID][]uuid.UUID // task id -> category ids, insertion order
}

func NewStorage() *Storage {
	return &Storage{
		mtx:        &sync.RWMutex{},
		tasks:      make(map[uuid.UUID]*task.Task),
		categories: make(map[uuid.UUID]*category.Category),
		links:      make(map[uuid.UUID][]uuid.UUID),
	}
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	return nil
}

// hydrate attaches category summaries to a copy of the task.
func (s *Storage) hydrate(t *task.Task) *task.Task {
	out := t.Clone()
	out.Categories = []task.CategorySummary{}
	for _, catID := range s.links[t.ID] {
		if c, ok := s.categories[catID]; ok {
			out.Categories = append(out.Categories, task.CategorySummary{
				ID:    c.ID,
				Name:  c.Name,
				Color: c.Color,
			})
		}
	}
	return out
}

func (s *Storage) List(ctx context.Context, plan query.Plan) ([]*task.Task, int, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	matched := []*task.Task{}
	for _, t := range s.tasks {
		if !plan.Match(t) {
			continue
		}
		if plan.CategoryID != nil && !s.linked(t.ID, *plan.CategoryID) {
			continue
		}
		matched = append(matched, t)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Position < matched[j].Position
	})

	total := len(matched)
	start := plan.Window.Offset
	if start > total {
		start = total
	}
	end := start + plan.Window.Limit
	if end > total {
		end = total
	}

	page := make([]*task.Task, 0, end-start)
	for _, t := range matched[start:end] {
		page = append(page, s.hydrate(t))
	}
	return page, total, nil
}

func (s *Storage) linked(taskID, categoryID uuid.UUID) bool {
	for _, id := range s.links[taskID] {
		if id == categoryID {
			return true
		}
	}
	return false
}

func (s *Storage) GetByID(ctx context.Context, owner, id uuid.UUID, withTrashed bool) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	t, ok := s.tasks[id]
	if !ok || t.OwnerID != owner {
		return nil, repository.ErrNotFound
	}
	if !t.Active() && !withTrashed {
		return nil, repository.ErrNotFound
	}
	return s.hydrate(t), nil
}

func (s *Storage) MaxActivePosition(ctx context.Context, owner uuid.UUID) (int64, bool, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	var max int64
	found := false
	for _, t := range s.tasks {
		if t.OwnerID != owner || !t.Active() {
			continue
		}
		if !found || t.Position > max {
			max = t.Position
			found = true
		}
	}
	return max, found, nil
}

func (s *Storage) Create(ctx context.Context, t *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	s.tasks[t.ID] = t.Clone()
	return nil
}

func (s *Storage) Update(ctx context.Context, t *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existing, ok := s.tasks[t.ID]
	if !ok || existing.OwnerID != t.OwnerID || !existing.Active() {
		return repository.ErrNotFound
	}

	updated := t.Clone()
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now()
	t.UpdatedAt = updated.UpdatedAt
	s.tasks[t.ID] = updated
	return nil
}

func (s *Storage) SoftDelete(ctx context.Context, owner, id uuid.UUID, at time.Time) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.OwnerID != owner || !t.Active() {
		return repository.ErrNotFound
	}
	t.DeletedAt = &at
	t.UpdatedAt = at
	return nil
}

func (s *Storage) Restore(ctx context.Context, owner, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.OwnerID != owner || t.Active() {
		return repository.ErrNotFound
	}
	t.DeletedAt = nil
	t.UpdatedAt = time.Now()
	return nil
}

func (s *Storage) UpdatePosition(ctx context.Context, owner, id uuid.UUID, pos int64) (int64, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.OwnerID != owner || !t.Active() {
		return 0, nil
	}
	t.Position = pos
	t.UpdatedAt = time.Now()
	return 1, nil
}

func (s *Storage) ListTrash(ctx context.Context, owner uuid.UUID) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	trashed := []*task.Task{}
	for _, t := range s.tasks {
		if t.OwnerID == owner && !t.Active() {
			trashed = append(trashed, s.hydrate(t))
		}
	}

	sort.Slice(trashed, func(i, j int) bool {
		return trashed[i].DeletedAt.After(*trashed[j].DeletedAt)
	})
	return trashed, nil
}

func (s *Storage) ReplaceLinks(ctx context.Context, taskID uuid.UUID, categoryIDs []uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	ids := make([]uuid.UUID, len(categoryIDs))
	copy(ids, categoryIDs)
	s.links[taskID] = ids
	return nil
}

func (s *Storage) Stats(ctx context.Context, owner uuid.UUID, today time.Time) (task.Stats, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	var st task.Stats
	for _, t := range s.tasks {
		if t.OwnerID != owner {
			continue
		}
		if !t.Active() {
			st.Trashed++
			continue
		}
		st.Total++
		switch t.Status {
		case task.StatusTodo:
			st.Todo++
		case task.StatusInProgress:
			st.InProgress++
		case task.StatusDone:
			st.Done++
		}
		if t.DueDate != nil && t.Status != task.StatusDone {
			if query.DayBefore(*t.DueDate, today) {
				st.Overdue++
			} else if query.SameDay(*t.DueDate, today) {
				st.DueToday++
			}
		}
	}
	return st, nil
}

// CategoryStorage exposes the category half of the shared maps as its
// own store, mirroring the split postgres uses.
type CategoryStorage struct {
	s *Storage
}

func (s *Storage) Categories() *CategoryStorage {
	return &CategoryStorage{s: s}
}

func (c *CategoryStorage) List(ctx context.Context, owner uuid.UUID) ([]*category.Category, error) {
	return c.s.listCategories(ctx, owner)
}

func (c *CategoryStorage) GetByID(ctx context.Context, owner, id uuid.UUID) (*category.Category, error) {
	return c.s.getCategoryByID(ctx, owner, id)
}

func (c *CategoryStorage) Create(ctx context.Context, cat *category.Category) error {
	return c.s.createCategory(ctx, cat)
}

func (c *CategoryStorage) Update(ctx context.Context, cat *category.Category) error {
	return c.s.updateCategory(ctx, cat)
}

func (c *CategoryStorage) Delete(ctx context.Context, owner, id uuid.UUID) error {
	return c.s.deleteCategory(ctx, owner, id)
}

func (c *CategoryStorage) LinkCount(ctx context.Context, id uuid.UUID) (int, error) {
	return c.s.linkCount(ctx, id)
}

func (c *CategoryStorage) DeleteLinks(ctx context.Context, id uuid.UUID) error {
	return c.s.deleteLinks(ctx, id)
}

func (c *CategoryStorage) CountOwned(ctx context.Context, owner uuid.UUID, ids []uuid.UUID) (int, error) {
	return c.s.countOwned(ctx, owner, ids)
}

func (s *Storage) listCategories(ctx context.Context, owner uuid.UUID) ([]*category.Category, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	out := []*category.Category{}
	for _, c := range s.categories {
		if c.OwnerID != owner {
			continue
		}
		cc := *c
		cc.TaskCount = s.activeLinkCount(c.ID)
		out = append(out, &cc)
	}

	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (s *Storage) activeLinkCount(categoryID uuid.UUID) int {
	count := 0
	for taskID, catIDs := range s.links {
		t, ok := s.tasks[taskID]
		if !ok || !t.Active() {
			continue
		}
		for _, id := range catIDs {
			if id == categoryID {
				count++
				break
			}
		}
	}
	return count
}

func (s *Storage) getCategoryByID(ctx context.Context, owner, id uuid.UUID) (*category.Category, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	c, ok := s.categories[id]
	if !ok || c.OwnerID != owner {
		return nil, repository.ErrNotFound
	}
	cc := *c
	cc.TaskCount = s.activeLinkCount(id)
	return &cc, nil
}

func (s *Storage) createCategory(ctx context.Context, c *category.Category) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	c.CreatedAt = time.Now()
	cc := *c
	s.categories[c.ID] = &cc
	return nil
}

func (s *Storage) updateCategory(ctx context.Context, c *category.Category) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existing, ok := s.categories[c.ID]
	if !ok || existing.OwnerID != c.OwnerID {
		return repository.ErrNotFound
	}
	existing.Name = c.Name
	existing.Color = c.Color
	return nil
}

func (s *Storage) deleteCategory(ctx context.Context, owner, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	c, ok := s.categories[id]
	if !ok || c.OwnerID != owner {
		return repository.ErrNotFound
	}
	delete(s.categories, id)
	return nil
}

func (s *Storage) linkCount(ctx context.Context, id uuid.UUID) (int, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	count := 0
	for _, catIDs := range s.links {
		for _, cid := range catIDs {
			if cid == id {
				count++
				break
			}
		}
	}
	return count, nil
}

func (s *Storage) deleteLinks(ctx context.Context, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for taskID, catIDs := range s.links {
		kept := catIDs[:0]
		for _, cid := range catIDs {
			if cid != id {
				kept = append(kept, cid)
			}
		}
		s.links[taskID] = kept
	}
	return nil
}

func (s *Storage) countOwned(ctx context.Context, owner uuid.UUID, ids []uuid.UUID) (int, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	count := 0
	for _, id := range ids {
		if c, ok := s.categories[id]; ok && c.OwnerID == owner {
			count++
		}
	}
	return count, nil
}
