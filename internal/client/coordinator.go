package client

import (
	"context"
	"errors"
	"sort"
	"sync"

	"taskdeck/internal/logger"
	"taskdeck/internal/models/task"
	"taskdeck/internal/query"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Coordinator keeps list snapshots per filter and applies update, delete
// and reorder results to them before the server confirms. Every
// optimistic write records a verbatim undo snapshot; a failed mutation
// restores exactly what was captured, never a partial patch. Win or
// lose, affected filters are refetched afterwards so server-derived
// state converges.
type Coordinator struct {
	gateway Gateway

	mtx      sync.Mutex
	cache    map[string]*ListPage
	filters  map[string]query.Filter
	inflight map[string]*inflightFetch
}

type inflightFetch struct {
	cancel context.CancelFunc
}

func NewCoordinator(gateway Gateway) *Coordinator {
	return &Coordinator{
		gateway:  gateway,
		cache:    make(map[string]*ListPage),
		filters:  make(map[string]query.Filter),
		inflight: make(map[string]*inflightFetch),
	}
}

func cacheKey(f query.Filter) string {
	return f.Values().Encode()
}

// List fetches a page and caches it. A newer call for the same filter
// cancels the one still in flight; the superseded caller sees a
// context.Canceled error and must not treat it as data.
func (c *Coordinator) List(ctx context.Context, f query.Filter) (*ListPage, error) {
	key := cacheKey(f)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fetch := &inflightFetch{cancel: cancel}
	c.mtx.Lock()
	if prev, ok := c.inflight[key]; ok {
		prev.cancel()
	}
	c.inflight[key] = fetch
	c.mtx.Unlock()

	page, err := c.gateway.List(ctx, f)

	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.inflight[key] == fetch {
		delete(c.inflight, key)
	}

	if err != nil {
		return nil, err
	}

	// A superseded fetch must not overwrite the newer result.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	c.cache[key] = page.clone()
	c.filters[key] = f
	return page, nil
}

// Cached returns a copy of the cached page for a filter, if present.
func (c *Coordinator) Cached(f query.Filter) (*ListPage, bool) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	page, ok := c.cache[cacheKey(f)]
	if !ok {
		return nil, false
	}
	return page.clone(), true
}

// Update merges the patch into every cached copy of the task, then
// confirms with the server. On failure every touched entry is restored
// from its snapshot.
func (c *Coordinator) Update(ctx context.Context, id uuid.UUID, patch TaskPatch) error {
	c.mtx.Lock()
	snapshots := make(map[string]*ListPage)
	for key, page := range c.cache {
		touched := false
		for _, t := range page.Tasks {
			if t.ID == id {
				touched = true
				break
			}
		}
		if !touched {
			continue
		}
		snapshots[key] = page.clone()
		for _, t := range page.Tasks {
			if t.ID == id {
				patch.apply(t)
			}
		}
	}
	c.mtx.Unlock()

	_, err := c.gateway.Update(ctx, id, patch)
	if err != nil {
		c.rollback(snapshots)
	}

	c.refetch(ctx, keysOf(snapshots))
	return err
}

// Delete removes the task from every cached snapshot and decrements the
// snapshot totals, then confirms with the server.
func (c *Coordinator) Delete(ctx context.Context, id uuid.UUID) error {
	c.mtx.Lock()
	snapshots := make(map[string]*ListPage)
	for key, page := range c.cache {
		idx := -1
		for i, t := range page.Tasks {
			if t.ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			continue
		}
		snapshots[key] = page.clone()
		page.Tasks = append(page.Tasks[:idx], page.Tasks[idx+1:]...)
		page.Total--
	}
	c.mtx.Unlock()

	err := c.gateway.Delete(ctx, id)
	if err != nil {
		c.rollback(snapshots)
	}

	c.refetch(ctx, keysOf(snapshots))
	return err
}

// Reorder applies the dragged arrangement to the cached page for the
// filter immediately; only a server failure restores the pre-drag order.
func (c *Coordinator) Reorder(ctx context.Context, f query.Filter, items []ReorderItem) error {
	key := cacheKey(f)

	c.mtx.Lock()
	snapshots := make(map[string]*ListPage)
	if page, ok := c.cache[key]; ok {
		snapshots[key] = page.clone()

		byID := make(map[uuid.UUID]int64, len(items))
		for _, item := range items {
			byID[item.ID] = item.Position
		}
		for _, t := range page.Tasks {
			if pos, ok := byID[t.ID]; ok {
				t.Position = pos
			}
		}
		sortByPosition(page.Tasks)
	}
	c.mtx.Unlock()

	err := c.gateway.Reorder(ctx, items)
	if err != nil {
		c.rollback(snapshots)
	}

	c.refetch(ctx, keysOf(snapshots))
	return err
}

// Invalidate drops cached state for a filter, forcing the next List to
// hit the server.
func (c *Coordinator) Invalidate(f query.Filter) {
	key := cacheKey(f)
	c.mtx.Lock()
	defer c.mtx.Unlock()
	delete(c.cache, key)
	delete(c.filters, key)
}

func (c *Coordinator) rollback(snapshots map[string]*ListPage) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	for key, snap := range snapshots {
		c.cache[key] = snap
	}
}

func sortByPosition(tasks []*task.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Position < tasks[j].Position
	})
}

func keysOf(snapshots map[string]*ListPage) []string {
	keys := make([]string, 0, len(snapshots))
	for key := range snapshots {
		keys = append(keys, key)
	}
	return keys
}

// refetch reconciles the affected filters with server state. Optimistic
// state is a latency hide, never the system of record, so this runs
// after success and failure alike. Failures here only log; the mutation
// outcome is already decided.
func (c *Coordinator) refetch(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}

	c.mtx.Lock()
	filters := make([]query.Filter, 0, len(keys))
	for _, key := range keys {
		if f, ok := c.filters[key]; ok {
			filters = append(filters, f)
		}
	}
	c.mtx.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, f := range filters {
		g.Go(func() error {
			_, err := c.List(ctx, f)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("Client: reconciliation refetch failed",
					zap.String("filter", cacheKey(f)),
					zap.Error(err))
			}
			return nil
		})
	}
	g.Wait()
}
