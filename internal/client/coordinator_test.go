package client_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"taskdeck/internal/client"
	"taskdeck/internal/models/task"
	"taskdeck/internal/query"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGateway serves canned pages and records mutation calls; mutation
// outcomes are scripted per test.
type fakeGateway struct {
	mtx sync.Mutex

	page       *client.ListPage
	listErr    error
	listDelay  time.Duration
	listCalls  int
	updateErr  error
	deleteErr  error
	reorderErr error
}

func (g *fakeGateway) List(ctx context.Context, f query.Filter) (*client.ListPage, error) {
	g.mtx.Lock()
	g.listCalls++
	page, delay, err := g.page, g.listDelay, g.listErr
	g.mtx.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	copied := &client.ListPage{Total: page.Total, Page: page.Page, Limit: page.Limit}
	for _, t := range page.Tasks {
		copied.Tasks = append(copied.Tasks, t.Clone())
	}
	return copied, nil
}

func (g *fakeGateway) Update(ctx context.Context, id uuid.UUID, patch client.TaskPatch) (*task.Task, error) {
	if g.updateErr != nil {
		return nil, g.updateErr
	}
	return &task.Task{ID: id}, nil
}

func (g *fakeGateway) Delete(ctx context.Context, id uuid.UUID) error {
	return g.deleteErr
}

func (g *fakeGateway) Reorder(ctx context.Context, items []client.ReorderItem) error {
	return g.reorderErr
}

func strPtr(s string) *string { return &s }

func makePage(tasks ...*task.Task) *client.ListPage {
	return &client.ListPage{Tasks: tasks, Total: len(tasks), Page: 1, Limit: 20}
}

func makeTask(title string, pos int64) *task.Task {
	return &task.Task{
		ID:       uuid.New(),
		Title:    title,
		Priority: task.PriorityMedium,
		Status:   task.StatusTodo,
		Position: pos,
	}
}

func TestCoordinator_UpdateAppliesOptimistically(t *testing.T) {
	first := makeTask("write report", 1000)
	second := makeTask("file expenses", 2000)
	gw := &fakeGateway{page: makePage(first, second)}
	coord := client.NewCoordinator(gw)

	filter := query.Filter{Page: 1, Limit: 20}
	_, err := coord.List(context.Background(), filter)
	require.NoError(t, err)

	err = coord.Update(context.Background(), first.ID, client.TaskPatch{Title: strPtr("write final report")})
	require.NoError(t, err)

	cached, ok := coord.Cached(filter)
	require.True(t, ok)
	assert.Equal(t, "write report", cached.Tasks[0].Title,
		"reconciliation refetch restores server truth")
}

func TestCoordinator_UpdateRollsBackOnFailure(t *testing.T) {
	first := makeTask("write report", 1000)
	first.Description = strPtr("quarterly numbers")
	second := makeTask("file expenses", 2000)
	gw := &fakeGateway{page: makePage(first, second)}
	coord := client.NewCoordinator(gw)

	filter := query.Filter{Page: 1, Limit: 20}
	_, err := coord.List(context.Background(), filter)
	require.NoError(t, err)

	before, ok := coord.Cached(filter)
	require.True(t, ok)

	gw.mtx.Lock()
	gw.updateErr = errors.New("server rejected update")
	gw.listErr = errors.New("server unavailable")
	gw.mtx.Unlock()

	newStatus := task.StatusDone
	err = coord.Update(context.Background(), first.ID, client.TaskPatch{
		Title:          strPtr("changed"),
		Status:         &newStatus,
		DescriptionSet: true,
	})
	require.Error(t, err)

	after, ok := coord.Cached(filter)
	require.True(t, ok)
	assert.Equal(t, before, after, "rollback must restore the snapshot verbatim")
}

func TestCoordinator_DeleteDecrementsTotal(t *testing.T) {
	first := makeTask("write report", 1000)
	second := makeTask("file expenses", 2000)
	gw := &fakeGateway{page: makePage(first, second)}
	coord := client.NewCoordinator(gw)

	filter := query.Filter{Page: 1, Limit: 20}
	_, err := coord.List(context.Background(), filter)
	require.NoError(t, err)

	// Block the reconciliation refetch so the optimistic state stays
	// observable.
	gw.mtx.Lock()
	gw.listErr = errors.New("server unavailable")
	gw.mtx.Unlock()

	err = coord.Delete(context.Background(), first.ID)
	require.NoError(t, err)

	cached, ok := coord.Cached(filter)
	require.True(t, ok)
	assert.Equal(t, 1, cached.Total)
	require.Len(t, cached.Tasks, 1)
	assert.Equal(t, second.ID, cached.Tasks[0].ID)
}

func TestCoordinator_DeleteRollsBackOnFailure(t *testing.T) {
	first := makeTask("write report", 1000)
	second := makeTask("file expenses", 2000)
	gw := &fakeGateway{page: makePage(first, second)}
	coord := client.NewCoordinator(gw)

	filter := query.Filter{Page: 1, Limit: 20}
	_, err := coord.List(context.Background(), filter)
	require.NoError(t, err)

	before, ok := coord.Cached(filter)
	require.True(t, ok)

	gw.mtx.Lock()
	gw.deleteErr = errors.New("server rejected delete")
	gw.listErr = errors.New("server unavailable")
	gw.mtx.Unlock()

	err = coord.Delete(context.Background(), first.ID)
	require.Error(t, err)

	after, ok := coord.Cached(filter)
	require.True(t, ok)
	assert.Equal(t, before, after)
}

func TestCoordinator_ReorderAppliesArrangement(t *testing.T) {
	first := makeTask("write report", 1000)
	second := makeTask("file expenses", 2000)
	gw := &fakeGateway{page: makePage(first, second)}
	coord := client.NewCoordinator(gw)

	filter := query.Filter{Page: 1, Limit: 20}
	_, err := coord.List(context.Background(), filter)
	require.NoError(t, err)

	gw.mtx.Lock()
	gw.listErr = errors.New("server unavailable")
	gw.mtx.Unlock()

	err = coord.Reorder(context.Background(), filter, []client.ReorderItem{
		{ID: second.ID, Position: 1000},
		{ID: first.ID, Position: 2000},
	})
	require.NoError(t, err)

	cached, ok := coord.Cached(filter)
	require.True(t, ok)
	require.Len(t, cached.Tasks, 2)
	assert.Equal(t, second.ID, cached.Tasks[0].ID)
	assert.Equal(t, first.ID, cached.Tasks[1].ID)
}

func TestCoordinator_ReorderRollsBackOnFailure(t *testing.T) {
	first := makeTask("write report", 1000)
	second := makeTask("file expenses", 2000)
	gw := &fakeGateway{page: makePage(first, second)}
	coord := client.NewCoordinator(gw)

	filter := query.Filter{Page: 1, Limit: 20}
	_, err := coord.List(context.Background(), filter)
	require.NoError(t, err)

	before, ok := coord.Cached(filter)
	require.True(t, ok)

	gw.mtx.Lock()
	gw.reorderErr = errors.New("server rejected reorder")
	gw.listErr = errors.New("server unavailable")
	gw.mtx.Unlock()

	err = coord.Reorder(context.Background(), filter, []client.ReorderItem{
		{ID: second.ID, Position: 1000},
		{ID: first.ID, Position: 2000},
	})
	require.Error(t, err)

	after, ok := coord.Cached(filter)
	require.True(t, ok)
	assert.Equal(t, before, after, "pre-drag arrangement must be restored")
}

func TestCoordinator_NewerListSupersedesOlder(t *testing.T) {
	first := makeTask("write report", 1000)
	gw := &fakeGateway{page: makePage(first), listDelay: 200 * time.Millisecond}
	coord := client.NewCoordinator(gw)

	filter := query.Filter{Page: 1, Limit: 20}

	errs := make(chan error, 1)
	go func() {
		_, err := coord.List(context.Background(), filter)
		errs <- err
	}()

	// Give the slow fetch time to register before superseding it.
	time.Sleep(50 * time.Millisecond)

	gw.mtx.Lock()
	gw.listDelay = 0
	gw.mtx.Unlock()

	_, err := coord.List(context.Background(), filter)
	require.NoError(t, err)

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("superseded fetch did not return")
	}

	_, ok := coord.Cached(filter)
	assert.True(t, ok)
}

func TestCoordinator_CachedReturnsCopies(t *testing.T) {
	first := makeTask("write report", 1000)
	gw := &fakeGateway{page: makePage(first)}
	coord := client.NewCoordinator(gw)

	filter := query.Filter{Page: 1, Limit: 20}
	_, err := coord.List(context.Background(), filter)
	require.NoError(t, err)

	cached, ok := coord.Cached(filter)
	require.True(t, ok)
	cached.Tasks[0].Title = "mutated by caller"

	again, ok := coord.Cached(filter)
	require.True(t, ok)
	assert.Equal(t, "write report", again.Tasks[0].Title)
}
