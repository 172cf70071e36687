package inmemory_test

import (
	"context"
	"testing"
	"time"

	"taskdeck/internal/models/category"
	"taskdeck/internal/models/task"
	"taskdeck/internal/query"
	"taskdeck/internal/repository"
	"taskdeck/internal/repository/task/inmemory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTask(t *testing.T, s *inmemory.Storage, owner uuid.UUID, title string, pos int64) *task.Task {
	t.Helper()
	row := &task.Task{
		ID:       uuid.New(),
		OwnerID:  owner,
		Title:    title,
		Priority: task.PriorityMedium,
		Status:   task.StatusTodo,
		Position: pos,
	}
	require.NoError(t, s.Create(context.Background(), row))
	return row
}

func planFor(owner uuid.UUID) query.Plan {
	return query.Compile(owner, query.Filter{Page: 1, Limit: 20}, time.Now())
}

func TestStorage_ListOrdersByPosition(t *testing.T) {
	s := inmemory.NewStorage()
	owner := uuid.New()
	ctx := context.Background()

	seedTask(t, s, owner, "third", 3000)
	seedTask(t, s, owner, "first", 1000)
	seedTask(t, s, owner, "second", 2000)

	tasks, total, err := s.List(ctx, planFor(owner))

	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, tasks, 3)
	assert.Equal(t, "first", tasks[0].Title)
	assert.Equal(t, "second", tasks[1].Title)
	assert.Equal(t, "third", tasks[2].Title)

	// Listing again without mutation returns the same order.
	again, _, err := s.List(ctx, planFor(owner))
	require.NoError(t, err)
	for i := range tasks {
		assert.Equal(t, tasks[i].ID, again[i].ID)
	}
}

func TestStorage_ListWindowsResults(t *testing.T) {
	s := inmemory.NewStorage()
	owner := uuid.New()
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		seedTask(t, s, owner, "task", int64(i)*1000)
	}

	plan := query.Compile(owner, query.Filter{Page: 2, Limit: 2}, time.Now())
	tasks, total, err := s.List(ctx, plan)

	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, tasks, 2)
	assert.Equal(t, int64(3000), tasks[0].Position)
	assert.Equal(t, int64(4000), tasks[1].Position)
}

func TestStorage_ListScopesByOwner(t *testing.T) {
	s := inmemory.NewStorage()
	owner, other := uuid.New(), uuid.New()
	ctx := context.Background()

	seedTask(t, s, owner, "mine", 1000)
	seedTask(t, s, other, "theirs", 1000)

	tasks, total, err := s.List(ctx, planFor(owner))

	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, tasks, 1)
	assert.Equal(t, "mine", tasks[0].Title)
}

func TestStorage_SoftDeleteExcludesEverywhere(t *testing.T) {
	s := inmemory.NewStorage()
	owner := uuid.New()
	ctx := context.Background()

	row := seedTask(t, s, owner, "doomed", 1000)
	deletedAt := time.Now()
	require.NoError(t, s.SoftDelete(ctx, owner, row.ID, deletedAt))

	_, total, err := s.List(ctx, planFor(owner))
	require.NoError(t, err)
	assert.Zero(t, total)

	_, err = s.GetByID(ctx, owner, row.ID, false)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	withTrashed, err := s.GetByID(ctx, owner, row.ID, true)
	require.NoError(t, err)
	require.NotNil(t, withTrashed.DeletedAt)

	stats, err := s.Stats(ctx, owner, time.Now())
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.Equal(t, 1, stats.Trashed)

	trash, err := s.ListTrash(ctx, owner)
	require.NoError(t, err)
	require.Len(t, trash, 1)
	assert.Equal(t, row.ID, trash[0].ID)
}

func TestStorage_RestoreRoundTrip(t *testing.T) {
	s := inmemory.NewStorage()
	owner := uuid.New()
	ctx := context.Background()

	row := seedTask(t, s, owner, "phoenix", 1000)
	before, err := s.GetByID(ctx, owner, row.ID, false)
	require.NoError(t, err)

	require.NoError(t, s.SoftDelete(ctx, owner, row.ID, time.Now()))
	require.NoError(t, s.Restore(ctx, owner, row.ID))

	after, err := s.GetByID(ctx, owner, row.ID, false)
	require.NoError(t, err)
	assert.Nil(t, after.DeletedAt)
	assert.Equal(t, before.Title, after.Title)
	assert.Equal(t, before.Position, after.Position)
	assert.Equal(t, before.Status, after.Status)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt) || after.UpdatedAt.Equal(before.UpdatedAt))
}

func TestStorage_RestoreActiveTaskFails(t *testing.T) {
	s := inmemory.NewStorage()
	owner := uuid.New()
	row := seedTask(t, s, owner, "alive", 1000)

	err := s.Restore(context.Background(), owner, row.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStorage_TrashOrderedNewestFirst(t *testing.T) {
	s := inmemory.NewStorage()
	owner := uuid.New()
	ctx := context.Background()

	first := seedTask(t, s, owner, "deleted early", 1000)
	second := seedTask(t, s, owner, "deleted late", 2000)

	base := time.Now()
	require.NoError(t, s.SoftDelete(ctx, owner, first.ID, base))
	require.NoError(t, s.SoftDelete(ctx, owner, second.ID, base.Add(time.Minute)))

	trash, err := s.ListTrash(ctx, owner)
	require.NoError(t, err)
	require.Len(t, trash, 2)
	assert.Equal(t, second.ID, trash[0].ID)
	assert.Equal(t, first.ID, trash[1].ID)
}

func TestStorage_UpdatePositionReportsMatches(t *testing.T) {
	s := inmemory.NewStorage()
	owner, other := uuid.New(), uuid.New()
	ctx := context.Background()

	mine := seedTask(t, s, owner, "mine", 1000)
	theirs := seedTask(t, s, other, "theirs", 1000)

	n, err := s.UpdatePosition(ctx, owner, mine.ID, 5000)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.UpdatePosition(ctx, owner, theirs.ID, 5000)
	require.NoError(t, err)
	assert.Zero(t, n, "foreign rows match nothing")

	kept, err := s.GetByID(ctx, other, theirs.ID, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), kept.Position)
}

func TestStorage_ListFiltersByCategory(t *testing.T) {
	s := inmemory.NewStorage()
	owner := uuid.New()
	ctx := context.Background()

	cat := &category.Category{ID: uuid.New(), OwnerID: owner, Name: "Work", Color: category.Palette[0]}
	require.NoError(t, s.Categories().Create(ctx, cat))

	tagged := seedTask(t, s, owner, "tagged", 1000)
	seedTask(t, s, owner, "untagged", 2000)
	require.NoError(t, s.ReplaceLinks(ctx, tagged.ID, []uuid.UUID{cat.ID}))

	plan := query.Compile(owner, query.Filter{Page: 1, Limit: 20, CategoryID: &cat.ID}, time.Now())
	tasks, total, err := s.List(ctx, plan)

	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, tasks, 1)
	assert.Equal(t, tagged.ID, tasks[0].ID)
	require.Len(t, tasks[0].Categories, 1)
	assert.Equal(t, "Work", tasks[0].Categories[0].Name)
}

func TestStorage_CategoryTaskCountIgnoresTrashed(t *testing.T) {
	s := inmemory.NewStorage()
	owner := uuid.New()
	ctx := context.Background()

	cat := &category.Category{ID: uuid.New(), OwnerID: owner, Name: "Work", Color: category.Palette[0]}
	require.NoError(t, s.Categories().Create(ctx, cat))

	active := seedTask(t, s, owner, "active", 1000)
	trashed := seedTask(t, s, owner, "trashed", 2000)
	require.NoError(t, s.ReplaceLinks(ctx, active.ID, []uuid.UUID{cat.ID}))
	require.NoError(t, s.ReplaceLinks(ctx, trashed.ID, []uuid.UUID{cat.ID}))
	require.NoError(t, s.SoftDelete(ctx, owner, trashed.ID, time.Now()))

	got, err := s.Categories().GetByID(ctx, owner, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TaskCount, "task count covers active tasks only")

	// The delete guard counts every link, trashed tasks included.
	links, err := s.Categories().LinkCount(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, links)
}

func TestStorage_DeleteLinksKeepsTasks(t *testing.T) {
	s := inmemory.NewStorage()
	owner := uuid.New()
	ctx := context.Background()

	cat := &category.Category{ID: uuid.New(), OwnerID: owner, Name: "Work", Color: category.Palette[0]}
	other := &category.Category{ID: uuid.New(), OwnerID: owner, Name: "Home", Color: category.Palette[1]}
	require.NoError(t, s.Categories().Create(ctx, cat))
	require.NoError(t, s.Categories().Create(ctx, other))

	row := seedTask(t, s, owner, "tagged twice", 1000)
	require.NoError(t, s.ReplaceLinks(ctx, row.ID, []uuid.UUID{cat.ID, other.ID}))

	require.NoError(t, s.Categories().DeleteLinks(ctx, cat.ID))
	require.NoError(t, s.Categories().Delete(ctx, owner, cat.ID))

	got, err := s.GetByID(ctx, owner, row.ID, false)
	require.NoError(t, err)
	require.Len(t, got.Categories, 1)
	assert.Equal(t, "Home", got.Categories[0].Name)
}

func TestStorage_StatsBuckets(t *testing.T) {
	s := inmemory.NewStorage()
	owner := uuid.New()
	ctx := context.Background()
	now := time.Now()

	yesterday := now.AddDate(0, 0, -1)
	tomorrow := now.AddDate(0, 0, 1)

	overdue := seedTask(t, s, owner, "overdue", 1000)
	overdue.DueDate = &yesterday
	require.NoError(t, s.Update(ctx, overdue))

	today := seedTask(t, s, owner, "due today", 2000)
	today.DueDate = &now
	require.NoError(t, s.Update(ctx, today))

	doneOverdue := seedTask(t, s, owner, "done overdue", 3000)
	doneOverdue.DueDate = &yesterday
	doneOverdue.Status = task.StatusDone
	require.NoError(t, s.Update(ctx, doneOverdue))

	future := seedTask(t, s, owner, "future", 4000)
	future.DueDate = &tomorrow
	require.NoError(t, s.Update(ctx, future))

	stats, err := s.Stats(ctx, owner, now)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 3, stats.Todo)
	assert.Equal(t, 1, stats.Done)
	assert.Equal(t, 1, stats.Overdue, "done tasks never count as overdue")
	assert.Equal(t, 1, stats.DueToday)
}

func TestStorage_StatsDueTodayAcrossZones(t *testing.T) {
	s := inmemory.NewStorage()
	owner := uuid.New()
	ctx := context.Background()

	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	today := time.Date(2026, 8, 30, 12, 0, 0, 0, tokyo)

	// Due dates decode at UTC midnight regardless of server zone.
	due, err := time.Parse("2006-01-02", "2026-08-30")
	require.NoError(t, err)

	row := seedTask(t, s, owner, "due today", 1000)
	row.DueDate = &due
	require.NoError(t, s.Update(ctx, row))

	stats, err := s.Stats(ctx, owner, today)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DueToday)
	assert.Zero(t, stats.Overdue)
}
