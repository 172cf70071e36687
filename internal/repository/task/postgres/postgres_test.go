package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"taskdeck/internal/models/category"
	"taskdeck/internal/models/task"
	"taskdeck/internal/query"
	"taskdeck/internal/repository"
	"taskdeck/internal/repository/task/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type PostgresTestSuite struct {
	suite.Suite
	container  testcontainers.Container
	storage    *postgres.Storage
	connString string
	ctx        context.Context
}

func (s *PostgresTestSuite) SetupSuite() {
	s.ctx = context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(s.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(s.T(), err)
	s.container = container

	host, err := container.Host(s.ctx)
	require.NoError(s.T(), err)
	port, err := container.MappedPort(s.ctx, "5432")
	require.NoError(s.T(), err)

	s.connString = fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	require.NoError(s.T(), postgres.Migrate(s.connString))

	s.storage, err = postgres.New(s.ctx, s.connString, postgres.PoolConfig{
		MaxConns:    5,
		MinConns:    1,
		IdleTimeout: time.Minute,
	})
	require.NoError(s.T(), err)
}

func (s *PostgresTestSuite) TearDownSuite() {
	if s.storage != nil {
		s.storage.Close()
	}
	if s.container != nil {
		s.container.Terminate(s.ctx)
	}
}

func (s *PostgresTestSuite) SetupTest() {
	conn, err := pgx.Connect(s.ctx, s.connString)
	require.NoError(s.T(), err)
	defer conn.Close(s.ctx)

	_, err = conn.Exec(s.ctx, "TRUNCATE task_categories, tasks, categories")
	require.NoError(s.T(), err)
}

func (s *PostgresTestSuite) newTask(owner uuid.UUID, title string, pos int64) *task.Task {
	row := &task.Task{
		ID:       uuid.New(),
		OwnerID:  owner,
		Title:    title,
		Priority: task.PriorityMedium,
		Status:   task.StatusTodo,
		Position: pos,
	}
	require.NoError(s.T(), s.storage.Create(s.ctx, row))
	return row
}

func (s *PostgresTestSuite) plan(owner uuid.UUID, f query.Filter) query.Plan {
	if f.Page == 0 {
		f.Page = 1
	}
	if f.Limit == 0 {
		f.Limit = 20
	}
	return query.Compile(owner, f, time.Now())
}

func (s *PostgresTestSuite) TestCreateAndGetRoundTrip() {
	owner := uuid.New()
	description := "with details"
	due := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)

	row := &task.Task{
		ID:          uuid.New(),
		OwnerID:     owner,
		Title:       "Buy milk",
		Description: &description,
		Priority:    task.PriorityHigh,
		Status:      task.StatusTodo,
		DueDate:     &due,
		Position:    1000,
	}
	require.NoError(s.T(), s.storage.Create(s.ctx, row))
	s.False(row.CreatedAt.IsZero(), "create returns server timestamps")

	got, err := s.storage.GetByID(s.ctx, owner, row.ID, false)
	require.NoError(s.T(), err)
	s.Equal("Buy milk", got.Title)
	s.Equal(&description, got.Description)
	s.Equal(task.PriorityHigh, got.Priority)
	s.Equal(int64(1000), got.Position)
	require.NotNil(s.T(), got.DueDate)
	s.Equal("2026-09-15", got.DueDate.Format("2006-01-02"))
	s.Empty(got.Categories)
}

func (s *PostgresTestSuite) TestGetByIDHidesForeignRows() {
	owner, other := uuid.New(), uuid.New()
	row := s.newTask(owner, "mine", 1000)

	_, err := s.storage.GetByID(s.ctx, other, row.ID, false)
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *PostgresTestSuite) TestListFiltersAndCounts() {
	owner := uuid.New()
	s.newTask(owner, "write report", 1000)
	second := s.newTask(owner, "file expenses", 2000)
	second.Status = task.StatusDone
	require.NoError(s.T(), s.storage.Update(s.ctx, second))

	todo := task.StatusTodo
	tasks, total, err := s.storage.List(s.ctx, s.plan(owner, query.Filter{Status: &todo}))
	require.NoError(s.T(), err)
	s.Equal(1, total)
	require.Len(s.T(), tasks, 1)
	s.Equal("write report", tasks[0].Title)

	tasks, total, err = s.storage.List(s.ctx, s.plan(owner, query.Filter{Search: "REPORT"}))
	require.NoError(s.T(), err)
	s.Equal(1, total)
	require.Len(s.T(), tasks, 1)
	s.Equal("write report", tasks[0].Title)
}

func (s *PostgresTestSuite) TestListDueOverdueExcludesDone() {
	owner := uuid.New()
	yesterday := time.Now().AddDate(0, 0, -1)

	late := s.newTask(owner, "late", 1000)
	late.DueDate = &yesterday
	require.NoError(s.T(), s.storage.Update(s.ctx, late))

	lateDone := s.newTask(owner, "late but done", 2000)
	lateDone.DueDate = &yesterday
	lateDone.Status = task.StatusDone
	require.NoError(s.T(), s.storage.Update(s.ctx, lateDone))

	overdue := query.DueOverdue
	tasks, total, err := s.storage.List(s.ctx, s.plan(owner, query.Filter{Due: &overdue}))
	require.NoError(s.T(), err)
	s.Equal(1, total)
	require.Len(s.T(), tasks, 1)
	s.Equal("late", tasks[0].Title)
}

func (s *PostgresTestSuite) TestSoftDeleteAndRestore() {
	owner := uuid.New()
	row := s.newTask(owner, "phoenix", 1000)

	require.NoError(s.T(), s.storage.SoftDelete(s.ctx, owner, row.ID, time.Now()))

	_, err := s.storage.GetByID(s.ctx, owner, row.ID, false)
	s.ErrorIs(err, repository.ErrNotFound)

	_, total, err := s.storage.List(s.ctx, s.plan(owner, query.Filter{}))
	require.NoError(s.T(), err)
	s.Zero(total)

	trash, err := s.storage.ListTrash(s.ctx, owner)
	require.NoError(s.T(), err)
	require.Len(s.T(), trash, 1)
	s.NotNil(trash[0].DeletedAt)

	require.NoError(s.T(), s.storage.Restore(s.ctx, owner, row.ID))

	restored, err := s.storage.GetByID(s.ctx, owner, row.ID, false)
	require.NoError(s.T(), err)
	s.Nil(restored.DeletedAt)
	s.Equal("phoenix", restored.Title)
}

func (s *PostgresTestSuite) TestSoftDeleteTwiceFails() {
	owner := uuid.New()
	row := s.newTask(owner, "doomed", 1000)

	require.NoError(s.T(), s.storage.SoftDelete(s.ctx, owner, row.ID, time.Now()))
	err := s.storage.SoftDelete(s.ctx, owner, row.ID, time.Now())
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *PostgresTestSuite) TestUpdatePositionScopedByOwner() {
	owner, other := uuid.New(), uuid.New()
	mine := s.newTask(owner, "mine", 1000)
	theirs := s.newTask(other, "theirs", 1000)

	n, err := s.storage.UpdatePosition(s.ctx, owner, mine.ID, 3000)
	require.NoError(s.T(), err)
	s.Equal(int64(1), n)

	n, err = s.storage.UpdatePosition(s.ctx, owner, theirs.ID, 3000)
	require.NoError(s.T(), err)
	s.Zero(n)
}

func (s *PostgresTestSuite) TestMaxActivePositionIgnoresTrashed() {
	owner := uuid.New()
	s.newTask(owner, "low", 1000)
	high := s.newTask(owner, "high", 9000)

	pos, ok, err := s.storage.MaxActivePosition(s.ctx, owner)
	require.NoError(s.T(), err)
	s.True(ok)
	s.Equal(int64(9000), pos)

	require.NoError(s.T(), s.storage.SoftDelete(s.ctx, owner, high.ID, time.Now()))

	pos, ok, err = s.storage.MaxActivePosition(s.ctx, owner)
	require.NoError(s.T(), err)
	s.True(ok)
	s.Equal(int64(1000), pos)
}

func (s *PostgresTestSuite) TestCategoryLinksAndCounts() {
	owner := uuid.New()
	categories := s.storage.Categories()

	work := &category.Category{ID: uuid.New(), OwnerID: owner, Name: "Work", Color: category.Palette[0]}
	require.NoError(s.T(), categories.Create(s.ctx, work))

	row := s.newTask(owner, "tagged", 1000)
	require.NoError(s.T(), s.storage.ReplaceLinks(s.ctx, row.ID, []uuid.UUID{work.ID}))

	got, err := s.storage.GetByID(s.ctx, owner, row.ID, false)
	require.NoError(s.T(), err)
	require.Len(s.T(), got.Categories, 1)
	s.Equal("Work", got.Categories[0].Name)
	s.Equal(category.Palette[0], got.Categories[0].Color)

	count, err := categories.LinkCount(s.ctx, work.ID)
	require.NoError(s.T(), err)
	s.Equal(1, count)

	owned, err := categories.CountOwned(s.ctx, owner, []uuid.UUID{work.ID, uuid.New()})
	require.NoError(s.T(), err)
	s.Equal(1, owned)

	require.NoError(s.T(), categories.DeleteLinks(s.ctx, work.ID))
	require.NoError(s.T(), categories.Delete(s.ctx, owner, work.ID))

	got, err = s.storage.GetByID(s.ctx, owner, row.ID, false)
	require.NoError(s.T(), err)
	s.Empty(got.Categories, "removing a category never removes tasks")
}

func (s *PostgresTestSuite) TestStatsAggregates() {
	owner := uuid.New()
	yesterday := time.Now().AddDate(0, 0, -1)

	late := s.newTask(owner, "late", 1000)
	late.DueDate = &yesterday
	require.NoError(s.T(), s.storage.Update(s.ctx, late))

	done := s.newTask(owner, "done", 2000)
	done.Status = task.StatusDone
	require.NoError(s.T(), s.storage.Update(s.ctx, done))

	trashed := s.newTask(owner, "trashed", 3000)
	require.NoError(s.T(), s.storage.SoftDelete(s.ctx, owner, trashed.ID, time.Now()))

	stats, err := s.storage.Stats(s.ctx, owner, time.Now())
	require.NoError(s.T(), err)
	s.Equal(2, stats.Total)
	s.Equal(1, stats.Todo)
	s.Equal(1, stats.Done)
	s.Equal(1, stats.Overdue)
	s.Equal(1, stats.Trashed)
}

func TestPostgresTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}
	suite.Run(t, new(PostgresTestSuite))
}
