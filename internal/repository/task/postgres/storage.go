// Package postgres stores tasks and categories in PostgreSQL via pgx.
// Query plans compiled by the query package are translated to SQL here;
// every statement carries the owner predicate.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskdeck/internal/logger"
	"taskdeck/internal/models/task"
	"taskdeck/internal/query"
	"taskdeck/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const slowQuery = 100 * time.Millisecond

type Storage struct {
	pool *pgxpool.Pool
}

type PoolConfig struct {
	MaxConns    int32
	MinConns    int32
	IdleTimeout time.Duration
}

func New(ctx context.Context, connString string, pc PoolConfig) (*Storage, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing pool config: %w", err)
	}

	config.MaxConns = pc.MaxConns
	config.MinConns = pc.MinConns
	config.MaxConnIdleTime = pc.IdleTimeout

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Info("Repository: connected to PostgreSQL")
	return &Storage{pool: pool}, nil
}

func (s *Storage) Close() {
	s.pool.Close()
	logger.Info("Repository: closed PostgreSQL connections")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}

func warnSlow(op string, start time.Time) {
	if elapsed := time.Since(start); elapsed > slowQuery {
		logger.Warn("Repository: slow query",
			zap.String("op", op),
			zap.Duration("ms", elapsed))
	}
}

const taskColumns = `t.id, t.owner_id, t.title, t.description, t.priority, t.status,
	t.due_date, t.position, t.deleted_at, t.created_at, t.updated_at`

func scanTask(row pgx.Row) (*task.Task, error) {
	t := &task.Task{}
	err := row.Scan(
		&t.ID,
		&t.OwnerID,
		&t.Title,
		&t.Description,
		&t.Priority,
		&t.Status,
		&t.DueDate,
		&t.Position,
		&t.DeletedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// planSQL renders a plan's predicates as a WHERE clause over alias t.
func planSQL(p query.Plan) (string, []any) {
	where := []string{"t.owner_id = $1", "t.deleted_at IS NULL"}
	args := []any{p.Owner}

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if p.Status != nil {
		where = append(where, "t.status = "+arg(*p.Status))
	}
	if p.Priority != nil {
		where = append(where, "t.priority = "+arg(*p.Priority))
	}
	if p.Search != "" {
		ph := arg("%" + p.Search + "%")
		where = append(where, fmt.Sprintf("(t.title ILIKE %s OR t.description ILIKE %s)", ph, ph))
	}
	if p.CategoryID != nil {
		where = append(where, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM task_categories tc WHERE tc.task_id = t.id AND tc.category_id = %s)",
			arg(*p.CategoryID)))
	}
	if p.Due != nil {
		d := p.Due
		if d.Null {
			where = append(where, "t.due_date IS NULL")
		} else {
			if d.ExcludeDone {
				where = append(where, "t.status <> "+arg(task.StatusDone))
			}
			if d.From != nil {
				where = append(where, "t.due_date >= "+arg(*d.From))
			}
			if d.Until != nil {
				where = append(where, "t.due_date <= "+arg(*d.Until))
			}
			if d.Before != nil {
				where = append(where, "t.due_date < "+arg(*d.Before))
			}
		}
	}

	return strings.Join(where, " AND "), args
}

func (s *Storage) List(ctx context.Context, plan query.Plan) ([]*task.Task, int, error) {
	start := time.Now()
	defer warnSlow("list", start)

	where, args := planSQL(plan)

	var total int
	countQuery := "SELECT count(*) FROM tasks t WHERE " + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting tasks: %w", err)
	}

	listQuery := fmt.Sprintf(
		"SELECT %s FROM tasks t WHERE %s ORDER BY t.position ASC LIMIT $%d OFFSET $%d",
		taskColumns, where, len(args)+1, len(args)+2)
	args = append(args, plan.Window.Limit, plan.Window.Offset)

	rows, err := s.pool.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating tasks: %w", err)
	}

	if err := s.hydrate(ctx, tasks); err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// hydrate fills Categories for every task in one pass. Zero categories is
// valid; the field is always at least an empty slice.
func (s *Storage) hydrate(ctx context.Context, tasks []*task.Task) error {
	for _, t := range tasks {
		t.Categories = []task.CategorySummary{}
	}
	if len(tasks) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(tasks))
	byID := make(map[uuid.UUID]*task.Task, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
		byID[t.ID] = t
	}

	rows, err := s.pool.Query(ctx,
		`SELECT tc.task_id, c.id, c.name, c.color
		 FROM task_categories tc
		 JOIN categories c ON c.id = tc.category_id
		 WHERE tc.task_id = ANY($1)
		 ORDER BY c.name ASC`, ids)
	if err != nil {
		return fmt.Errorf("loading category links: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var taskID uuid.UUID
		var cs task.CategorySummary
		if err := rows.Scan(&taskID, &cs.ID, &cs.Name, &cs.Color); err != nil {
			return fmt.Errorf("scanning category link: %w", err)
		}
		if t, ok := byID[taskID]; ok {
			t.Categories = append(t.Categories, cs)
		}
	}
	return rows.Err()
}

func (s *Storage) GetByID(ctx context.Context, owner, id uuid.UUID, withTrashed bool) (*task.Task, error) {
	start := time.Now()
	defer warnSlow("get_by_id", start)

	q := fmt.Sprintf("SELECT %s FROM tasks t WHERE t.id = $1 AND t.owner_id = $2", taskColumns)
	if !withTrashed {
		q += " AND t.deleted_at IS NULL"
	}

	t, err := scanTask(s.pool.QueryRow(ctx, q, id, owner))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("getting task: %w", err)
	}

	if err := s.hydrate(ctx, []*task.Task{t}); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Storage) MaxActivePosition(ctx context.Context, owner uuid.UUID) (int64, bool, error) {
	var pos *int64
	err := s.pool.QueryRow(ctx,
		"SELECT max(position) FROM tasks WHERE owner_id = $1 AND deleted_at IS NULL",
		owner).Scan(&pos)
	if err != nil {
		return 0, false, fmt.Errorf("reading max position: %w", err)
	}
	if pos == nil {
		return 0, false, nil
	}
	return *pos, true, nil
}

func (s *Storage) Create(ctx context.Context, t *task.Task) error {
	start := time.Now()
	defer warnSlow("create", start)

	err := s.pool.QueryRow(ctx,
		`INSERT INTO tasks (id, owner_id, title, description, priority, status, due_date, position)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at, updated_at`,
		t.ID, t.OwnerID, t.Title, t.Description, t.Priority, t.Status, t.DueDate, t.Position,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

func (s *Storage) Update(ctx context.Context, t *task.Task) error {
	start := time.Now()
	defer warnSlow("update", start)

	err := s.pool.QueryRow(ctx,
		`UPDATE tasks
		 SET title = $1, description = $2, priority = $3, status = $4, due_date = $5,
		     updated_at = now()
		 WHERE id = $6 AND owner_id = $7 AND deleted_at IS NULL
		 RETURNING updated_at`,
		t.Title, t.Description, t.Priority, t.Status, t.DueDate, t.ID, t.OwnerID,
	).Scan(&t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("updating task: %w", err)
	}
	return nil
}

func (s *Storage) SoftDelete(ctx context.Context, owner, id uuid.UUID, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tasks SET deleted_at = $1, updated_at = $1
		 WHERE id = $2 AND owner_id = $3 AND deleted_at IS NULL`,
		at, id, owner)
	if err != nil {
		return fmt.Errorf("soft-deleting task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Storage) Restore(ctx context.Context, owner, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tasks SET deleted_at = NULL, updated_at = now()
		 WHERE id = $1 AND owner_id = $2 AND deleted_at IS NOT NULL`,
		id, owner)
	if err != nil {
		return fmt.Errorf("restoring task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Storage) UpdatePosition(ctx context.Context, owner, id uuid.UUID, pos int64) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tasks SET position = $1, updated_at = now()
		 WHERE id = $2 AND owner_id = $3 AND deleted_at IS NULL`,
		pos, id, owner)
	if err != nil {
		return 0, fmt.Errorf("updating position: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Storage) ListTrash(ctx context.Context, owner uuid.UUID) ([]*task.Task, error) {
	start := time.Now()
	defer warnSlow("list_trash", start)

	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM tasks t
		 WHERE t.owner_id = $1 AND t.deleted_at IS NOT NULL
		 ORDER BY t.deleted_at DESC`, taskColumns), owner)
	if err != nil {
		return nil, fmt.Errorf("listing trash: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating trash: %w", err)
	}

	if err := s.hydrate(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *Storage) ReplaceLinks(ctx context.Context, taskID uuid.UUID, categoryIDs []uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("starting link transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM task_categories WHERE task_id = $1", taskID); err != nil {
		return fmt.Errorf("clearing category links: %w", err)
	}
	for _, catID := range categoryIDs {
		if _, err := tx.Exec(ctx,
			"INSERT INTO task_categories (task_id, category_id) VALUES ($1, $2)",
			taskID, catID); err != nil {
			return fmt.Errorf("inserting category link: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (s *Storage) Stats(ctx context.Context, owner uuid.UUID, today time.Time) (task.Stats, error) {
	start := time.Now()
	defer warnSlow("stats", start)

	day := query.Day(today)
	var st task.Stats
	err := s.pool.QueryRow(ctx,
		`SELECT
			count(*) FILTER (WHERE deleted_at IS NULL),
			count(*) FILTER (WHERE deleted_at IS NULL AND status = 'todo'),
			count(*) FILTER (WHERE deleted_at IS NULL AND status = 'in_progress'),
			count(*) FILTER (WHERE deleted_at IS NULL AND status = 'done'),
			count(*) FILTER (WHERE deleted_at IS NULL AND status <> 'done' AND due_date < $2),
			count(*) FILTER (WHERE deleted_at IS NULL AND status <> 'done' AND due_date = $2),
			count(*) FILTER (WHERE deleted_at IS NOT NULL)
		 FROM tasks WHERE owner_id = $1`,
		owner, day,
	).Scan(&st.Total, &st.Todo, &st.InProgress, &st.Done, &st.Overdue, &st.DueToday, &st.Trashed)
	if err != nil {
		return task.Stats{}, fmt.Errorf("reading stats: %w", err)
	}
	return st, nil
}
