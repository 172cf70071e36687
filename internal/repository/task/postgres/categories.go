package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskdeck/internal/models/category"
	"taskdeck/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CategoryStorage shares the task storage pool.
type CategoryStorage struct {
	pool *pgxpool.Pool
}

func (s *Storage) Categories() *CategoryStorage {
	return &CategoryStorage{pool: s.pool}
}

func (c *CategoryStorage) List(ctx context.Context, owner uuid.UUID) ([]*category.Category, error) {
	start := time.Now()
	defer warnSlow("list_categories", start)

	// Counts cover links to active tasks only; trashed tasks keep their
	// links but stop counting.
	rows, err := c.pool.Query(ctx,
		`SELECT c.id, c.owner_id, c.name, c.color, c.created_at,
			count(t.id) FILTER (WHERE t.deleted_at IS NULL)
		 FROM categories c
		 LEFT JOIN task_categories tc ON tc.category_id = c.id
		 LEFT JOIN tasks t ON t.id = tc.task_id
		 WHERE c.owner_id = $1
		 GROUP BY c.id
		 ORDER BY c.name ASC`, owner)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	categories := []*category.Category{}
	for rows.Next() {
		cat := &category.Category{}
		if err := rows.Scan(&cat.ID, &cat.OwnerID, &cat.Name, &cat.Color, &cat.CreatedAt, &cat.TaskCount); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating categories: %w", err)
	}
	return categories, nil
}

func (c *CategoryStorage) GetByID(ctx context.Context, owner, id uuid.UUID) (*category.Category, error) {
	cat := &category.Category{}
	err := c.pool.QueryRow(ctx,
		`SELECT c.id, c.owner_id, c.name, c.color, c.created_at,
			(SELECT count(*) FROM task_categories tc
			 JOIN tasks t ON t.id = tc.task_id
			 WHERE tc.category_id = c.id AND t.deleted_at IS NULL)
		 FROM categories c
		 WHERE c.id = $1 AND c.owner_id = $2`,
		id, owner,
	).Scan(&cat.ID, &cat.OwnerID, &cat.Name, &cat.Color, &cat.CreatedAt, &cat.TaskCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("getting category: %w", err)
	}
	return cat, nil
}

func (c *CategoryStorage) Create(ctx context.Context, cat *category.Category) error {
	err := c.pool.QueryRow(ctx,
		`INSERT INTO categories (id, owner_id, name, color)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		cat.ID, cat.OwnerID, cat.Name, cat.Color,
	).Scan(&cat.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting category: %w", err)
	}
	return nil
}

func (c *CategoryStorage) Update(ctx context.Context, cat *category.Category) error {
	tag, err := c.pool.Exec(ctx,
		"UPDATE categories SET name = $1, color = $2 WHERE id = $3 AND owner_id = $4",
		cat.Name, cat.Color, cat.ID, cat.OwnerID)
	if err != nil {
		return fmt.Errorf("updating category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (c *CategoryStorage) Delete(ctx context.Context, owner, id uuid.UUID) error {
	tag, err := c.pool.Exec(ctx,
		"DELETE FROM categories WHERE id = $1 AND owner_id = $2", id, owner)
	if err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (c *CategoryStorage) LinkCount(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := c.pool.QueryRow(ctx,
		"SELECT count(*) FROM task_categories WHERE category_id = $1", id).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting category links: %w", err)
	}
	return count, nil
}

func (c *CategoryStorage) DeleteLinks(ctx context.Context, id uuid.UUID) error {
	if _, err := c.pool.Exec(ctx,
		"DELETE FROM task_categories WHERE category_id = $1", id); err != nil {
		return fmt.Errorf("deleting category links: %w", err)
	}
	return nil
}

func (c *CategoryStorage) CountOwned(ctx context.Context, owner uuid.UUID, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int
	err := c.pool.QueryRow(ctx,
		"SELECT count(*) FROM categories WHERE owner_id = $1 AND id = ANY($2)",
		owner, ids).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting owned categories: %w", err)
	}
	return count, nil
}
