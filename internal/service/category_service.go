package service

import (
	"context"
	"errors"
	"fmt"

	"taskdeck/internal/models/category"
	"taskdeck/internal/repository"

	"github.com/google/uuid"
)

type CategoryService struct {
	categories repository.CategoryStore
}

func NewCategoryService(categories repository.CategoryStore) *CategoryService {
	return &CategoryService{categories: categories}
}

type CategoryChanges struct {
	Name  *string
	Color *string
}

func (s *CategoryService) List(ctx context.Context, owner uuid.UUID) ([]*category.Category, error) {
	categories, err := s.categories.List(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return categories, nil
}

func (s *CategoryService) Create(ctx context.Context, owner uuid.UUID, name, color string) (*category.Category, error) {
	c := &category.Category{
		ID:      uuid.New(),
		OwnerID: owner,
		Name:    name,
		Color:   color,
	}
	if err := validateCategory(c); err != nil {
		return nil, err
	}

	if err := s.categories.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("creating category: %w", err)
	}
	return c, nil
}

func (s *CategoryService) Update(ctx context.Context, owner, id uuid.UUID, changes CategoryChanges) (*category.Category, error) {
	c, err := s.categories.GetByID(ctx, owner, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFound("category")
		}
		return nil, fmt.Errorf("getting category: %w", err)
	}

	if changes.Name != nil {
		c.Name = *changes.Name
	}
	if changes.Color != nil {
		c.Color = *changes.Color
	}
	if err := validateCategory(c); err != nil {
		return nil, err
	}

	if err := s.categories.Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFound("category")
		}
		return nil, fmt.Errorf("updating category: %w", err)
	}
	return c, nil
}

// Delete refuses to drop a category that still has task links unless the
// caller confirmed the cascade; the cascade removes links only, never
// tasks.
func (s *CategoryService) Delete(ctx context.Context, owner, id uuid.UUID, force bool) error {
	if _, err := s.categories.GetByID(ctx, owner, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewNotFound("category")
		}
		return fmt.Errorf("getting category: %w", err)
	}

	count, err := s.categories.LinkCount(ctx, id)
	if err != nil {
		return fmt.Errorf("counting category links: %w", err)
	}
	if count > 0 && !force {
		return NewHasDependents(count)
	}
	if count > 0 {
		if err := s.categories.DeleteLinks(ctx, id); err != nil {
			return fmt.Errorf("deleting category links: %w", err)
		}
	}

	if err := s.categories.Delete(ctx, owner, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewNotFound("category")
		}
		return fmt.Errorf("deleting category: %w", err)
	}
	return nil
}
