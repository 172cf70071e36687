package service

import (
	"fmt"
	"unicode/utf8"

	"taskdeck/internal/models/category"
	"taskdeck/internal/models/task"
)

const (
	titleMinLen       = 3
	titleMaxLen       = 255
	descriptionMaxLen = 2000
	nameMinLen        = 2
	nameMaxLen        = 50

	// MaxCategoriesPerTask caps the link set; checked before any write.
	MaxCategoriesPerTask = 5
)

// validateTask checks the field contracts on a fully assembled row, so
// the same rules cover create and partial update.
func validateTask(t *task.Task) *BusinessError {
	problems := map[string]string{}

	// Limits are character counts, not bytes; multibyte titles within
	// the contract must pass.
	if n := utf8.RuneCountInString(t.Title); n < titleMinLen || n > titleMaxLen {
		problems["title"] = fmt.Sprintf("must be between %d and %d characters", titleMinLen, titleMaxLen)
	}
	if t.Description != nil && utf8.RuneCountInString(*t.Description) > descriptionMaxLen {
		problems["description"] = fmt.Sprintf("must be at most %d characters", descriptionMaxLen)
	}
	if !t.Priority.Valid() {
		problems["priority"] = "must be one of: low, medium, high, urgent"
	}
	if !t.Status.Valid() {
		problems["status"] = "must be one of: todo, in_progress, done"
	}

	if len(problems) > 0 {
		return NewValidation(problems)
	}
	return nil
}

func validateCategoryCap(n int) *BusinessError {
	if n > MaxCategoriesPerTask {
		return NewFieldValidation("category_ids",
			fmt.Sprintf("at most %d categories per task", MaxCategoriesPerTask))
	}
	return nil
}

func validateCategory(c *category.Category) *BusinessError {
	problems := map[string]string{}

	if n := utf8.RuneCountInString(c.Name); n < nameMinLen || n > nameMaxLen {
		problems["name"] = fmt.Sprintf("must be between %d and %d characters", nameMinLen, nameMaxLen)
	}
	if !category.ValidColor(c.Color) {
		problems["color"] = "must be one of the palette colors"
	}

	if len(problems) > 0 {
		return NewValidation(problems)
	}
	return nil
}
