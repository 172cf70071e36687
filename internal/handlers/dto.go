package handlers

import (
	"encoding/json"
	"fmt"
	"time"

	"taskdeck/internal/models/category"
	"taskdeck/internal/models/task"
	"taskdeck/internal/service"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// DateOnly carries due dates as calendar dates on the wire, with no time
// or zone component.
type DateOnly struct {
	time.Time
}

func (d DateOnly) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

func (d *DateOnly) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("due_date must be a string in %s format", dateLayout)
	}
	parsed, err := time.Parse(dateLayout, raw)
	if err != nil {
		return fmt.Errorf("due_date must be in %s format", dateLayout)
	}
	d.Time = parsed
	return nil
}

// nullString distinguishes an explicit null (clear the field) from an
// absent key (leave it alone). UnmarshalJSON only runs for present keys.
type nullString struct {
	set   bool
	value *string
}

func (n *nullString) UnmarshalJSON(b []byte) error {
	n.set = true
	if string(b) == "null" {
		return nil
	}
	return json.Unmarshal(b, &n.value)
}

type nullDate struct {
	set   bool
	value *time.Time
}

func (n *nullDate) UnmarshalJSON(b []byte) error {
	n.set = true
	if string(b) == "null" {
		return nil
	}
	var d DateOnly
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	n.value = &d.Time
	return nil
}

type CreateTaskRequest struct {
	Title       string      `json:"title"`
	Description *string     `json:"description"`
	Priority    string      `json:"priority"`
	Status      string      `json:"status"`
	DueDate     *DateOnly   `json:"due_date"`
	CategoryIDs []uuid.UUID `json:"category_ids"`
}

func (r CreateTaskRequest) toCreate() service.TaskCreate {
	c := service.TaskCreate{
		Title:       r.Title,
		Description: r.Description,
		Priority:    task.Priority(r.Priority),
		Status:      task.Status(r.Status),
		CategoryIDs: r.CategoryIDs,
	}
	if r.DueDate != nil {
		due := r.DueDate.Time
		c.DueDate = &due
	}
	return c
}

type UpdateTaskRequest struct {
	Title       *string      `json:"title"`
	Description nullString   `json:"description"`
	Priority    *string      `json:"priority"`
	Status      *string      `json:"status"`
	DueDate     nullDate     `json:"due_date"`
	CategoryIDs *[]uuid.UUID `json:"category_ids"`
}

func (r UpdateTaskRequest) toChanges() service.TaskChanges {
	changes := service.TaskChanges{
		Title:          r.Title,
		Description:    r.Description.value,
		DescriptionSet: r.Description.set,
		DueDate:        r.DueDate.value,
		DueDateSet:     r.DueDate.set,
	}
	if r.Priority != nil {
		p := task.Priority(*r.Priority)
		changes.Priority = &p
	}
	if r.Status != nil {
		s := task.Status(*r.Status)
		changes.Status = &s
	}
	if r.CategoryIDs != nil {
		changes.CategoryIDs = *r.CategoryIDs
		changes.CategoriesSet = true
	}
	return changes
}

type ReorderItemRequest struct {
	ID       uuid.UUID `json:"id"`
	Position int64     `json:"position"`
}

type ReorderRequest struct {
	Items []ReorderItemRequest `json:"items"`
}

func (r ReorderRequest) toItems() []service.ReorderItem {
	items := make([]service.ReorderItem, len(r.Items))
	for i, item := range r.Items {
		items[i] = service.ReorderItem{ID: item.ID, Position: item.Position}
	}
	return items
}

type CreateCategoryRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type UpdateCategoryRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

type TaskResponse struct {
	ID          uuid.UUID              `json:"id"`
	Title       string                 `json:"title"`
	Description *string                `json:"description"`
	Priority    task.Priority          `json:"priority"`
	Status      task.Status            `json:"status"`
	DueDate     *DateOnly              `json:"due_date"`
	Position    int64                  `json:"position"`
	DeletedAt   *time.Time             `json:"deleted_at,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	Categories  []task.CategorySummary `json:"categories"`
}

func fromTask(t *task.Task) TaskResponse {
	resp := TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Status:      t.Status,
		Position:    t.Position,
		DeletedAt:   t.DeletedAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		Categories:  t.Categories,
	}
	if resp.Categories == nil {
		resp.Categories = []task.CategorySummary{}
	}
	if t.DueDate != nil {
		resp.DueDate = &DateOnly{Time: *t.DueDate}
	}
	return resp
}

func fromTaskList(tasks []*task.Task) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = fromTask(t)
	}
	return result
}

type CategoryResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	TaskCount int       `json:"task_count"`
	CreatedAt time.Time `json:"created_at"`
}

func fromCategory(c *category.Category) CategoryResponse {
	return CategoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		Color:     c.Color,
		TaskCount: c.TaskCount,
		CreatedAt: c.CreatedAt,
	}
}

func fromCategoryList(categories []*category.Category) []CategoryResponse {
	result := make([]CategoryResponse, len(categories))
	for i, c := range categories {
		result[i] = fromCategory(c)
	}
	return result
}
