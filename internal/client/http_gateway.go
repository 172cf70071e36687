package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"taskdeck/internal/models/task"
	"taskdeck/internal/query"

	"github.com/google/uuid"
)

const wireDateLayout = "2006-01-02"

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// HTTPGateway speaks the task API over HTTP with a bearer token.
type HTTPGateway struct {
	base   string
	token  string
	client *http.Client
}

func NewHTTPGateway(baseURL, token string) *HTTPGateway {
	return &HTTPGateway{
		base:   baseURL,
		token:  token,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type taskWire struct {
	ID          uuid.UUID              `json:"id"`
	Title       string                 `json:"title"`
	Description *string                `json:"description"`
	Priority    task.Priority          `json:"priority"`
	Status      task.Status            `json:"status"`
	DueDate     *string                `json:"due_date"`
	Position    int64                  `json:"position"`
	DeletedAt   *time.Time             `json:"deleted_at"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	Categories  []task.CategorySummary `json:"categories"`
}

func (w taskWire) toTask() (*task.Task, error) {
	t := &task.Task{
		ID:          w.ID,
		Title:       w.Title,
		Description: w.Description,
		Priority:    w.Priority,
		Status:      w.Status,
		Position:    w.Position,
		DeletedAt:   w.DeletedAt,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
		Categories:  w.Categories,
	}
	if w.DueDate != nil {
		due, err := time.Parse(wireDateLayout, *w.DueDate)
		if err != nil {
			return nil, fmt.Errorf("parsing due_date %q: %w", *w.DueDate, err)
		}
		t.DueDate = &due
	}
	return t, nil
}

type listEnvelope struct {
	Data []taskWire `json:"data"`
	Meta struct {
		Total int `json:"total"`
		Page  int `json:"page"`
		Limit int `json:"limit"`
	} `json:"meta"`
}

type taskEnvelope struct {
	Data taskWire `json:"data"`
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.base+path, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s %s: %w", method, path, err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()

		var envelope errorEnvelope
		message := http.StatusText(resp.StatusCode)
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error.Message != "" {
			message = envelope.Error.Message
		}
		return nil, &APIError{Status: resp.StatusCode, Message: message}
	}
	return resp, nil
}

func (g *HTTPGateway) List(ctx context.Context, f query.Filter) (*ListPage, error) {
	path := "/tasks?" + f.Values().Encode()

	resp, err := g.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var envelope listEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decoding list response: %w", err)
	}

	page := &ListPage{
		Total: envelope.Meta.Total,
		Page:  envelope.Meta.Page,
		Limit: envelope.Meta.Limit,
		Tasks: make([]*task.Task, len(envelope.Data)),
	}
	for i, wire := range envelope.Data {
		t, err := wire.toTask()
		if err != nil {
			return nil, err
		}
		page.Tasks[i] = t
	}
	return page, nil
}

// Update sends only the fields the patch carries; an explicit null for a
// cleared field, nothing at all for an untouched one.
func (g *HTTPGateway) Update(ctx context.Context, id uuid.UUID, patch TaskPatch) (*task.Task, error) {
	body := map[string]any{}
	if patch.Title != nil {
		body["title"] = *patch.Title
	}
	if patch.DescriptionSet {
		body["description"] = patch.Description
	}
	if patch.DueDateSet {
		if patch.DueDate != nil {
			body["due_date"] = patch.DueDate.Format(wireDateLayout)
		} else {
			body["due_date"] = nil
		}
	}
	if patch.Priority != nil {
		body["priority"] = *patch.Priority
	}
	if patch.Status != nil {
		body["status"] = *patch.Status
	}

	resp, err := g.do(ctx, http.MethodPatch, "/tasks/"+id.String(), body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var envelope taskEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decoding update response: %w", err)
	}
	return envelope.Data.toTask()
}

func (g *HTTPGateway) Delete(ctx context.Context, id uuid.UUID) error {
	resp, err := g.do(ctx, http.MethodDelete, "/tasks/"+id.String(), nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (g *HTTPGateway) Reorder(ctx context.Context, items []ReorderItem) error {
	wire := make([]map[string]any, len(items))
	for i, item := range items {
		wire[i] = map[string]any{"id": item.ID, "position": item.Position}
	}

	resp, err := g.do(ctx, http.MethodPatch, "/tasks/reorder", map[string]any{"items": wire})
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
