package handlers

import (
	"net/http"

	"taskdeck/internal/logger"
	"taskdeck/internal/middleware"
	"taskdeck/internal/service"

	"go.uber.org/zap"
)

type CategoryHandler struct {
	categories CategoryService
}

func NewCategoryHandler(categories CategoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	categories, err := h.categories.List(r.Context(), owner)
	if err != nil {
		handleServiceError(w, r, err, "list_categories")
		return
	}

	respondData(w, http.StatusOK, fromCategoryList(categories))
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var request CreateCategoryRequest
	if !decodeBody(w, r, &request) {
		return
	}

	created, err := h.categories.Create(r.Context(), owner, request.Name, request.Color)
	if err != nil {
		handleServiceError(w, r, err, "create_category")
		return
	}

	logger.Info("HTTP: category created",
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("category_id", created.ID.String()))

	respondData(w, http.StatusCreated, fromCategory(created))
}

func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var request UpdateCategoryRequest
	if !decodeBody(w, r, &request) {
		return
	}

	updated, err := h.categories.Update(r.Context(), owner, id, service.CategoryChanges{
		Name:  request.Name,
		Color: request.Color,
	})
	if err != nil {
		handleServiceError(w, r, err, "update_category")
		return
	}

	respondData(w, http.StatusOK, fromCategory(updated))
}

// Delete takes ?force=true to confirm removing a category that still has
// linked tasks. Without it the refusal carries the live task count.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	force := r.URL.Query().Get("force") == "true"

	if err := h.categories.Delete(r.Context(), owner, id, force); err != nil {
		handleServiceError(w, r, err, "delete_category")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
