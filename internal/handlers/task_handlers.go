package handlers

import (
	"encoding/json"
	"net/http"

	"taskdeck/internal/logger"
	"taskdeck/internal/middleware"
	"taskdeck/internal/query"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TaskHandler struct {
	tasks  TaskService
	health HealthChecker
}

func NewTaskHandler(tasks TaskService, health HealthChecker) *TaskHandler {
	return &TaskHandler{tasks: tasks, health: health}
}

func requireOwner(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	owner, ok := middleware.Owner(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", nil)
		return uuid.Nil, false
	}
	return owner, true
}

func parseIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil || id == uuid.Nil {
		respondError(w, http.StatusBadRequest, "invalid id", nil)
		return uuid.Nil, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Warn("HTTP: malformed request body",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.Error(err))
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return false
	}
	return true
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	filter, err := query.ParseFilter(r.URL.Query())
	if err != nil {
		handleServiceError(w, r, err, "list_tasks")
		return
	}

	result, err := h.tasks.List(r.Context(), owner, filter)
	if err != nil {
		handleServiceError(w, r, err, "list_tasks")
		return
	}

	respondList(w, fromTaskList(result.Tasks), result.Total, result.Page, result.Limit)
}

func (h *TaskHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	t, err := h.tasks.GetByID(r.Context(), owner, id)
	if err != nil {
		handleServiceError(w, r, err, "get_task")
		return
	}

	respondData(w, http.StatusOK, fromTask(t))
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var request CreateTaskRequest
	if !decodeBody(w, r, &request) {
		return
	}

	created, err := h.tasks.Create(r.Context(), owner, request.toCreate())
	if err != nil {
		handleServiceError(w, r, err, "create_task")
		return
	}

	logger.Info("HTTP: task created",
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("task_id", created.ID.String()))

	respondData(w, http.StatusCreated, fromTask(created))
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var request UpdateTaskRequest
	if !decodeBody(w, r, &request) {
		return
	}

	updated, err := h.tasks.Update(r.Context(), owner, id, request.toChanges())
	if err != nil {
		handleServiceError(w, r, err, "update_task")
		return
	}

	respondData(w, http.StatusOK, fromTask(updated))
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	if err := h.tasks.SoftDelete(r.Context(), owner, id); err != nil {
		handleServiceError(w, r, err, "delete_task")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Reorder answers 204 even when some rows were skipped; the count
// mismatch is observable in the logs, not the response.
func (h *TaskHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var request ReorderRequest
	if !decodeBody(w, r, &request) {
		return
	}

	result, err := h.tasks.Reorder(r.Context(), owner, request.toItems())
	if err != nil {
		handleServiceError(w, r, err, "reorder_tasks")
		return
	}

	logger.Info("HTTP: tasks reordered",
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.Int("requested", result.Requested),
		zap.Int("updated", result.Updated))

	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) ListTrash(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	tasks, err := h.tasks.ListTrash(r.Context(), owner)
	if err != nil {
		handleServiceError(w, r, err, "list_trash")
		return
	}

	respondData(w, http.StatusOK, fromTaskList(tasks))
}

func (h *TaskHandler) Restore(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	restored, err := h.tasks.Restore(r.Context(), owner, id)
	if err != nil {
		handleServiceError(w, r, err, "restore_task")
		return
	}

	respondData(w, http.StatusOK, fromTask(restored))
}

func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	stats, err := h.tasks.Stats(r.Context(), owner)
	if err != nil {
		handleServiceError(w, r, err, "dashboard_stats")
		return
	}

	respondData(w, http.StatusOK, stats)
}

func (h *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.HealthCheck(r.Context()); err != nil {
			logger.Error("HTTP: health check failed", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
