package handlers

import (
	"errors"
	"net/http"

	"taskdeck/internal/logger"
	"taskdeck/internal/query"
	"taskdeck/internal/service"

	"go.uber.org/zap"
)

func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case service.CodeUnauthenticated:
		return http.StatusUnauthorized
	case service.CodeValidation:
		return http.StatusUnprocessableEntity
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeHasDependents:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// handleServiceError translates a service failure into the error
// envelope. Malformed filters stay a plain 400; business codes carry
// their details through.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	var filterErr *query.ValidationError
	if errors.As(err, &filterErr) {
		issues := make(map[string]any, len(filterErr.Fields))
		for field, reason := range filterErr.Fields {
			issues[field] = reason
		}
		respondError(w, http.StatusBadRequest, "invalid query parameters",
			map[string]any{"issues": issues})
		return
	}

	var businessErr *service.BusinessError
	if errors.As(err, &businessErr) {
		status := mapBusinessErrorToHTTP(businessErr.Code)

		logger.Warn("HTTP: business error",
			zap.String("operation", operation),
			zap.String("error_code", businessErr.Code),
			zap.Int("http_status", status))

		extra := map[string]any{}
		if len(businessErr.Details) > 0 {
			if businessErr.Code == service.CodeValidation {
				extra["issues"] = businessErr.Details
			} else {
				for key, value := range businessErr.Details {
					extra[key] = value
				}
			}
		}
		respondError(w, status, businessErr.Message, extra)
		return
	}

	logger.Error("HTTP: service error", err,
		zap.String("operation", operation))
	respondError(w, http.StatusInternalServerError, "internal server error", nil)
}
