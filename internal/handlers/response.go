package handlers

import (
	"encoding/json"
	"net/http"
)

type listMeta struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

func respondData(w http.ResponseWriter, code int, data any) {
	writeJSON(w, code, map[string]any{"data": data})
}

func respondList(w http.ResponseWriter, data any, total, page, limit int) {
	writeJSON(w, http.StatusOK, map[string]any{
		"data": data,
		"meta": listMeta{Total: total, Page: page, Limit: limit},
	})
}

func respondError(w http.ResponseWriter, code int, message string, extra map[string]any) {
	body := map[string]any{"message": message}
	for key, value := range extra {
		body[key] = value
	}
	writeJSON(w, code, map[string]any{"error": body})
}
