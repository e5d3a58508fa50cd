package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// DataEnvelope wraps every successful response.
type DataEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// ErrorEnvelope wraps every failed response.
type ErrorEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Errors  any    `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, DataEnvelope{Success: true, Data: data})
}

func writeFailure(w http.ResponseWriter, status int, message string, errs any) {
	writeJSON(w, status, ErrorEnvelope{Message: message, Errors: errs})
}
