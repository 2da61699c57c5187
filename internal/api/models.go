package api

import (
	"encoding/json"
	"net/http"

	apperrors "campuspark/internal/errors"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeError maps an engine error onto its HTTP status and answers
// with a small JSON body.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperrors.StatusCode(err), map[string]string{"error": err.Error()})
}

type messageResponse struct {
	Message string `json:"message"`
}
