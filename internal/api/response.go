package api

import (
	"encoding/json"
	"net/http"
)

type errorResponse struct {
	Error string `json:"error"`
}

// JSON writes data as the whole response body.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func JSONErrorMessage(w http.ResponseWriter, status int, message string) {
	JSON(w, status, errorResponse{Error: message})
}
