package models

import (
	"encoding/json"
	"net/http"
)

// Failure — единый ответ об ошибке для /api/*.
type Failure struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func WriteFailure(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Failure{Success: false, Message: message})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
