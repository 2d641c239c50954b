package middleware

import (
	"encoding/json"
	"net/http"
)

// writeJSONError writes the standard response envelope for a failed request.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"statusCode": status,
		"data":       nil,
		"message":    msg,
		"success":    false,
	})
}
