package middleware

import (
	"encoding/json"
	"net/http"

	"lookgen-gateway/internal/apperr"
)

// writeError renders e in the gateway's error envelope.
func writeError(w http.ResponseWriter, e *apperr.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   e.Error(),
		"code":    e.Code,
	})
}
