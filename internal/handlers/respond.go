package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"lookgen-gateway/internal/apperr"
	"lookgen-gateway/pkg/logging/logging"
)

type errorResponse struct {
	Success bool           `json:"success"`
	Error   string         `json:"error"`
	Code    apperr.Code    `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// writeJSON is a small helper to send JSON responses consistently.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError classifies err and writes the error envelope with the
// matching HTTP status.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	ae := apperr.From(err)
	logger := logging.L(r.Context())
	if ae.Status >= http.StatusInternalServerError {
		logger.Error("request_failed", zap.String("code", string(ae.Code)), zap.Error(err))
	} else {
		logger.Info("request_rejected", zap.String("code", string(ae.Code)), zap.Error(err))
	}

	msg := ae.Message
	if msg == "" {
		msg = ae.Error()
	}
	writeJSON(w, ae.Status, errorResponse{
		Success: false,
		Error:   msg,
		Code:    ae.Code,
		Details: ae.Details,
	})
}

// requestOrigin is scheme://host as seen by the client, honouring the
// forwarding headers set by a fronting proxy.
func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	host := r.Host
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		host = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return scheme + "://" + host
}

// absolute turns a root-relative artifact ref into a URL the client can
// fetch. Absolute URLs and storage refs are returned unchanged.
func absolute(r *http.Request, ref string) string {
	if strings.HasPrefix(ref, "/") && !strings.HasPrefix(ref, "//") {
		return requestOrigin(r) + ref
	}
	return ref
}
