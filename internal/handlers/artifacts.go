package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"lookgen-gateway/internal/apperr"
	"lookgen-gateway/internal/artifact"
)

// ArtifactHandler serves stored artifacts under /artifacts/*.
type ArtifactHandler struct {
	store artifact.Store
}

func NewArtifactHandler(store artifact.Store) *ArtifactHandler {
	return &ArtifactHandler{store: store}
}

func (h *ArtifactHandler) Serve(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if key == "" || strings.Contains(key, "..") {
		writeError(w, r, apperr.NotFound("artifact not found"))
		return
	}

	obj, ok, err := h.store.Get(r.Context(), key)
	if err != nil {
		writeError(w, r, apperr.Internal("load artifact", err))
		return
	}
	if !ok {
		writeError(w, r, apperr.NotFound("artifact %s not found", key))
		return
	}

	ct := obj.ContentType
	if ct == "" {
		ct = artifact.ContentTypeForKey(key)
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.Data)))
	w.Header().Set("Cache-Control", artifact.ImmutableCacheControl)
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(obj.Data)
	}
}
