package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"lookgen-gateway/internal/apperr"
	"lookgen-gateway/internal/facade"
	"lookgen-gateway/internal/jobs"
	"lookgen-gateway/pkg/logging/logging"
)

// Gateway is the facade surface the HTTP layer drives.
type Gateway interface {
	GenerateModel(ctx context.Context, req facade.ModelRequest) (*facade.Result, error)
	ApplyGarment(ctx context.Context, req facade.GarmentRequest) (*facade.Result, error)
	ChangePose(ctx context.Context, req facade.PoseRequest) (*facade.Result, error)
	JobStatus(ctx context.Context, id string) (*jobs.Job, error)
}

// GenerationHandler serves the generation and job status endpoints.
type GenerationHandler struct {
	svc Gateway
}

func NewGenerationHandler(svc Gateway) *GenerationHandler {
	return &GenerationHandler{svc: svc}
}

// generationRequest accepts the canonical field names and the aliases older
// clients still send.
type generationRequest struct {
	SourceImageRef  string   `json:"sourceImageRef"`
	UserImageURL    string   `json:"userImageUrl"`
	ModelImageRef   string   `json:"modelImageRef"`
	ModelURL        string   `json:"modelUrl"`
	GarmentImageRef string   `json:"garmentImageRef"`
	GarmentURL      string   `json:"garmentUrl"`
	ImageRef        string   `json:"imageRef"`
	PoseKey         string   `json:"poseKey"`
	Async           flexBool `json:"async"`
}

// flexBool decodes true, "true", "1" and 1 as true.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	*b = flexBool(truthy(strings.Trim(string(data), `"`)))
	return nil
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// GenerateModel handles POST /api/model.
func (h *GenerationHandler) GenerateModel(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, jobs.TypeModel, func(ctx context.Context, req generationRequest, async bool) (*facade.Result, error) {
		return h.svc.GenerateModel(ctx, facade.ModelRequest{
			SourceImageRef: firstNonEmpty(req.SourceImageRef, req.UserImageURL),
			Async:          async,
		})
	})
}

// ApplyGarment handles POST /api/tryon.
func (h *GenerationHandler) ApplyGarment(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, jobs.TypeGarment, func(ctx context.Context, req generationRequest, async bool) (*facade.Result, error) {
		return h.svc.ApplyGarment(ctx, facade.GarmentRequest{
			ModelImageRef:   firstNonEmpty(req.ModelImageRef, req.ModelURL),
			GarmentImageRef: firstNonEmpty(req.GarmentImageRef, req.GarmentURL),
			PoseKey:         req.PoseKey,
			Async:           async,
		})
	})
}

// ChangePose handles POST /api/pose.
func (h *GenerationHandler) ChangePose(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, jobs.TypePose, func(ctx context.Context, req generationRequest, async bool) (*facade.Result, error) {
		return h.svc.ChangePose(ctx, facade.PoseRequest{
			ImageRef: firstNonEmpty(req.ImageRef, req.ModelURL),
			PoseKey:  req.PoseKey,
			Async:    async,
		})
	})
}

type operation func(ctx context.Context, req generationRequest, async bool) (*facade.Result, error)

func (h *GenerationHandler) serve(w http.ResponseWriter, r *http.Request, typ jobs.Type, op operation) {
	start := time.Now()

	req, err := decodeRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	async := bool(req.Async) || truthy(r.Header.Get("X-Async")) || truthy(r.URL.Query().Get("async"))

	ctx := logging.WithFields(r.Context(), zap.String("operation", string(typ)))
	res, err := op(ctx, req, async)
	if err != nil {
		writeError(w, r, err)
		return
	}

	logging.L(ctx).Info("generation_response",
		zap.Bool("async", res.Async),
		zap.Bool("cache_hit", res.CacheHit),
		zap.String("job_id", res.JobID),
		zap.String("status", string(res.Status)),
		zap.Duration("total_latency_ms", time.Since(start)),
	)

	writeJSON(w, http.StatusOK, renderResult(r, res))
}

func decodeRequest(r *http.Request) (generationRequest, error) {
	var req generationRequest
	if r.Body == nil {
		return req, nil
	}
	err := json.NewDecoder(r.Body).Decode(&req)
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return req, nil
	case errors.As(err, &tooLarge):
		return req, apperr.New(http.StatusRequestEntityTooLarge, apperr.CodeBadRequest, "request body too large").
			WithDetail("limit", tooLarge.Limit)
	default:
		return req, apperr.BadRequest("invalid JSON body")
	}
}

type syncResponse struct {
	Success  bool      `json:"success"`
	URL      string    `json:"url"`
	Cached   bool      `json:"cached"`
	CacheHit bool      `json:"cacheHit"`
	Meta     jobs.Meta `json:"meta"`
}

type asyncResponse struct {
	JobID    string       `json:"jobId"`
	Status   jobs.Status  `json:"status"`
	Output   *jobs.Output `json:"output,omitempty"`
	CacheHit bool         `json:"cacheHit,omitempty"`
	Meta     jobs.Meta    `json:"meta"`
}

func renderResult(r *http.Request, res *facade.Result) any {
	if !res.Async {
		return syncResponse{
			Success:  true,
			URL:      absolute(r, res.URL),
			Cached:   res.Cached,
			CacheHit: res.CacheHit,
			Meta:     res.Meta,
		}
	}
	out := asyncResponse{
		JobID:    res.JobID,
		Status:   res.Status,
		CacheHit: res.CacheHit,
		Meta:     res.Meta,
	}
	if res.Output != nil {
		o := *res.Output
		o.URL = absolute(r, o.URL)
		out.Output = &o
	}
	return out
}

// JobStatus handles GET /api/jobs/{id}.
func (h *GenerationHandler) JobStatus(w http.ResponseWriter, r *http.Request) {
	job, err := h.svc.JobStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if job.Output != nil {
		job.Output.URL = absolute(r, job.Output.URL)
	}
	writeJSON(w, http.StatusOK, job)
}
