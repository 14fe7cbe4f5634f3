package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"lookgen-gateway/internal/apperr"
	"lookgen-gateway/internal/facade"
	"lookgen-gateway/internal/jobs"
)

type fakeGateway struct {
	model   []facade.ModelRequest
	garment []facade.GarmentRequest
	pose    []facade.PoseRequest

	result *facade.Result
	job    *jobs.Job
	err    error
}

func (f *fakeGateway) GenerateModel(_ context.Context, req facade.ModelRequest) (*facade.Result, error) {
	f.model = append(f.model, req)
	return f.result, f.err
}

func (f *fakeGateway) ApplyGarment(_ context.Context, req facade.GarmentRequest) (*facade.Result, error) {
	f.garment = append(f.garment, req)
	return f.result, f.err
}

func (f *fakeGateway) ChangePose(_ context.Context, req facade.PoseRequest) (*facade.Result, error) {
	f.pose = append(f.pose, req)
	return f.result, f.err
}

func (f *fakeGateway) JobStatus(_ context.Context, id string) (*jobs.Job, error) {
	if f.job == nil || f.job.ID != id {
		return nil, apperr.NotFound("job %s not found", id)
	}
	return f.job.Clone(), nil
}

func newTestRouter(gw Gateway) http.Handler {
	h := NewGenerationHandler(gw)
	r := chi.NewRouter()
	r.Post("/api/model", h.GenerateModel)
	r.Post("/api/tryon", h.ApplyGarment)
	r.Post("/api/pose", h.ChangePose)
	r.Get("/api/jobs/{id}", h.JobStatus)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string, header map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Host = "gw.example"
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return rr, out
}

func TestSyncResponseAbsolutizesURL(t *testing.T) {
	gw := &fakeGateway{result: &facade.Result{
		URL:  "/artifacts/model/a.webp",
		Meta: jobs.Meta{Source: jobs.SourceGenerated, PromptVersion: "v1"},
	}}

	rr, body := do(t, newTestRouter(gw), http.MethodPost, "/api/model", `{"sourceImageRef":"r2://u1.jpg"}`,
		map[string]string{"X-Forwarded-Proto": "https"})

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if body["success"] != true || body["cached"] != false {
		t.Fatalf("unexpected body %v", body)
	}
	if body["url"] != "https://gw.example/artifacts/model/a.webp" {
		t.Fatalf("url = %v", body["url"])
	}
	if rr.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("expected no-store")
	}
	if len(gw.model) != 1 || gw.model[0].SourceImageRef != "r2://u1.jpg" || gw.model[0].Async {
		t.Fatalf("unexpected facade call %+v", gw.model)
	}
}

func TestAsyncPreferenceSources(t *testing.T) {
	cases := []struct {
		name   string
		target string
		body   string
		header map[string]string
	}{
		{"body bool", "/api/model", `{"userImageUrl":"r2://u.jpg","async":true}`, nil},
		{"body string", "/api/model", `{"userImageUrl":"r2://u.jpg","async":"1"}`, nil},
		{"header", "/api/model", `{"userImageUrl":"r2://u.jpg"}`, map[string]string{"X-Async": "1"}},
		{"query", "/api/model?async=1", `{"userImageUrl":"r2://u.jpg"}`, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := &fakeGateway{result: &facade.Result{Async: true, JobID: "job-1", Status: jobs.StatusQueued}}
			rr, body := do(t, newTestRouter(gw), http.MethodPost, tc.target, tc.body, tc.header)

			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d", rr.Code)
			}
			if !gw.model[0].Async {
				t.Fatalf("async preference not detected")
			}
			if gw.model[0].SourceImageRef != "r2://u.jpg" {
				t.Fatalf("alias not applied: %+v", gw.model[0])
			}
			if body["jobId"] != "job-1" || body["status"] != "queued" {
				t.Fatalf("unexpected body %v", body)
			}
			if _, ok := body["output"]; ok {
				t.Fatalf("queued response must not carry output")
			}
		})
	}
}

func TestAsyncCacheHitResponse(t *testing.T) {
	meta := jobs.Meta{CacheHit: true, Source: jobs.SourceCache, PromptVersion: "v1", PoseKey: "side"}
	gw := &fakeGateway{result: &facade.Result{
		Async:    true,
		JobID:    "job-9",
		Status:   jobs.StatusSucceeded,
		CacheHit: true,
		Output:   &jobs.Output{URL: "/artifacts/pose/p.webp", Meta: meta},
		Meta:     meta,
	}}

	_, body := do(t, newTestRouter(gw), http.MethodPost, "/api/pose",
		`{"modelUrl":"r2://m.jpg","poseKey":"side","async":true}`, nil)

	if body["status"] != "succeeded" || body["cacheHit"] != true {
		t.Fatalf("unexpected body %v", body)
	}
	output, _ := body["output"].(map[string]any)
	if output["url"] != "http://gw.example/artifacts/pose/p.webp" {
		t.Fatalf("output = %v", output)
	}
	if gw.pose[0].ImageRef != "r2://m.jpg" {
		t.Fatalf("pose alias not applied: %+v", gw.pose[0])
	}
}

func TestTryOnAliases(t *testing.T) {
	gw := &fakeGateway{result: &facade.Result{URL: "https://cdn.example/g.webp"}}
	_, body := do(t, newTestRouter(gw), http.MethodPost, "/api/tryon",
		`{"modelUrl":"r2://m.jpg","garmentUrl":"r2://g.jpg","poseKey":"front"}`, nil)

	got := gw.garment[0]
	if got.ModelImageRef != "r2://m.jpg" || got.GarmentImageRef != "r2://g.jpg" || got.PoseKey != "front" {
		t.Fatalf("unexpected request %+v", got)
	}
	if body["url"] != "https://cdn.example/g.webp" {
		t.Fatalf("absolute URLs must be kept, got %v", body["url"])
	}
}

func TestErrorEnvelope(t *testing.T) {
	gw := &fakeGateway{err: apperr.BadRequest("Missing required field: sourceImageRef").WithDetail("missing", []string{"sourceImageRef"})}
	rr, body := do(t, newTestRouter(gw), http.MethodPost, "/api/model", `{}`, nil)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	if body["success"] != false || body["code"] != "BAD_REQUEST" {
		t.Fatalf("unexpected body %v", body)
	}
	if body["error"] != "Missing required field: sourceImageRef" {
		t.Fatalf("error = %v", body["error"])
	}
	if _, ok := body["details"]; !ok {
		t.Fatalf("expected details")
	}
}

func TestProviderErrorStatus(t *testing.T) {
	gw := &fakeGateway{err: apperr.Blocked("prompt blocked: SAFETY")}
	rr, body := do(t, newTestRouter(gw), http.MethodPost, "/api/model", `{"sourceImageRef":"x"}`, nil)
	if rr.Code != http.StatusUnprocessableEntity || body["code"] != "AI_BLOCKED" {
		t.Fatalf("unexpected %d %v", rr.Code, body)
	}
}

func TestInvalidJSON(t *testing.T) {
	gw := &fakeGateway{}
	rr, body := do(t, newTestRouter(gw), http.MethodPost, "/api/model", `{not json`, nil)
	if rr.Code != http.StatusBadRequest || body["code"] != "BAD_REQUEST" {
		t.Fatalf("unexpected %d %v", rr.Code, body)
	}
	if len(gw.model) != 0 {
		t.Fatalf("facade must not be called on invalid JSON")
	}
}

func TestJobStatus(t *testing.T) {
	gw := &fakeGateway{job: &jobs.Job{
		ID:     "job-1",
		Type:   jobs.TypeModel,
		Status: jobs.StatusSucceeded,
		Output: &jobs.Output{URL: "/artifacts/model/a.webp"},
	}}
	h := newTestRouter(gw)

	rr, body := do(t, h, http.MethodGet, "/api/jobs/job-1", "", nil)
	if rr.Code != http.StatusOK || body["status"] != "succeeded" {
		t.Fatalf("unexpected %d %v", rr.Code, body)
	}
	output, _ := body["output"].(map[string]any)
	if output["url"] != "http://gw.example/artifacts/model/a.webp" {
		t.Fatalf("output = %v", output)
	}

	rr, body = do(t, h, http.MethodGet, "/api/jobs/missing", "", nil)
	if rr.Code != http.StatusNotFound || body["code"] != "NOT_FOUND" {
		t.Fatalf("unexpected %d %v", rr.Code, body)
	}
}
