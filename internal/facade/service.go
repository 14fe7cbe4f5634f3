// Package facade is the entry point for the three generation operations
// and the job status read. It decides between cache hit, inline generation
// and queued background work.
package facade

import (
	"context"
	"strings"
	"time"

	"lookgen-gateway/internal/apperr"
	"lookgen-gateway/internal/cachetable"
	"lookgen-gateway/internal/fingerprint"
	"lookgen-gateway/internal/jobs"
	"lookgen-gateway/internal/metrics"
	"lookgen-gateway/internal/orchestrator"
	"lookgen-gateway/pkg/logging/logging"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type Runner interface {
	Generate(ctx context.Context, typ jobs.Type, in jobs.Input, fingerprint string) (*orchestrator.Result, error)
	Submit(ctx context.Context, jobID string)
}

type Deps struct {
	Cache         cachetable.Table
	Jobs          jobs.Store
	Runner        Runner
	PromptVersion string

	Now   func() time.Time
	NewID func() string
}

type Service struct {
	cache         cachetable.Table
	jobs          jobs.Store
	runner        Runner
	promptVersion string
	now           func() time.Time
	newID         func() string

	inflight singleflight.Group
}

// missing collaborator => CONFIG_MISSING
func New(d Deps) (*Service, error) {
	var missing []string
	if d.Cache == nil {
		missing = append(missing, "cache table")
	}
	if d.Jobs == nil {
		missing = append(missing, "job store")
	}
	if d.Runner == nil {
		missing = append(missing, "orchestrator")
	}
	if strings.TrimSpace(d.PromptVersion) == "" {
		missing = append(missing, "prompt version")
	}
	if len(missing) > 0 {
		return nil, apperr.ConfigMissing("facade: missing %s", strings.Join(missing, ", "))
	}

	s := &Service{
		cache:         d.Cache,
		jobs:          d.Jobs,
		runner:        d.Runner,
		promptVersion: strings.TrimSpace(d.PromptVersion),
		now:           d.Now,
		newID:         d.NewID,
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s, nil
}

func (s *Service) PromptVersion() string { return s.promptVersion }

type ModelRequest struct {
	SourceImageRef string
	Async          bool
}

type GarmentRequest struct {
	ModelImageRef   string
	GarmentImageRef string
	PoseKey         string
	Async           bool
}

type PoseRequest struct {
	ImageRef string
	PoseKey  string
	Async    bool
}

// sync: URL, Cached. async: JobID, Status (+ Output on a hit)
type Result struct {
	Async    bool
	URL      string
	Cached   bool
	CacheHit bool
	JobID    string
	Status   jobs.Status
	Output   *jobs.Output
	Meta     jobs.Meta
}

func (s *Service) GenerateModel(ctx context.Context, req ModelRequest) (*Result, error) {
	in := jobs.Input{SourceImageRef: strings.TrimSpace(req.SourceImageRef), PromptVersion: s.promptVersion}
	if in.SourceImageRef == "" {
		return nil, missingFields("sourceImageRef")
	}
	key := fingerprint.Compute(s.promptVersion, string(jobs.TypeModel),
		fingerprint.F("sourceImageRef", in.SourceImageRef),
	)
	return s.handle(ctx, jobs.TypeModel, in, key, req.Async)
}

func (s *Service) ApplyGarment(ctx context.Context, req GarmentRequest) (*Result, error) {
	in := jobs.Input{
		ModelImageRef:   strings.TrimSpace(req.ModelImageRef),
		GarmentImageRef: strings.TrimSpace(req.GarmentImageRef),
		PoseKey:         strings.TrimSpace(req.PoseKey),
		PromptVersion:   s.promptVersion,
	}
	var missing []string
	if in.ModelImageRef == "" {
		missing = append(missing, "modelImageRef")
	}
	if in.GarmentImageRef == "" {
		missing = append(missing, "garmentImageRef")
	}
	if in.PoseKey == "" {
		missing = append(missing, "poseKey")
	}
	if len(missing) > 0 {
		return nil, missingFields(missing...)
	}
	if err := checkPoseKey(in.PoseKey); err != nil {
		return nil, err
	}
	key := fingerprint.Compute(s.promptVersion, string(jobs.TypeGarment),
		fingerprint.F("modelImageRef", in.ModelImageRef),
		fingerprint.F("garmentImageRef", in.GarmentImageRef),
		fingerprint.F("poseKey", in.PoseKey),
	)
	return s.handle(ctx, jobs.TypeGarment, in, key, req.Async)
}

func (s *Service) ChangePose(ctx context.Context, req PoseRequest) (*Result, error) {
	in := jobs.Input{
		ImageRef:      strings.TrimSpace(req.ImageRef),
		PoseKey:       strings.TrimSpace(req.PoseKey),
		PromptVersion: s.promptVersion,
	}
	var missing []string
	if in.ImageRef == "" {
		missing = append(missing, "imageRef")
	}
	if in.PoseKey == "" {
		missing = append(missing, "poseKey")
	}
	if len(missing) > 0 {
		return nil, missingFields(missing...)
	}
	if err := checkPoseKey(in.PoseKey); err != nil {
		return nil, err
	}
	key := fingerprint.Compute(s.promptVersion, string(jobs.TypePose),
		fingerprint.F("imageRef", in.ImageRef),
		fingerprint.F("poseKey", in.PoseKey),
	)
	return s.handle(ctx, jobs.TypePose, in, key, req.Async)
}

func (s *Service) JobStatus(ctx context.Context, id string) (*jobs.Job, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, missingFields("jobId")
	}
	job, ok, err := s.jobs.Get(ctx, id)
	if err != nil {
		return nil, apperr.Internal("load job", err)
	}
	if !ok {
		return nil, apperr.NotFound("job %s not found", id)
	}
	return job, nil
}

func (s *Service) handle(ctx context.Context, typ jobs.Type, in jobs.Input, key fingerprint.Key, async bool) (*Result, error) {
	fp := key.String()
	ctx = logging.WithFields(ctx,
		zap.String("operation", string(typ)),
		zap.String("fingerprint", fp),
		zap.Bool("async", async),
	)

	row, hit, err := s.cache.Get(ctx, fp)
	if err != nil {
		return nil, apperr.Internal("cache lookup", err)
	}
	if hit {
		meta := jobs.Meta{
			CacheHit:      true,
			Source:        jobs.SourceCache,
			PromptVersion: in.PromptVersion,
			PoseKey:       in.PoseKey,
			DurationMs:    jobs.Millis(0),
		}
		if !async {
			return &Result{URL: row.ArtifactRef, Cached: true, CacheHit: true, Meta: meta}, nil
		}
		jobID, err := s.ensureJobForCache(ctx, typ, in, fp, row.ArtifactRef, meta)
		if err != nil {
			return nil, err
		}
		return &Result{
			Async:    true,
			JobID:    jobID,
			Status:   jobs.StatusSucceeded,
			Output:   &jobs.Output{URL: row.ArtifactRef, Meta: meta},
			CacheHit: true,
			Meta:     meta,
		}, nil
	}

	if async {
		return s.enqueue(ctx, typ, in, fp)
	}
	return s.generateInline(ctx, typ, in, fp)
}

// generateInline shares one generation between identical in-flight sync
// requests. The shared call is detached so one caller leaving does not fail
// the rest.
func (s *Service) generateInline(ctx context.Context, typ jobs.Type, in jobs.Input, fp string) (*Result, error) {
	ch := s.inflight.DoChan(fp, func() (any, error) {
		genCtx := logging.Detach(ctx)
		if row, hit, err := s.cache.Get(genCtx, fp); err == nil && hit {
			return &orchestrator.Result{
				ArtifactRef: row.ArtifactRef,
				Meta: jobs.Meta{
					CacheHit:      true,
					Source:        jobs.SourceCache,
					PromptVersion: in.PromptVersion,
					PoseKey:       in.PoseKey,
					DurationMs:    jobs.Millis(0),
				},
			}, nil
		}
		return s.runner.Generate(genCtx, typ, in, fp)
	})

	select {
	case <-ctx.Done():
		return nil, apperr.From(ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return nil, apperr.From(r.Err)
		}
		res := r.Val.(*orchestrator.Result)
		return &Result{
			URL:      res.ArtifactRef,
			Cached:   res.Meta.CacheHit,
			CacheHit: res.Meta.CacheHit,
			Meta:     res.Meta,
		}, nil
	}
}

// enqueue attaches to the job named by the fingerprint pointer or creates a
// new queued job. The pointer read and write are not atomic: two first-time
// requests racing inside that window may each create a job.
func (s *Service) enqueue(ctx context.Context, typ jobs.Type, in jobs.Input, fp string) (*Result, error) {
	logger := logging.FromContext(ctx)
	queueMeta := jobs.Meta{
		CacheHit:      false,
		Source:        jobs.SourceQueue,
		PromptVersion: in.PromptVersion,
		PoseKey:       in.PoseKey,
	}

	existing, ok, err := s.jobs.GetPointer(ctx, fp)
	if err != nil {
		return nil, apperr.Internal("load job pointer", err)
	}
	if ok {
		metrics.JobDedupTotal.WithLabelValues(string(typ)).Inc()
		logger.Info("attached to existing job", zap.String("job_id", existing))
		return &Result{Async: true, JobID: existing, Status: jobs.StatusQueued, Meta: queueMeta}, nil
	}

	now := s.now()
	job := &jobs.Job{
		ID:          s.newID(),
		Type:        typ,
		Status:      jobs.StatusQueued,
		Fingerprint: fp,
		Attempts:    0,
		Input:       in,
		Meta:        queueMeta,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.jobs.Put(ctx, job); err != nil {
		return nil, apperr.Internal("create job", err)
	}
	if err := s.jobs.PutPointer(ctx, fp, job.ID); err != nil {
		return nil, apperr.Internal("write job pointer", err)
	}
	metrics.JobTransitionsTotal.WithLabelValues(string(typ), string(jobs.StatusQueued)).Inc()
	logger.Info("job queued", zap.String("job_id", job.ID))

	s.runner.Submit(ctx, job.ID)
	return &Result{Async: true, JobID: job.ID, Status: jobs.StatusQueued, Meta: queueMeta}, nil
}

// reuse the pointed-to job if it succeeded, else synthesize one and repoint
func (s *Service) ensureJobForCache(ctx context.Context, typ jobs.Type, in jobs.Input, fp, ref string, meta jobs.Meta) (string, error) {
	if id, ok, err := s.jobs.GetPointer(ctx, fp); err != nil {
		return "", apperr.Internal("load job pointer", err)
	} else if ok {
		job, found, err := s.jobs.Get(ctx, id)
		if err != nil {
			return "", apperr.Internal("load job", err)
		}
		if found && job.Status == jobs.StatusSucceeded {
			return id, nil
		}
	}

	now := s.now()
	job := &jobs.Job{
		ID:          s.newID(),
		Type:        typ,
		Status:      jobs.StatusSucceeded,
		Fingerprint: fp,
		Input:       in,
		Output:      &jobs.Output{URL: ref, Meta: meta},
		Cached:      true,
		Meta:        meta,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.jobs.Put(ctx, job); err != nil {
		return "", apperr.Internal("create cached job", err)
	}
	if err := s.jobs.PutPointer(ctx, fp, job.ID); err != nil {
		return "", apperr.Internal("write job pointer", err)
	}
	metrics.JobTransitionsTotal.WithLabelValues(string(typ), string(jobs.StatusSucceeded)).Inc()
	logging.FromContext(ctx).Info("synthesized job for cache hit", zap.String("job_id", job.ID))
	return job.ID, nil
}

func missingFields(names ...string) *apperr.Error {
	label := "Missing required field: "
	if len(names) > 1 {
		label = "Missing required fields: "
	}
	return apperr.BadRequest("%s%s", label, strings.Join(names, ", ")).WithDetail("missing", names)
}

func checkPoseKey(key string) error {
	if orchestrator.ValidPoseKey(key) {
		return nil
	}
	return apperr.BadRequest("Unknown poseKey %q (expected one of %s)", key, strings.Join(orchestrator.PoseKeys, ", ")).
		WithDetail("poseKey", key)
}
