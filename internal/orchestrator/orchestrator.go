// Package orchestrator runs generations and drives jobs through
// queued -> processing -> succeeded | failed.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lookgen-gateway/internal/apperr"
	"lookgen-gateway/internal/artifact"
	"lookgen-gateway/internal/cachetable"
	"lookgen-gateway/internal/jobs"
	"lookgen-gateway/internal/metrics"
	"lookgen-gateway/internal/provider"
	"lookgen-gateway/pkg/logging/logging"

	"go.uber.org/zap"
)

type ImageFetcher interface {
	Fetch(ctx context.Context, ref string) (*artifact.Object, error)
}

type Deps struct {
	Cache     cachetable.Table
	Artifacts artifact.Store
	Fetcher   ImageFetcher
	Provider  provider.Client
	Jobs      jobs.Store
	Scheduler jobs.Scheduler

	// 0 = leave it to the provider client
	ProviderTimeout time.Duration
	Now             func() time.Time
}

type Orchestrator struct {
	cache           cachetable.Table
	artifacts       artifact.Store
	fetcher         ImageFetcher
	provider        provider.Client
	jobs            jobs.Store
	scheduler       jobs.Scheduler
	providerTimeout time.Duration
	now             func() time.Time
}

func New(d Deps) (*Orchestrator, error) {
	var missing []string
	if d.Cache == nil {
		missing = append(missing, "cache table")
	}
	if d.Artifacts == nil {
		missing = append(missing, "artifact store")
	}
	if d.Fetcher == nil {
		missing = append(missing, "image fetcher")
	}
	if d.Provider == nil {
		missing = append(missing, "generation provider")
	}
	if d.Jobs == nil {
		missing = append(missing, "job store")
	}
	if d.Scheduler == nil {
		missing = append(missing, "scheduler")
	}
	if len(missing) > 0 {
		return nil, apperr.ConfigMissing("orchestrator: missing %s", strings.Join(missing, ", "))
	}
	now := d.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Orchestrator{
		cache:           d.Cache,
		artifacts:       d.Artifacts,
		fetcher:         d.Fetcher,
		provider:        d.Provider,
		jobs:            d.Jobs,
		scheduler:       d.Scheduler,
		providerTimeout: d.ProviderTimeout,
		now:             now,
	}, nil
}

type Result struct {
	ArtifactRef string
	Meta        jobs.Meta
}

// Generate runs one generation and records the cache row for fingerprint.
func (o *Orchestrator) Generate(ctx context.Context, typ jobs.Type, in jobs.Input, fingerprint string) (*Result, error) {
	started := time.Now()
	logger := logging.FromContext(ctx)

	prompt, refs, err := promptFor(typ, in)
	if err != nil {
		return nil, apperr.Internal("build prompt", err)
	}

	images := make([]provider.InlineImage, 0, len(refs))
	for _, ref := range refs {
		obj, err := o.fetcher.Fetch(ctx, ref)
		if err != nil {
			return nil, apperr.Internal("fetch input image", err).WithDetail("ref", ref)
		}
		images = append(images, provider.InlineImage{Data: obj.Data, MimeType: obj.ContentType})
	}

	img, err := o.callProvider(ctx, typ, &provider.ImageRequest{Prompt: prompt, Images: images})
	if err != nil {
		return nil, err
	}
	if summary := img.Feedback.Summary(); summary != "" {
		logger.Info("provider feedback", zap.String("feedback", summary))
	}

	key := artifact.NewKey(typ.ArtifactKind(), img.MimeType)
	ref, err := o.artifacts.Put(ctx, key, img.Data, img.MimeType)
	if err != nil {
		return nil, apperr.Internal("store artifact", err)
	}

	row := cachetable.Row{
		Fingerprint:   fingerprint,
		ArtifactRef:   ref,
		PromptVersion: in.PromptVersion,
		Operation:     string(typ),
		CreatedAt:     o.now(),
	}
	// best effort: the artifact exists either way
	if err := o.cache.Insert(ctx, row); err != nil {
		logger.Error("cache row insert failed", zap.String("fingerprint", fingerprint), zap.Error(err))
	}

	fb := img.Feedback
	return &Result{
		ArtifactRef: ref,
		Meta: jobs.Meta{
			CacheHit:      false,
			Source:        jobs.SourceGenerated,
			PromptVersion: in.PromptVersion,
			PoseKey:       in.PoseKey,
			DurationMs:    jobs.Millis(time.Since(started)),
			Feedback:      &fb,
		},
	}, nil
}

func (o *Orchestrator) callProvider(ctx context.Context, typ jobs.Type, req *provider.ImageRequest) (*provider.Image, error) {
	if o.providerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.providerTimeout)
		defer cancel()
	}

	start := time.Now()
	img, err := o.provider.GenerateImage(ctx, req)
	// our deadline, not the provider's error
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		if _, ok := apperr.As(err); !ok {
			err = apperr.Timeout(err)
		}
	}

	outcome := "ok"
	if err != nil {
		outcome = string(apperr.From(err).Code)
	}
	metrics.ProviderRequestSeconds.WithLabelValues(string(typ), outcome).Observe(time.Since(start).Seconds())
	return img, err
}

// non-blocking
func (o *Orchestrator) Submit(ctx context.Context, jobID string) {
	o.scheduler.Schedule(ctx, "execute-job", func(taskCtx context.Context) {
		if err := o.Execute(taskCtx, jobID); err != nil {
			logging.FromContext(taskCtx).Error("job execution aborted", zap.String("job_id", jobID), zap.Error(err))
		}
	})
}

// Execute moves a queued job to succeeded or failed. Anything not queued is
// a no-op. Returned errors are job store errors only, generation errors are
// written to the job.
func (o *Orchestrator) Execute(ctx context.Context, jobID string) error {
	ctx = logging.WithFields(ctx, zap.String("job_id", jobID))
	logger := logging.FromContext(ctx)

	job, ok, err := o.jobs.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}
	if !ok {
		logger.Warn("job not found, skipping")
		return nil
	}
	if job.Status != jobs.StatusQueued {
		logger.Info("job not queued, skipping", zap.String("status", string(job.Status)))
		return nil
	}

	// attempts stays incremented even on failure, nothing retries
	job.Status = jobs.StatusProcessing
	job.Attempts++
	job.UpdatedAt = o.now()
	if err := o.jobs.Put(ctx, job); err != nil {
		return fmt.Errorf("mark job %s processing: %w", jobID, err)
	}
	metrics.JobTransitionsTotal.WithLabelValues(string(job.Type), string(job.Status)).Inc()

	ctx = logging.WithFields(ctx,
		zap.String("job_type", string(job.Type)),
		zap.String("fingerprint", job.Fingerprint),
		zap.Int("attempts", job.Attempts),
	)
	logger = logging.FromContext(ctx)
	logger.Info("job processing")

	res, genErr := o.Generate(ctx, job.Type, job.Input, job.Fingerprint)

	job.UpdatedAt = o.now()
	if genErr != nil {
		ae := apperr.From(genErr)
		job.Status = jobs.StatusFailed
		job.Error = ae.Error()
		job.ErrorCode = string(ae.Code)
		logger.Warn("job failed", zap.String("code", job.ErrorCode), zap.Error(genErr))
	} else {
		job.Status = jobs.StatusSucceeded
		job.Output = &jobs.Output{URL: res.ArtifactRef, Meta: res.Meta}
		job.Meta = res.Meta
		logger.Info("job succeeded", zap.String("artifact_ref", res.ArtifactRef))
	}

	if err := o.jobs.Put(ctx, job); err != nil {
		return fmt.Errorf("finalize job %s: %w", jobID, err)
	}
	metrics.JobTransitionsTotal.WithLabelValues(string(job.Type), string(job.Status)).Inc()
	return nil
}
