// Package poller is the client side of the job contract: submit a request
// asynchronously, then poll the job until it is terminal.
package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lookgen-gateway/internal/jobs"

	"go.uber.org/zap"
)

// ErrIndeterminate is returned when the job is still running after the
// policy timeout. The job itself is not cancelled.
var ErrIndeterminate = errors.New("poller: job outcome indeterminate after timeout")

type JobFailedError struct {
	JobID   string
	Code    string
	Message string
}

func (e *JobFailedError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "job failed"
	}
	return fmt.Sprintf("job %s failed: %s", e.JobID, msg)
}

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gateway %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("gateway %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	policy     Policy
	logger     *zap.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.httpClient = hc } }
func WithPolicy(p Policy) Option { return func(c *Client) { c.policy = p } }
func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.logger = l } }

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		policy:     DefaultPolicy(),
		logger:     zap.NewNop(),
		sleep:      sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.policy = c.policy.withDefaults()
	return c
}

// Status fetches the job once.
func (c *Client) Status(ctx context.Context, jobID string) (*jobs.Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/jobs/"+url.PathEscape(jobID), nil)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-store")

	var job jobs.Job
	if err := c.do(req, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Wait polls until the job succeeds (returning its artifact URL), fails
// (*JobFailedError) or the policy timeout passes (ErrIndeterminate).
// Unsuccessful polls are skipped; Retry-After on 429 or 503 stretches the
// next wait.
func (c *Client) Wait(ctx context.Context, jobID string) (string, error) {
	deadline := time.Now().Add(c.policy.Timeout)
	delay := c.policy.Initial
	logger := c.logger.With(zap.String("job_id", jobID))

	for attempt := 1; ; attempt++ {
		job, err := c.Status(ctx, jobID)
		wait := delay
		switch {
		case err == nil && job.Status == jobs.StatusSucceeded && job.Output != nil && job.Output.URL != "":
			return job.Output.URL, nil
		case err == nil && job.Status == jobs.StatusFailed:
			return "", &JobFailedError{JobID: jobID, Code: job.ErrorCode, Message: job.Error}
		case err != nil:
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			var apiErr *APIError
			if errors.As(err, &apiErr) &&
				(apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode == http.StatusServiceUnavailable) &&
				apiErr.RetryAfter > wait {
				wait = apiErr.RetryAfter
			}
			logger.Debug("job poll failed", zap.Int("attempt", attempt), zap.Error(err))
		default:
			logger.Debug("job pending", zap.Int("attempt", attempt), zap.String("status", string(job.Status)))
		}

		if remaining := time.Until(deadline); remaining <= 0 {
			return "", ErrIndeterminate
		} else if wait > remaining {
			wait = remaining
		}
		if err := c.sleep(ctx, wait); err != nil {
			return "", err
		}
		delay = c.policy.next(delay)
	}
}

type submitResponse struct {
	URL    string       `json:"url"`
	JobID  string       `json:"jobId"`
	Status jobs.Status  `json:"status"`
	Output *jobs.Output `json:"output"`
}

func (c *Client) GenerateModel(ctx context.Context, sourceImageRef string) (string, error) {
	return c.submit(ctx, "/api/model", map[string]any{"sourceImageRef": sourceImageRef, "async": true})
}

func (c *Client) ApplyGarment(ctx context.Context, modelImageRef, garmentImageRef, poseKey string) (string, error) {
	return c.submit(ctx, "/api/tryon", map[string]any{
		"modelImageRef":   modelImageRef,
		"garmentImageRef": garmentImageRef,
		"poseKey":         poseKey,
		"async":           true,
	})
}

func (c *Client) ChangePose(ctx context.Context, imageRef, poseKey string) (string, error) {
	return c.submit(ctx, "/api/pose", map[string]any{"imageRef": imageRef, "poseKey": poseKey, "async": true})
}

// submit posts an async request and returns the artifact URL, either
// straight from a cache hit or by waiting on the returned job.
func (c *Client) submit(ctx context.Context, path string, body map[string]any) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Async", "1")

	var resp submitResponse
	if err := c.do(req, &resp); err != nil {
		return "", err
	}

	switch {
	case resp.URL != "":
		return resp.URL, nil
	case resp.Status == jobs.StatusSucceeded && resp.Output != nil && resp.Output.URL != "":
		return resp.Output.URL, nil
	case resp.JobID != "":
		c.logger.Info("waiting on job", zap.String("job_id", resp.JobID), zap.String("status", string(resp.Status)))
		return c.Wait(ctx, resp.JobID)
	default:
		return "", errors.New("poller: unexpected response without url or jobId")
	}
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header),
			Message:    strings.TrimSpace(string(body)),
		}
		var e struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			apiErr.Message = e.Error
			apiErr.Code = e.Code
		}
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
