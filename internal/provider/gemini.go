package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"lookgen-gateway/internal/apperr"

	"go.uber.org/zap"
)

const (
	maxRequestSize  = 48 << 20 // total JSON payload including base64 images
	maxResponseSize = 64 << 20
)

// GenerateImage performs a single bounded generateContent call. There is no
// retry loop: a failed call surfaces to the caller as is.
func (c *GeminiClient) GenerateImage(parentCtx context.Context, req *ImageRequest) (*Image, error) {
	start := time.Now()

	if req == nil {
		return nil, apperr.Internal("gemini: request is nil", nil)
	}
	if req.Prompt == "" {
		return nil, apperr.Internal("gemini: prompt is required", nil)
	}

	parts := make([]part, 0, len(req.Images)+1)
	parts = append(parts, part{Text: req.Prompt})
	for _, img := range req.Images {
		parts = append(parts, part{InlineData: &inlineData{
			MimeType: img.MimeType,
			Data:     base64.StdEncoding.EncodeToString(img.Data),
		}})
	}

	bodyBytes, err := json.Marshal(generateContentRequest{
		Contents: []content{{Role: "user", Parts: parts}},
	})
	if err != nil {
		return nil, apperr.Internal("gemini: marshal request", err)
	}
	if len(bodyBytes) > maxRequestSize {
		return nil, apperr.Internal(fmt.Sprintf("gemini: request too large (%d bytes, max %d)", len(bodyBytes), maxRequestSize), nil)
	}

	ctx, cancel := context.WithTimeout(parentCtx, c.cfg.Timeout)
	defer cancel()

	endpoint := c.cfg.BaseURL + "/models/" + url.PathEscape(c.cfg.Model) + ":generateContent"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, apperr.Internal("gemini: build HTTP request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.cfg.APIKey)

	c.logger.Debug("gemini request starting",
		zap.String("model", c.cfg.Model),
		zap.Int("image_count", len(req.Images)),
		zap.Int("body_bytes", len(bodyBytes)),
	)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.transportError(ctx, err, start)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, c.transportError(ctx, err, start)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var perr errorResponse
		msg := truncate(string(body), 200)
		if err := json.Unmarshal(body, &perr); err == nil && perr.Error.Message != "" {
			msg = perr.Error.Message
		}
		c.logger.Error("gemini upstream error",
			zap.Int("status", resp.StatusCode),
			zap.String("error_message", msg),
			zap.Duration("duration", time.Since(start)),
		)
		return nil, apperr.Upstream(resp.StatusCode, fmt.Sprintf("Gemini API error %d: %s", resp.StatusCode, msg))
	}

	img, err := ParseImageResponse(body)
	if err != nil {
		c.logger.Warn("gemini response rejected",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return nil, err
	}

	fields := []zap.Field{
		zap.String("model", c.cfg.Model),
		zap.String("mime_type", img.MimeType),
		zap.Int("image_bytes", len(img.Data)),
		zap.Duration("duration", time.Since(start)),
	}
	if summary := img.Feedback.Summary(); summary != "" {
		fields = append(fields, zap.String("feedback", summary))
	}
	c.logger.Info("gemini request completed", fields...)
	return img, nil
}

func (c *GeminiClient) transportError(ctx context.Context, err error, start time.Time) error {
	c.logger.Error("gemini request failed",
		zap.Error(err),
		zap.Duration("duration", time.Since(start)),
	)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.Timeout(err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return apperr.Upstream(0, "Gemini request failed: "+err.Error())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
