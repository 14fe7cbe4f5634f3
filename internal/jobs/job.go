package jobs

import (
	"time"

	"lookgen-gateway/internal/provider"
)

type Type string

const (
	TypeModel   Type = "model-generation"
	TypeGarment Type = "garment-apply"
	TypePose    Type = "pose-change"
)

func (t Type) Valid() bool {
	switch t {
	case TypeModel, TypeGarment, TypePose:
		return true
	}
	return false
}

// ArtifactKind is the artifact key prefix for jobs of this type.
func (t Type) ArtifactKind() string {
	switch t {
	case TypeModel:
		return "model"
	case TypeGarment:
		return "garment"
	default:
		return "pose"
	}
}

type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition can happen.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Input holds everything needed to execute the job later.
type Input struct {
	SourceImageRef  string `json:"sourceImageRef,omitempty"`
	ModelImageRef   string `json:"modelImageRef,omitempty"`
	GarmentImageRef string `json:"garmentImageRef,omitempty"`
	ImageRef        string `json:"imageRef,omitempty"`
	PoseKey         string `json:"poseKey,omitempty"`
	PromptVersion   string `json:"promptVersion"`
}

const (
	SourceCache     = "cache"
	SourceQueue     = "queue"
	SourceGenerated = "generated"
)

type Meta struct {
	CacheHit      bool               `json:"cacheHit"`
	Source        string             `json:"source"`
	PromptVersion string             `json:"promptVersion"`
	PoseKey       string             `json:"poseKey,omitempty"`
	DurationMs    *int64             `json:"durationMs,omitempty"`
	Feedback      *provider.Feedback `json:"feedback,omitempty"`
}

type Output struct {
	URL  string `json:"url"`
	Meta Meta   `json:"meta"`
}

type Job struct {
	ID          string    `json:"id"`
	Type        Type      `json:"type"`
	Status      Status    `json:"status"`
	Fingerprint string    `json:"fingerprint"`
	Attempts    int       `json:"attempts"`
	Input       Input     `json:"input"`
	Output      *Output   `json:"output,omitempty"`
	Error       string    `json:"error,omitempty"`
	ErrorCode   string    `json:"errorCode,omitempty"`
	Cached      bool      `json:"cached"`
	Meta        Meta      `json:"meta"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Clone returns a deep copy so stores never share memory with callers.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	out := *j
	out.Meta = j.Meta.clone()
	if j.Output != nil {
		o := *j.Output
		o.Meta = j.Output.Meta.clone()
		out.Output = &o
	}
	return &out
}

func (m Meta) clone() Meta {
	if m.DurationMs != nil {
		d := *m.DurationMs
		m.DurationMs = &d
	}
	if m.Feedback != nil {
		fb := *m.Feedback
		m.Feedback = &fb
	}
	return m
}

// Millis is a helper for Meta.DurationMs.
func Millis(d time.Duration) *int64 {
	ms := d.Milliseconds()
	return &ms
}
