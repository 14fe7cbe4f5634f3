package artifact

import (
	"context"
	"fmt"
)

const (
	BackendFilesystem = "filesystem"
	BackendMemory     = "memory"
	BackendS3         = "s3"
	BackendGCS        = "gcs"
)

type Config struct {
	Backend       string
	Dir           string
	PublicBaseURL string
	S3            S3Config
	GCSBucket     string
}

func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendFilesystem, "":
		return NewFileStore(cfg.Dir, cfg.PublicBaseURL)
	case BackendMemory:
		return NewMemoryStore(cfg.PublicBaseURL), nil
	case BackendS3:
		s3cfg := cfg.S3
		s3cfg.PublicBase = cfg.PublicBaseURL
		return NewS3Store(ctx, s3cfg)
	case BackendGCS:
		return NewGCSStore(ctx, cfg.GCSBucket, cfg.PublicBaseURL)
	default:
		return nil, fmt.Errorf("artifact: unknown backend %q", cfg.Backend)
	}
}
