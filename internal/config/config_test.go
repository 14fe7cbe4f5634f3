package config

import (
	"testing"
	"time"

	"lookgen-gateway/internal/apperr"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "PROMPT_VERSION", "CACHE_BACKEND", "JOB_BACKEND", "PROVIDER_TIMEOUT", "MAX_BODY_BYTES", "ARTIFACT_BACKEND", "REDIS_PREFIX"} {
		t.Setenv(key, "")
	}
	cfg := Load()

	if cfg.Port != "8080" {
		t.Fatalf("port = %q", cfg.Port)
	}
	if cfg.PromptVersion != "v1" {
		t.Fatalf("prompt version = %q", cfg.PromptVersion)
	}
	if cfg.CacheBackend != "memory" || cfg.JobBackend != "memory" {
		t.Fatalf("unexpected backends %q/%q", cfg.CacheBackend, cfg.JobBackend)
	}
	if cfg.ArtifactBackend != "filesystem" {
		t.Fatalf("artifact backend = %q", cfg.ArtifactBackend)
	}
	if cfg.ProviderTimeout != 30*time.Second {
		t.Fatalf("provider timeout = %s", cfg.ProviderTimeout)
	}
	if cfg.MaxBodyBytes != 1<<20 {
		t.Fatalf("max body = %d", cfg.MaxBodyBytes)
	}
	if cfg.RedisPrefix != "lookgen" {
		t.Fatalf("redis prefix = %q", cfg.RedisPrefix)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PROMPT_VERSION", "v7")
	t.Setenv("CACHE_BACKEND", "Redis")
	t.Setenv("PROVIDER_TIMEOUT", "12")
	t.Setenv("REQUEST_TIMEOUT", "90s")
	t.Setenv("MAX_BODY_BYTES", "not-a-number")
	t.Setenv("S3_USE_SSL", "false")

	cfg := Load()
	if cfg.PromptVersion != "v7" {
		t.Fatalf("prompt version = %q", cfg.PromptVersion)
	}
	if cfg.CacheBackend != "redis" || !cfg.UsesRedis() {
		t.Fatalf("expected redis cache backend, got %q", cfg.CacheBackend)
	}
	if cfg.ProviderTimeout != 12*time.Second {
		t.Fatalf("bare seconds not parsed: %s", cfg.ProviderTimeout)
	}
	if cfg.RequestTimeout != 90*time.Second {
		t.Fatalf("request timeout = %s", cfg.RequestTimeout)
	}
	if cfg.MaxBodyBytes != 1<<20 {
		t.Fatalf("invalid number should fall back, got %d", cfg.MaxBodyBytes)
	}
	if cfg.S3UseSSL {
		t.Fatalf("expected S3_USE_SSL=false")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		missing []string
	}{
		{
			name: "complete",
			cfg:  Config{GeminiAPIKey: "k", PromptVersion: "v1", CacheBackend: "memory", ArtifactBackend: "filesystem", ArtifactDir: "/tmp/a"},
		},
		{
			name:    "no api key",
			cfg:     Config{PromptVersion: "v1", ArtifactBackend: "memory"},
			missing: []string{"GEMINI_API_KEY"},
		},
		{
			name:    "redis without addr",
			cfg:     Config{GeminiAPIKey: "k", PromptVersion: "v1", JobBackend: "redis", ArtifactBackend: "memory"},
			missing: []string{"REDIS_ADDR"},
		},
		{
			name:    "postgres and gcs",
			cfg:     Config{GeminiAPIKey: "k", PromptVersion: "v1", CacheBackend: "postgres", ArtifactBackend: "gcs"},
			missing: []string{"DATABASE_URL", "GCS_BUCKET"},
		},
		{
			name:    "s3",
			cfg:     Config{GeminiAPIKey: "k", PromptVersion: "v1", ArtifactBackend: "s3", S3Bucket: "b"},
			missing: []string{"S3_ACCESS_KEY", "S3_ENDPOINT", "S3_SECRET_KEY"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if len(tc.missing) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			ae, ok := apperr.As(err)
			if !ok || ae.Code != apperr.CodeConfigMissing {
				t.Fatalf("expected CONFIG_MISSING, got %v", err)
			}
			got, _ := ae.Details["missing"].([]string)
			if len(got) != len(tc.missing) {
				t.Fatalf("missing = %v, want %v", got, tc.missing)
			}
			for i := range got {
				if got[i] != tc.missing[i] {
					t.Fatalf("missing = %v, want %v", got, tc.missing)
				}
			}
		})
	}
}
