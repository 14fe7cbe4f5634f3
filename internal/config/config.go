// Package config loads the gateway configuration from the environment.
package config

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"lookgen-gateway/internal/apperr"
)

type Config struct {
	Port          string
	AppEnv        string
	PromptVersion string

	GeminiAPIKey    string
	GeminiBaseURL   string
	GeminiModel     string
	ProviderTimeout time.Duration
	RequestTimeout  time.Duration

	CacheBackend string // memory | redis | postgres
	JobBackend   string // memory | redis
	RedisAddr    string
	RedisPrefix  string
	DatabaseURL  string

	ArtifactBackend       string // filesystem | memory | s3 | gcs
	ArtifactDir           string
	ArtifactPublicBaseURL string
	S3Endpoint            string
	S3AccessKey           string
	S3SecretKey           string
	S3Bucket              string
	S3UseSSL              bool
	GCSBucket             string

	MaxBodyBytes    int64
	ShutdownTimeout time.Duration
}

// Load reads .env files when present, then the environment, applying
// defaults. It does not validate; call Validate.
func Load() Config {
	_ = godotenv.Load(".env", ".env.local")

	return Config{
		Port:          getEnv("PORT", "8080"),
		AppEnv:        getEnv("APP_ENV", "production"),
		PromptVersion: getEnv("PROMPT_VERSION", "v1"),

		GeminiAPIKey:    strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiBaseURL:   getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash-image-preview"),
		ProviderTimeout: getEnvDuration("PROVIDER_TIMEOUT", 30*time.Second),
		RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 45*time.Second),

		CacheBackend: strings.ToLower(getEnv("CACHE_BACKEND", "memory")),
		JobBackend:   strings.ToLower(getEnv("JOB_BACKEND", "memory")),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		RedisPrefix:  getEnv("REDIS_PREFIX", "lookgen"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),

		ArtifactBackend:       strings.ToLower(getEnv("ARTIFACT_BACKEND", "filesystem")),
		ArtifactDir:           getEnv("ARTIFACT_DIR", "./artifacts"),
		ArtifactPublicBaseURL: os.Getenv("ARTIFACT_PUBLIC_BASE_URL"),
		S3Endpoint:            os.Getenv("S3_ENDPOINT"),
		S3AccessKey:           os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:           os.Getenv("S3_SECRET_KEY"),
		S3Bucket:              os.Getenv("S3_BUCKET"),
		S3UseSSL:              getEnvBool("S3_USE_SSL", true),
		GCSBucket:             os.Getenv("GCS_BUCKET"),

		MaxBodyBytes:    getEnvInt64("MAX_BODY_BYTES", 1<<20),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 60*time.Second),
	}
}

// Validate fails fast with CONFIG_MISSING when a required setting, or the
// connection settings of a selected backend, are absent.
func (c Config) Validate() error {
	var missing []string
	if c.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	if c.PromptVersion == "" {
		missing = append(missing, "PROMPT_VERSION")
	}
	if c.UsesRedis() && c.RedisAddr == "" {
		missing = append(missing, "REDIS_ADDR")
	}
	if c.CacheBackend == "postgres" && c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	switch c.ArtifactBackend {
	case "s3":
		for key, v := range map[string]string{"S3_ENDPOINT": c.S3Endpoint, "S3_ACCESS_KEY": c.S3AccessKey, "S3_SECRET_KEY": c.S3SecretKey, "S3_BUCKET": c.S3Bucket} {
			if v == "" {
				missing = append(missing, key)
			}
		}
	case "gcs":
		if c.GCSBucket == "" {
			missing = append(missing, "GCS_BUCKET")
		}
	case "filesystem", "":
		if c.ArtifactDir == "" {
			missing = append(missing, "ARTIFACT_DIR")
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return apperr.ConfigMissing("missing configuration: %s", strings.Join(missing, ", ")).
		WithDetail("missing", missing)
}

// UsesRedis reports whether any backend needs a redis client.
func (c Config) UsesRedis() bool {
	return c.CacheBackend == "redis" || c.JobBackend == "redis"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil && i > 0 {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("30s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
