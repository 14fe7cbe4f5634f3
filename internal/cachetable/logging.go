package cachetable

import (
	"context"
	"time"

	"lookgen-gateway/internal/fingerprint"
	"lookgen-gateway/internal/metrics"
	"lookgen-gateway/pkg/logging/logging"

	"go.uber.org/zap"
)

// LoggingTable wraps a Table with logging + metrics.
type LoggingTable struct {
	inner Table
}

func NewLoggingTable(inner Table) Table {
	return &LoggingTable{inner: inner}
}

func (t *LoggingTable) Get(ctx context.Context, fp string) (Row, bool, error) {
	start := time.Now()
	row, ok, err := t.inner.Get(ctx, fp)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	result := "miss"
	if err != nil {
		result = "error"
	} else if ok {
		result = "hit"
	}

	fields := keyFields(fp)
	fields = append(fields,
		zap.String("cache_result", result), // hit | miss | error
		zap.Float64("latency_ms", latencyMs),
	)

	op := "unknown"
	if key, parsed := fingerprint.Parse(fp); parsed {
		op = key.Operation
	}
	metrics.CacheLookupsTotal.WithLabelValues(op, result).Inc()

	logger := logging.FromContext(ctx)
	if err != nil {
		logger.Error("cache_table_get", append(fields, zap.Error(err))...)
	} else {
		logger.Info("cache_table_get", fields...)
	}
	return row, ok, err
}

func (t *LoggingTable) Insert(ctx context.Context, row Row) error {
	start := time.Now()
	err := t.inner.Insert(ctx, row)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	fields := keyFields(row.Fingerprint)
	fields = append(fields,
		zap.String("artifact_ref", row.ArtifactRef),
		zap.Float64("latency_ms", latencyMs),
	)

	logger := logging.FromContext(ctx)
	if err != nil {
		logger.Error("cache_table_insert", append(fields, zap.Error(err))...)
	} else {
		logger.Info("cache_table_insert", fields...)
	}
	return err
}

func keyFields(fp string) []zap.Field {
	fields := []zap.Field{zap.String("fingerprint", fp)}
	if key, ok := fingerprint.Parse(fp); ok {
		fields = append(fields,
			zap.String("operation", key.Operation),
			zap.String("prompt_version", key.PromptVersion),
			zap.String("hash", key.Hash),
		)
	}
	return fields
}
