package usecase

import (
	"context"
	"time"

	"github.com/allisson/fieldcrypt/internal/metrics"
	rotationDomain "github.com/allisson/fieldcrypt/internal/rotation/domain"
)

// rotationUseCaseWithMetrics decorates RotationUseCase with metrics instrumentation.
type rotationUseCaseWithMetrics struct {
	next    RotationUseCase
	metrics metrics.BusinessMetrics
}

// NewRotationUseCaseWithMetrics wraps a RotationUseCase with metrics recording.
func NewRotationUseCaseWithMetrics(useCase RotationUseCase, m metrics.BusinessMetrics) RotationUseCase {
	return &rotationUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Rotate records metrics for a single collection rotation.
func (r *rotationUseCaseWithMetrics) Rotate(
	ctx context.Context,
	mapping *rotationDomain.FieldMapping,
) (*rotationDomain.RunStats, error) {
	start := time.Now()
	stats, err := r.next.Rotate(ctx, mapping)

	status := "success"
	if err != nil {
		status = "error"
	}

	r.metrics.RecordOperation(ctx, "rotation", "rotate", status)
	r.metrics.RecordDuration(ctx, "rotation", "rotate", time.Since(start), status)
	r.recordStats(ctx, stats)

	return stats, err
}

// RotateAll records metrics for a multi-collection rotation.
func (r *rotationUseCaseWithMetrics) RotateAll(
	ctx context.Context,
	mappings []*rotationDomain.FieldMapping,
) ([]*rotationDomain.RunStats, error) {
	start := time.Now()
	results, err := r.next.RotateAll(ctx, mappings)

	status := "success"
	if err != nil {
		status = "error"
	}

	r.metrics.RecordOperation(ctx, "rotation", "rotate_all", status)
	r.metrics.RecordDuration(ctx, "rotation", "rotate_all", time.Since(start), status)
	for _, stats := range results {
		r.recordStats(ctx, stats)
	}

	return results, err
}

func (r *rotationUseCaseWithMetrics) recordStats(ctx context.Context, stats *rotationDomain.RunStats) {
	if stats == nil {
		return
	}
	r.metrics.RecordItems(ctx, "rotation", "record_processed", int64(stats.Processed))
	r.metrics.RecordItems(ctx, "rotation", "record_failed", int64(stats.Errors))
	r.metrics.RecordItems(ctx, "rotation", "field_rotated", int64(stats.Rotated))
	r.metrics.RecordItems(ctx, "rotation", "field_skipped", int64(stats.Skipped))
}
