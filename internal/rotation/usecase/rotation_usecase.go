package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	cryptoService "github.com/allisson/fieldcrypt/internal/crypto/service"
	apperrors "github.com/allisson/fieldcrypt/internal/errors"
	rotationDomain "github.com/allisson/fieldcrypt/internal/rotation/domain"
)

// DefaultBatchSize is the number of records fetched per batch when none is configured.
const DefaultBatchSize = 100

// Option configures a rotation use case.
type Option func(*rotationUseCase)

// WithBatchSize sets the number of records fetched per batch.
func WithBatchSize(size int) Option {
	return func(r *rotationUseCase) {
		if size > 0 {
			r.batchSize = size
		}
	}
}

// WithLimiter throttles batch fetches.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(r *rotationUseCase) {
		r.limiter = limiter
	}
}

// WithBatchObserver registers a callback invoked after each committed batch.
func WithBatchObserver(fn func(rotationDomain.BatchStats)) Option {
	return func(r *rotationUseCase) {
		r.observer = fn
	}
}

// WithConcurrency bounds how many collections RotateAll processes at once.
func WithConcurrency(n int) Option {
	return func(r *rotationUseCase) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// rotationUseCase implements RotationUseCase.
type rotationUseCase struct {
	records     RecordStore
	progress    ProgressStore
	codec       *RecordCodec
	logger      *slog.Logger
	batchSize   int
	concurrency int
	limiter     *rate.Limiter
	observer    func(rotationDomain.BatchStats)
}

// NewRotationUseCase creates a RotationUseCase.
func NewRotationUseCase(
	records RecordStore,
	progress ProgressStore,
	strings cryptoService.StringCipher,
	binaries cryptoService.BinaryCipher,
	logger *slog.Logger,
	opts ...Option,
) RotationUseCase {
	r := &rotationUseCase{
		records:   records,
		progress:  progress,
		codec:     NewRecordCodec(strings, binaries),
		logger:    logger,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rotate re-encrypts one collection, resuming after any saved cursor.
//
// Context cancellation is observed between batches. The returned stats are
// populated even when an error is returned.
func (r *rotationUseCase) Rotate(
	ctx context.Context,
	mapping *rotationDomain.FieldMapping,
) (*rotationDomain.RunStats, error) {
	if err := mapping.Validate(); err != nil {
		return nil, err
	}

	stats := &rotationDomain.RunStats{
		RunID:      uuid.Must(uuid.NewV7()).String(),
		Collection: mapping.Collection,
		StartedAt:  time.Now().UTC(),
	}
	logger := r.logger.With(
		slog.String("run_id", stats.RunID),
		slog.String("collection", mapping.Collection),
	)
	defer func() {
		stats.Duration = time.Since(stats.StartedAt)
	}()

	cursor, found, err := r.progress.Load(ctx, mapping.Collection)
	if err != nil {
		return stats, apperrors.Wrap(err, "failed to load rotation progress")
	}
	if found {
		stats.ResumedFrom = cursor
		stats.Cursor = cursor
		logger.Info("resuming rotation", slog.String("after_id", cursor))
	} else {
		logger.Info("starting rotation", slog.Int("batch_size", r.batchSize))
	}

	for {
		if err := ctx.Err(); err != nil {
			logger.Warn("rotation interrupted", slog.String("cursor", cursor))
			return stats, err
		}
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				logger.Warn("rotation interrupted", slog.String("cursor", cursor))
				return stats, err
			}
		}

		batch, more, err := r.rotateBatch(ctx, logger, mapping, cursor, stats.Batches+1)
		if err != nil {
			return stats, err
		}
		if batch.Fetched == 0 {
			break
		}

		cursor = batch.Cursor
		stats.Add(batch)

		logger.Info("batch committed",
			slog.Int("batch", batch.Batch),
			slog.Int("processed", batch.Processed),
			slog.Int("rotated", batch.Rotated),
			slog.Int("skipped", batch.Skipped),
			slog.Int("errors", batch.Errors),
			slog.String("cursor", batch.Cursor),
		)
		if r.observer != nil {
			r.observer(batch)
		}

		if !more {
			break
		}
	}

	if err := r.progress.Clear(context.WithoutCancel(ctx), mapping.Collection); err != nil {
		return stats, apperrors.Wrap(err, "failed to clear rotation progress")
	}
	stats.Completed = true

	logger.Info("rotation completed",
		slog.Int("batches", stats.Batches),
		slog.Int("processed", stats.Processed),
		slog.Int("rotated", stats.Rotated),
		slog.Int("skipped", stats.Skipped),
		slog.Int("errors", stats.Errors),
	)

	return stats, nil
}

// rotateBatch fetches, rotates and commits one batch, then saves progress.
// The boolean reports whether the batch was full and more records may follow.
func (r *rotationUseCase) rotateBatch(
	ctx context.Context,
	logger *slog.Logger,
	mapping *rotationDomain.FieldMapping,
	afterID string,
	number int,
) (rotationDomain.BatchStats, bool, error) {
	batch := rotationDomain.BatchStats{Collection: mapping.Collection, Batch: number}

	records, err := r.records.FetchBatch(ctx, mapping, afterID, r.batchSize)
	if err != nil {
		return batch, false, apperrors.Wrap(err, "failed to fetch batch")
	}
	batch.Fetched = len(records)
	if len(records) == 0 {
		return batch, false, nil
	}

	changed := make([]*rotationDomain.Record, 0, len(records))
	for _, rec := range records {
		rotated, skipped, err := r.codec.RotateFields(mapping, rec)
		if err != nil {
			batch.Errors++
			logger.Error("failed to rotate record",
				slog.String("id", rec.ID),
				slog.Any("error", err),
			)
			continue
		}

		batch.Processed++
		batch.Rotated += rotated
		batch.Skipped += skipped
		if rec.HasChanges() {
			changed = append(changed, rec)
		}
	}
	batch.Cursor = records[len(records)-1].ID

	// Once a batch starts committing it must also record its cursor, otherwise a
	// cancellation between the two would replay committed records on resume.
	// Cancellation is honoured at the top of the batch loop instead.
	persistCtx := context.WithoutCancel(ctx)

	if len(changed) > 0 {
		if err := r.records.Commit(persistCtx, mapping, changed); err != nil {
			return batch, false, apperrors.Wrap(err, "failed to commit batch")
		}
	}

	// Progress must only move after the commit is durable.
	if err := r.progress.Save(persistCtx, mapping.Collection, batch.Cursor); err != nil {
		return batch, false, apperrors.Wrap(err, "failed to save rotation progress")
	}

	clear(records)
	clear(changed)

	return batch, len(records) >= r.batchSize, nil
}

// RotateAll rotates each mapping's collection concurrently. Duplicate collections
// are rejected before any work starts. The first failure cancels the remaining runs.
func (r *rotationUseCase) RotateAll(
	ctx context.Context,
	mappings []*rotationDomain.FieldMapping,
) ([]*rotationDomain.RunStats, error) {
	seen := make(map[string]struct{}, len(mappings))
	for _, m := range mappings {
		if _, ok := seen[m.Collection]; ok {
			return nil, apperrors.Wrapf(rotationDomain.ErrDuplicateCollection, "collection %s", m.Collection)
		}
		seen[m.Collection] = struct{}{}
	}

	results := make([]*rotationDomain.RunStats, len(mappings))

	g, gctx := errgroup.WithContext(ctx)
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}
	for i, m := range mappings {
		g.Go(func() error {
			stats, err := r.Rotate(gctx, m)
			results[i] = stats
			if err != nil {
				return apperrors.Wrapf(err, "collection %s", m.Collection)
			}
			return nil
		})
	}

	err := g.Wait()
	return results, err
}
