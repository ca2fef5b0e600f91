package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/allisson/fieldcrypt/internal/http"
	rotationDomain "github.com/allisson/fieldcrypt/internal/rotation/domain"
	rotationUsecase "github.com/allisson/fieldcrypt/internal/rotation/usecase"
)

// LoadFieldMappings reads a JSON array of field mappings from path. When
// collections is not empty only the named collections are returned, in the
// order they appear in the file.
func LoadFieldMappings(path string, collections []string) ([]*rotationDomain.FieldMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mappings file: %w", err)
	}

	mappings, err := rotationDomain.ParseFieldMappings(data)
	if err != nil {
		return nil, err
	}
	if len(collections) == 0 {
		return mappings, nil
	}

	selected := make([]*rotationDomain.FieldMapping, 0, len(collections))
	for _, m := range mappings {
		if slices.Contains(collections, m.Collection) {
			selected = append(selected, m)
		}
	}
	for _, name := range collections {
		if !slices.ContainsFunc(selected, func(m *rotationDomain.FieldMapping) bool { return m.Collection == name }) {
			return nil, fmt.Errorf("collection %s not found in mappings file", name)
		}
	}
	return selected, nil
}

// RunRotate re-encrypts every mapped collection under the current key version.
//
// SIGINT and SIGTERM stop the run between batches; progress of committed
// batches is kept and the next run resumes after it. When metricsServer is not
// nil it serves /metrics for the duration of the run.
func RunRotate(
	ctx context.Context,
	useCase rotationUsecase.RotationUseCase,
	metricsServer *http.MetricsServer,
	logger *slog.Logger,
	writer io.Writer,
	mappings []*rotationDomain.FieldMapping,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	if len(mappings) == 0 {
		return fmt.Errorf("no field mappings to rotate")
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				logger.Error("metrics server error", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("failed to shutdown metrics server", slog.Any("error", err))
			}
		}()
	}

	logger.Info("rotating collections", slog.Int("collections", len(mappings)))

	stats, runErr := useCase.RotateAll(ctx, mappings)

	if format == formatJSON {
		if err := outputRotateJSON(writer, stats, runErr); err != nil {
			return err
		}
	} else {
		outputRotateText(writer, stats)
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return fmt.Errorf("rotation interrupted, rerun to resume: %w", runErr)
		}
		return fmt.Errorf("failed to rotate collections: %w", runErr)
	}

	var failed int
	for _, s := range stats {
		if s != nil {
			failed += s.Errors
		}
	}
	if failed > 0 {
		return fmt.Errorf("rotation completed with %d record error(s), rerun to retry them", failed)
	}
	return nil
}

// outputRotateText writes one summary row per collection.
func outputRotateText(writer io.Writer, stats []*rotationDomain.RunStats) {
	_, _ = fmt.Fprintf(writer, "Key Rotation Summary\n")
	_, _ = fmt.Fprintf(writer, "====================\n\n")
	_, _ = fmt.Fprintf(writer, "%-24s %8s %10s %8s %8s %7s  %s\n",
		"COLLECTION", "BATCHES", "PROCESSED", "ROTATED", "SKIPPED", "ERRORS", "STATUS")

	for _, s := range stats {
		if s == nil {
			continue
		}
		status := "completed"
		if !s.Completed {
			status = "incomplete (cursor " + s.Cursor + ")"
		}
		_, _ = fmt.Fprintf(writer, "%-24s %8d %10d %8d %8d %7d  %s\n",
			s.Collection, s.Batches, s.Processed, s.Rotated, s.Skipped, s.Errors, status)
	}
}

// outputRotateJSON writes the run stats and the error, if any, for machine consumption.
func outputRotateJSON(writer io.Writer, stats []*rotationDomain.RunStats, runErr error) error {
	result := map[string]any{
		"collections": slices.DeleteFunc(slices.Clone(stats), func(s *rotationDomain.RunStats) bool { return s == nil }),
		"success":     runErr == nil,
	}
	if runErr != nil {
		result["error"] = runErr.Error()
	}
	return outputJSON(writer, result)
}
