package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sluice-dev/sluice/pkg/metrics"
	"github.com/sluice-dev/sluice/pkg/observability"
)

// runStage executes one resource stage: fetch everything, checkpoint
// the total, then transform and persist in fetched order. The persist
// callback reports whether it produced a record; a persist error is
// logged and the record skipped. The returned count is the number of
// records actually persisted. Fetch errors propagate to the caller and
// fail the job.
func runStage[T any](ctx context.Context, run *Run, stage string, fetch func(context.Context) ([]T, error), persist func(context.Context, T) (bool, error)) (int, error) {
	log := observability.WithTrace(ctx, run.logger).With(zap.String("stage", stage))
	timer := metrics.NewStageTimer(stage)
	defer timer.ObserveDuration()

	log.Debug("fetching")
	records, err := fetch(ctx)
	if err != nil {
		return 0, err
	}

	total := len(records)
	run.progress.Report(snapshotNow(stage, total, 0))
	log.Info("fetch complete", zap.Int("total", total))

	persisted := 0
	for i, record := range records {
		ok, err := persist(ctx, record)
		switch {
		case err != nil:
			metrics.PersistFailures.WithLabelValues(stage).Inc()
			log.Warn("record persist failed, skipping",
				zap.Int("position", i),
				zap.Error(err))
		case ok:
			persisted++
			metrics.RecordsPersisted.WithLabelValues(stage).Inc()
		}

		// One checkpoint per position at most: the cadence mark and the
		// final record collapse into a single report.
		checkpoint := i == total-1
		if ok && err == nil && persisted%run.cfg.Engine.CheckpointEvery == 0 {
			checkpoint = true
		}
		if checkpoint {
			run.progress.Report(snapshotNow(stage, total, persisted))
		}

		// Pacing counts positions, not successes.
		if (i+1)%run.cfg.Engine.WritePaceEvery == 0 {
			if err := sleepCtx(ctx, run.cfg.Engine.WritePause); err != nil {
				return persisted, err
			}
		}
	}

	log.Info("stage complete",
		zap.Int("persisted", persisted),
		zap.Int("skipped", total-persisted))
	return persisted, nil
}

func snapshotNow(stage string, total, processed int) Snapshot {
	return Snapshot{
		Stage:     stage,
		Total:     total,
		Processed: processed,
		Timestamp: time.Now().UTC(),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
