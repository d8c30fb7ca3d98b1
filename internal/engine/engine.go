// Package engine runs one synchronization job end to end: credential
// validation, connectivity probe, the three resource stages in order,
// the aggregation pass, and the terminal status transition.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sluice-dev/sluice/pkg/config"
	"github.com/sluice-dev/sluice/pkg/destination"
	"github.com/sluice-dev/sluice/pkg/errors"
	"github.com/sluice-dev/sluice/pkg/logger"
	"github.com/sluice-dev/sluice/pkg/metrics"
	"github.com/sluice-dev/sluice/pkg/notify"
	"github.com/sluice-dev/sluice/pkg/observability"
	"github.com/sluice-dev/sluice/pkg/shopify"
	"github.com/sluice-dev/sluice/pkg/transform"
)

// Source is the read side the engine consumes. *shopify.Client
// satisfies it.
type Source interface {
	ShopInfo(ctx context.Context) (string, error)
	FetchCustomers(ctx context.Context) ([]shopify.Customer, error)
	FetchOrders(ctx context.Context) ([]shopify.Order, error)
	FetchProducts(ctx context.Context) ([]shopify.Product, error)
}

// Run wires one job to its collaborators. A Run executes once.
type Run struct {
	job      *SyncJob
	cfg      *config.Config
	source   Source
	store    destination.DataStore
	progress ProgressSink
	notifier notify.Notifier
	mapper   transform.Mapper
	tracer   *observability.SyncTracer
	logger   *zap.Logger
}

// NewRun builds a run for the given job.
func NewRun(job *SyncJob, cfg *config.Config, source Source, store destination.DataStore, progress ProgressSink, notifier notify.Notifier) *Run {
	return &Run{
		job:      job,
		cfg:      cfg,
		source:   source,
		store:    store,
		progress: progress,
		notifier: notifier,
		mapper: transform.Mapper{
			AccountID:       job.AccountID,
			SyncJobID:       job.ID,
			EngagementScore: cfg.Engine.EngagementScore,
		},
		tracer: observability.NewSyncTracer(job.AccountID, job.ID),
		logger: logger.Get().With(
			zap.String("job_id", job.ID),
			zap.String("account_id", job.AccountID)),
	}
}

// Execute runs the job to completion. On success the job record is
// marked connected with its last_sync stamp and total record count; on
// any failure it is marked errored with the checkpoint cleared, and the
// error is returned. Either way a terminal notification goes out.
func (r *Run) Execute(ctx context.Context) (Result, error) {
	started := time.Now()
	r.logger.Info("sync starting", zap.String("store", r.job.StoreURL))

	var result Result
	if err := r.execute(ctx, &result); err != nil {
		r.fail(ctx, err)
		r.notifyOutcome(ctx, false, time.Since(started))
		return result, err
	}

	result.Elapsed = time.Since(started)
	r.complete(ctx, result)
	r.notifyOutcome(ctx, true, result.Elapsed)
	return result, nil
}

func (r *Run) execute(ctx context.Context, result *Result) error {
	if err := r.validate(); err != nil {
		return err
	}
	r.job.StoreURL = shopify.NormalizeStoreURL(r.job.StoreURL)

	r.setRunning(ctx)

	r.progress.Report(snapshotNow(checkpointTesting, 0, 0))
	shopName, err := r.source.ShopInfo(ctx)
	if err != nil {
		return err
	}
	r.logger.Info("store connection verified", zap.String("shop", shopName))

	return r.runStages(ctx, result)
}

// runStages executes customers, orders, products, then aggregation,
// strictly in order.
func (r *Run) runStages(ctx context.Context, result *Result) error {
	var err error
	if result.Customers, err = r.syncCustomers(ctx); err != nil {
		return err
	}
	if result.Orders, err = r.syncOrders(ctx); err != nil {
		return err
	}
	if result.Products, err = r.syncProducts(ctx); err != nil {
		return err
	}

	r.progress.Report(snapshotNow(checkpointFinalizing, 0, 0))
	return r.tracer.TraceStage(ctx, StageAggregation, r.aggregate)
}

func (r *Run) syncCustomers(ctx context.Context) (int, error) {
	var count int
	err := r.tracer.TraceStage(ctx, StageCustomers, func(ctx context.Context) error {
		var err error
		count, err = runStage(ctx, r, StageCustomers, r.source.FetchCustomers,
			func(ctx context.Context, c shopify.Customer) (bool, error) {
				if err := r.store.CreateRecord(ctx, destination.KindCustomers, r.mapper.Customer(c)); err != nil {
					return false, err
				}
				return true, nil
			})
		return err
	})
	return count, err
}

func (r *Run) syncOrders(ctx context.Context) (int, error) {
	var count int
	err := r.tracer.TraceStage(ctx, StageOrders, func(ctx context.Context) error {
		var err error
		count, err = runStage(ctx, r, StageOrders, r.source.FetchOrders,
			func(ctx context.Context, o shopify.Order) (bool, error) {
				rec, ok := r.mapper.Order(o)
				if !ok {
					return false, nil
				}
				if err := r.store.CreateRecord(ctx, destination.KindInteractions, rec); err != nil {
					return false, err
				}
				return true, nil
			})
		return err
	})
	return count, err
}

func (r *Run) syncProducts(ctx context.Context) (int, error) {
	var count int
	err := r.tracer.TraceStage(ctx, StageProducts, func(ctx context.Context) error {
		var err error
		count, err = runStage(ctx, r, StageProducts, r.source.FetchProducts,
			func(ctx context.Context, p shopify.Product) (bool, error) {
				if err := r.store.CreateRecord(ctx, destination.KindProducts, r.mapper.Product(p)); err != nil {
					return false, err
				}
				return true, nil
			})
		return err
	})
	return count, err
}

// validate checks the credential pair before any network work.
func (r *Run) validate() error {
	if r.job.AccessToken == "" {
		return errors.New(errors.ErrorTypeConfig, "access token is required")
	}
	if r.job.StoreURL == "" {
		return errors.New(errors.ErrorTypeConfig, "store URL is required")
	}
	return nil
}

func (r *Run) setRunning(ctx context.Context) {
	r.job.Status = StatusRunning
	r.patchJob(ctx, map[string]interface{}{"status": StatusRunning})
}

// complete marks the job connected, stamps last_sync and the total
// record count, and clears the checkpoint. The progress sink is
// flushed first so no stale snapshot lands after the clear.
func (r *Run) complete(ctx context.Context, result Result) {
	r.progress.Close()
	r.job.Status = StatusConnected
	metrics.SyncJobs.WithLabelValues(StatusConnected).Inc()

	r.patchJob(ctx, map[string]interface{}{
		"status":        StatusConnected,
		"last_sync":     time.Now().UTC().Format(time.RFC3339),
		"total_records": result.Total(),
		"sync_progress": nil,
	})

	r.logger.Info("sync complete",
		zap.Int("customers", result.Customers),
		zap.Int("orders", result.Orders),
		zap.Int("products", result.Products),
		zap.Duration("elapsed", result.Elapsed))
}

// fail marks the job errored and clears the checkpoint. The write is
// detached from ctx so a cancelled job still records its outcome.
func (r *Run) fail(ctx context.Context, cause error) {
	r.progress.Close()
	r.job.Status = StatusError
	metrics.SyncJobs.WithLabelValues(StatusError).Inc()
	r.logger.Error("sync failed",
		zap.String("error_type", string(errors.TypeOf(cause))),
		zap.Error(cause))

	r.patchJob(context.WithoutCancel(ctx), map[string]interface{}{
		"status":        StatusError,
		"sync_progress": nil,
	})
}

// patchJob is best-effort: a failed status write is logged, never
// escalated.
func (r *Run) patchJob(ctx context.Context, fields map[string]interface{}) {
	if err := r.store.PatchRecord(ctx, destination.KindSyncJobs, r.job.ID, fields); err != nil {
		err = errors.Wrap(err, errors.ErrorTypeStatus, "job status write failed")
		r.logger.Warn("status update failed", zap.Error(err))
	}
}

func (r *Run) notifyOutcome(ctx context.Context, ok bool, elapsed time.Duration) {
	minutes := int(elapsed.Minutes())
	subject := fmt.Sprintf("Store sync finished for %s", r.job.StoreURL)
	body := fmt.Sprintf("Synced %s in %d minutes.", r.job.StoreURL, minutes)
	if !ok {
		subject = fmt.Sprintf("Store sync failed for %s", r.job.StoreURL)
		body = fmt.Sprintf("Sync failed after %d minutes.", minutes)
	}
	r.notifier.Send(context.WithoutCancel(ctx), r.cfg.Notify.Recipient, subject, body)
}
