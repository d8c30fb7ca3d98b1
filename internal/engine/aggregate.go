package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/sluice-dev/sluice/pkg/destination"
	"github.com/sluice-dev/sluice/pkg/errors"
	"github.com/sluice-dev/sluice/pkg/metrics"
	"github.com/sluice-dev/sluice/pkg/observability"
)

// aggregate recomputes customer lifetime value from the purchase
// interactions persisted in this run. A failed bulk load is fatal to
// the job; a failed per-customer patch is logged and skipped.
func (r *Run) aggregate(ctx context.Context) error {
	log := observability.WithTrace(ctx, r.logger).With(zap.String("stage", StageAggregation))
	timer := metrics.NewStageTimer(StageAggregation)
	defer timer.ObserveDuration()

	limit := r.cfg.Engine.BulkLimit

	customers, err := r.store.ListRecords(ctx, destination.KindCustomers, destination.Filter{
		"account_id":  r.job.AccountID,
		"sync_job_id": r.job.ID,
	}, limit)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeBulkLoad, "load persisted customers")
	}

	interactions, err := r.store.ListRecords(ctx, destination.KindInteractions, destination.Filter{
		"account_id":  r.job.AccountID,
		"sync_job_id": r.job.ID,
		"type":        "purchase",
	}, limit)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeBulkLoad, "load purchase interactions")
	}

	// Zero-value purchases contribute nothing and key no customer.
	totals := make(map[string]float64, len(customers))
	for _, interaction := range interactions {
		v := interaction.FloatField("value")
		if v == 0 {
			continue
		}
		totals[interaction.StringField("customer_id")] += v
	}

	updated := 0
	for _, customer := range customers {
		total := totals[customer.StringField("shopify_id")]
		if total <= 0 {
			continue
		}

		err := r.store.PatchRecord(ctx, destination.KindCustomers, customer.ID, map[string]interface{}{
			"total_value": total,
		})
		if err != nil {
			metrics.PersistFailures.WithLabelValues(StageAggregation).Inc()
			log.Warn("customer value patch failed, skipping",
				zap.String("customer", customer.ID),
				zap.Error(err))
			continue
		}

		updated++
		if updated%r.cfg.Engine.WritePaceEvery == 0 {
			if err := sleepCtx(ctx, r.cfg.Engine.WritePause); err != nil {
				return err
			}
		}
	}

	log.Info("aggregation complete",
		zap.Int("customers", len(customers)),
		zap.Int("purchases", len(interactions)),
		zap.Int("customers_updated", updated))
	return nil
}
