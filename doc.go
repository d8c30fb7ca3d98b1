// Package sluice synchronizes a commerce store into a CRM-style record
// store. One sync job pulls customers, orders, and products through the
// store's GraphQL Admin API, maps each resource to a destination record,
// writes it, and checkpoints progress on the job record so an operator
// can watch a long-running import move.
//
// # Architecture
//
// A run is a strictly sequential pipeline:
//
//  1. Validate credentials and normalize the store host.
//  2. Probe connectivity with a shop-info query; failure aborts the run
//     before any stage starts.
//  3. Sync customers, then orders, then products. Each stage fetches
//     every page first, then persists record by record, checkpointing
//     on a fixed cadence and pacing writes to respect destination rate
//     limits. A record that fails to persist is skipped, not fatal.
//  4. Aggregate: recompute each customer's lifetime value from the
//     purchase interactions written in step 3.
//  5. Mark the job connected (or error), stamp the totals, clear the
//     checkpoint, and send the terminal notification.
//
// Pagination, throttle-aware retry with exponential backoff, and the
// inter-page delay live in the source client; the page sizes and pacing
// constants encode the platform's rate-limit contract and are exposed as
// configuration with normative defaults.
//
// # Quick Start
//
// Run a sync from the command line:
//
//	sluice run --account acct_1234 \
//	    --store example.myshopify.com \
//	    --token "$SLUICE_SOURCE_ACCESS_TOKEN"
//
// Or embed the engine:
//
//	import (
//	    "context"
//
//	    "github.com/sluice-dev/sluice/internal/engine"
//	    "github.com/sluice-dev/sluice/pkg/config"
//	    "github.com/sluice-dev/sluice/pkg/destination/memory"
//	    "github.com/sluice-dev/sluice/pkg/notify"
//	    "github.com/sluice-dev/sluice/pkg/shopify"
//	)
//
//	cfg := config.Default()
//	cfg.Source.StoreURL = "example.myshopify.com"
//	cfg.Source.AccessToken = token
//
//	job := engine.NewJob(jobID, accountID, cfg.Source.AccessToken, cfg.Source.StoreURL)
//	store := memory.New()
//
//	run := engine.NewRun(job, cfg, shopify.NewClient(cfg.Source), store,
//	    engine.NewStoreSink(store, job.ID), notify.FromConfig(cfg.Notify))
//	result, err := run.Execute(context.Background())
//
// # Key Packages
//
//	internal/engine    - Sync job, stage runner, aggregation, orchestrator
//	pkg/shopify        - GraphQL client and cursor-paginated fetchers
//	pkg/transform      - Source-to-destination record mapping
//	pkg/destination    - Record store interface; api, postgres, memory backends
//	pkg/clients        - Page pacing and retry/backoff policies
//	pkg/notify         - Terminal notification delivery
//	pkg/config         - Unified configuration with normative defaults
//	pkg/errors         - Typed error handling with retryability
//	pkg/logger         - Structured logging
//	pkg/metrics        - Prometheus metrics
//	pkg/observability  - OpenTelemetry stage tracing
//
// # Destinations
//
// Three destination store modes share one write interface:
//
//   - api: a CRM write API, either a records endpoint with an app id or
//     a single callback URL with a shared secret
//   - postgres: direct JSONB tables, optionally upserting on the
//     external record id
//   - memory: in-process store for tests and --dry-run
//
// # Error Handling
//
// Every failure carries a type: configuration and connectivity errors
// abort a run before any stage; throttle and transient fetch errors are
// retried with exponential backoff up to a fixed ceiling; any other API
// error is immediately fatal; per-record persist failures are logged and
// skipped; status-write failures are logged and never escalated.
package sluice
