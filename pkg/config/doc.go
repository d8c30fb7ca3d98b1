// Package config provides unified configuration management for the sluice
// sync engine.
//
// A single Config structure carries every tunable: source API pacing and
// retry schedule, destination store selection, engine cadence, notification
// delivery, and observability. Default() returns the normative values; the
// page sizes, inter-page delay, and backoff base encode the source API's
// rate-limit contract and default exactly to the documented constants
// (50/25/50 page sizes, 500ms page delay, 3 retries over a 2s backoff base).
//
// Load() layers a YAML or JSON file and SLUICE_* environment variables over
// the defaults:
//
//	cfg, err := config.Load("sluice.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
// Environment keys follow the section path, e.g. SLUICE_SOURCE_ACCESS_TOKEN
// and SLUICE_DESTINATION_POSTGRES_DSN.
package config
