package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sluice-dev/sluice/internal/engine"
	"github.com/sluice-dev/sluice/pkg/config"
	"github.com/sluice-dev/sluice/pkg/destination"
	"github.com/sluice-dev/sluice/pkg/destination/api"
	"github.com/sluice-dev/sluice/pkg/destination/memory"
	"github.com/sluice-dev/sluice/pkg/destination/postgres"
	"github.com/sluice-dev/sluice/pkg/logger"
	"github.com/sluice-dev/sluice/pkg/notify"
	"github.com/sluice-dev/sluice/pkg/observability"
	"github.com/sluice-dev/sluice/pkg/shopify"
)

var version = "0.1.0"

// runFlags carries the run command's overrides on top of the loaded
// configuration.
type runFlags struct {
	configFile string
	accountID  string
	jobID      string
	storeURL   string
	token      string
	recipient  string
	dryRun     bool
	timeout    time.Duration
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "sluice",
		Short: "Sluice - background commerce store synchronization",
		Long: `Sluice pulls customers, orders, and products out of a commerce store's
Admin API, normalizes them into CRM records, and writes them to a destination
store while checkpointing progress on the sync job record.`,
	}

	// Version command
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Sluice v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	// Main run command
	flags := &runFlags{}
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run one synchronization job",
		Long: `Run one synchronization job against the configured store.

Credentials and destination settings come from the config file and SLUICE_*
environment variables; flags override both.

Example:
  sluice run --account acct_1234 --store example.myshopify.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), flags)
		},
	}
	runCmd.Flags().StringVarP(&flags.configFile, "config", "c", "", "Path to configuration file (optional)")
	runCmd.Flags().StringVarP(&flags.accountID, "account", "a", "", "Destination account id (required)")
	runCmd.Flags().StringVar(&flags.jobID, "job", "", "Sync job id (generated when omitted)")
	runCmd.Flags().StringVarP(&flags.storeURL, "store", "s", "", "Store host, e.g. example.myshopify.com")
	runCmd.Flags().StringVarP(&flags.token, "token", "t", "", "Admin API access token")
	runCmd.Flags().StringVar(&flags.recipient, "recipient", "", "Notification recipient for the terminal notice")
	runCmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Sync into an in-memory store and discard the result")
	runCmd.Flags().DurationVar(&flags.timeout, "timeout", 30*time.Minute, "Job timeout")
	_ = runCmd.MarkFlagRequired("account")
	root.AddCommand(runCmd)

	// Check command: credentials and connectivity only, no stages
	checkFlags := &runFlags{}
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Verify store credentials without syncing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), checkFlags)
		},
	}
	checkCmd.Flags().StringVarP(&checkFlags.configFile, "config", "c", "", "Path to configuration file (optional)")
	checkCmd.Flags().StringVarP(&checkFlags.storeURL, "store", "s", "", "Store host, e.g. example.myshopify.com")
	checkCmd.Flags().StringVarP(&checkFlags.token, "token", "t", "", "Admin API access token")
	root.AddCommand(checkCmd)

	// Config command: print the effective configuration, redacted
	var configFile string
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with credentials redacted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			out, err := config.Dump(cfg)
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}
	configCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to configuration file (optional)")
	root.AddCommand(configCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads the configuration file and applies flag overrides.
func loadConfig(flags *runFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configFile)
	if err != nil {
		return nil, err
	}

	if flags.storeURL != "" {
		cfg.Source.StoreURL = flags.storeURL
	}
	if flags.token != "" {
		cfg.Source.AccessToken = flags.token
	}
	if flags.recipient != "" {
		cfg.Notify.Recipient = flags.recipient
	}
	if flags.dryRun {
		cfg.Destination.Mode = config.ModeMemory
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func initObservability(cfg *config.Config) error {
	err := logger.Init(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Development: cfg.Observability.Development,
		Encoding:    cfg.Observability.LogFormat,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version
	obsCfg.Enabled = cfg.Observability.EnableTracing
	obsCfg.SamplingRate = cfg.Observability.TracingSampleRate
	if err := observability.Initialize(obsCfg); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	return nil
}

// newStore builds the destination store selected by the configuration
// and returns it with its cleanup function.
func newStore(ctx context.Context, cfg *config.Config) (destination.DataStore, func(), error) {
	switch cfg.Destination.Mode {
	case config.ModeAPI:
		return api.New(cfg.Destination), func() {}, nil
	case config.ModePostgres:
		store, err := postgres.New(ctx, cfg.Destination)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case config.ModeMemory:
		if cfg.Destination.Upsert {
			return memory.New(memory.WithUpsert()), func() {}, nil
		}
		return memory.New(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown destination mode %q", cfg.Destination.Mode)
	}
}

// runSync executes one sync job end to end.
func runSync(ctx context.Context, flags *runFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	if err := initObservability(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, flags.timeout)
	defer cancel()
	defer func() {
		if err := observability.Shutdown(context.Background()); err != nil {
			logger.Get().Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open destination store: %w", err)
	}
	defer closeStore()

	jobID := flags.jobID
	if jobID == "" {
		jobID = uuid.NewString()
	}
	job := engine.NewJob(jobID, flags.accountID, cfg.Source.AccessToken, cfg.Source.StoreURL)

	// The job record exists before the engine touches it; every later
	// status and checkpoint write patches this record.
	err = store.CreateRecord(ctx, destination.KindSyncJobs, map[string]interface{}{
		"id":         job.ID,
		"account_id": job.AccountID,
		"store_url":  shopify.NormalizeStoreURL(job.StoreURL),
		"status":     engine.StatusPending,
		"started_at": job.StartedAt.Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to create sync job record: %w", err)
	}

	run := engine.NewRun(job, cfg, shopify.NewClient(cfg.Source), store,
		engine.NewStoreSink(store, job.ID), notify.FromConfig(cfg.Notify))

	result, err := run.Execute(ctx)
	if err != nil {
		return fmt.Errorf("sync job %s failed: %w", job.ID, err)
	}

	fmt.Printf("Sync complete for %s\n", job.StoreURL)
	fmt.Printf("  Customers: %d\n", result.Customers)
	fmt.Printf("  Orders:    %d\n", result.Orders)
	fmt.Printf("  Products:  %d\n", result.Products)
	fmt.Printf("  Elapsed:   %s\n", result.Elapsed.Round(time.Second))
	return nil
}

// runCheck verifies credentials and connectivity without running any
// stage.
func runCheck(ctx context.Context, flags *runFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	if err := initObservability(cfg); err != nil {
		return err
	}

	if !cfg.Source.HasCredentials() {
		return fmt.Errorf("store and access token are required (flags, config file, or SLUICE_SOURCE_* environment)")
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Source.RequestTimeout)
	defer cancel()

	shopName, err := shopify.NewClient(cfg.Source).ShopInfo(ctx)
	if err != nil {
		return fmt.Errorf("store connection failed: %w", err)
	}

	fmt.Printf("Connected to %q (%s)\n", shopName, shopify.NormalizeStoreURL(cfg.Source.StoreURL))
	return nil
}
