// Package config provides the unified configuration system for sluice.
// It defines a single Config structure covering every tunable of the sync
// engine, organized into logical sections:
//   - Source: commerce API credentials, page sizes, pacing, retry/backoff
//   - Destination: store mode (api, postgres, memory) and write behavior
//   - Engine: checkpoint cadence, write pacing, aggregation bounds
//   - Notify: terminal notification delivery
//   - Observability: logging, metrics, tracing
//
// The numeric defaults are normative: they encode the rate-limit contract
// with the source API and must not drift without coordination.
//
// Example usage:
//
//	cfg := config.Default()
//	cfg.Source.AccessToken = os.Getenv("SLUICE_SOURCE_ACCESS_TOKEN")
//	cfg.Source.StoreURL = "example.myshopify.com"
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"time"
)

// Destination store modes.
const (
	ModeAPI      = "api"
	ModePostgres = "postgres"
	ModeMemory   = "memory"
)

// Config is the single configuration structure for a sync run.
type Config struct {
	// Source settings for the commerce platform API
	Source SourceConfig `yaml:"source" json:"source"`

	// Destination settings for the record store
	Destination DestinationConfig `yaml:"destination" json:"destination"`

	// Engine settings for stage execution
	Engine EngineConfig `yaml:"engine" json:"engine"`

	// Notify settings for terminal notifications
	Notify NotifyConfig `yaml:"notify" json:"notify"`

	// Observability settings for monitoring and debugging
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// SourceConfig contains the commerce API settings. Page sizes, the
// inter-page delay, and the backoff schedule are part of the platform's
// rate-limit contract.
type SourceConfig struct {
	// AccessToken is the Admin API access token sent with every request
	AccessToken string `yaml:"access_token" json:"access_token"`
	// StoreURL is the store host; a scheme and trailing slash are tolerated
	// and stripped during normalization
	StoreURL string `yaml:"store_url" json:"store_url"`
	// APIVersion selects the Admin API version path segment
	APIVersion string `yaml:"api_version" json:"api_version"`
	// CustomerPageSize is the page size for customer queries
	CustomerPageSize int `yaml:"customer_page_size" json:"customer_page_size"`
	// OrderPageSize is the page size for order queries
	OrderPageSize int `yaml:"order_page_size" json:"order_page_size"`
	// ProductPageSize is the page size for product queries
	ProductPageSize int `yaml:"product_page_size" json:"product_page_size"`
	// PageDelay is the fixed delay imposed between successive page requests
	PageDelay time.Duration `yaml:"page_delay" json:"page_delay"`
	// MaxRetries is the number of retries after a failed page request
	// (MaxRetries+1 attempts total)
	MaxRetries int `yaml:"max_retries" json:"max_retries"`
	// BackoffBase seeds the exponential backoff: after failed attempt n the
	// fetcher waits BackoffBase * 2^n
	BackoffBase time.Duration `yaml:"backoff_base" json:"backoff_base"`
	// RequestTimeout bounds a single API request
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// DestinationConfig selects and configures the record store.
type DestinationConfig struct {
	// Mode selects the store implementation: api, postgres, or memory
	Mode string `yaml:"mode" json:"mode"`
	// Upsert keys writes on (account_id, shopify_id) instead of blind
	// creates; re-running a job then updates instead of duplicating
	Upsert bool `yaml:"upsert" json:"upsert"`
	// API configures the HTTP write-API store
	API APIConfig `yaml:"api" json:"api"`
	// Postgres configures the direct-database store
	Postgres PostgresConfig `yaml:"postgres" json:"postgres"`
}

// APIConfig configures the HTTP write API. Two deployment variants are
// supported: a base endpoint plus app identifier, or a single callback URL
// plus shared secret.
type APIConfig struct {
	// BaseURL is the write API root (endpoint variant)
	BaseURL string `yaml:"base_url" json:"base_url"`
	// AppID identifies this integration to the write API (endpoint variant)
	AppID string `yaml:"app_id" json:"app_id"`
	// APIKey authenticates the endpoint variant
	APIKey string `yaml:"api_key" json:"api_key"`
	// CallbackURL is the single write endpoint (callback variant)
	CallbackURL string `yaml:"callback_url" json:"callback_url"`
	// SharedSecret authenticates the callback variant
	SharedSecret string `yaml:"shared_secret" json:"shared_secret"`
	// RequestTimeout bounds a single write API request
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// PostgresConfig configures the direct-database store.
type PostgresConfig struct {
	// DSN is the connection string
	DSN string `yaml:"dsn" json:"dsn"`
	// MaxConns caps the pool size (0 = pgx default)
	MaxConns int32 `yaml:"max_conns" json:"max_conns"`
}

// EngineConfig contains stage-execution settings.
type EngineConfig struct {
	// CheckpointEvery reports a progress checkpoint after this many
	// successfully persisted records
	CheckpointEvery int `yaml:"checkpoint_every" json:"checkpoint_every"`
	// WritePaceEvery pauses after this many record positions
	WritePaceEvery int `yaml:"write_pace_every" json:"write_pace_every"`
	// WritePause is the duration of each write pause
	WritePause time.Duration `yaml:"write_pause" json:"write_pause"`
	// BulkLimit bounds aggregation bulk reads; no pagination past it
	BulkLimit int `yaml:"bulk_limit" json:"bulk_limit"`
	// EngagementScore is stamped on every newly created customer record
	EngagementScore int `yaml:"engagement_score" json:"engagement_score"`
}

// NotifyConfig configures terminal notification delivery.
type NotifyConfig struct {
	// WebhookURL receives the terminal notice; empty disables notification
	WebhookURL string `yaml:"webhook_url" json:"webhook_url"`
	// Recipient addresses the terminal notice
	Recipient string `yaml:"recipient" json:"recipient"`
	// RequestTimeout bounds a notification request
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// ObservabilityConfig contains monitoring and debugging settings.
type ObservabilityConfig struct {
	// LogLevel sets logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level" json:"log_level"`
	// LogFormat selects the encoder (json, console)
	LogFormat string `yaml:"log_format" json:"log_format"`
	// Development enables colored console output and error stacktraces
	Development bool `yaml:"development" json:"development"`
	// EnableTracing activates OpenTelemetry tracing
	EnableTracing bool `yaml:"enable_tracing" json:"enable_tracing"`
	// TracingSampleRate controls trace sampling (0.0-1.0)
	TracingSampleRate float64 `yaml:"tracing_sample_rate" json:"tracing_sample_rate"`
}

// Default returns a Config carrying the normative defaults.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			APIVersion:       "2024-01",
			CustomerPageSize: 50,
			OrderPageSize:    25,
			ProductPageSize:  50,
			PageDelay:        500 * time.Millisecond,
			MaxRetries:       3,
			BackoffBase:      2 * time.Second,
			RequestTimeout:   30 * time.Second,
		},
		Destination: DestinationConfig{
			Mode:   ModeAPI,
			Upsert: false,
			API: APIConfig{
				RequestTimeout: 15 * time.Second,
			},
		},
		Engine: EngineConfig{
			CheckpointEvery: 100,
			WritePaceEvery:  10,
			WritePause:      100 * time.Millisecond,
			BulkLimit:       10000,
			EngagementScore: 10,
		},
		Notify: NotifyConfig{
			RequestTimeout: 10 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel:          "info",
			LogFormat:         "json",
			EnableTracing:     false,
			TracingSampleRate: 0.1,
		},
	}
}

// Validate checks structural correctness. Credential presence is not checked
// here: the orchestrator owns that check and reports it as a configuration
// error on the job itself.
func (c *Config) Validate() error {
	if c.Source.CustomerPageSize <= 0 {
		return fmt.Errorf("customer_page_size must be positive")
	}
	if c.Source.OrderPageSize <= 0 {
		return fmt.Errorf("order_page_size must be positive")
	}
	if c.Source.ProductPageSize <= 0 {
		return fmt.Errorf("product_page_size must be positive")
	}
	if c.Source.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative")
	}
	if c.Source.PageDelay < 0 {
		return fmt.Errorf("page_delay cannot be negative")
	}
	if c.Source.BackoffBase <= 0 {
		return fmt.Errorf("backoff_base must be positive")
	}
	if c.Source.APIVersion == "" {
		return fmt.Errorf("api_version is required")
	}
	if c.Engine.CheckpointEvery <= 0 {
		return fmt.Errorf("checkpoint_every must be positive")
	}
	if c.Engine.WritePaceEvery <= 0 {
		return fmt.Errorf("write_pace_every must be positive")
	}
	if c.Engine.BulkLimit <= 0 {
		return fmt.Errorf("bulk_limit must be positive")
	}

	switch c.Destination.Mode {
	case ModeAPI:
		if c.Destination.API.BaseURL == "" && c.Destination.API.CallbackURL == "" {
			return fmt.Errorf("destination api requires base_url or callback_url")
		}
		if c.Destination.API.CallbackURL != "" && c.Destination.API.SharedSecret == "" {
			return fmt.Errorf("destination callback_url requires shared_secret")
		}
	case ModePostgres:
		if c.Destination.Postgres.DSN == "" {
			return fmt.Errorf("destination postgres requires dsn")
		}
	case ModeMemory:
	default:
		return fmt.Errorf("unknown destination mode %q", c.Destination.Mode)
	}

	return nil
}

// PageSize returns the configured page size for a resource name.
func (s *SourceConfig) PageSize(resource string) int {
	switch resource {
	case "orders":
		return s.OrderPageSize
	case "products":
		return s.ProductPageSize
	default:
		return s.CustomerPageSize
	}
}

// HasCredentials reports whether both source credentials are present.
func (s *SourceConfig) HasCredentials() bool {
	return s.AccessToken != "" && s.StoreURL != ""
}
