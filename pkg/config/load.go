// Package config provides configuration loading
package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads a configuration file over the defaults, then applies SLUICE_*
// environment overrides. An empty path loads defaults plus environment only.
func Load(filePath string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("SLUICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Credentials are commonly supplied by environment alone, so bind them
	// even when no file mentions their keys.
	for _, key := range []string{
		"source.access_token",
		"source.store_url",
		"destination.api.api_key",
		"destination.api.shared_secret",
		"destination.postgres.dsn",
		"notify.webhook_url",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if filePath != "" {
		v.SetConfigFile(filePath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Dump renders the effective configuration as YAML with credentials redacted.
func Dump(cfg *Config) (string, error) {
	redacted := *cfg
	redacted.Source.AccessToken = redact(cfg.Source.AccessToken)
	redacted.Destination.API.APIKey = redact(cfg.Destination.API.APIKey)
	redacted.Destination.API.SharedSecret = redact(cfg.Destination.API.SharedSecret)
	redacted.Destination.Postgres.DSN = redact(cfg.Destination.Postgres.DSN)

	data, err := yaml.Marshal(&redacted)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	return string(data), nil
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "[redacted]"
}
