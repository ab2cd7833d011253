package appconfig

import (
	"os"
	"path/filepath"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int             `mapstructure:"config_version" yaml:"config_version"`
	StateDir      string          `mapstructure:"state_dir" yaml:"state_dir"`
	API           APIConfig       `mapstructure:"api" yaml:"api"`
	Tracking      TrackingConfig  `mapstructure:"tracking" yaml:"tracking"`
	FeatureFlags  map[string]bool `mapstructure:"feature_flags" yaml:"feature_flags"`
	Mock          MockConfig      `mapstructure:"mock" yaml:"mock"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// APIConfig configures the GraphQL API client.
type APIConfig struct {
	Endpoint       string `mapstructure:"endpoint" yaml:"endpoint"`
	ClientID       string `mapstructure:"client_id" yaml:"client_id"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	AccessToken    string `mapstructure:"access_token" yaml:"access_token"`
}

// TrackingConfig configures the background tracking queue.
type TrackingConfig struct {
	Endpoint         string `mapstructure:"endpoint" yaml:"endpoint"`
	MaxAttempts      int    `mapstructure:"max_attempts" yaml:"max_attempts"`
	InitialBackoffMS int    `mapstructure:"initial_backoff_ms" yaml:"initial_backoff_ms"`
	MaxBackoffMS     int    `mapstructure:"max_backoff_ms" yaml:"max_backoff_ms"`
	QueueDepth       int    `mapstructure:"queue_depth" yaml:"queue_depth"`
	Workers          int    `mapstructure:"workers" yaml:"workers"`
}

// MockConfig configures the local mock API server.
type MockConfig struct {
	Addr         string `mapstructure:"addr" yaml:"addr"`
	SeedEmail    string `mapstructure:"seed_email" yaml:"seed_email"`
	SeedPassword string `mapstructure:"seed_password" yaml:"seed_password"`
	SeedToken    string `mapstructure:"seed_token" yaml:"seed_token"`
}

// Feature flag keys understood by the client.
const (
	FlagConsentManagement = "android_consent_management"
	FlagCAPIIntegration   = "android_capi_integration"
	FlagGoogleAnalytics   = "android_google_analytics"
)

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		StateDir:      filepath.Join(home, ".pledgeflow", "state"),
		API: APIConfig{
			Endpoint:       "http://127.0.0.1:27490/graphql",
			ClientID:       "pledgeflow-cli",
			TimeoutSeconds: 30,
			AccessToken:    "",
		},
		Tracking: TrackingConfig{
			Endpoint:         "http://127.0.0.1:27490/track",
			MaxAttempts:      5,
			InitialBackoffMS: 500,
			MaxBackoffMS:     30000,
			QueueDepth:       64,
			Workers:          2,
		},
		FeatureFlags: map[string]bool{
			FlagConsentManagement: false,
			FlagCAPIIntegration:   false,
			FlagGoogleAnalytics:   false,
		},
		Mock: MockConfig{
			Addr:         "127.0.0.1:27490",
			SeedEmail:    "backer@example.com",
			SeedPassword: "",
			SeedToken:    "dev-token",
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".pledgeflow", "config.yaml"), nil
}
