package appconfig

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("PLEDGEFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("state_dir", cfg.StateDir)
	v.SetDefault("api.endpoint", cfg.API.Endpoint)
	v.SetDefault("api.client_id", cfg.API.ClientID)
	v.SetDefault("api.timeout_seconds", cfg.API.TimeoutSeconds)
	v.SetDefault("api.access_token", cfg.API.AccessToken)
	v.SetDefault("tracking.endpoint", cfg.Tracking.Endpoint)
	v.SetDefault("tracking.max_attempts", cfg.Tracking.MaxAttempts)
	v.SetDefault("tracking.initial_backoff_ms", cfg.Tracking.InitialBackoffMS)
	v.SetDefault("tracking.max_backoff_ms", cfg.Tracking.MaxBackoffMS)
	v.SetDefault("tracking.queue_depth", cfg.Tracking.QueueDepth)
	v.SetDefault("tracking.workers", cfg.Tracking.Workers)
	v.SetDefault("feature_flags", cfg.FeatureFlags)
	v.SetDefault("mock.addr", cfg.Mock.Addr)
	v.SetDefault("mock.seed_email", cfg.Mock.SeedEmail)
	v.SetDefault("mock.seed_password", cfg.Mock.SeedPassword)
	v.SetDefault("mock.seed_token", cfg.Mock.SeedToken)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validateAPIConfig(cfg.API); err != nil {
		return Config{}, err
	}
	if err := validateTrackingConfig(cfg.Tracking); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateAPIConfig(cfg APIConfig) error {
	if err := validateEndpoint("api.endpoint", cfg.Endpoint); err != nil {
		return err
	}
	if cfg.TimeoutSeconds < 0 {
		return fmt.Errorf("api.timeout_seconds must not be negative")
	}
	return nil
}

func validateTrackingConfig(cfg TrackingConfig) error {
	if err := validateEndpoint("tracking.endpoint", cfg.Endpoint); err != nil {
		return err
	}
	if cfg.MaxAttempts < 1 {
		return fmt.Errorf("tracking.max_attempts must be at least 1")
	}
	if cfg.Workers < 1 {
		return fmt.Errorf("tracking.workers must be at least 1")
	}
	if cfg.MaxBackoffMS > 0 && cfg.InitialBackoffMS > cfg.MaxBackoffMS {
		return fmt.Errorf("tracking.initial_backoff_ms must not exceed tracking.max_backoff_ms")
	}
	return nil
}

func validateEndpoint(key, raw string) error {
	value := strings.TrimSpace(raw)
	if value == "" {
		return fmt.Errorf("%s is required", key)
	}
	parsed, err := url.Parse(value)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s must include scheme and host (e.g. https://api.example.com/graphql)", key)
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.StateDir = expandEnv(cfg.StateDir)
	cfg.API.Endpoint = expandEnv(cfg.API.Endpoint)
	cfg.API.AccessToken = expandEnv(cfg.API.AccessToken)
	cfg.Tracking.Endpoint = expandEnv(cfg.Tracking.Endpoint)
	cfg.Mock.SeedPassword = expandEnv(cfg.Mock.SeedPassword)
	cfg.Mock.SeedToken = expandEnv(cfg.Mock.SeedToken)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// APITimeout returns the API request timeout.
func (c Config) APITimeout() time.Duration {
	if c.API.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
