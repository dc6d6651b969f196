// Package config provides YAML configuration for artic-table.
//
// Every field has a default, so an empty file (or no file at all) is a
// valid configuration.
//
// Example configuration:
//
//	base_url: https://api.artic.edu/api/v1
//	user_agent: artic-table/0.1 (you@example.com)
//	page_limit: 12
//	timeout: 15s
//
//	redis:
//	  addr: ${REDIS_URL:-}
//	  db: 0
//
//	log:
//	  level: info
//	  pretty: true
//
//	metrics_addr: ":9090"
//
//	prefetch:
//	  concurrency: 4
package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/Sternrassler/artic-table/pkg/logging"
	"gopkg.in/yaml.v3"
)

const (
	// MaxPageLimit is the largest page size the artworks API accepts.
	MaxPageLimit = 100

	// MaxPrefetchConcurrency keeps prefetching well inside the public
	// API quota.
	MaxPrefetchConcurrency = 16

	minTimeout = 1 * time.Second
)

// Config is the root configuration structure.
type Config struct {
	// BaseURL is the API root. Supports ${VAR} substitution.
	BaseURL string `yaml:"base_url"`

	// UserAgent is sent as User-Agent and AIC-User-Agent. Include a
	// contact address.
	UserAgent string `yaml:"user_agent"`

	// PageLimit is the number of rows per page, 1..100.
	PageLimit int `yaml:"page_limit"`

	// Timeout bounds a single API request.
	Timeout Duration `yaml:"timeout"`

	Redis RedisConfig `yaml:"redis"`

	Log LogConfig `yaml:"log"`

	// MetricsAddr serves /metrics when set, e.g. ":9090".
	MetricsAddr string `yaml:"metrics_addr"`

	Prefetch PrefetchConfig `yaml:"prefetch"`
}

// RedisConfig configures the optional response cache and shared rate
// limit state. An empty Addr disables both.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Enabled reports whether a Redis address is configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// LogConfig configures the global logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Pretty switches from JSON to console output.
	Pretty bool `yaml:"pretty"`
}

// PrefetchConfig configures the batch fetcher.
type PrefetchConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		BaseURL:   "https://api.artic.edu/api/v1",
		UserAgent: "artic-table/dev (https://github.com/Sternrassler/artic-table)",
		PageLimit: 12,
		Timeout:   Duration(15 * time.Second),
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
		Prefetch: PrefetchConfig{
			Concurrency: 4,
		},
	}
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file. An empty path returns
// the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		if err := cfg.expandAndValidate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data on top of Default.
//
// Environment variables are expanded in base_url, user_agent, redis.addr,
// redis.password and metrics_addr.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	fields := []struct {
		name string
		ptr  *string
	}{
		{"base_url", &c.BaseURL},
		{"user_agent", &c.UserAgent},
		{"redis.addr", &c.Redis.Addr},
		{"redis.password", &c.Redis.Password},
		{"metrics_addr", &c.MetricsAddr},
	}
	for _, f := range fields {
		expanded, err := expandEnvVars(*f.ptr)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.ptr = strings.TrimSpace(expanded)
	}

	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("base_url scheme must be http or https, got %q", parsedURL.Scheme)
	}

	if c.UserAgent == "" {
		return fmt.Errorf("user_agent is required")
	}

	if c.PageLimit < 1 || c.PageLimit > MaxPageLimit {
		return fmt.Errorf("page_limit must be between 1 and %d, got %d", MaxPageLimit, c.PageLimit)
	}

	if c.Timeout.Duration() < minTimeout {
		return fmt.Errorf("timeout must be at least %s, got %s", minTimeout, c.Timeout.Duration())
	}

	if c.Redis.DB < 0 {
		return fmt.Errorf("redis.db cannot be negative, got %d", c.Redis.DB)
	}

	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return fmt.Errorf("log.level %w", err)
	}
	c.Log.Level = string(level)

	if c.Prefetch.Concurrency < 1 || c.Prefetch.Concurrency > MaxPrefetchConcurrency {
		return fmt.Errorf("prefetch.concurrency must be between 1 and %d, got %d",
			MaxPrefetchConcurrency, c.Prefetch.Concurrency)
	}

	return nil
}
