package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"ebird-proxy/domain/policy"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `validate:"required"`
	Environment   string
	LogLevel      string

	// Upstream configuration
	UpstreamBaseURL string `validate:"required,url"`
	// APIKey may be empty; the pipeline reports a configuration error per
	// request rather than refusing to start, so the fault is visible to
	// operators through the error log.
	APIKey          string
	UpstreamTimeout time.Duration `validate:"gt=0"`

	// Rate limiting
	RateLimitWindow time.Duration `validate:"gt=0"`
	RateLimitMax    int           `validate:"min=1"`

	// Cache
	TTLRules         []policy.TTLRule
	DefaultTTL       time.Duration `validate:"gt=0"`
	SweepProbability float64       `validate:"min=0,max=1"`

	// Allowlist
	AllowedPrefixes []string `validate:"min=1,dive,startswith=/"`
}

// fileConfig is the optional YAML overlay, used to override the policy
// tables without code changes
type fileConfig struct {
	AllowedPrefixes []string `yaml:"allowed_prefixes"`
	DefaultTTL      string   `yaml:"default_ttl"`
	TTL             []struct {
		Prefix string `yaml:"prefix"`
		TTL    string `yaml:"ttl"`
	} `yaml:"ttl"`
	RateLimit struct {
		Window string `yaml:"window"`
		Max    int    `yaml:"max"`
	} `yaml:"rate_limit"`
	SweepProbability *float64 `yaml:"sweep_probability"`
}

// LoadConfig loads configuration from environment variables, then applies
// the YAML overlay named by PROXY_CONFIG_FILE if one is set.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		UpstreamBaseURL: getEnv("EBIRD_API_BASE", "https://api.ebird.org/v2"),
		APIKey:          getEnv("EBIRD_API_KEY", ""),
		UpstreamTimeout: getEnvDuration("UPSTREAM_TIMEOUT", 10*time.Second),

		RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", 60*time.Second),
		RateLimitMax:    getEnvInt("RATE_LIMIT_MAX", 100),

		TTLRules:         policy.DefaultTTLRules(),
		DefaultTTL:       policy.DefaultTTL,
		SweepProbability: getEnvFloat("SWEEP_PROBABILITY", 0.01),

		AllowedPrefixes: policy.DefaultAllowedPrefixes(),
	}

	if path := os.Getenv("PROXY_CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyFile overlays values from a YAML file onto the config
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return err
	}

	if len(fc.AllowedPrefixes) > 0 {
		c.AllowedPrefixes = fc.AllowedPrefixes
	}
	if fc.DefaultTTL != "" {
		d, err := time.ParseDuration(fc.DefaultTTL)
		if err != nil {
			return fmt.Errorf("default_ttl: %w", err)
		}
		c.DefaultTTL = d
	}
	if len(fc.TTL) > 0 {
		rules := make([]policy.TTLRule, 0, len(fc.TTL))
		for _, r := range fc.TTL {
			d, err := time.ParseDuration(r.TTL)
			if err != nil {
				return fmt.Errorf("ttl for %s: %w", r.Prefix, err)
			}
			rules = append(rules, policy.TTLRule{Prefix: r.Prefix, TTL: d})
		}
		c.TTLRules = rules
	}
	if fc.RateLimit.Window != "" {
		d, err := time.ParseDuration(fc.RateLimit.Window)
		if err != nil {
			return fmt.Errorf("rate_limit.window: %w", err)
		}
		c.RateLimitWindow = d
	}
	if fc.RateLimit.Max > 0 {
		c.RateLimitMax = fc.RateLimit.Max
	}
	if fc.SweepProbability != nil {
		c.SweepProbability = *fc.SweepProbability
	}

	return nil
}

// Validate checks structural constraints on the assembled configuration
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	for _, rule := range c.TTLRules {
		if rule.Prefix == "" || rule.TTL <= 0 {
			return fmt.Errorf("invalid configuration: ttl rule %q must have a prefix and a positive duration", rule.Prefix)
		}
	}
	return nil
}

// HasCredential reports whether an upstream API key is configured
func (c *Config) HasCredential() bool {
	return c.APIKey != ""
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable ("10s", "5m") with a
// default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
