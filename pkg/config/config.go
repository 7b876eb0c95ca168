// Package config loads freshservice-mcp settings from flags, the environment
// and optional .env files, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Keys, matching the environment variable names.
const (
	KeyDomain      = "FRESHSERVICE_DOMAIN"
	KeyAPIKey      = "FRESHSERVICE_APIKEY"
	KeyTimeout     = "FRESHSERVICE_TIMEOUT"
	KeyLookupTTL   = "LOOKUP_TTL"
	KeyLogLevel    = "LOG_LEVEL"
	KeyLogPretty   = "LOG_PRETTY"
	KeyRedisAddr   = "REDIS_ADDR"
	KeyMetricsAddr = "METRICS_ADDR"
	KeyUserAgent   = "USER_AGENT"
)

// Config holds the runtime settings.
type Config struct {
	Domain    string
	APIKey    string
	Timeout   time.Duration
	LookupTTL time.Duration

	LogLevel  string
	LogPretty bool

	// RedisAddr enables shared rate-limit state when set.
	RedisAddr string

	// MetricsAddr enables the /metrics listener when set.
	MetricsAddr string

	UserAgent string
}

// Defaults registers the default values on v.
func Defaults(v *viper.Viper) {
	v.SetDefault(KeyTimeout, 30*time.Second)
	v.SetDefault(KeyLookupTTL, 5*time.Minute)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogPretty, false)
	v.SetDefault(KeyRedisAddr, "")
	v.SetDefault(KeyMetricsAddr, "")
	v.SetDefault(KeyUserAgent, "freshservice-mcp/dev")
}

// LoadEnvFiles loads .env files into the process environment. Variables that
// are already set win; missing files are skipped.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads the configuration from v. Flags bound to v take precedence over
// environment variables.
func Load(v *viper.Viper) (*Config, error) {
	Defaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	for _, key := range []string{
		KeyDomain, KeyAPIKey, KeyTimeout, KeyLookupTTL, KeyLogLevel,
		KeyLogPretty, KeyRedisAddr, KeyMetricsAddr, KeyUserAgent,
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	cfg := &Config{
		Domain:      strings.TrimSpace(v.GetString(KeyDomain)),
		APIKey:      strings.TrimSpace(v.GetString(KeyAPIKey)),
		Timeout:     v.GetDuration(KeyTimeout),
		LookupTTL:   v.GetDuration(KeyLookupTTL),
		LogLevel:    v.GetString(KeyLogLevel),
		LogPretty:   v.GetBool(KeyLogPretty),
		RedisAddr:   v.GetString(KeyRedisAddr),
		MetricsAddr: v.GetString(KeyMetricsAddr),
		UserAgent:   v.GetString(KeyUserAgent),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings.
func (c *Config) Validate() error {
	var errs []error
	if c.Domain == "" {
		errs = append(errs, fmt.Errorf("%s is required", KeyDomain))
	}
	if c.APIKey == "" {
		errs = append(errs, fmt.Errorf("%s is required", KeyAPIKey))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyTimeout))
	}
	if c.LookupTTL <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyLookupTTL))
	}
	return errors.Join(errs...)
}
