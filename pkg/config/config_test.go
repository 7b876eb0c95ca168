package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		KeyDomain, KeyAPIKey, KeyTimeout, KeyLookupTTL, KeyLogLevel,
		KeyLogPretty, KeyRedisAddr, KeyMetricsAddr, KeyUserAgent,
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv(KeyDomain, "acme.freshservice.com")
	t.Setenv(KeyAPIKey, "secret")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "acme.freshservice.com", cfg.Domain)
	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.LookupTTL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.LogPretty)
	assert.Empty(t, cfg.RedisAddr)
	assert.Empty(t, cfg.MetricsAddr)
	assert.Equal(t, "freshservice-mcp/dev", cfg.UserAgent)
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv(KeyDomain, "acme.freshservice.com")
	t.Setenv(KeyAPIKey, "secret")
	t.Setenv(KeyTimeout, "10s")
	t.Setenv(KeyLookupTTL, "1m")
	t.Setenv(KeyLogPretty, "true")
	t.Setenv(KeyRedisAddr, "localhost:6379")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, time.Minute, cfg.LookupTTL)
	assert.True(t, cfg.LogPretty)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv(KeyDomain, "env.freshservice.com")
	t.Setenv(KeyAPIKey, "secret")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("domain", "", "")
	require.NoError(t, flags.Parse([]string{"--domain", "flag.freshservice.com"}))

	v := viper.New()
	require.NoError(t, v.BindPFlag(KeyDomain, flags.Lookup("domain")))

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "flag.freshservice.com", cfg.Domain)
}

func TestLoad_MissingRequired(t *testing.T) {
	clearEnv(t)

	_, err := Load(viper.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), KeyDomain)
	assert.Contains(t, err.Error(), KeyAPIKey)
}

func TestValidate_Durations(t *testing.T) {
	cfg := &Config{Domain: "d", APIKey: "k"}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), KeyTimeout)
	assert.Contains(t, err.Error(), KeyLookupTTL)
}

func TestLoadEnvFiles(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("FRESHSERVICE_DOMAIN=dotenv.freshservice.com\nFRESHSERVICE_APIKEY=fromfile\n"), 0o600))
	t.Setenv(KeyAPIKey, "fromenv")
	t.Cleanup(func() { os.Unsetenv(KeyDomain) })

	require.NoError(t, LoadEnvFiles(path, filepath.Join(dir, "missing.env")))

	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "dotenv.freshservice.com", cfg.Domain)
	assert.Equal(t, "fromenv", cfg.APIKey)
}
