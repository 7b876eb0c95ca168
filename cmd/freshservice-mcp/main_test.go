package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/freshservice-mcp/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func testConfig() *config.Config {
	return &config.Config{
		Domain:    "acme.freshservice.com",
		APIKey:    "test-key",
		Timeout:   5 * time.Second,
		LookupTTL: time.Minute,
		LogLevel:  "info",
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "freshservice-mcp dev\n", out)
}

func TestToolsCommand(t *testing.T) {
	out, err := execute(t, "tools")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 36)
	assert.True(t, strings.HasPrefix(lines[0], "get_agent_lookup"))
	assert.Contains(t, out, "get_team_comparison")
	assert.Contains(t, out, "close_change")
}

func TestServeCommand_MissingCredentials(t *testing.T) {
	t.Setenv(config.KeyDomain, "")
	t.Setenv(config.KeyAPIKey, "")

	_, err := execute(t, "serve", "--env-file", filepath.Join(t.TempDir(), "none.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.KeyDomain)
	assert.Contains(t, err.Error(), config.KeyAPIKey)
}

func TestNewApp_WiresRegistry(t *testing.T) {
	a, err := newApp(context.Background(), testConfig())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.redis)
	assert.Equal(t, "https://acme.freshservice.com/api/v2", a.client.BaseURL())
	assert.Len(t, a.registry.Names(), 36)
}

func TestNewApp_RedisUnavailable(t *testing.T) {
	cfg := testConfig()
	cfg.RedisAddr = "127.0.0.1:1"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := newApp(ctx, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to redis")
}
