package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, "http://localhost:3000/mcp", cfg.MCP.URL)
	assert.Equal(t, 30*time.Second, cfg.MCP.Timeout)
	assert.Equal(t, "knowledgebase_docs", cfg.Knowledge.Path)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "local", cfg.Session.Backend)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestGetenvDefault(t *testing.T) {
	os.Unsetenv("UNISAT_MCP_URL")
	assert.Equal(t, DefaultMCPURL, Getenv("UNISAT_MCP_URL", DefaultMCPURL))

	t.Setenv("UNISAT_MCP_URL", "http://mcp.example.com/mcp")
	assert.Equal(t, "http://mcp.example.com/mcp", Getenv("UNISAT_MCP_URL", DefaultMCPURL))
}

func TestLoadMissingFile(t *testing.T) {
	os.Unsetenv("UNISAT_MCP_URL")
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	// Should return defaults
	assert.Equal(t, DefaultMCPURL, cfg.MCP.URL)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestLoadValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
mcp:
  url: http://mcp.internal:3000/mcp
server:
  host: 127.0.0.1
  port: 9000
session:
  backend: sqlite
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://mcp.internal:3000/mcp", cfg.MCP.URL)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Session.Backend)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched fields keep defaults
	assert.Equal(t, 30*time.Second, cfg.MCP.Timeout)
	assert.Equal(t, "knowledgebase_docs", cfg.Knowledge.Path)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mcp: [not: valid"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("UNISAT_MCP_URL", "http://override:3000/mcp")
	t.Setenv("BRC20_KB_PATH", "/srv/kb")
	t.Setenv("AGENTKIT_PORT", "8080")
	t.Setenv("AGENTKIT_LOG_LEVEL", "WARN")

	cfg, err := Load("/nonexistent/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "http://override:3000/mcp", cfg.MCP.URL)
	assert.Equal(t, "/srv/kb", cfg.Knowledge.Path)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestEnvOverridesFileValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mcp:\n  url: http://file:3000/mcp\n"), 0o600))
	t.Setenv("UNISAT_MCP_URL", "http://env:3000/mcp")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://env:3000/mcp", cfg.MCP.URL)
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	assert.Nil(t, Validate(&cfg))

	cfg.Server.Port = 0
	cfg.Session.Backend = "redis"
	issues := Validate(&cfg)
	require.Len(t, issues, 2)
	assert.Equal(t, "server.port", issues[0].Path)
	assert.Equal(t, "session.backend", issues[1].Path)
}
