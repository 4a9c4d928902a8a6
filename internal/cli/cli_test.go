package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "agentkit")
}

func TestStatusCommand(t *testing.T) {
	t.Setenv("AGENTKIT_DATA_DIR", t.TempDir())

	out, err := runCommand(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "MCP:")
	assert.Contains(t, out, "bitcoin-query")
	assert.Contains(t, out, "brc20-analyst")
}

func TestServeUnknownAgent(t *testing.T) {
	t.Setenv("AGENTKIT_DATA_DIR", t.TempDir())

	_, err := runCommand(t, "serve", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown agent")
}

func TestClientUnknownAgent(t *testing.T) {
	t.Setenv("AGENTKIT_DATA_DIR", t.TempDir())

	_, err := runCommand(t, "client", "--agent", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown agent")
}
