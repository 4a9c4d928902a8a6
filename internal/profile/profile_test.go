package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByID(t *testing.T) {
	p, err := ByID("bitcoin-query")
	require.NoError(t, err)
	assert.Equal(t, "bitcoin_query_agent", p.Name)
	assert.Equal(t, 60*time.Second, p.ClientTimeout)
	assert.False(t, p.UseKnowledge)
	assert.NotEmpty(t, p.SampleQueries)
	assert.Contains(t, p.Instruction, "比特币区块链查询助手")

	p, err = ByID("brc20-analyst")
	require.NoError(t, err)
	assert.Equal(t, "brc20_analyst", p.Name)
	assert.Equal(t, 120*time.Second, p.ClientTimeout)
	assert.True(t, p.UseKnowledge)
	assert.Contains(t, p.Instruction, "BRC20")
}

func TestByIDUnknown(t *testing.T) {
	_, err := ByID("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown agent")
	assert.Contains(t, err.Error(), "bitcoin-query")
}

func TestIDsResolve(t *testing.T) {
	for _, id := range IDs() {
		p, err := ByID(id)
		require.NoError(t, err)
		assert.Equal(t, id, p.ID)
	}
}
