package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unisat/agentkit/internal/logging"
	"github.com/unisat/agentkit/internal/store"
)

func testBase(t *testing.T) *Base {
	t.Helper()
	log := logging.New(nil, "silent")
	db, err := store.Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewBase(store.NewKnowledgeStore(db), log)
}

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadDirectoryMissing(t *testing.T) {
	b := testBase(t)

	stats, err := b.LoadDirectory(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.True(t, stats.Missing)
	assert.False(t, stats.Loaded())
}

func TestLoadDirectoryImportsSupportedTypes(t *testing.T) {
	b := testBase(t)
	dir := t.TempDir()
	writeDoc(t, dir, "brc20.md", "# BRC20\n\nBRC20 is a token standard on Bitcoin ordinals.")
	writeDoc(t, dir, "fees.txt", "Fee rates are measured in sat/vB.")
	writeDoc(t, dir, "tokens.json", `{"ordi": "first BRC20 token"}`)
	writeDoc(t, dir, "ignored.pdf", "binary stuff")

	stats, err := b.LoadDirectory(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Docs)
	assert.True(t, stats.Loaded())
	assert.GreaterOrEqual(t, stats.Chunks, 3)

	n, err := b.Count()
	require.NoError(t, err)
	assert.Equal(t, stats.Chunks, n)
}

func TestLoadDirectoryPartialFailure(t *testing.T) {
	b := testBase(t)
	dir := t.TempDir()
	writeDoc(t, dir, "good.md", "ORDI was the first BRC20 token deployed.")
	// Unreadable document: imported documents must survive.
	require.NoError(t, os.Symlink(
		filepath.Join(dir, "missing-target"),
		filepath.Join(dir, "bad.md"),
	))

	stats, err := b.LoadDirectory(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Docs)
	assert.Equal(t, 1, stats.Failed)
	assert.True(t, stats.Loaded())

	chunks, err := b.Retrieve(context.Background(), "ORDI", 5)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0], "good.md")
}

func TestLoadDirectoryReimportReplacesChunks(t *testing.T) {
	b := testBase(t)
	dir := t.TempDir()
	writeDoc(t, dir, "doc.md", "old content about ORDI")

	_, err := b.LoadDirectory(dir)
	require.NoError(t, err)

	writeDoc(t, dir, "doc.md", "new content about SATS")
	_, err = b.LoadDirectory(dir)
	require.NoError(t, err)

	n, err := b.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	chunks, err := b.Retrieve(context.Background(), "ORDI", 5)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestRetrieveFormatsSource(t *testing.T) {
	b := testBase(t)
	dir := t.TempDir()
	writeDoc(t, dir, "brc20.md", "ORDI was the first BRC20 token deployed in March 2023.")

	_, err := b.LoadDirectory(dir)
	require.NoError(t, err)

	chunks, err := b.Retrieve(context.Background(), "ORDI token", 3)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.True(t, strings.HasPrefix(chunks[0], "【brc20.md】\n"))
}

func TestSplitChunks(t *testing.T) {
	long := strings.Repeat("a", 800)
	text := long + "\n\n" + long + "\n\n" + "short tail"

	chunks := splitChunks(text)
	require.Len(t, chunks, 2)
	assert.Equal(t, long, chunks[0])
	assert.Equal(t, long+"\n\nshort tail", chunks[1])
}

func TestSplitChunksEmpty(t *testing.T) {
	assert.Empty(t, splitChunks(""))
	assert.Empty(t, splitChunks("\n\n\n\n"))
}

func TestMatchQueryQuotesTokens(t *testing.T) {
	assert.Equal(t, `"ORDI" OR "token"`, matchQuery("ORDI token"))
	assert.Equal(t, `"a""b"`, matchQuery(`a"b`))
	assert.Equal(t, `""`, matchQuery("   "))
}
