// Package knowledge loads local knowledge base documents and serves
// relevance-ranked context for agent prompts.
package knowledge

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/unisat/agentkit/internal/logging"
	"github.com/unisat/agentkit/internal/store"
)

// maxChunkSize bounds a single indexed chunk. Documents are split on
// paragraph boundaries and packed up to this size.
const maxChunkSize = 1200

// docExtensions are the file types imported from the knowledge directory.
var docExtensions = map[string]bool{
	".md":   true,
	".txt":  true,
	".json": true,
}

// LoadStats summarizes a directory import.
type LoadStats struct {
	Dir     string
	Missing bool // directory did not exist
	Docs    int  // documents imported
	Chunks  int  // chunks indexed
	Failed  int  // documents that could not be read
}

// Loaded reports whether at least one document was imported.
func (s LoadStats) Loaded() bool { return s.Docs > 0 }

// Base is a knowledge base backed by the SQLite FTS5 index. It implements
// agent.Retriever.
type Base struct {
	store *store.KnowledgeStore
	log   *logging.Logger
}

// NewBase creates a knowledge base over the given store.
func NewBase(ks *store.KnowledgeStore, log *logging.Logger) *Base {
	return &Base{store: ks, log: log.Sub("knowledge")}
}

// LoadDirectory imports all supported documents under dir into the index.
// A missing directory is not an error: the base stays empty and the agent
// runs without knowledge context. Individual document failures are logged
// and skipped; whatever imported stays available.
func (b *Base) LoadDirectory(dir string) (LoadStats, error) {
	stats := LoadStats{Dir: dir}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		stats.Missing = true
		b.log.Info().Str("dir", dir).Msg("knowledge directory not found, skipping")
		return stats, nil
	}

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			b.log.Warn().Err(err).Str("path", path).Msg("skipping unreadable entry")
			stats.Failed++
			return nil
		}
		if d.IsDir() || !docExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			rel = path
		}

		n, impErr := b.importDocument(rel, path)
		if impErr != nil {
			b.log.Warn().Err(impErr).Str("doc", rel).Msg("failed to import document")
			stats.Failed++
			return nil
		}

		stats.Docs++
		stats.Chunks += n
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("walking %s: %w", dir, err)
	}

	b.log.Info().
		Str("dir", dir).
		Int("docs", stats.Docs).
		Int("chunks", stats.Chunks).
		Int("failed", stats.Failed).
		Msg("knowledge base loaded")
	return stats, nil
}

// importDocument replaces the indexed chunks for one document.
func (b *Base) importDocument(source, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	if err := b.store.DeleteBySource(source); err != nil {
		return 0, fmt.Errorf("clearing old chunks: %w", err)
	}

	chunks := splitChunks(string(data))
	for i, content := range chunks {
		if _, err := b.store.Store(store.KnowledgeChunk{
			Source:  source,
			Seq:     i,
			Content: content,
		}); err != nil {
			return i, fmt.Errorf("indexing chunk %d: %w", i, err)
		}
	}
	return len(chunks), nil
}

// Retrieve returns up to limit chunks relevant to the query, formatted with
// their source document for the prompt.
func (b *Base) Retrieve(ctx context.Context, query string, limit int) ([]string, error) {
	chunks, err := b.store.Search(matchQuery(query), limit)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, fmt.Sprintf("【%s】\n%s", c.Source, c.Content))
	}
	return out, nil
}

// Count returns the number of indexed chunks.
func (b *Base) Count() (int, error) {
	return b.store.Count()
}

// splitChunks splits text on blank lines and packs paragraphs into chunks of
// at most maxChunkSize bytes. A single oversized paragraph becomes its own
// chunk rather than being cut mid-sentence.
func splitChunks(text string) []string {
	paragraphs := strings.Split(text, "\n\n")

	var chunks []string
	var cur strings.Builder
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if cur.Len() > 0 && cur.Len()+len(p)+2 > maxChunkSize {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(p)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// matchQuery turns free text into an FTS5 MATCH expression. Each token is
// quoted so user input cannot inject FTS syntax, and tokens are OR-ed to
// favor recall over precision.
func matchQuery(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return `""`
	}

	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, `"`, `""`)
		terms = append(terms, `"`+f+`"`)
	}
	return strings.Join(terms, " OR ")
}
