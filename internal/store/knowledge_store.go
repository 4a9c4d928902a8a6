package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// KnowledgeChunk is one indexed piece of a knowledge base document.
type KnowledgeChunk struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"` // relative document path
	Seq       int       `json:"seq"`    // chunk position within the document
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Rank      float64   `json:"rank,omitempty"` // FTS5 rank (search results only)
}

// KnowledgeStore indexes knowledge base chunks with full-text search via
// SQLite FTS5.
type KnowledgeStore struct {
	db *DB
}

// NewKnowledgeStore creates a knowledge store using the given database.
func NewKnowledgeStore(db *DB) *KnowledgeStore {
	return &KnowledgeStore{db: db}
}

// Store inserts a chunk. An empty ID gets a generated UUID.
func (k *KnowledgeStore) Store(chunk KnowledgeChunk) (*KnowledgeChunk, error) {
	if chunk.ID == "" {
		chunk.ID = uuid.New().String()
	}
	chunk.CreatedAt = time.Now()

	_, err := k.db.sql.Exec(
		`INSERT INTO knowledge_chunks (id, source, seq, content, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   source = excluded.source,
		   seq = excluded.seq,
		   content = excluded.content`,
		chunk.ID, chunk.Source, chunk.Seq, chunk.Content,
		chunk.CreatedAt.Format(time.DateTime),
	)
	if err != nil {
		return nil, err
	}
	return &chunk, nil
}

// Search finds chunks matching the query, ranked by FTS5 relevance.
// Limit of 0 defaults to 20.
func (k *KnowledgeStore) Search(query string, limit int) ([]KnowledgeChunk, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := k.db.sql.Query(
		`SELECT kc.id, kc.source, kc.seq, kc.content, kc.created_at, rank
		 FROM knowledge_fts
		 JOIN knowledge_chunks kc ON kc.rowid = knowledge_fts.rowid
		 WHERE knowledge_fts MATCH ?
		 ORDER BY rank
		 LIMIT ?`,
		query, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanKnowledgeChunks(rows)
}

// ListBySource returns all chunks for a document, in order.
func (k *KnowledgeStore) ListBySource(source string) ([]KnowledgeChunk, error) {
	rows, err := k.db.sql.Query(
		`SELECT id, source, seq, content, created_at, 0
		 FROM knowledge_chunks WHERE source = ? ORDER BY seq`,
		source,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanKnowledgeChunks(rows)
}

// Count returns the number of indexed chunks.
func (k *KnowledgeStore) Count() (int, error) {
	var n int
	err := k.db.sql.QueryRow(`SELECT COUNT(*) FROM knowledge_chunks`).Scan(&n)
	return n, err
}

// DeleteBySource removes all chunks for a document, used on re-import.
func (k *KnowledgeStore) DeleteBySource(source string) error {
	_, err := k.db.sql.Exec(`DELETE FROM knowledge_chunks WHERE source = ?`, source)
	return err
}

func scanKnowledgeChunks(rows *sql.Rows) ([]KnowledgeChunk, error) {
	var chunks []KnowledgeChunk
	for rows.Next() {
		var chunk KnowledgeChunk
		var createdAt string
		if err := rows.Scan(
			&chunk.ID, &chunk.Source, &chunk.Seq, &chunk.Content, &createdAt, &chunk.Rank,
		); err != nil {
			continue
		}
		chunk.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}
