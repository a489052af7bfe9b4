// Package memory implements the semantic classification memory: a
// nearest-neighbor store of previously confirmed classifications, matched
// by embedding cosine similarity.
package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/fixedassets/depflow/internal/classify"
	"github.com/fixedassets/depflow/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SemanticMemory persists confirmed classifications with their embeddings.
// Reads are concurrent; the append-and-persist path is serialized so
// concurrent writers never interleave partial writes.
type SemanticMemory struct {
	db      *sql.DB
	logger  *slog.Logger
	writeMu sync.Mutex
}

// Open creates or opens a semantic memory store at the given path. Use
// ":memory:" for tests.
func Open(path string, logger *slog.Logger) (*SemanticMemory, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open memory store: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	m := &SemanticMemory{db: db, logger: logger}
	if err := m.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return m, nil
}

func (m *SemanticMemory) migrate(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS memory_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			description TEXT NOT NULL UNIQUE,
			class_name TEXT NOT NULL,
			source TEXT NOT NULL,
			embedding TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to migrate memory store: %w", err)
	}
	return nil
}

// Close closes the backing store.
func (m *SemanticMemory) Close() error {
	return m.db.Close()
}

// Nearest returns the stored classification most similar to the query
// embedding, if any entries exist.
func (m *SemanticMemory) Nearest(ctx context.Context, embedding []float32) (classify.MemoryMatch, bool, error) {
	if len(embedding) == 0 {
		return classify.MemoryMatch{}, false, nil
	}

	rows, err := m.db.QueryContext(ctx, `SELECT class_name, embedding FROM memory_entries`)
	if err != nil {
		return classify.MemoryMatch{}, false, fmt.Errorf("failed to query memory entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var best classify.MemoryMatch
	found := false

	for rows.Next() {
		var className, embeddingJSON string
		if err := rows.Scan(&className, &embeddingJSON); err != nil {
			return classify.MemoryMatch{}, false, fmt.Errorf("failed to scan memory entry: %w", err)
		}

		var stored []float32
		if err := json.Unmarshal([]byte(embeddingJSON), &stored); err != nil {
			m.logger.Warn("skipping memory entry with corrupt embedding", "class", className)
			continue
		}

		sim := CosineSimilarity(embedding, stored)
		if !found || sim > best.Similarity {
			best = classify.MemoryMatch{ClassName: className, Similarity: sim}
			found = true
		}
	}
	if err := rows.Err(); err != nil {
		return classify.MemoryMatch{}, false, err
	}

	return best, found, nil
}

// Store appends one confirmed classification. The insert is transactional:
// under cancellation it either commits fully or rolls back, never leaving a
// partial write behind.
func (m *SemanticMemory) Store(ctx context.Context, description string, embedding []float32, className string, source model.ClassificationSource) error {
	if description == "" || len(embedding) == 0 {
		return fmt.Errorf("memory entry requires a description and embedding")
	}

	embeddingJSON, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("failed to encode embedding: %w", err)
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin memory write: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO memory_entries (description, class_name, source, embedding, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(description) DO UPDATE SET
			class_name = excluded.class_name,
			source = excluded.source,
			embedding = excluded.embedding`,
		description, className, string(source), string(embeddingJSON), time.Now().UTC())
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to write memory entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit memory entry: %w", err)
	}
	return nil
}

// Count returns the number of stored entries.
func (m *SemanticMemory) Count(ctx context.Context) (int, error) {
	var n int
	err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_entries`).Scan(&n)
	return n, err
}

// CosineSimilarity computes the cosine similarity of two vectors. Vectors
// of different lengths or zero magnitude score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
