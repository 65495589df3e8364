// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package refindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/review-engine/pkg/types"
)

const dbFile = "review.db"

// Cache persists a built Index in SQLite so unchanged corpora load without
// re-embedding. The stored corpus hash is the invalidation key: a mismatch
// means the corpus changed and the cached index is stale.
type Cache struct {
	db *sql.DB
}

// OpenCache opens or creates the index database at indexDir/review.db.
func OpenCache(indexDir string) (*Cache, error) {
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(indexDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening index database: %w", err)
	}

	c := &Cache{db: db}
	if err := c.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return c, nil
}

// Close releases the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS corpus_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id INTEGER PRIMARY KEY,
			source TEXT NOT NULL,
			text TEXT NOT NULL,
			vector TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS vocab (
			idx INTEGER PRIMARY KEY,
			term TEXT NOT NULL,
			idf REAL NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := c.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Load returns the cached index if its stored corpus hash equals hash.
// A miss (no cache or stale hash) returns nil with no error.
func (c *Cache) Load(ctx context.Context, hash string) (*Index, error) {
	var stored string
	err := c.db.QueryRowContext(ctx,
		`SELECT value FROM corpus_meta WHERE key = 'hash'`).Scan(&stored)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading corpus hash: %w", err)
	}
	if stored != hash {
		return nil, nil
	}

	emb := &embedder{vocab: make(map[string]int)}
	rows, err := c.db.QueryContext(ctx, `SELECT idx, term, idf FROM vocab ORDER BY idx`)
	if err != nil {
		return nil, fmt.Errorf("reading vocabulary: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			idx  int
			term string
			idf  float64
		)
		if err := rows.Scan(&idx, &term, &idf); err != nil {
			return nil, fmt.Errorf("scanning vocabulary row: %w", err)
		}
		emb.vocab[term] = idx
		emb.idf = append(emb.idf, idf)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	idxObj := &Index{emb: emb, hash: hash}
	chunkRows, err := c.db.QueryContext(ctx, `SELECT id, source, text, vector FROM chunks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("reading chunks: %w", err)
	}
	defer chunkRows.Close()
	for chunkRows.Next() {
		var (
			id         int
			source     string
			text       string
			vectorJSON string
		)
		if err := chunkRows.Scan(&id, &source, &text, &vectorJSON); err != nil {
			return nil, fmt.Errorf("scanning chunk row: %w", err)
		}
		var vec []float64
		if err := json.Unmarshal([]byte(vectorJSON), &vec); err != nil {
			return nil, fmt.Errorf("parsing chunk %d vector: %w", id, err)
		}
		idxObj.chunks = append(idxObj.chunks, types.ReferenceChunk{ID: id, Source: source, Text: text})
		idxObj.vectors = append(idxObj.vectors, vec)
	}
	if err := chunkRows.Err(); err != nil {
		return nil, err
	}

	return idxObj, nil
}

// Save replaces the cached index with idx in one transaction.
func (c *Cache) Save(ctx context.Context, idx *Index) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"chunks", "vocab", "corpus_meta"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	chunkStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, source, text, vector) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer chunkStmt.Close()

	for i, chunk := range idx.chunks {
		vectorJSON, err := json.Marshal(idx.vectors[i])
		if err != nil {
			return fmt.Errorf("encoding chunk %d vector: %w", chunk.ID, err)
		}
		if _, err := chunkStmt.ExecContext(ctx, chunk.ID, chunk.Source, chunk.Text, string(vectorJSON)); err != nil {
			return fmt.Errorf("inserting chunk %d: %w", chunk.ID, err)
		}
	}

	vocabStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO vocab (idx, term, idf) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing vocab insert: %w", err)
	}
	defer vocabStmt.Close()

	for term, i := range idx.emb.vocab {
		if _, err := vocabStmt.ExecContext(ctx, i, term, idx.emb.idf[i]); err != nil {
			return fmt.Errorf("inserting term %q: %w", term, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO corpus_meta (key, value) VALUES ('hash', ?)`, idx.hash); err != nil {
		return fmt.Errorf("storing corpus hash: %w", err)
	}

	return tx.Commit()
}

// Ensure returns an index for the corpus in referenceDir, loading from the
// cache when the corpus is unchanged and rebuilding (and re-caching)
// otherwise. Progress lines go to w.
func Ensure(ctx context.Context, referenceDir, indexDir string, w io.Writer) (*Index, error) {
	hash, err := HashDir(referenceDir)
	if err != nil {
		return nil, err
	}

	cache, err := OpenCache(indexDir)
	if err != nil {
		return nil, err
	}
	defer cache.Close()

	if idx, err := cache.Load(ctx, hash); err != nil {
		fmt.Fprintf(w, "warning: index cache unreadable, rebuilding: %v\n", err)
	} else if idx != nil {
		fmt.Fprintf(w, "reference index loaded from cache (%d chunks)\n", idx.Len())
		return idx, nil
	}

	idx, err := Build(referenceDir)
	if err != nil {
		return nil, err
	}
	if err := cache.Save(ctx, idx); err != nil {
		fmt.Fprintf(w, "warning: index cache write failed: %v\n", err)
	}
	fmt.Fprintf(w, "reference index built (%d chunks)\n", idx.Len())
	return idx, nil
}
