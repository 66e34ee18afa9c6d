// Package sqlitevec implements the vector store on SQLite with the
// sqlite-vec extension. Chunk text and metadata live in a plain table;
// embeddings live in a vec0 virtual table keyed by the same rowid, and
// KNN queries join the two.
package sqlitevec

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3" // SQLite driver with extension support

	"github.com/custodia-labs/khub-cli/internal/core/domain"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driven"
)

func init() {
	sqlite_vec.Auto()
}

// overfetchFactor widens filtered KNN queries: the vec0 MATCH limit
// applies before the metadata filter, so a filtered query needs more
// raw neighbours to fill topK.
const overfetchFactor = 4

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Store is the sqlite-vec backed chunk collection. It is opened with a
// fixed embedding dimension; vectors of any other length are rejected.
type Store struct {
	db         *sql.DB
	path       string
	dimensions int
}

// Open creates or opens the vector database at the given path with the
// given embedding dimension. An existing collection created with a
// different dimension fails with domain.ErrDimensionMismatch.
func Open(path string, dimensions int) (*Store, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive, got %d", domain.ErrInvalidInput, dimensions)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("creating vector data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening vector database: %w", err)
	}

	s := &Store{db: db, path: path, dimensions: dimensions}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS chunks (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			key         TEXT NOT NULL UNIQUE,
			document_id TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			text        TEXT NOT NULL,
			page        INTEGER NOT NULL DEFAULT 0,
			folder      TEXT NOT NULL DEFAULT '',
			filename    TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);

		CREATE TABLE IF NOT EXISTS collection_meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating chunk tables: %w", err)
	}

	// The vec0 dimension is baked into the virtual table. Record it so
	// reopening with a different one fails instead of corrupting.
	var stored string
	err = s.db.QueryRow("SELECT value FROM collection_meta WHERE key = 'dimensions'").Scan(&stored)
	switch {
	case err == sql.ErrNoRows:
		if _, err := s.db.Exec(
			"INSERT INTO collection_meta (key, value) VALUES ('dimensions', ?)",
			fmt.Sprintf("%d", s.dimensions)); err != nil {
			return fmt.Errorf("recording collection dimension: %w", err)
		}
	case err != nil:
		return fmt.Errorf("reading collection dimension: %w", err)
	default:
		if stored != fmt.Sprintf("%d", s.dimensions) {
			return fmt.Errorf("%w: collection has dimension %s, configured %d",
				domain.ErrDimensionMismatch, stored, s.dimensions)
		}
	}

	_, err = s.db.Exec(fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(
			chunk_id INTEGER PRIMARY KEY,
			embedding float[%d]
		)
	`, s.dimensions))
	if err != nil {
		return fmt.Errorf("creating vector table: %w", err)
	}

	return nil
}

// Upsert replaces the document's entire chunk set in one transaction.
func (s *Store) Upsert(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	for _, chunk := range chunks {
		if len(chunk.Embedding) != s.dimensions {
			return fmt.Errorf("%w: chunk %s has %d dimensions, collection expects %d",
				domain.ErrDimensionMismatch, chunk.Key(), len(chunk.Embedding), s.dimensions)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := deleteDocumentTx(ctx, tx, documentID); err != nil {
		return err
	}

	chunkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (key, document_id, chunk_index, text, page, folder, filename)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer chunkStmt.Close()

	vecStmt, err := tx.PrepareContext(ctx, "INSERT INTO vec_chunks (chunk_id, embedding) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("preparing vector insert: %w", err)
	}
	defer vecStmt.Close()

	for _, chunk := range chunks {
		res, err := chunkStmt.ExecContext(ctx, chunk.Key(), documentID, chunk.Index,
			chunk.Text, chunk.Page, chunk.Folder, chunk.Filename)
		if err != nil {
			return fmt.Errorf("inserting chunk %s: %w", chunk.Key(), err)
		}
		rowID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading chunk rowid: %w", err)
		}

		blob, err := sqlite_vec.SerializeFloat32(chunk.Embedding)
		if err != nil {
			return fmt.Errorf("serialising embedding for %s: %w", chunk.Key(), err)
		}
		if _, err := vecStmt.ExecContext(ctx, rowID, blob); err != nil {
			return fmt.Errorf("inserting embedding for %s: %w", chunk.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Query returns up to topK nearest neighbours in ascending distance
// order, with the filter applied before the limit.
func (s *Store) Query(ctx context.Context, vector []float32, topK int, filter driven.VectorFilter) ([]driven.VectorHit, error) {
	if len(vector) != s.dimensions {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, collection expects %d",
			domain.ErrDimensionMismatch, len(vector), s.dimensions)
	}
	if topK <= 0 {
		return nil, nil
	}

	blob, err := sqlite_vec.SerializeFloat32(vector)
	if err != nil {
		return nil, fmt.Errorf("serialising query vector: %w", err)
	}

	// The MATCH limit runs before the metadata filter, so filtered
	// queries over-fetch to keep topK fillable.
	knnLimit := topK
	where := ""
	var filterArgs []any
	if !filter.Empty() {
		knnLimit = topK * overfetchFactor

		var conds []string
		if len(filter.Folders) > 0 {
			conds = append(conds, "c.folder IN ("+placeholders(len(filter.Folders))+")")
			for _, folder := range filter.Folders {
				filterArgs = append(filterArgs, folder)
			}
		}
		if len(filter.DocumentIDs) > 0 {
			conds = append(conds, "c.document_id IN ("+placeholders(len(filter.DocumentIDs))+")")
			for _, id := range filter.DocumentIDs {
				filterArgs = append(filterArgs, id)
			}
		}
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT c.key, c.document_id, c.chunk_index, c.text, c.page, c.folder, c.filename, v.distance
		FROM (
			SELECT chunk_id, distance FROM vec_chunks
			WHERE embedding MATCH ?
			ORDER BY distance LIMIT ?
		) v
		JOIN chunks c ON c.id = v.chunk_id%s
		ORDER BY v.distance
		LIMIT ?
	`, where)

	args := make([]any, 0, len(filterArgs)+3)
	args = append(args, blob, knnLimit)
	args = append(args, filterArgs...)
	args = append(args, topK)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var hits []driven.VectorHit //nolint:prealloc // size unknown from query
	for rows.Next() {
		var hit driven.VectorHit
		if err := rows.Scan(&hit.ChunkID, &hit.DocumentID, &hit.ChunkIndex, &hit.Text,
			&hit.Page, &hit.Folder, &hit.Filename, &hit.Distance); err != nil {
			return nil, fmt.Errorf("scanning hit: %w", err)
		}
		hit.Score = 1.0 / (1.0 + hit.Distance)
		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating hits: %w", err)
	}
	return hits, nil
}

// Delete removes all chunks for a document. Idempotent.
func (s *Store) Delete(ctx context.Context, documentID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := deleteDocumentTx(ctx, tx, documentID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// DocumentChunks returns a document's chunks in ordinal order, without
// embeddings.
func (s *Store) DocumentChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, chunk_index, text, page, folder, filename
		FROM chunks WHERE document_id = ?
		ORDER BY chunk_index
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying document chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var chunk domain.Chunk
		if err := rows.Scan(&chunk.DocumentID, &chunk.Index, &chunk.Text,
			&chunk.Page, &chunk.Folder, &chunk.Filename); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// Count returns the total number of chunks in the collection.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}

// Dimensions returns the collection's fixed embedding dimension.
func (s *Store) Dimensions() int {
	return s.dimensions
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// deleteDocumentTx removes a document's chunk rows and vectors inside
// an open transaction.
func deleteDocumentTx(ctx context.Context, tx *sql.Tx, documentID string) error {
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM vec_chunks WHERE chunk_id IN (SELECT id FROM chunks WHERE document_id = ?)",
		documentID); err != nil {
		return fmt.Errorf("deleting vectors: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM chunks WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

// placeholders builds a comma-separated "?" list of length n.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
