package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/khub-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/khub-cli/internal/core/domain"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driven"
)

// Store is the SQLite-backed ledger that provides access to the
// document and job store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a ledger store at the specified data directory.
// If dataDir is empty, defaults to ~/.khub/data/ledger.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".khub", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "ledger.db")

	// WAL mode so the job engine and API readers do not block each other
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// JobStore returns a JobStore interface backed by this store.
func (s *Store) JobStore() driven.JobStore {
	return &jobStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}

		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// Save inserts or updates a document keyed by filepath. A re-scan of
// an existing path refreshes size and metadata but leaves the
// lifecycle status untouched.
func (s *documentStore) Save(ctx context.Context, doc *domain.Document) error {
	if doc.ID == "" || doc.Filepath == "" {
		return domain.ErrInvalidInput
	}

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	if doc.Status == "" {
		doc.Status = domain.StatusPending
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO documents (id, filename, filepath, folder, type, size_bytes, status, chunks_count, metadata, created_at, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(filepath) DO UPDATE SET
			filename = excluded.filename,
			folder = excluded.folder,
			type = excluded.type,
			size_bytes = excluded.size_bytes,
			metadata = excluded.metadata
	`, doc.ID, doc.Filename, doc.Filepath, doc.Folder, string(doc.Type),
		doc.SizeBytes, string(doc.Status), doc.ChunksCount, string(metadataJSON),
		doc.CreatedAt, nullTime(doc.IndexedAt))

	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// Get retrieves a document by ID.
func (s *documentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, filename, filepath, folder, type, size_bytes, status, chunks_count, metadata, created_at, indexed_at
		FROM documents WHERE id = ?
	`, id)

	doc, err := scanDocument(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadTags(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// GetByPath retrieves a document by its unique filepath.
func (s *documentStore) GetByPath(ctx context.Context, path string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, filename, filepath, folder, type, size_bytes, status, chunks_count, metadata, created_at, indexed_at
		FROM documents WHERE filepath = ?
	`, path)

	doc, err := scanDocument(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadTags(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// List returns documents matching the filter and the total match count
// before Limit/Offset.
func (s *documentStore) List(ctx context.Context, filter driven.DocumentFilter) ([]domain.Document, int, error) {
	where, args := buildDocumentWhere(filter)

	var total int
	countQuery := "SELECT COUNT(DISTINCT d.id) FROM documents d" + where
	if err := s.store.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting documents: %w", err)
	}

	query := `
		SELECT DISTINCT d.id, d.filename, d.filepath, d.folder, d.type, d.size_bytes, d.status, d.chunks_count, d.metadata, d.created_at, d.indexed_at
		FROM documents d` + where + " ORDER BY d.filepath"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, filter.Offset)
	} else if filter.Offset > 0 {
		query += fmt.Sprintf(" LIMIT -1 OFFSET %d", filter.Offset)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocumentRows(rows)
		if err != nil {
			return nil, 0, err
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating documents: %w", err)
	}

	if err := s.loadTagsBatch(ctx, docs); err != nil {
		return nil, 0, err
	}

	return docs, total, nil
}

// UpdateStatus sets the lifecycle status.
func (s *documentStore) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus) error {
	res, err := s.store.db.ExecContext(ctx,
		"UPDATE documents SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return fmt.Errorf("updating status: %w", err)
	}
	return requireRow(res)
}

// MarkIndexed records a successful index in one write.
func (s *documentStore) MarkIndexed(ctx context.Context, id string, chunks int, at time.Time) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE documents SET status = ?, chunks_count = ?, indexed_at = ?
		WHERE id = ?
	`, string(domain.StatusIndexed), chunks, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("marking indexed: %w", err)
	}
	return requireRow(res)
}

// SetTags replaces the document's tag set.
func (s *documentStore) SetTags(ctx context.Context, id string, tags []string) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM documents WHERE id = ?", id).Scan(&exists); err != nil {
		return fmt.Errorf("checking document: %w", err)
	}
	if exists == 0 {
		return domain.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM document_tags WHERE document_id = ?", id); err != nil {
		return fmt.Errorf("clearing tags: %w", err)
	}

	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO document_tags (document_id, tag) VALUES (?, ?)", id, tag); err != nil {
			return fmt.Errorf("inserting tag: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ListTags returns all tags with usage counts.
func (s *documentStore) ListTags(ctx context.Context) ([]driven.TagCount, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT tag, COUNT(*) FROM document_tags
		GROUP BY tag ORDER BY COUNT(*) DESC, tag
	`)
	if err != nil {
		return nil, fmt.Errorf("querying tags: %w", err)
	}
	defer rows.Close()

	var tags []driven.TagCount //nolint:prealloc // size unknown from query
	for rows.Next() {
		var tc driven.TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, fmt.Errorf("scanning tag: %w", err)
		}
		tags = append(tags, tc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tags: %w", err)
	}
	return tags, nil
}

// Folders returns per-folder document statistics.
func (s *documentStore) Folders(ctx context.Context) ([]driven.FolderStat, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT folder, COUNT(*),
			SUM(CASE WHEN status = 'indexed' THEN 1 ELSE 0 END)
		FROM documents GROUP BY folder ORDER BY folder
	`)
	if err != nil {
		return nil, fmt.Errorf("querying folders: %w", err)
	}
	defer rows.Close()

	var folders []driven.FolderStat //nolint:prealloc // size unknown from query
	for rows.Next() {
		var fs driven.FolderStat
		if err := rows.Scan(&fs.Name, &fs.Count, &fs.Indexed); err != nil {
			return nil, fmt.Errorf("scanning folder: %w", err)
		}
		folders = append(folders, fs)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating folders: %w", err)
	}
	return folders, nil
}

// CountByStatus returns document counts per lifecycle state.
func (s *documentStore) CountByStatus(ctx context.Context) (map[domain.DocumentStatus]int, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM documents GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("querying status counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.DocumentStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		counts[domain.DocumentStatus(status)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating status counts: %w", err)
	}
	return counts, nil
}

// Delete removes a document record. Absent documents are a no-op.
func (s *documentStore) Delete(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// loadTags populates a single document's tags.
func (s *documentStore) loadTags(ctx context.Context, doc *domain.Document) error {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT tag FROM document_tags WHERE document_id = ? ORDER BY tag", doc.ID)
	if err != nil {
		return fmt.Errorf("querying document tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return fmt.Errorf("scanning document tag: %w", err)
		}
		doc.Tags = append(doc.Tags, tag)
	}
	return rows.Err()
}

// loadTagsBatch populates tags for a page of documents in one query.
func (s *documentStore) loadTagsBatch(ctx context.Context, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}

	index := make(map[string]*domain.Document, len(docs))
	placeholders := make([]string, 0, len(docs))
	args := make([]any, 0, len(docs))
	for i := range docs {
		index[docs[i].ID] = &docs[i]
		placeholders = append(placeholders, "?")
		args = append(args, docs[i].ID)
	}

	query := fmt.Sprintf(
		"SELECT document_id, tag FROM document_tags WHERE document_id IN (%s) ORDER BY tag",
		strings.Join(placeholders, ","))

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("querying tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var docID, tag string
		if err := rows.Scan(&docID, &tag); err != nil {
			return fmt.Errorf("scanning tag: %w", err)
		}
		if doc, ok := index[docID]; ok {
			doc.Tags = append(doc.Tags, tag)
		}
	}
	return rows.Err()
}

// buildDocumentWhere translates a filter into a WHERE clause. The tag
// filter joins through document_tags.
func buildDocumentWhere(filter driven.DocumentFilter) (string, []any) {
	var conds []string
	var args []any

	if filter.Tag != "" {
		conds = append(conds, "d.id IN (SELECT document_id FROM document_tags WHERE tag = ?)")
		args = append(args, filter.Tag)
	}
	if filter.Folder != "" {
		conds = append(conds, "d.folder = ?")
		args = append(args, filter.Folder)
	}
	if filter.Status != "" {
		conds = append(conds, "d.status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Type != "" {
		conds = append(conds, "d.type = ?")
		args = append(args, string(filter.Type))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ==================== Job Store ====================

// jobStore implements driven.JobStore.
type jobStore struct {
	store *Store
}

var _ driven.JobStore = (*jobStore)(nil)

// Begin atomically resumes the most recent non-terminal job, or
// creates the given one with status processing. The check-and-set runs
// in one transaction so two concurrent starts cannot both create.
func (s *jobStore) Begin(ctx context.Context, job domain.IndexJob) (*domain.IndexJob, bool, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	row := tx.QueryRowContext(ctx, `
		SELECT id, status, total_files, processed_files, failed_files, errors, started_at, finished_at
		FROM index_jobs WHERE status IN (?, ?)
		ORDER BY started_at DESC LIMIT 1
	`, string(domain.JobPending), string(domain.JobProcessing))

	existing, err := scanJob(row)
	switch {
	case err == nil:
		existing.Status = domain.JobProcessing
		if _, err := tx.ExecContext(ctx,
			"UPDATE index_jobs SET status = ? WHERE id = ?",
			string(domain.JobProcessing), existing.ID); err != nil {
			return nil, false, fmt.Errorf("resuming job: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("committing transaction: %w", err)
		}
		return existing, true, nil

	case errors.Is(err, domain.ErrNotFound):
		job.Status = domain.JobProcessing
		if job.StartedAt.IsZero() {
			job.StartedAt = time.Now().UTC()
		}
		errorsJSON, err := json.Marshal(job.Errors)
		if err != nil {
			return nil, false, fmt.Errorf("marshalling job errors: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO index_jobs (id, status, total_files, processed_files, failed_files, errors, started_at, finished_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, job.ID, string(job.Status), job.TotalFiles, job.ProcessedFiles,
			job.FailedFiles, string(errorsJSON), job.StartedAt, nullTime(job.FinishedAt)); err != nil {
			return nil, false, fmt.Errorf("creating job: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("committing transaction: %w", err)
		}
		return &job, false, nil

	default:
		return nil, false, err
	}
}

// Update writes the job's counters, status, error log and finished
// timestamp.
func (s *jobStore) Update(ctx context.Context, job *domain.IndexJob) error {
	errorsJSON, err := json.Marshal(job.Errors)
	if err != nil {
		return fmt.Errorf("marshalling job errors: %w", err)
	}

	res, err := s.store.db.ExecContext(ctx, `
		UPDATE index_jobs SET
			status = ?,
			total_files = ?,
			processed_files = ?,
			failed_files = ?,
			errors = ?,
			finished_at = ?
		WHERE id = ?
	`, string(job.Status), job.TotalFiles, job.ProcessedFiles, job.FailedFiles,
		string(errorsJSON), nullTime(job.FinishedAt), job.ID)
	if err != nil {
		return fmt.Errorf("updating job: %w", err)
	}
	return requireRow(res)
}

// Get retrieves a job by ID.
func (s *jobStore) Get(ctx context.Context, id string) (*domain.IndexJob, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, status, total_files, processed_files, failed_files, errors, started_at, finished_at
		FROM index_jobs WHERE id = ?
	`, id)

	return scanJob(row)
}

// Latest returns the most recently started job.
func (s *jobStore) Latest(ctx context.Context) (*domain.IndexJob, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, status, total_files, processed_files, failed_files, errors, started_at, finished_at
		FROM index_jobs ORDER BY started_at DESC LIMIT 1
	`)

	return scanJob(row)
}

// ==================== Helper Functions ====================

// requireRow maps zero affected rows to ErrNotFound.
func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// nullTime converts an optional timestamp for storage.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// scanDocument scans a single document row.
func scanDocument(row *sql.Row) (*domain.Document, error) {
	var doc domain.Document
	var fileType, status, metadataJSON string
	var indexedAt sql.NullTime

	if err := row.Scan(&doc.ID, &doc.Filename, &doc.Filepath, &doc.Folder, &fileType,
		&doc.SizeBytes, &status, &doc.ChunksCount, &metadataJSON, &doc.CreatedAt, &indexedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.Type = domain.FileType(fileType)
	doc.Status = domain.DocumentStatus(status)
	if indexedAt.Valid {
		doc.IndexedAt = &indexedAt.Time
	}

	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}

	return &doc, nil
}

// scanDocumentRows scans a document from *sql.Rows.
func scanDocumentRows(rows *sql.Rows) (*domain.Document, error) {
	var doc domain.Document
	var fileType, status, metadataJSON string
	var indexedAt sql.NullTime

	if err := rows.Scan(&doc.ID, &doc.Filename, &doc.Filepath, &doc.Folder, &fileType,
		&doc.SizeBytes, &status, &doc.ChunksCount, &metadataJSON, &doc.CreatedAt, &indexedAt); err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.Type = domain.FileType(fileType)
	doc.Status = domain.DocumentStatus(status)
	if indexedAt.Valid {
		doc.IndexedAt = &indexedAt.Time
	}

	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}

	return &doc, nil
}

// scanJob scans a single job row.
func scanJob(row *sql.Row) (*domain.IndexJob, error) {
	var job domain.IndexJob
	var status, errorsJSON string
	var finishedAt sql.NullTime

	if err := row.Scan(&job.ID, &status, &job.TotalFiles, &job.ProcessedFiles,
		&job.FailedFiles, &errorsJSON, &job.StartedAt, &finishedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning job: %w", err)
	}

	job.Status = domain.JobStatus(status)
	if finishedAt.Valid {
		job.FinishedAt = &finishedAt.Time
	}

	if errorsJSON != "" {
		if err := json.Unmarshal([]byte(errorsJSON), &job.Errors); err != nil {
			return nil, fmt.Errorf("unmarshaling job errors: %w", err)
		}
	}

	return &job, nil
}
