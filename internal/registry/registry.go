// Package registry tracks which document identifiers exist in the index,
// backed by a small SQLite database. Search itself filters purely on the
// metadata stamped into index records; the registry exists so callers can
// list documents and pin a question to one of them.
package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/askdoc/askdoc/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id          TEXT PRIMARY KEY,
	filename    TEXT NOT NULL,
	chunk_count INTEGER NOT NULL,
	created_at  INTEGER NOT NULL
);`

// Store is the SQLite-backed document registry.
type Store struct {
	db   *sql.DB
	path string
}

// New opens (or creates) the registry database under dataDir.
func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "registry.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open registry database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create registry schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Ping checks registry availability.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Record stores one entry for a successfully ingested document.
// Re-ingestion under the same id replaces the entry and accumulates the
// chunk count, mirroring the append-only index.
func (s *Store) Record(ctx context.Context, info domain.DocumentInfo) error {
	createdAt := info.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, filename, chunk_count, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename    = excluded.filename,
			chunk_count = documents.chunk_count + excluded.chunk_count`,
		info.ID, info.Filename, info.ChunkCount, createdAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("record document %s: %w", info.ID, err)
	}
	return nil
}

// Get returns the registry entry for id, or domain.ErrDocumentNotFound.
func (s *Store) Get(ctx context.Context, id string) (domain.DocumentInfo, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, filename, chunk_count, created_at FROM documents WHERE id = ?`, id)

	info, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DocumentInfo{}, fmt.Errorf("document %s: %w", id, domain.ErrDocumentNotFound)
	}
	if err != nil {
		return domain.DocumentInfo{}, fmt.Errorf("get document %s: %w", id, err)
	}
	return info, nil
}

// List returns all registered documents, oldest first.
func (s *Store) List(ctx context.Context) ([]domain.DocumentInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, chunk_count, created_at FROM documents ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.DocumentInfo
	for rows.Next() {
		info, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// Count returns the number of registered documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (domain.DocumentInfo, error) {
	var info domain.DocumentInfo
	var createdAt int64
	if err := row.Scan(&info.ID, &info.Filename, &info.ChunkCount, &createdAt); err != nil {
		return domain.DocumentInfo{}, err
	}
	info.CreatedAt = time.Unix(createdAt, 0).UTC()
	return info, nil
}
