package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
)

// DeleteHook runs after a document is deleted, e.g. to drop its index record.
type DeleteHook func(ctx context.Context, id string) error

// SQLiteDocumentStore is a SQLite-backed DocumentStore with write access for
// the maintenance CLI.
type SQLiteDocumentStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	hooks  []DeleteHook
	closed bool
}

var _ DocumentStore = (*SQLiteDocumentStore)(nil)

// NewSQLiteDocumentStore opens (or creates) the document store at path.
// If path is empty, an in-memory store is created.
func NewSQLiteDocumentStore(path string) (*SQLiteDocumentStore, error) {
	db, err := openSQLite(path)
	if err != nil {
		return nil, docerrors.StoreError("open document store", err)
	}

	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS documents (
		id         TEXT PRIMARY KEY,
		title      TEXT NOT NULL,
		content    TEXT NOT NULL,
		author     TEXT,
		created_at INTEGER
	);
	`)
	if err != nil {
		_ = db.Close()
		return nil, docerrors.StoreError("initialize document schema", err)
	}

	return &SQLiteDocumentStore{db: db, path: path}, nil
}

// OnDelete registers a hook run after every successful Delete.
func (s *SQLiteDocumentStore) OnDelete(hook DeleteHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// Put inserts or replaces doc. A document without an id is assigned a new
// UUID, which is written back to doc.ID.
func (s *SQLiteDocumentStore) Put(ctx context.Context, doc *Document) error {
	if doc == nil {
		return docerrors.ValidationError("document is nil", nil)
	}
	if strings.TrimSpace(doc.Title) == "" && strings.TrimSpace(doc.Content) == "" {
		return docerrors.ValidationError("document needs a title or content", nil)
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return docerrors.StoreError("document store is closed", nil)
	}

	var author sql.NullString
	if doc.Author != "" {
		author = sql.NullString{String: doc.Author, Valid: true}
	}
	var createdAt sql.NullInt64
	if doc.CreatedAt != nil {
		createdAt = sql.NullInt64{Int64: doc.CreatedAt.UnixNano(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, title, content, author, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title      = excluded.title,
			content    = excluded.content,
			author     = excluded.author,
			created_at = excluded.created_at
	`, doc.ID, doc.Title, doc.Content, author, createdAt)
	if err != nil {
		return docerrors.StoreError("failed to write document", err).WithDetail("document_id", doc.ID)
	}
	return nil
}

// Delete removes the document and runs delete hooks. Deleting a missing
// document is a no-op.
func (s *SQLiteDocumentStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return docerrors.StoreError("document store is closed", nil)
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	hooks := append([]DeleteHook(nil), s.hooks...)
	s.mu.Unlock()

	if err != nil {
		return docerrors.StoreError("failed to delete document", err).WithDetail("document_id", id)
	}
	for _, hook := range hooks {
		if err := hook(ctx, id); err != nil {
			return fmt.Errorf("delete hook for %s: %w", id, err)
		}
	}
	return nil
}

// GetByID returns the document with id.
func (s *SQLiteDocumentStore) GetByID(ctx context.Context, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, docerrors.StoreError("document store is closed", nil)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, content, author, created_at FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, docerrors.NotFoundError(id)
	}
	if err != nil {
		return nil, docerrors.StoreError("failed to read document", err).WithDetail("document_id", id)
	}
	return doc, nil
}

// GetMany returns the existing documents among ids.
func (s *SQLiteDocumentStore) GetMany(ctx context.Context, ids []string) (map[string]*Document, error) {
	docs := make(map[string]*Document, len(ids))
	if len(ids) == 0 {
		return docs, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, docerrors.StoreError("document store is closed", nil)
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT id, title, content, author, created_at FROM documents WHERE id IN (%s)`,
		strings.Join(placeholders, ","))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, docerrors.StoreError("failed to read documents", err)
	}
	defer rows.Close()

	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, docerrors.StoreError("failed to scan document", err)
		}
		docs[doc.ID] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, docerrors.StoreError("failed to read documents", err)
	}
	return docs, nil
}

// ListAllIDs returns every document id in ascending order.
func (s *SQLiteDocumentStore) ListAllIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, docerrors.StoreError("document store is closed", nil)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM documents ORDER BY id`)
	if err != nil {
		return nil, docerrors.StoreError("failed to list documents", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, docerrors.StoreError("failed to scan document id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, docerrors.StoreError("failed to list documents", err)
	}
	return ids, nil
}

// Count returns the number of documents.
func (s *SQLiteDocumentStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, docerrors.StoreError("document store is closed", nil)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, docerrors.StoreError("failed to count documents", err)
	}
	return n, nil
}

// Close closes the database. Idempotent.
func (s *SQLiteDocumentStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.path != "" {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	}
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var (
		doc       Document
		author    sql.NullString
		createdAt sql.NullInt64
	)
	if err := row.Scan(&doc.ID, &doc.Title, &doc.Content, &author, &createdAt); err != nil {
		return nil, err
	}
	doc.Author = author.String
	if createdAt.Valid {
		t := time.Unix(0, createdAt.Int64).UTC()
		doc.CreatedAt = &t
	}
	return &doc, nil
}
