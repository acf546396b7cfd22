package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
)

// IndexStoreConfig configures a SQLiteIndexStore.
type IndexStoreConfig struct {
	// Dimensions is the embedding dimension every record must have.
	Dimensions int

	// VectorBackend selects the semantic index (default flat).
	VectorBackend VectorBackend

	// SimilarityThreshold for fuzzy title matching (default 0.3).
	SimilarityThreshold float64

	// Logger for store events. Defaults to slog.Default().
	Logger *slog.Logger
}

// SQLiteIndexStore implements IndexStore on SQLite FTS5 plus an in-memory
// vector index rebuilt from stored embeddings on open.
//
// Writes hold mu exclusively across the SQL transaction and the vector index
// update, so readers never observe a record whose text and vector disagree.
type SQLiteIndexStore struct {
	mu      sync.RWMutex
	db      *sql.DB
	path    string
	config  IndexStoreConfig
	vectors VectorIndex
	logger  *slog.Logger
	now     func() time.Time
	closed  bool
}

var _ IndexStore = (*SQLiteIndexStore)(nil)

// validateSQLiteIntegrity checks an existing index database before opening.
// Returns nil if valid or absent, an error describing the corruption if not.
func validateSQLiteIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}

	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master
                       WHERE type='table' AND name IN ('index_records', 'title_fts', 'body_fts')`).Scan(&count)
	if err != nil {
		return fmt.Errorf("cannot query schema: %w", err)
	}
	if count != 0 && count != 3 {
		return fmt.Errorf("index schema incomplete (%d of 3 tables)", count)
	}
	return nil
}

// openSQLite opens a database with the connection settings shared by the
// index and document stores. An empty path opens an in-memory database.
func openSQLite(path string) (*sql.DB, error) {
	dsn := ":memory:"
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection: one writer, and ":memory:" stays one database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// modernc.org/sqlite may ignore DSN params, so set pragmas explicitly.
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -65536",
		"PRAGMA temp_store = MEMORY",
	}
	if path != "" {
		pragmas = append([]string{"PRAGMA journal_mode = WAL"}, pragmas...)
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	return db, nil
}

// NewSQLiteIndexStore opens (or creates) the index store at path.
// If path is empty, an in-memory store is created.
// A corrupted index file is removed and recreated empty; run a reindex to
// repopulate it.
func NewSQLiteIndexStore(path string, cfg IndexStoreConfig) (*SQLiteIndexStore, error) {
	if cfg.Dimensions <= 0 {
		return nil, docerrors.ConfigError("index store dimensions must be positive", nil)
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = DefaultSimilarityThreshold
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if path != "" {
		if validErr := validateSQLiteIntegrity(path); validErr != nil {
			logger.Warn("index_store_corrupted",
				slog.String("path", path),
				slog.String("error", validErr.Error()))

			if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
				return nil, docerrors.New(docerrors.ErrCodeCorruptIndex,
					fmt.Sprintf("index corrupted at %s and cannot be removed", path), removeErr).
					WithSuggestion("Delete the index file manually and run 'docsearch reindex'")
			}
			_ = os.Remove(path + "-wal")
			_ = os.Remove(path + "-shm")

			logger.Info("index_store_cleared",
				slog.String("path", path),
				slog.String("reason", "corruption detected, please reindex"))
		}
	}

	vectors, err := NewVectorIndex(cfg.VectorBackend, cfg.Dimensions)
	if err != nil {
		return nil, docerrors.ConfigError("invalid vector backend", err)
	}

	db, err := openSQLite(path)
	if err != nil {
		return nil, docerrors.StoreError("open index store", err)
	}

	s := &SQLiteIndexStore{
		db:      db,
		path:    path,
		config:  cfg,
		vectors: vectors,
		logger:  logger,
		now:     time.Now,
	}

	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, docerrors.StoreError("initialize index schema", err)
	}
	if err := s.loadVectors(context.Background()); err != nil {
		_ = db.Close()
		return nil, docerrors.StoreError("load embeddings", err)
	}

	return s, nil
}

// initSchema creates the record table and the two FTS5 tables.
func (s *SQLiteIndexStore) initSchema() error {
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS index_records (
		document_id            TEXT PRIMARY KEY,
		title_index            TEXT NOT NULL,
		body_index             TEXT NOT NULL,
		title_trigram_text     TEXT NOT NULL,
		embedding              BLOB NOT NULL,
		created_at             INTEGER NOT NULL,
		updated_at             INTEGER NOT NULL,
		view_count             INTEGER NOT NULL DEFAULT 0,
		user_interaction_score INTEGER NOT NULL DEFAULT 0
	);

	-- document_id is UNINDEXED (stored but not searchable)
	CREATE VIRTUAL TABLE IF NOT EXISTS title_fts USING fts5(
		document_id UNINDEXED,
		content,
		tokenize='%[1]s'
	);

	CREATE VIRTUAL TABLE IF NOT EXISTS body_fts USING fts5(
		document_id UNINDEXED,
		content,
		tokenize='%[1]s'
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`, FTSTokenizer)

	_, err := s.db.Exec(schema)
	return err
}

// loadVectors rebuilds the vector index from stored embeddings.
func (s *SQLiteIndexStore) loadVectors(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT document_id, embedding FROM index_records`)
	if err != nil {
		return err
	}
	defer rows.Close()

	loaded, skipped := 0, 0
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return err
		}
		vec, err := DecodeEmbedding(blob)
		if err != nil || len(vec) != s.config.Dimensions {
			s.logger.Warn("index_record_embedding_skipped",
				slog.String("document_id", id),
				slog.Int("dimensions", len(vec)))
			skipped++
			continue
		}
		if isZeroVector(vec) {
			continue
		}
		if err := s.vectors.Upsert(id, vec); err != nil {
			return err
		}
		loaded++
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if loaded > 0 || skipped > 0 {
		s.logger.Debug("vector_index_loaded",
			slog.Int("vectors", loaded),
			slog.Int("skipped", skipped))
	}
	return nil
}

// EncodeEmbedding serializes a vector as little-endian float32s.
func EncodeEmbedding(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

// DecodeEmbedding deserializes a vector written by EncodeEmbedding.
func DecodeEmbedding(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return vec, nil
}

func (s *SQLiteIndexStore) checkOpen() error {
	if s.closed {
		return docerrors.StoreError("index store is closed", nil)
	}
	return nil
}

// SearchTitle runs a conjunctive full-text query against titles.
func (s *SQLiteIndexStore) SearchTitle(ctx context.Context, tokens []string, limit int) ([]string, error) {
	return s.searchFTS(ctx, "title_fts", tokens, limit)
}

// SearchBody runs a conjunctive full-text query against bodies.
func (s *SQLiteIndexStore) SearchBody(ctx context.Context, tokens []string, limit int) ([]string, error) {
	return s.searchFTS(ctx, "body_fts", tokens, limit)
}

func (s *SQLiteIndexStore) searchFTS(ctx context.Context, table string, tokens []string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	match := BuildMatchQuery(tokens)
	if match == "" || limit <= 0 {
		return []string{}, nil
	}

	// bm25() is negative, lower = better, so ascending order is best first.
	query := fmt.Sprintf(`
		SELECT document_id
		FROM %[1]s
		WHERE %[1]s MATCH ?
		ORDER BY bm25(%[1]s), document_id
		LIMIT ?
	`, table)

	rows, err := s.db.QueryContext(ctx, query, match, limit)
	if err != nil {
		return nil, docerrors.StoreError(table+" search failed", err)
	}
	defer rows.Close()

	ids := make([]string, 0, limit)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, docerrors.StoreError("failed to scan result", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, docerrors.StoreError(table+" search failed", err)
	}
	return ids, nil
}

// SearchFuzzy scores every record title by trigram similarity to query.
func (s *SQLiteIndexStore) SearchFuzzy(ctx context.Context, query string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	queryTrigrams := Trigrams(query)
	if len(queryTrigrams) == 0 || limit <= 0 {
		return []string{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT document_id, title_trigram_text FROM index_records`)
	if err != nil {
		return nil, docerrors.StoreError("fuzzy search failed", err)
	}
	defer rows.Close()

	type scored struct {
		id  string
		sim float64
	}
	var matches []scored
	for rows.Next() {
		var id, title string
		if err := rows.Scan(&id, &title); err != nil {
			return nil, docerrors.StoreError("failed to scan result", err)
		}
		if sim := trigramSetSimilarity(queryTrigrams, Trigrams(title)); sim > s.config.SimilarityThreshold {
			matches = append(matches, scored{id: id, sim: sim})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, docerrors.StoreError("fuzzy search failed", err)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].sim != matches[j].sim {
			return matches[i].sim > matches[j].sim
		}
		return matches[i].id < matches[j].id
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.id
	}
	return ids, nil
}

// SearchSemantic returns the records nearest to embedding.
func (s *SQLiteIndexStore) SearchSemantic(ctx context.Context, embedding []float32, limit int) ([]string, error) {
	if len(embedding) != s.config.Dimensions {
		return nil, docerrors.New(docerrors.ErrCodeDimensionMismatch,
			fmt.Sprintf("query embedding has %d dimensions, expected %d", len(embedding), s.config.Dimensions), nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if isZeroVector(embedding) || limit <= 0 {
		return []string{}, nil
	}

	hits, err := s.vectors.Search(embedding, limit)
	if err != nil {
		return nil, docerrors.StoreError("semantic search failed", err)
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	return ids, nil
}

// Upsert writes rec in one transaction and updates the vector index.
func (s *SQLiteIndexStore) Upsert(ctx context.Context, rec *IndexRecord) error {
	if rec == nil || rec.DocumentID == "" {
		return docerrors.ValidationError("index record requires a document id", nil)
	}
	if len(rec.Embedding) != s.config.Dimensions {
		return docerrors.New(docerrors.ErrCodeDimensionMismatch,
			fmt.Sprintf("embedding has %d dimensions, expected %d", len(rec.Embedding), s.config.Dimensions), nil).
			WithDetail("document_id", rec.DocumentID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	now := s.now().UTC()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return docerrors.StoreError("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO index_records (
			document_id, title_index, body_index, title_trigram_text, embedding, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			title_index        = excluded.title_index,
			body_index         = excluded.body_index,
			title_trigram_text = excluded.title_trigram_text,
			embedding          = excluded.embedding,
			updated_at         = excluded.updated_at
	`, rec.DocumentID, rec.TitleIndex, rec.BodyIndex, rec.TitleTrigramText,
		EncodeEmbedding(rec.Embedding), now.UnixNano(), now.UnixNano())
	if err != nil {
		return docerrors.StoreError("failed to upsert index record", err).WithDetail("document_id", rec.DocumentID)
	}

	// FTS5 tables do not support REPLACE, so delete then insert.
	for _, fts := range []struct{ table, content string }{
		{"title_fts", rec.TitleIndex},
		{"body_fts", rec.BodyIndex},
	} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+fts.table+" WHERE document_id = ?", rec.DocumentID); err != nil {
			return docerrors.StoreError("failed to clear "+fts.table, err).WithDetail("document_id", rec.DocumentID)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO "+fts.table+"(document_id, content) VALUES (?, ?)", rec.DocumentID, fts.content); err != nil {
			return docerrors.StoreError("failed to write "+fts.table, err).WithDetail("document_id", rec.DocumentID)
		}
	}

	if err := tx.Commit(); err != nil {
		return docerrors.StoreError("failed to commit index record", err).WithDetail("document_id", rec.DocumentID)
	}

	if isZeroVector(rec.Embedding) {
		s.vectors.Delete(rec.DocumentID)
		return nil
	}
	// Dimension was validated above, so this cannot fail.
	return s.vectors.Upsert(rec.DocumentID, rec.Embedding)
}

// Delete removes the record for documentID from every table.
func (s *SQLiteIndexStore) Delete(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return docerrors.StoreError("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"index_records", "title_fts", "body_fts"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE document_id = ?", documentID); err != nil {
			return docerrors.StoreError("failed to delete from "+table, err).WithDetail("document_id", documentID)
		}
	}
	if err := tx.Commit(); err != nil {
		return docerrors.StoreError("failed to commit delete", err).WithDetail("document_id", documentID)
	}

	s.vectors.Delete(documentID)
	return nil
}

// IncrementViewCount adds delta to the view count of an indexed document.
func (s *SQLiteIndexStore) IncrementViewCount(ctx context.Context, documentID string, delta int64) error {
	return s.updateCounter(ctx, documentID,
		`UPDATE index_records SET view_count = view_count + ? WHERE document_id = ?`, delta)
}

// SetUserInteractionScore overwrites the interaction score of an indexed document.
func (s *SQLiteIndexStore) SetUserInteractionScore(ctx context.Context, documentID string, score int64) error {
	return s.updateCounter(ctx, documentID,
		`UPDATE index_records SET user_interaction_score = ? WHERE document_id = ?`, score)
}

func (s *SQLiteIndexStore) updateCounter(ctx context.Context, documentID, query string, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, query, value, documentID)
	if err != nil {
		return docerrors.StoreError("failed to update index record", err).WithDetail("document_id", documentID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return docerrors.StoreError("failed to update index record", err).WithDetail("document_id", documentID)
	}
	if n == 0 {
		return docerrors.NotFoundError(documentID).WithSuggestion("Index the document first")
	}
	return nil
}

// Get returns the stored record for documentID.
func (s *SQLiteIndexStore) Get(ctx context.Context, documentID string) (*IndexRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var (
		rec                  IndexRecord
		blob                 []byte
		createdAt, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT document_id, title_index, body_index, title_trigram_text, embedding,
		       created_at, updated_at, view_count, user_interaction_score
		FROM index_records WHERE document_id = ?
	`, documentID).Scan(&rec.DocumentID, &rec.TitleIndex, &rec.BodyIndex, &rec.TitleTrigramText, &blob,
		&createdAt, &updatedAt, &rec.ViewCount, &rec.UserInteractionScore)
	if err == sql.ErrNoRows {
		return nil, docerrors.NotFoundError(documentID)
	}
	if err != nil {
		return nil, docerrors.StoreError("failed to read index record", err).WithDetail("document_id", documentID)
	}

	rec.Embedding, err = DecodeEmbedding(blob)
	if err != nil {
		return nil, docerrors.New(docerrors.ErrCodeCorruptIndex, "invalid stored embedding", err).
			WithDetail("document_id", documentID)
	}
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	rec.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &rec, nil
}

// ViewCounts returns view counts for the indexed ids among documentIDs.
func (s *SQLiteIndexStore) ViewCounts(ctx context.Context, documentIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(documentIDs))
	if len(documentIDs) == 0 {
		return counts, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	placeholders := make([]string, len(documentIDs))
	args := make([]any, len(documentIDs))
	for i, id := range documentIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf("SELECT document_id, view_count FROM index_records WHERE document_id IN (%s)",
		strings.Join(placeholders, ","))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, docerrors.StoreError("failed to read view counts", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var n int64
		if err := rows.Scan(&id, &n); err != nil {
			return nil, docerrors.StoreError("failed to scan view count", err)
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, docerrors.StoreError("failed to read view counts", err)
	}
	return counts, nil
}

// Count returns the number of index records.
func (s *SQLiteIndexStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM index_records`).Scan(&count); err != nil {
		return 0, docerrors.StoreError("failed to count index records", err)
	}
	return count, nil
}

// ListIDs returns every indexed document id in ascending order.
func (s *SQLiteIndexStore) ListIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT document_id FROM index_records ORDER BY document_id`)
	if err != nil {
		return nil, docerrors.StoreError("failed to list index records", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, docerrors.StoreError("failed to scan document id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, docerrors.StoreError("failed to list index records", err)
	}
	return ids, nil
}

// VectorCount returns the number of records searchable semantically.
func (s *SQLiteIndexStore) VectorCount() int {
	return s.vectors.Len()
}

// Close checkpoints the WAL and closes the database. Idempotent.
func (s *SQLiteIndexStore) Close() error {
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
