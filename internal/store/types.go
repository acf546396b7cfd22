// Package store provides the index store (SQLite FTS5 full-text tables, trigram
// fuzzy matching, vector index) and the document store used by docsearch.
package store

import (
	"context"
	"time"
)

// Retrieval defaults.
const (
	// DefaultSimilarityThreshold is the minimum trigram similarity a title
	// must exceed to be returned by fuzzy search (pg_trgm default).
	DefaultSimilarityThreshold = 0.3
)

// Document is a searchable document owned by the document store.
// The search engine never mutates it.
type Document struct {
	ID        string
	Title     string
	Content   string
	Author    string     // Optional, empty when absent
	CreatedAt *time.Time // Optional
}

// IndexRecord is the derived, searchable representation of one document.
// There is at most one record per DocumentID.
type IndexRecord struct {
	DocumentID string

	// TitleIndex and BodyIndex are the full-text representations of the
	// title and content. Both are indexed with the same tokenizer.
	TitleIndex string
	BodyIndex  string

	// TitleTrigramText is the raw title used for fuzzy matching.
	TitleTrigramText string

	// Embedding has exactly the store's dimension. An all-zero embedding is
	// stored but never returned by semantic search.
	Embedding []float32

	CreatedAt time.Time
	UpdatedAt time.Time

	// ViewCount and UserInteractionScore survive reindexing.
	ViewCount            int64
	UserInteractionScore int64
}

// IndexStore is the secondary store queried by candidate retrieval and
// written by the indexing pipeline.
//
// Each Search method returns document ids ordered best first, at most limit.
type IndexStore interface {
	// SearchTitle matches all tokens against the title full-text index,
	// ordered by relevance.
	SearchTitle(ctx context.Context, tokens []string, limit int) ([]string, error)

	// SearchBody matches all tokens against the body full-text index,
	// ordered by relevance.
	SearchBody(ctx context.Context, tokens []string, limit int) ([]string, error)

	// SearchFuzzy returns records whose title trigram similarity to query
	// exceeds the store threshold, most similar first.
	SearchFuzzy(ctx context.Context, query string, limit int) ([]string, error)

	// SearchSemantic returns the nearest records to embedding by cosine
	// distance. A zero embedding returns no results.
	SearchSemantic(ctx context.Context, embedding []float32, limit int) ([]string, error)

	// Upsert inserts or replaces the derived fields of a record atomically.
	// ViewCount, UserInteractionScore and CreatedAt of an existing record
	// are preserved.
	Upsert(ctx context.Context, rec *IndexRecord) error

	// Delete removes a record. Deleting a missing record is not an error.
	Delete(ctx context.Context, documentID string) error

	// IncrementViewCount adds delta to the record's view count.
	IncrementViewCount(ctx context.Context, documentID string, delta int64) error

	// SetUserInteractionScore overwrites the record's interaction score.
	SetUserInteractionScore(ctx context.Context, documentID string, score int64) error

	// Get returns the record for documentID or a not-found error.
	Get(ctx context.Context, documentID string) (*IndexRecord, error)

	// ViewCounts returns the view count of each indexed id. Missing ids are
	// absent from the map.
	ViewCounts(ctx context.Context, documentIDs []string) (map[string]int64, error)

	// Count returns the number of records.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

// DocumentStore is the primary store of documents.
type DocumentStore interface {
	// GetByID returns the document or a not-found error.
	GetByID(ctx context.Context, id string) (*Document, error)

	// GetMany returns the documents that exist among ids, keyed by id.
	GetMany(ctx context.Context, ids []string) (map[string]*Document, error)

	// ListAllIDs returns every document id in a stable order.
	ListAllIDs(ctx context.Context) ([]string, error)
}
