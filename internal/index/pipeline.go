// Package index turns documents into search index records and keeps the
// index in step with the document store.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Aman-CERP/docsearch/internal/embed"
	"github.com/Aman-CERP/docsearch/internal/metrics"
	"github.com/Aman-CERP/docsearch/internal/store"
)

// Operation labels for index metrics.
const (
	OpIndex          = "index"
	OpDelete         = "delete"
	OpReindex        = "reindex"
	OpViewCount      = "view_count"
	OpInteraction    = "interaction_score"
	OpMaintenanceRun = "maintenance"
)

// ErrNilDependency is returned when a required dependency is missing.
var ErrNilDependency = errors.New("required dependency is nil")

// Dependencies are the collaborators shared by both indexers.
type Dependencies struct {
	// Documents is the primary store (required).
	Documents store.DocumentStore

	// Index receives derived records (required).
	Index store.IndexStore

	// Embedder computes document vectors. Defaults to embed.Default().
	Embedder embed.Embedder

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (d Dependencies) withDefaults() (Dependencies, error) {
	if d.Documents == nil {
		return d, fmt.Errorf("%w: document store is required", ErrNilDependency)
	}
	if d.Index == nil {
		return d, fmt.Errorf("%w: index store is required", ErrNilDependency)
	}
	if d.Embedder == nil {
		d.Embedder = embed.Default()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return d, nil
}

// BuildEmbeddingText joins title, content and author with single spaces,
// skipping empty parts.
func BuildEmbeddingText(doc *store.Document) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{doc.Title, doc.Content, doc.Author} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// BuildRecord derives the index record for doc. The trigram text is the raw
// title.
func BuildRecord(doc *store.Document, embedding []float32) *store.IndexRecord {
	return &store.IndexRecord{
		DocumentID:       doc.ID,
		TitleIndex:       store.TextIndex(doc.Title),
		BodyIndex:        store.TextIndex(doc.Content),
		TitleTrigramText: doc.Title,
		Embedding:        embedding,
	}
}

// FailedDoc records a document a reindex run could not index.
type FailedDoc struct {
	DocumentID string `json:"document_id"`
	Error      string `json:"error"`
}

// ReindexReport summarises a reindex run.
type ReindexReport struct {
	Total   int `json:"total"`
	Indexed int `json:"indexed"`
	// Fallbacks counts documents indexed with a zero vector.
	Fallbacks int           `json:"fallbacks"`
	Failed    []FailedDoc   `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// recordOp counts an index operation outcome.
func recordOp(op string, err error) {
	metrics.IndexOperationsTotal.WithLabelValues(op, metrics.Status(err)).Inc()
}

// upsert loads id and writes its record using the supplied embedding step.
func upsert(ctx context.Context, deps Dependencies, id string, embedFn func(context.Context, *store.Document) ([]float32, error)) error {
	doc, err := deps.Documents.GetByID(ctx, id)
	if err != nil {
		return err
	}
	vec, err := embedFn(ctx, doc)
	if err != nil {
		return err
	}
	return deps.Index.Upsert(ctx, BuildRecord(doc, vec))
}
