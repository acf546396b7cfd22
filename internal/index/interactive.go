package index

import (
	"context"
	"log/slog"
	"time"

	"github.com/Aman-CERP/docsearch/internal/store"
)

// InteractiveIndexer indexes single documents on the request path. Provider
// failures propagate to the caller.
type InteractiveIndexer struct {
	deps Dependencies
}

// NewInteractiveIndexer creates an indexer.
func NewInteractiveIndexer(deps Dependencies) (*InteractiveIndexer, error) {
	deps, err := deps.withDefaults()
	if err != nil {
		return nil, err
	}
	return &InteractiveIndexer{deps: deps}, nil
}

// IndexDocument loads, embeds and upserts the record for id.
// Concurrent calls for the same id are last-write-wins.
func (x *InteractiveIndexer) IndexDocument(ctx context.Context, id string) (err error) {
	defer func() { recordOp(OpIndex, err) }()
	return upsert(ctx, x.deps, id, x.embed)
}

func (x *InteractiveIndexer) embed(ctx context.Context, doc *store.Document) ([]float32, error) {
	return x.deps.Embedder.Embed(ctx, BuildEmbeddingText(doc))
}

// DeleteIndex removes the record for id. Missing records are not an error.
func (x *InteractiveIndexer) DeleteIndex(ctx context.Context, id string) (err error) {
	defer func() { recordOp(OpDelete, err) }()
	return x.deps.Index.Delete(ctx, id)
}

// ReindexAll indexes every document sequentially. A failing document is
// logged and skipped; only listing failures and cancellation abort the run.
func (x *InteractiveIndexer) ReindexAll(ctx context.Context) (*ReindexReport, error) {
	start := time.Now()
	ids, err := x.deps.Documents.ListAllIDs(ctx)
	if err != nil {
		recordOp(OpReindex, err)
		return nil, err
	}

	report := &ReindexReport{Total: len(ids), Failed: []FailedDoc{}}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			recordOp(OpReindex, err)
			return report, err
		}
		if err := x.IndexDocument(ctx, id); err != nil {
			x.deps.Logger.Warn("reindex: document skipped",
				slog.String("document_id", id),
				slog.String("error", err.Error()))
			report.Failed = append(report.Failed, FailedDoc{DocumentID: id, Error: err.Error()})
			continue
		}
		report.Indexed++
	}

	report.Duration = time.Since(start)
	recordOp(OpReindex, nil)
	x.deps.Logger.Info("reindex_complete",
		slog.Int("total", report.Total),
		slog.Int("indexed", report.Indexed),
		slog.Int("failed", len(report.Failed)),
		slog.Duration("took", report.Duration))
	return report, nil
}

// IncrementViewCount adds delta to the view count of id.
func (x *InteractiveIndexer) IncrementViewCount(ctx context.Context, id string, delta int64) (err error) {
	defer func() { recordOp(OpViewCount, err) }()
	return x.deps.Index.IncrementViewCount(ctx, id, delta)
}

// SetUserInteractionScore overwrites the interaction score of id.
func (x *InteractiveIndexer) SetUserInteractionScore(ctx context.Context, id string, score int64) (err error) {
	defer func() { recordOp(OpInteraction, err) }()
	return x.deps.Index.SetUserInteractionScore(ctx, id, score)
}
