package index

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/Aman-CERP/docsearch/internal/embed"
	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/metrics"
	"github.com/Aman-CERP/docsearch/internal/store"
)

// ProgressFunc receives the number of processed documents after each one.
type ProgressFunc func(done, total int)

// MaintenanceOption configures a BatchMaintenanceIndexer.
type MaintenanceOption func(*BatchMaintenanceIndexer)

// WithWorkers sets the worker pool size. Values below 1 become 1.
func WithWorkers(n int) MaintenanceOption {
	return func(b *BatchMaintenanceIndexer) {
		if n < 1 {
			n = 1
		}
		b.workers = n
	}
}

// WithLockDir enables the cross-process maintenance lock in dir.
func WithLockDir(dir string) MaintenanceOption {
	return func(b *BatchMaintenanceIndexer) {
		b.lockDir = dir
	}
}

// WithProgress sets a progress callback. Calls are serialised.
func WithProgress(fn ProgressFunc) MaintenanceOption {
	return func(b *BatchMaintenanceIndexer) {
		b.progress = fn
	}
}

// BatchMaintenanceIndexer reindexes in bulk for administrative callers.
// Unlike the interactive path, an embedding provider failure is replaced by
// a zero vector so the document stays lexically searchable.
type BatchMaintenanceIndexer struct {
	deps     Dependencies
	workers  int
	lockDir  string
	progress ProgressFunc
}

// NewBatchMaintenanceIndexer creates a maintenance indexer. The default pool
// size is half the CPUs, at least one.
func NewBatchMaintenanceIndexer(deps Dependencies, opts ...MaintenanceOption) (*BatchMaintenanceIndexer, error) {
	deps, err := deps.withDefaults()
	if err != nil {
		return nil, err
	}
	b := &BatchMaintenanceIndexer{
		deps:    deps,
		workers: max(1, runtime.NumCPU()/2),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// IndexDocument indexes id, reporting whether the zero-vector fallback was used.
func (b *BatchMaintenanceIndexer) IndexDocument(ctx context.Context, id string) (fallback bool, err error) {
	defer func() { recordOp(OpIndex, err) }()
	err = upsert(ctx, b.deps, id, func(ctx context.Context, doc *store.Document) ([]float32, error) {
		vec, err := b.deps.Embedder.Embed(ctx, BuildEmbeddingText(doc))
		if err == nil {
			return vec, nil
		}
		if !docerrors.IsProvider(err) {
			return nil, err
		}
		fallback = true
		metrics.EmbeddingFallbacksTotal.Inc()
		b.deps.Logger.Warn("embedding failed, indexing with zero vector",
			slog.String("document_id", doc.ID),
			slog.String("error", err.Error()))
		return embed.ZeroVector(b.deps.Embedder.Dimensions()), nil
	})
	return fallback, err
}

// Run reindexes every document on the worker pool. Per-document failures are
// logged and reported; the run itself fails only when the lock is held, the
// document list cannot be read, or ctx is cancelled.
func (b *BatchMaintenanceIndexer) Run(ctx context.Context) (report *ReindexReport, err error) {
	defer func() { recordOp(OpMaintenanceRun, err) }()
	start := time.Now()

	if b.lockDir != "" {
		lock := newMaintenanceLock(b.lockDir)
		if err := lock.tryLock(); err != nil {
			return nil, err
		}
		defer func() {
			if uerr := lock.unlock(); uerr != nil {
				b.deps.Logger.Warn("failed to release maintenance lock", slog.String("error", uerr.Error()))
			}
		}()
	}

	ids, err := b.deps.Documents.ListAllIDs(ctx)
	if err != nil {
		return nil, err
	}

	pool, err := ants.NewPool(b.workers)
	if err != nil {
		return nil, docerrors.InternalError("create worker pool", err)
	}
	defer pool.Release()

	report = &ReindexReport{Total: len(ids), Failed: []FailedDoc{}}
	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		done int
	)
	finish := func(id string, fallback bool, err error) {
		mu.Lock()
		defer mu.Unlock()
		done++
		switch {
		case err != nil:
			report.Failed = append(report.Failed, FailedDoc{DocumentID: id, Error: err.Error()})
		case fallback:
			report.Indexed++
			report.Fallbacks++
		default:
			report.Indexed++
		}
		if b.progress != nil {
			b.progress(done, len(ids))
		}
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				finish(id, false, err)
				return
			}
			fallback, err := b.IndexDocument(ctx, id)
			if err != nil {
				b.deps.Logger.Warn("maintenance: document skipped",
					slog.String("document_id", id),
					slog.String("error", err.Error()))
			}
			finish(id, fallback, err)
		})
		if submitErr != nil {
			wg.Done()
			finish(id, false, submitErr)
		}
	}
	wg.Wait()

	sort.Slice(report.Failed, func(i, j int) bool {
		return report.Failed[i].DocumentID < report.Failed[j].DocumentID
	})
	report.Duration = time.Since(start)

	b.deps.Logger.Info("maintenance_reindex_complete",
		slog.Int("total", report.Total),
		slog.Int("indexed", report.Indexed),
		slog.Int("fallbacks", report.Fallbacks),
		slog.Int("failed", len(report.Failed)),
		slog.Int("workers", b.workers),
		slog.Duration("took", report.Duration))

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}
