package search

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/Aman-CERP/docsearch/internal/store"
)

// fakeIndex is an IndexStore whose search methods return canned id lists.
type fakeIndex struct {
	lists    map[Method][]string
	errs     map[Method]error
	views    map[string]int64
	calls    atomic.Int64
	blockFor Method // if set, this method waits for ctx cancellation
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{
		lists: make(map[Method][]string),
		errs:  make(map[Method]error),
		views: make(map[string]int64),
	}
}

func (f *fakeIndex) search(ctx context.Context, m Method, limit int) ([]string, error) {
	f.calls.Add(1)
	if f.blockFor == m {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := f.errs[m]; err != nil {
		return nil, err
	}
	ids := f.lists[m]
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (f *fakeIndex) SearchTitle(ctx context.Context, _ []string, limit int) ([]string, error) {
	return f.search(ctx, MethodTitle, limit)
}

func (f *fakeIndex) SearchBody(ctx context.Context, _ []string, limit int) ([]string, error) {
	return f.search(ctx, MethodBody, limit)
}

func (f *fakeIndex) SearchFuzzy(ctx context.Context, _ string, limit int) ([]string, error) {
	return f.search(ctx, MethodFuzzy, limit)
}

func (f *fakeIndex) SearchSemantic(ctx context.Context, _ []float32, limit int) ([]string, error) {
	return f.search(ctx, MethodSemantic, limit)
}

func (f *fakeIndex) Upsert(context.Context, *store.IndexRecord) error { return nil }
func (f *fakeIndex) Delete(context.Context, string) error             { return nil }
func (f *fakeIndex) IncrementViewCount(context.Context, string, int64) error {
	return nil
}
func (f *fakeIndex) SetUserInteractionScore(context.Context, string, int64) error {
	return nil
}
func (f *fakeIndex) Get(context.Context, string) (*store.IndexRecord, error) { return nil, nil }
func (f *fakeIndex) Count(context.Context) (int, error)                      { return 0, nil }
func (f *fakeIndex) Close() error                                            { return nil }

func (f *fakeIndex) ViewCounts(_ context.Context, ids []string) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, id := range ids {
		if v, ok := f.views[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

// fakeDocs is an in-memory DocumentStore.
type fakeDocs map[string]*store.Document

func (d fakeDocs) GetByID(_ context.Context, id string) (*store.Document, error) {
	if doc, ok := d[id]; ok {
		return doc, nil
	}
	return nil, fmt.Errorf("not found: %s", id)
}

func (d fakeDocs) GetMany(_ context.Context, ids []string) (map[string]*store.Document, error) {
	out := make(map[string]*store.Document)
	for _, id := range ids {
		if doc, ok := d[id]; ok {
			out[id] = doc
		}
	}
	return out, nil
}

func (d fakeDocs) ListAllIDs(context.Context) ([]string, error) {
	ids := make([]string, 0, len(d))
	for id := range d {
		ids = append(ids, id)
	}
	return ids, nil
}

func idRange(prefix string, from, to int) []string {
	ids := make([]string, 0, to-from)
	for i := from; i < to; i++ {
		ids = append(ids, fmt.Sprintf("%s%03d", prefix, i))
	}
	return ids
}

func noBoost() RankerConfig {
	cfg := DefaultRankerConfig()
	cfg.Boost.Enabled = false
	return cfg
}
