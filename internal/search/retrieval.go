package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/docsearch/internal/metrics"
	"github.com/Aman-CERP/docsearch/internal/store"
)

// Retriever runs the four retrieval methods against an index store and
// merges their results into a deduplicated candidate set.
type Retriever struct {
	index      store.IndexStore
	topK       int
	unionLimit int
	partial    bool
	logger     *slog.Logger
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithPartialResults makes a failing method contribute no candidates instead
// of failing the whole retrieval. Retrieval still fails if every method fails.
func WithPartialResults() RetrieverOption {
	return func(r *Retriever) {
		r.partial = true
	}
}

// WithRetrieverLogger sets the logger.
func WithRetrieverLogger(l *slog.Logger) RetrieverOption {
	return func(r *Retriever) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRetriever creates a retriever over index.
func NewRetriever(index store.IndexStore, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		index:      index,
		topK:       TopK,
		unionLimit: UnionLimit,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve runs title, body, fuzzy and semantic retrieval concurrently and
// merges their ranks. At most UnionLimit candidates are returned, and each
// method ranks at most TopK of them.
//
// query should be non-blank and embedding should have the index dimension;
// an all-zero embedding contributes no semantic candidates. By default any
// method failure fails the call.
func (r *Retriever) Retrieve(ctx context.Context, query string, embedding []float32) ([]CandidateRank, error) {
	tokens := store.TokenizeQuery(query)

	searches := map[Method]func(context.Context) ([]string, error){
		MethodTitle: func(ctx context.Context) ([]string, error) {
			return r.index.SearchTitle(ctx, tokens, r.topK)
		},
		MethodBody: func(ctx context.Context) ([]string, error) {
			return r.index.SearchBody(ctx, tokens, r.topK)
		},
		MethodFuzzy: func(ctx context.Context) ([]string, error) {
			return r.index.SearchFuzzy(ctx, query, r.topK)
		},
		MethodSemantic: func(ctx context.Context) ([]string, error) {
			return r.index.SearchSemantic(ctx, embedding, r.topK)
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	lists := make([][]string, len(Methods))
	errs := make([]error, len(Methods))

	for i, m := range Methods {
		g.Go(func() error {
			ids, err := searches[m](gctx)
			if err != nil {
				metrics.RetrievalErrorsTotal.WithLabelValues(string(m)).Inc()
				errs[i] = fmt.Errorf("%s retrieval: %w", m, err)
				if r.partial {
					r.logger.Warn("retrieval method failed, continuing without it",
						slog.String("method", string(m)),
						slog.String("error", err.Error()))
					return nil
				}
				return errs[i]
			}
			metrics.RetrievalCandidates.WithLabelValues(string(m)).Observe(float64(len(ids)))
			lists[i] = ids
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if r.partial && allFailed(errs) {
		return nil, errors.Join(errs...)
	}

	return r.merge(lists), nil
}

func allFailed(errs []error) bool {
	for _, err := range errs {
		if err == nil {
			return false
		}
	}
	return true
}

// merge builds the candidate set from per-method id lists given in Methods
// order. Candidates are ordered by their best rank, then id, before the
// union limit is applied, so truncation drops the weakest candidates.
func (r *Retriever) merge(lists [][]string) []CandidateRank {
	byID := make(map[string]*CandidateRank)

	for i, ids := range lists {
		m := Methods[i]
		rank := 0
		seen := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			if rank == r.topK {
				break
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			rank++

			c, ok := byID[id]
			if !ok {
				c = &CandidateRank{DocumentID: id}
				byID[id] = c
			}
			c.setRank(m, rank)
		}
	}

	candidates := make([]CandidateRank, 0, len(byID))
	for _, c := range byID {
		candidates = append(candidates, *c)
	}
	sort.Slice(candidates, func(i, j int) bool {
		bi, bj := candidates[i].bestRank(), candidates[j].bestRank()
		if bi != bj {
			return bi < bj
		}
		return candidates[i].DocumentID < candidates[j].DocumentID
	})

	if len(candidates) > r.unionLimit {
		candidates = candidates[:r.unionLimit]
	}
	return candidates
}
