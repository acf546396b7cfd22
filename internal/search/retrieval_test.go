package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetriever_MergesRanksPerMethod(t *testing.T) {
	// Given: overlapping lists from the four methods
	idx := newFakeIndex()
	idx.lists[MethodTitle] = []string{"a", "b"}
	idx.lists[MethodBody] = []string{"b", "c"}
	idx.lists[MethodFuzzy] = []string{"a"}
	idx.lists[MethodSemantic] = []string{"d", "a"}

	// When: retrieving
	got, err := NewRetriever(idx).Retrieve(context.Background(), "query", []float32{1})

	// Then: each candidate carries every rank it earned
	require.NoError(t, err)
	byID := make(map[string]CandidateRank)
	for _, c := range got {
		byID[c.DocumentID] = c
	}
	assert.Len(t, byID, 4)
	assert.Equal(t, CandidateRank{DocumentID: "a", FTSTitleRank: 1, FuzzyRank: 1, SemanticRank: 2}, byID["a"])
	assert.Equal(t, CandidateRank{DocumentID: "b", FTSTitleRank: 2, FTSBodyRank: 1}, byID["b"])
	assert.Equal(t, CandidateRank{DocumentID: "c", FTSBodyRank: 2}, byID["c"])
	assert.Equal(t, CandidateRank{DocumentID: "d", SemanticRank: 1}, byID["d"])
	assert.Equal(t, int64(4), idx.calls.Load())
}

func TestRetriever_Limits(t *testing.T) {
	// Given: each method returns 50 distinct ids (200 total)
	idx := newFakeIndex()
	idx.lists[MethodTitle] = idRange("t", 0, 80)
	idx.lists[MethodBody] = idRange("b", 0, 50)
	idx.lists[MethodFuzzy] = idRange("f", 0, 50)
	idx.lists[MethodSemantic] = idRange("s", 0, 50)

	got, err := NewRetriever(idx).Retrieve(context.Background(), "query", []float32{1})

	// Then: union is capped at 100 and per-method ranks at 50
	require.NoError(t, err)
	assert.Len(t, got, UnionLimit)
	perMethod := make(map[Method]int)
	for _, c := range got {
		for _, m := range Methods {
			if r := c.Rank(m); r > 0 {
				assert.LessOrEqual(t, r, TopK)
				perMethod[m]++
			}
		}
	}
	for _, m := range Methods {
		assert.LessOrEqual(t, perMethod[m], TopK)
	}
	// Best-ranked candidates survive truncation
	for _, c := range got {
		assert.LessOrEqual(t, c.bestRank(), 25)
	}
}

func TestRetriever_DuplicateIDsInOneListRankedOnce(t *testing.T) {
	idx := newFakeIndex()
	idx.lists[MethodTitle] = []string{"a", "a", "b"}

	got, err := NewRetriever(idx).Retrieve(context.Background(), "q", []float32{1})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].FTSTitleRank)
	assert.Equal(t, "b", got[1].DocumentID)
	assert.Equal(t, 2, got[1].FTSTitleRank)
}

func TestRetriever_EmptyIsNotError(t *testing.T) {
	got, err := NewRetriever(newFakeIndex()).Retrieve(context.Background(), "nothing", []float32{0})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRetriever_FailFast(t *testing.T) {
	// Given: the body query fails and semantic would block forever
	boom := errors.New("disk I/O error")
	idx := newFakeIndex()
	idx.lists[MethodTitle] = []string{"a"}
	idx.errs[MethodBody] = boom
	idx.blockFor = MethodSemantic

	// When: retrieving with the default policy
	got, err := NewRetriever(idx).Retrieve(context.Background(), "q", []float32{1})

	// Then: the whole retrieval fails and the blocked query was cancelled
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "body retrieval")
	assert.Nil(t, got)
}

func TestRetriever_PartialResults(t *testing.T) {
	idx := newFakeIndex()
	idx.lists[MethodTitle] = []string{"a"}
	idx.errs[MethodSemantic] = errors.New("vector index unavailable")

	got, err := NewRetriever(idx, WithPartialResults()).Retrieve(context.Background(), "q", []float32{1})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, CandidateRank{DocumentID: "a", FTSTitleRank: 1}, got[0])
}

func TestRetriever_PartialResults_AllFail(t *testing.T) {
	idx := newFakeIndex()
	for _, m := range Methods {
		idx.errs[m] = errors.New(string(m) + " down")
	}

	_, err := NewRetriever(idx, WithPartialResults()).Retrieve(context.Background(), "q", []float32{1})

	require.Error(t, err)
	for _, m := range Methods {
		assert.Contains(t, err.Error(), string(m)+" down")
	}
}

func TestRetriever_CancelledContext(t *testing.T) {
	idx := newFakeIndex()
	idx.blockFor = MethodFuzzy
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRetriever(idx).Retrieve(ctx, "q", []float32{1})
	assert.ErrorIs(t, err, context.Canceled)
}
