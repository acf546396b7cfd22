package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := errors.New("disk I/O error")

	// When: wrapping with DocError
	docErr := StoreError("upsert index record", originalErr)

	// Then: unwrapping returns original error
	require.NotNil(t, docErr)
	assert.Equal(t, originalErr, errors.Unwrap(docErr))
	assert.True(t, errors.Is(docErr, originalErr))
}

func TestDocError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      *DocError
		expected string
	}{
		{
			name:     "not found",
			err:      NotFoundError("doc-1"),
			expected: `[ERR_201_DOCUMENT_NOT_FOUND] document "doc-1" not found`,
		},
		{
			name:     "wrapped cause",
			err:      ProviderError("embed document", errors.New("model unavailable")),
			expected: "[ERR_502_EMBEDDING_FAILED] embed document: model unavailable",
		},
		{
			name:     "wrap reuses cause message",
			err:      Wrap(ErrCodeStoreFailed, errors.New("database is locked")),
			expected: "[ERR_205_STORE_FAILED] database is locked",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestDocError_Is_MatchesByCode(t *testing.T) {
	err := fmt.Errorf("index document: %w", NotFoundError("abc"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrProvider))
	assert.True(t, IsNotFound(err))
	assert.False(t, IsStore(err))
}

func TestIsStore(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"store failure", StoreError("write failed", errors.New("disk full")), true},
		{"corrupt index", New(ErrCodeCorruptIndex, "bad header", nil), true},
		{"wrapped store failure", fmt.Errorf("upsert: %w", StoreError("write failed", nil)), true},
		{"not found", NotFoundError("abc"), false},
		{"maintenance running", New(ErrCodeMaintenanceBusy, "locked", nil), false},
		{"validation", ValidationError("bad", nil), false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsStore(tt.err))
		})
	}
}

func TestCategoryFromCode(t *testing.T) {
	tests := []struct {
		code     string
		expected Category
	}{
		{ErrCodeConfigInvalid, CategoryConfig},
		{ErrCodeDocumentNotFound, CategoryStore},
		{ErrCodeStoreFailed, CategoryStore},
		{ErrCodeQueryEmpty, CategoryValidation},
		{ErrCodeDimensionMismatch, CategoryValidation},
		{ErrCodeEmbeddingFailed, CategoryInternal},
		{"bad", CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, categoryFromCode(tt.code))
		})
	}
}

func TestIsProvider_DetectsInitFailureInChain(t *testing.T) {
	initErr := New(ErrCodeProviderInit, "load embedding model", errors.New("no such file"))
	wrapped := ProviderError("embed query", initErr)

	assert.True(t, IsProvider(initErr))
	assert.True(t, IsProvider(wrapped))
	assert.True(t, IsProvider(fmt.Errorf("search: %w", wrapped)))
	assert.False(t, IsProvider(StoreError("query", nil)))
	assert.False(t, IsProvider(errors.New("plain")))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(New(ErrCodeCorruptIndex, "corrupt", nil)))
	assert.False(t, IsFatal(NotFoundError("x")))
	assert.False(t, IsFatal(nil))
}

func TestIsValidation(t *testing.T) {
	assert.True(t, IsValidation(New(ErrCodeQueryEmpty, "query is empty", nil)))
	assert.False(t, IsValidation(StoreError("x", nil)))
}

func TestGetCode_PlainErrorReturnsEmpty(t *testing.T) {
	assert.Equal(t, "", GetCode(errors.New("plain")))
	assert.Equal(t, ErrCodeStoreFailed, GetCode(fmt.Errorf("ctx: %w", StoreError("x", nil))))
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestWithDetail_Chains(t *testing.T) {
	err := StoreError("delete", nil).WithDetail("document_id", "d1").WithSuggestion("retry later")

	assert.Equal(t, "d1", err.Details["document_id"])
	assert.Equal(t, "retry later", err.Suggestion)
}
