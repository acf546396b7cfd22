package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatForCLI(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		assert.Equal(t, "", FormatForCLI(nil))
	})

	t.Run("doc error with hint", func(t *testing.T) {
		err := NotFoundError("doc-9").WithSuggestion("run 'docsearch import' first")

		out := FormatForCLI(err)

		assert.Contains(t, out, `Error: document "doc-9" not found`)
		assert.Contains(t, out, "Hint: run 'docsearch import' first")
		assert.Contains(t, out, "Code: ERR_201_DOCUMENT_NOT_FOUND")
	})

	t.Run("plain error is wrapped as internal", func(t *testing.T) {
		out := FormatForCLI(errors.New("boom"))

		assert.Contains(t, out, "Error: boom")
		assert.Contains(t, out, "Code: ERR_501_INTERNAL")
	})
}

func TestLogAttrs(t *testing.T) {
	assert.Nil(t, LogAttrs(nil))

	plain := LogAttrs(errors.New("boom"))
	assert.Len(t, plain, 1)

	attrs := LogAttrs(NotFoundError("d1"))
	keys := make(map[string]string)
	for _, a := range attrs {
		keys[a.Key] = a.Value.String()
	}
	assert.Equal(t, ErrCodeDocumentNotFound, keys["error_code"])
	assert.Equal(t, string(CategoryStore), keys["category"])
	assert.Equal(t, "d1", keys["detail_document_id"])
}
