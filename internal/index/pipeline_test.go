package index

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/docsearch/internal/store"
)

func TestBuildEmbeddingText(t *testing.T) {
	tests := []struct {
		name string
		doc  store.Document
		want string
	}{
		{"all parts", store.Document{Title: "Go", Content: "channels", Author: "Rob"}, "Go channels Rob"},
		{"no author", store.Document{Title: "Go", Content: "channels"}, "Go channels"},
		{"blank title", store.Document{Title: "  ", Content: "channels", Author: "Rob"}, "channels Rob"},
		{"title only", store.Document{Title: "Go"}, "Go"},
		{"empty", store.Document{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildEmbeddingText(&tt.doc))
		})
	}
}

func TestBuildRecord(t *testing.T) {
	doc := &store.Document{ID: "d1", Title: "  Hybrid   Search ", Content: "rank\tfusion\nexplained"}
	vec := []float32{1, 0}

	rec := BuildRecord(doc, vec)

	assert.Equal(t, "d1", rec.DocumentID)
	assert.Equal(t, "Hybrid Search", rec.TitleIndex)
	assert.Equal(t, "rank fusion explained", rec.BodyIndex)
	// Trigram text keeps the raw title
	assert.Equal(t, "  Hybrid   Search ", rec.TitleTrigramText)
	assert.Equal(t, vec, rec.Embedding)
}

func TestDependencies_Required(t *testing.T) {
	_, err := NewInteractiveIndexer(Dependencies{})
	assert.ErrorIs(t, err, ErrNilDependency)

	_, err = NewBatchMaintenanceIndexer(Dependencies{Documents: newFixture(t).docs})
	assert.ErrorIs(t, err, ErrNilDependency)
}
