package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeQuery(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"simple", "python tutorial", []string{"python", "tutorial"}},
		{"extra whitespace", "  python \t tutorial\n", []string{"python", "tutorial"}},
		{"punctuation only tokens dropped", "python -- !! tutorial", []string{"python", "tutorial"}},
		{"keeps inner punctuation", "c++ node.js", []string{"c++", "node.js"}},
		{"empty", "   ", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TokenizeQuery(tt.input))
		})
	}
}

func TestBuildMatchQuery(t *testing.T) {
	tests := []struct {
		name     string
		tokens   []string
		expected string
	}{
		{"single", []string{"python"}, `"python"`},
		{"conjunction", []string{"python", "tutorial"}, `"python" AND "tutorial"`},
		{"operators are quoted", []string{"NOT", "OR"}, `"NOT" AND "OR"`},
		{"quotes escaped", []string{`say"hi`}, `"say""hi"`},
		{"no alnum dropped", []string{"--", "go"}, `"go"`},
		{"empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BuildMatchQuery(tt.tokens))
		})
	}
}

func TestTextIndex(t *testing.T) {
	assert.Equal(t, "Hello big world", TextIndex("  Hello\n\tbig   world "))
	assert.Equal(t, "", TextIndex("   "))
}

func TestTrigrams_PgTrgmPadding(t *testing.T) {
	// Given: the word "cat"
	// When: computing trigrams
	got := Trigrams("Cat")

	// Then: pg_trgm yields "  c", " ca", "cat", "at "
	expected := map[string]struct{}{"  c": {}, " ca": {}, "cat": {}, "at ": {}}
	assert.Equal(t, expected, got)
}

func TestTrigramSimilarity(t *testing.T) {
	t.Run("identical strings", func(t *testing.T) {
		assert.InDelta(t, 1.0, TrigramSimilarity("Python Tutorial", "python tutorial"), 1e-9)
	})

	t.Run("disjoint strings", func(t *testing.T) {
		assert.Equal(t, 0.0, TrigramSimilarity("abc", "xyz"))
	})

	t.Run("empty string", func(t *testing.T) {
		assert.Equal(t, 0.0, TrigramSimilarity("", "python"))
	})

	t.Run("typo stays above default threshold", func(t *testing.T) {
		assert.Greater(t, TrigramSimilarity("pyton", "Python Tutorial"), 0.0)
		assert.Greater(t, TrigramSimilarity("python tutorail", "Python Tutorial"), DefaultSimilarityThreshold)
	})

	t.Run("word in longer title", func(t *testing.T) {
		// "cat" has 4 trigrams, "cat food" has 9 with 4 shared
		assert.InDelta(t, 4.0/9.0, TrigramSimilarity("cat", "cat food"), 1e-9)
	})
}
