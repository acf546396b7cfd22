package store

import (
	"strings"
	"unicode"
)

// FTSTokenizer is the FTS5 tokenizer shared by the title and body tables.
const FTSTokenizer = "porter unicode61"

// TokenizeQuery splits a query on whitespace. Tokens that contain no letter
// or digit are dropped because the full-text tokenizer would discard them.
func TokenizeQuery(query string) []string {
	fields := strings.Fields(query)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if hasAlnum(f) {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// TextIndex builds the full-text representation stored for a title or body:
// the text with whitespace runs collapsed to single spaces.
func TextIndex(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// BuildMatchQuery converts tokens into an FTS5 MATCH expression requiring
// every token. Each token is quoted as a phrase so FTS5 operators and
// punctuation in user input are treated as text.
func BuildMatchQuery(tokens []string) string {
	terms := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !hasAlnum(t) {
			continue
		}
		terms = append(terms, `"`+strings.ReplaceAll(t, `"`, `""`)+`"`)
	}
	return strings.Join(terms, " AND ")
}

func hasAlnum(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// Trigrams returns the set of trigrams of s using pg_trgm rules: the text is
// lower-cased and split into alphanumeric words, each word is padded with two
// leading blanks and one trailing blank, and every 3-rune window is a trigram.
func Trigrams(s string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	set := make(map[string]struct{}, len(s)+2*len(words))
	for _, w := range words {
		padded := []rune("  " + w + " ")
		for i := 0; i+3 <= len(padded); i++ {
			set[string(padded[i:i+3])] = struct{}{}
		}
	}
	return set
}

// TrigramSimilarity returns |A∩B| / |A∪B| over the trigram sets of a and b,
// in [0, 1]. Two strings without trigrams have similarity 0.
func TrigramSimilarity(a, b string) float64 {
	return trigramSetSimilarity(Trigrams(a), Trigrams(b))
}

func trigramSetSimilarity(ta, tb map[string]struct{}) float64 {
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	shared := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(ta)+len(tb)-shared)
}
