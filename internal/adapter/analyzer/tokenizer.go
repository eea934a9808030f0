package analyzer

import (
	"strings"
	"unicode"
)

// Tokenizer splits prose into lowercase word tokens, optionally dropping
// common English stopwords.
type Tokenizer struct {
	stopwords map[string]struct{}
	minLen    int
}

// NewTokenizer creates a Tokenizer. Words shorter than minLen runes are
// dropped.
func NewTokenizer(removeStopwords bool, minLen int) *Tokenizer {
	t := &Tokenizer{minLen: minLen}
	if removeStopwords {
		t.stopwords = defaultStopwords()
	}
	return t
}

// Tokenize returns the tokens of text in order. Hyphens and apostrophes
// inside a word split it, so "self-attention" yields "self" and "attention".
func (t *Tokenizer) Tokenize(text string) []string {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := words[:0]
	for _, w := range words {
		w = strings.ToLower(w)
		if len([]rune(w)) < t.minLen {
			continue
		}
		if _, stop := t.stopwords[w]; stop {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

func defaultStopwords() map[string]struct{} {
	stops := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for",
		"from", "has", "he", "in", "is", "it", "its", "of", "on",
		"that", "the", "to", "was", "were", "will", "with", "this",
		"have", "had", "but", "not", "you", "your", "we", "our",
		"they", "their", "she", "her", "his", "if", "or", "so",
		"can", "do", "does", "did", "been", "being", "would",
		"could", "should", "may", "might", "which", "all", "also",
		"than", "very", "just", "there", "these", "those", "into",
	}
	m := make(map[string]struct{}, len(stops))
	for _, s := range stops {
		m[s] = struct{}{}
	}
	return m
}
