package hf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestWordPiece(tokens ...string) *wordPieceModel {
	vocab := make(map[string]int, len(tokens))
	for id, token := range tokens {
		vocab[token] = id
	}
	return newWordPieceModel(
		&modelSpec{Type: "WordPiece", UnkToken: "[UNK]"},
		newVocabulary(vocab, nil))
}

func TestWordPieceGreedyLongestMatch(t *testing.T) {
	m := newTestWordPiece("[UNK]", "un", "##aff", "##able", "##a", "runn", "##ing", "run")
	assert.Equal(t, []string{"un", "##aff", "##able"}, m.tokenize("unaffable"))
	assert.Equal(t, []string{"runn", "##ing"}, m.tokenize("running"))
}

func TestWordPieceUnknown(t *testing.T) {
	m := newTestWordPiece("[UNK]", "un", "##aff")
	// A position with no match collapses the whole word to the unknown token,
	// even when a prefix matched.
	assert.Equal(t, []string{"[UNK]"}, m.tokenize("unaffz"))
	assert.Equal(t, []string{"[UNK]"}, m.tokenize("xyz"))
}

func TestWordPieceWholeWord(t *testing.T) {
	m := newTestWordPiece("[UNK]", "hello", "hell", "##o")
	// Longest match wins over valid shorter decompositions.
	assert.Equal(t, []string{"hello"}, m.tokenize("hello"))
}

func TestWordPieceEmptyPiece(t *testing.T) {
	m := newTestWordPiece("[UNK]", "a")
	assert.Empty(t, m.tokenize(""))
}

func TestWordPieceLongWord(t *testing.T) {
	// There is no maximum-length cutoff: long words still segment normally.
	m := newTestWordPiece("[UNK]", "ab", "##ab")
	long := ""
	for i := 0; i < 200; i++ {
		long += "ab"
	}
	tokens := m.tokenize(long)
	assert.Len(t, tokens, 200)
	assert.Equal(t, "ab", tokens[0])
	assert.Equal(t, "##ab", tokens[1])
}
