package hf

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// bpeCacheSize bounds the per-instance merge-result cache.
const bpeCacheSize = 8192

// symbolPair is an adjacent pair of symbols considered for merging.
type symbolPair struct {
	left, right string
}

// bpeModel implements byte-pair encoding with a rank-ordered merge table: the earlier a
// pair appears in the merges list, the higher its priority. Pairs absent from the table
// are never merged.
type bpeModel struct {
	vocab    *Vocabulary
	unkToken string
	ranks    map[symbolPair]int

	endOfWordSuffix string
	byteFallback    bool

	// cache memoizes pre-token -> merged symbols. Kept per instance, not process-global.
	cache *lru.Cache[string, []string]
}

func newBPEModel(spec *modelSpec, vocab *Vocabulary) *bpeModel {
	ranks := make(map[symbolPair]int, len(spec.Merges))
	for rank, merge := range spec.Merges {
		ranks[symbolPair{left: merge[0], right: merge[1]}] = rank
	}
	cache, _ := lru.New[string, []string](bpeCacheSize)
	return &bpeModel{
		vocab:           vocab,
		unkToken:        spec.UnkToken,
		ranks:           ranks,
		endOfWordSuffix: spec.EndOfWordSuffix,
		byteFallback:    spec.ByteFallback,
		cache:           cache,
	}
}

// tokenize runs the merge loop on one pre-token. The pre-token is expected to be already
// mapped into the model's alphabet (the byte-level pre-tokenizer does this mapping).
func (m *bpeModel) tokenize(piece string) []string {
	if piece == "" {
		return nil
	}
	if cached, ok := m.cache.Get(piece); ok {
		return cached
	}

	symbols := splitSymbols(piece)
	if m.endOfWordSuffix != "" {
		symbols[len(symbols)-1] += m.endOfWordSuffix
	}

	for len(symbols) > 1 {
		best, ok := m.lowestRankedPair(symbols)
		if !ok {
			break
		}
		symbols = mergePair(symbols, best)
	}

	if m.byteFallback {
		symbols = m.applyByteFallback(symbols)
	}
	m.cache.Add(piece, symbols)
	return symbols
}

// applyByteFallback replaces out-of-vocabulary symbols with their "<0xNN>" byte tokens,
// when the vocabulary carries them (Llama-style BPE models).
func (m *bpeModel) applyByteFallback(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		if _, ok := m.vocab.TokenToID(symbol); ok {
			out = append(out, symbol)
			continue
		}
		byteTokens := make([]string, 0, len(symbol))
		allKnown := true
		for _, b := range []byte(symbol) {
			byteToken := fmt.Sprintf("<0x%02X>", b)
			if _, ok := m.vocab.TokenToID(byteToken); !ok {
				allKnown = false
				break
			}
			byteTokens = append(byteTokens, byteToken)
		}
		if allKnown {
			out = append(out, byteTokens...)
		} else {
			out = append(out, symbol)
		}
	}
	return out
}

func splitSymbols(piece string) []string {
	symbols := make([]string, 0, len(piece))
	for _, r := range piece {
		symbols = append(symbols, string(r))
	}
	return symbols
}

// lowestRankedPair scans adjacent pairs and returns the one with the lowest merge rank.
// Enumeration is left-to-right, so the first occurrence wins on equal pairs; distinct
// pairs never share a rank.
func (m *bpeModel) lowestRankedPair(symbols []string) (symbolPair, bool) {
	best := symbolPair{}
	bestRank := -1
	for i := 0; i+1 < len(symbols); i++ {
		pair := symbolPair{left: symbols[i], right: symbols[i+1]}
		rank, ok := m.ranks[pair]
		if !ok {
			continue
		}
		if bestRank < 0 || rank < bestRank {
			best = pair
			bestRank = rank
		}
	}
	return best, bestRank >= 0
}

// mergePair rewrites every non-overlapping occurrence of the pair, left to right, in one
// pass.
func mergePair(symbols []string, pair symbolPair) []string {
	merged := make([]string, 0, len(symbols))
	for i := 0; i < len(symbols); i++ {
		if i+1 < len(symbols) && symbols[i] == pair.left && symbols[i+1] == pair.right {
			merged = append(merged, pair.left+pair.right)
			i++
		} else {
			merged = append(merged, symbols[i])
		}
	}
	return merged
}
