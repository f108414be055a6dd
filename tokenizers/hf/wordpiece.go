package hf

// model converts one pre-token into subword token strings. Implementations never fail:
// untokenizable input degrades to the unknown token (or to nothing, for Unigram
// dead-ends), as encoding must not error on arbitrary text.
type model interface {
	tokenize(piece string) []string
}

// wordPieceModel implements greedy longest-match-first subword segmentation (BERT).
type wordPieceModel struct {
	vocab    *Vocabulary
	unkToken string

	// continuingSubwordPrefix marks non-initial subwords, usually "##".
	continuingSubwordPrefix string
}

func newWordPieceModel(spec *modelSpec, vocab *Vocabulary) *wordPieceModel {
	prefix := spec.ContinuingSubwordPrefix
	if prefix == "" {
		prefix = "##"
	}
	return &wordPieceModel{
		vocab:                   vocab,
		unkToken:                spec.UnkToken,
		continuingSubwordPrefix: prefix,
	}
}

// tokenize repeatedly takes the longest vocabulary match from the current position,
// prefixing non-initial candidates with the continuing-subword prefix. If any position
// has no match at all, the entire pre-token becomes the unknown token; no partial output
// is kept.
func (m *wordPieceModel) tokenize(piece string) []string {
	runes := []rune(piece)
	var tokens []string
	start := 0
	for start < len(runes) {
		end := len(runes)
		match := ""
		for end > start {
			candidate := string(runes[start:end])
			if start > 0 {
				candidate = m.continuingSubwordPrefix + candidate
			}
			if _, ok := m.vocab.TokenToID(candidate); ok {
				match = candidate
				break
			}
			end--
		}
		if match == "" {
			return []string{m.unkToken}
		}
		tokens = append(tokens, match)
		start = end
	}
	return tokens
}
