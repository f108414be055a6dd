package hf

// unigramModel implements probabilistic subword segmentation: it builds a lattice of
// every vocabulary match over the pre-token (via trie common-prefix search) and picks the
// highest-log-probability path with Viterbi search.
type unigramModel struct {
	vocab    *Vocabulary
	trie     *charTrie
	unkToken string
	unkID    int

	// unkScore is the fallback-node score: strictly worse than every real match.
	unkScore float64
}

// unkScorePenalty keeps unknown-token paths below any real vocabulary path.
const unkScorePenalty = 10.0

func newUnigramModel(spec *modelSpec, vocab *Vocabulary) *unigramModel {
	minScore := 0.0
	for _, score := range spec.Scores {
		if score < minScore {
			minScore = score
		}
	}
	unkID := 0
	if spec.UnkID != nil {
		unkID = *spec.UnkID
	} else if spec.UnkToken != "" {
		if id, ok := vocab.TokenToID(spec.UnkToken); ok {
			unkID = id
		}
	}
	unkToken := spec.UnkToken
	if unkToken == "" {
		if token, ok := vocab.IDToToken(unkID); ok {
			unkToken = token
		}
	}
	return &unigramModel{
		vocab:    vocab,
		trie:     newCharTrie(vocab.Tokens()),
		unkToken: unkToken,
		unkID:    unkID,
		unkScore: minScore - unkScorePenalty,
	}
}

func (m *unigramModel) tokenize(piece string) []string {
	if piece == "" {
		return nil
	}
	lattice := newTokenLattice([]rune(piece))
	m.populateNodes(lattice)
	path := lattice.viterbi()
	tokens := make([]string, 0, len(path))
	for _, idx := range path {
		tokens = append(tokens, lattice.tokenText(idx))
	}
	return tokens
}

// populateNodes inserts a lattice node for every vocabulary string found at every
// offset. Whenever no single-character match exists at an offset, a length-1 fallback
// node mapped to the unknown token is inserted, so every offset keeps at least one begin
// node and the lattice always stays solvable.
func (m *unigramModel) populateNodes(lattice *tokenLattice) {
	runes := lattice.sentence
	for pos := 0; pos < len(runes); pos++ {
		hasSingleNode := false
		for _, length := range m.trie.commonPrefixSearch(runes[pos:]) {
			token := string(runes[pos : pos+length])
			id, ok := m.vocab.TokenToID(token)
			if !ok {
				continue
			}
			lattice.insert(pos, length, m.vocab.Score(id), id)
			if length == 1 {
				hasSingleNode = true
			}
		}
		if !hasSingleNode {
			lattice.insert(pos, 1, m.unkScore, m.unkID)
		}
	}
}
