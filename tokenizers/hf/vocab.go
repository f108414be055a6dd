package hf

// Vocabulary is the bidirectional token<->id table of a tokenizer model, plus the
// added-token overlay. It is built once at construction and never mutated, so it is safe
// to share by reference across concurrent encode/decode calls.
type Vocabulary struct {
	tokenToID map[string]int
	idToToken map[int]string

	// scores is only set for Unigram models: log-probabilities aligned by token id.
	scores []float64
}

// newVocabulary builds the table from the model vocab; added tokens are layered on top
// with addToken.
func newVocabulary(tokenToID map[string]int, scores []float64) *Vocabulary {
	v := &Vocabulary{
		tokenToID: make(map[string]int, len(tokenToID)),
		idToToken: make(map[int]string, len(tokenToID)),
		scores:    scores,
	}
	for token, id := range tokenToID {
		v.tokenToID[token] = id
		v.idToToken[id] = token
	}
	return v
}

// addToken registers an added/special token. Added tokens may redefine ids above the
// model vocabulary range.
func (v *Vocabulary) addToken(token string, id int) {
	v.tokenToID[token] = id
	v.idToToken[id] = token
}

// TokenToID returns the id for the token, and whether it is present.
func (v *Vocabulary) TokenToID(token string) (int, bool) {
	id, ok := v.tokenToID[token]
	return id, ok
}

// IDToToken returns the token string for the id, and whether it is present.
func (v *Vocabulary) IDToToken(id int) (string, bool) {
	token, ok := v.idToToken[id]
	return token, ok
}

// Score returns the unigram log-probability for the id, or 0 for non-Unigram models.
func (v *Vocabulary) Score(id int) float64 {
	if id < 0 || id >= len(v.scores) {
		return 0
	}
	return v.scores[id]
}

// Size returns the number of distinct token strings.
func (v *Vocabulary) Size() int {
	return len(v.tokenToID)
}

// Tokens returns all token strings. The order is unspecified.
func (v *Vocabulary) Tokens() []string {
	tokens := make([]string, 0, len(v.tokenToID))
	for token := range v.tokenToID {
		tokens = append(tokens, token)
	}
	return tokens
}
