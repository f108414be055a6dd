package hf

// charTrie is a prefix tree over vocabulary strings, keyed by rune. It is built once
// from the full vocabulary at model construction and never mutated afterwards, so it is
// safe to share across concurrent encode calls.
type charTrie struct {
	root *trieNode
}

type trieNode struct {
	isLeaf   bool
	children map[rune]*trieNode
}

func newCharTrie(tokens []string) *charTrie {
	t := &charTrie{root: &trieNode{children: make(map[rune]*trieNode)}}
	for _, token := range tokens {
		t.insert(token)
	}
	return t
}

func (t *charTrie) insert(token string) {
	node := t.root
	for _, r := range token {
		child, ok := node.children[r]
		if !ok {
			child = &trieNode{children: make(map[rune]*trieNode)}
			node.children[r] = child
		}
		node = child
	}
	node.isLeaf = true
}

// commonPrefixSearch returns the lengths (in runes) of every vocabulary string that is a
// prefix of the given rune slice, in increasing order.
func (t *charTrie) commonPrefixSearch(runes []rune) []int {
	var lengths []int
	node := t.root
	for i, r := range runes {
		child, ok := node.children[r]
		if !ok {
			break
		}
		node = child
		if node.isLeaf {
			lengths = append(lengths, i+1)
		}
	}
	return lengths
}
