package hf

// tokenLattice is the DAG of candidate token spans over the character offsets of one
// sentence, solved by Viterbi search. It is created, solved and discarded per encode
// call; nodes live in a single arena slice and refer to each other by index, never by
// pointer, so there is no ownership cycle to manage.
type tokenLattice struct {
	sentence []rune
	nodes    []latticeNode

	// beginNodes[pos] and endNodes[pos] list, by arena index, every node beginning and
	// ending at each character offset in [0, len(sentence)].
	beginNodes [][]int
	endNodes   [][]int

	bos, eos int // Arena indices of the synthetic boundary nodes.
}

// noPrev marks a node with no predecessor on any path.
const noPrev = -1

type latticeNode struct {
	tokenID int
	pos     int
	length  int
	score   float64

	// Filled by viterbi.
	prev           int
	backtraceScore float64
}

func newTokenLattice(sentence []rune) *tokenLattice {
	n := len(sentence)
	l := &tokenLattice{
		sentence:   sentence,
		nodes:      make([]latticeNode, 0, n+2),
		beginNodes: make([][]int, n+1),
		endNodes:   make([][]int, n+1),
	}
	// Synthetic BOS at offset 0 and EOS at offset n, both with score 0; they bound every
	// path and are never merged away.
	l.bos = l.addNode(latticeNode{tokenID: -1, pos: 0, length: 0, prev: noPrev})
	l.endNodes[0] = append(l.endNodes[0], l.bos)
	l.eos = l.addNode(latticeNode{tokenID: -1, pos: n, length: 0, prev: noPrev})
	l.beginNodes[n] = append(l.beginNodes[n], l.eos)
	return l
}

func (l *tokenLattice) addNode(node latticeNode) int {
	l.nodes = append(l.nodes, node)
	return len(l.nodes) - 1
}

// insert adds a candidate token span of the given rune length starting at pos.
func (l *tokenLattice) insert(pos, length int, score float64, tokenID int) {
	idx := l.addNode(latticeNode{tokenID: tokenID, pos: pos, length: length, score: score, prev: noPrev})
	l.beginNodes[pos] = append(l.beginNodes[pos], idx)
	l.endNodes[pos+length] = append(l.endNodes[pos+length], idx)
}

// viterbi computes the best-scoring path from BOS to EOS and returns the arena indices
// of its token nodes, in sentence order. It returns nil when the lattice has no complete
// path; callers must treat that as "untokenizable", not as an error.
func (l *tokenLattice) viterbi() []int {
	n := len(l.sentence)
	for pos := 0; pos <= n; pos++ {
		if len(l.beginNodes[pos]) == 0 {
			return nil
		}
		for _, rIdx := range l.beginNodes[pos] {
			rnode := &l.nodes[rIdx]
			rnode.prev = noPrev
			bestScore := 0.0
			bestIdx := noPrev
			for _, lIdx := range l.endNodes[pos] {
				lnode := &l.nodes[lIdx]
				if lIdx != l.bos && lnode.prev == noPrev {
					continue // Unreachable predecessor.
				}
				score := lnode.backtraceScore + rnode.score
				// First best wins on exact ties, in enumeration order.
				if bestIdx == noPrev || score > bestScore {
					bestIdx = lIdx
					bestScore = score
				}
			}
			if bestIdx == noPrev {
				continue
			}
			rnode.prev = bestIdx
			rnode.backtraceScore = bestScore
		}
	}
	if l.nodes[l.eos].prev == noPrev {
		return nil
	}

	// Reconstruct the path backwards from EOS, then reverse.
	var path []int
	for idx := l.nodes[l.eos].prev; idx != l.bos && idx != noPrev; idx = l.nodes[idx].prev {
		path = append(path, idx)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// tokenText returns the sentence substring covered by the node.
func (l *tokenLattice) tokenText(idx int) string {
	node := &l.nodes[idx]
	return string(l.sentence[node.pos : node.pos+node.length])
}
