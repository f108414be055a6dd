package hf

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// preTokenizer splits normalized text into an ordered sequence of substrings, each of
// which is fed to the model independently.
type preTokenizer interface {
	preTokenize(text string) []string
}

// defaultMetaspace is the glyph SentencePiece-style tokenizers use in place of spaces.
const defaultMetaspace = "▁"

// newPreTokenizer builds the pre-tokenizer described by the spec. Unknown type strings
// are a construction-time error.
func newPreTokenizer(spec *preTokenizerSpec) (preTokenizer, error) {
	if spec == nil {
		return nil, nil
	}
	switch spec.Type {
	case "BertPreTokenizer":
		return bertPreTokenizer{}, nil
	case "ByteLevel":
		useRegex := true
		if spec.UseRegex != nil {
			useRegex = *spec.UseRegex
		}
		return &byteLevelPreTokenizer{
			addPrefixSpace: spec.AddPrefixSpace,
			useRegex:       useRegex,
		}, nil
	case "Whitespace":
		return whitespacePreTokenizer{}, nil
	case "WhitespaceSplit":
		return whitespaceSplitPreTokenizer{}, nil
	case "Metaspace":
		replacement := spec.Replacement
		if replacement == "" {
			replacement = defaultMetaspace
		}
		addPrefix := spec.AddPrefixSpace
		if spec.PrependScheme != "" {
			addPrefix = spec.PrependScheme != "never"
		}
		return &metaspacePreTokenizer{replacement: replacement, addPrefixSpace: addPrefix}, nil
	case "Punctuation":
		return punctuationPreTokenizer{}, nil
	case "Digits":
		return digitsPreTokenizer{individual: spec.IndividualDigits}, nil
	case "Split":
		if spec.Pattern == nil {
			return nil, errors.Errorf("Split pre-tokenizer requires a pattern")
		}
		pattern := spec.Pattern.Regex
		if pattern == "" {
			pattern = regexp.QuoteMeta(spec.Pattern.String)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid Split pre-tokenizer pattern %q", pattern)
		}
		switch spec.Behavior {
		case "Removed", "Isolated", "":
		default:
			return nil, errors.Errorf("unsupported Split pre-tokenizer behavior %q", spec.Behavior)
		}
		return &splitPreTokenizer{re: re, behavior: spec.Behavior, invert: spec.Invert}, nil
	case "Sequence":
		children := make([]preTokenizer, 0, len(spec.PreTokenizers))
		for i := range spec.PreTokenizers {
			child, err := newPreTokenizer(&spec.PreTokenizers[i])
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		return sequencePreTokenizer{children: children}, nil
	default:
		return nil, errors.Errorf("unknown pre-tokenizer type %q", spec.Type)
	}
}

// bertPreTokenizer separates alphanumeric runs from punctuation runs and drops
// whitespace.
type bertPreTokenizer struct{}

var bertPreTokenizeRegex = regexp.MustCompile(`\b\w+\b|[^\s\w]+`)

func (bertPreTokenizer) preTokenize(text string) []string {
	return bertPreTokenizeRegex.FindAllString(strings.TrimSpace(text), -1)
}

// byteLevelPreTokenizer splits with the GPT-2 pattern and maps every piece through the
// byte-to-unicode table, so the model only ever sees mapped alphabet symbols.
type byteLevelPreTokenizer struct {
	addPrefixSpace bool
	useRegex       bool
}

// gpt2SplitRegex is the GPT-2 pre-tokenization pattern, without the negative lookahead
// of the original (RE2 has none); splitWithSpaceAttachment restores its behavior.
var gpt2SplitRegex = regexp.MustCompile(`'s|'t|'re|'ve|'m|'ll|'d| ?\p{L}+| ?\p{N}+| ?[^\s\p{L}\p{N}]+|\s+`)

func (p *byteLevelPreTokenizer) preTokenize(text string) []string {
	if text == "" {
		return nil
	}
	if p.addPrefixSpace && !strings.HasPrefix(text, " ") {
		text = " " + text
	}
	if !p.useRegex {
		return []string{bytesToUnicode(text)}
	}
	pieces := splitWithSpaceAttachment(text)
	for i, piece := range pieces {
		pieces[i] = bytesToUnicode(piece)
	}
	return pieces
}

// splitWithSpaceAttachment applies gpt2SplitRegex and reproduces the original pattern's
// `\s+(?!\S)` alternative: the last character of a whitespace run that precedes a word
// belongs to the word, not to the run. A withheld single space is re-attached as the
// word's prefix; any other withheld whitespace character stands alone.
func splitWithSpaceAttachment(text string) []string {
	matches := gpt2SplitRegex.FindAllStringIndex(text, -1)
	pieces := make([]string, 0, len(matches))
	carry := ""
	for _, m := range matches {
		piece := text[m[0]:m[1]]
		if carry != "" {
			if carry == " " {
				piece = carry + piece
			} else {
				pieces = append(pieces, carry)
			}
			carry = ""
		}
		if m[1] < len(text) && isAllWhitespace(piece) {
			_, size := utf8.DecodeLastRuneInString(piece)
			carry = piece[len(piece)-size:]
			piece = piece[:len(piece)-size]
		}
		if piece != "" {
			pieces = append(pieces, piece)
		}
	}
	if carry != "" {
		pieces = append(pieces, carry)
	}
	return pieces
}

func isAllWhitespace(s string) bool {
	for _, r := range s {
		if !isTokenizationWhitespace(r) {
			return false
		}
	}
	return s != ""
}

// whitespacePreTokenizer splits into word runs and punctuation runs (the tokenizers
// "Whitespace" behavior, not a plain split).
type whitespacePreTokenizer struct{}

var whitespaceWordRegex = regexp.MustCompile(`\w+|[^\w\s]+`)

func (whitespacePreTokenizer) preTokenize(text string) []string {
	return whitespaceWordRegex.FindAllString(text, -1)
}

// whitespaceSplitPreTokenizer splits on whitespace runs, dropping them.
type whitespaceSplitPreTokenizer struct{}

func (whitespaceSplitPreTokenizer) preTokenize(text string) []string {
	return strings.Fields(text)
}

// metaspacePreTokenizer rewrites spaces to the replacement glyph and optionally prepends
// one; the result stays a single piece, segmentation is left to the model (Unigram).
type metaspacePreTokenizer struct {
	replacement    string
	addPrefixSpace bool
}

func (p *metaspacePreTokenizer) preTokenize(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, " ", p.replacement)
	if p.addPrefixSpace && !strings.HasPrefix(text, p.replacement) {
		text = p.replacement + text
	}
	return []string{text}
}

// punctuationPreTokenizer isolates punctuation runs from everything else.
type punctuationPreTokenizer struct{}

func (punctuationPreTokenizer) preTokenize(text string) []string {
	var pieces []string
	var current strings.Builder
	currentPunct := false
	flush := func() {
		if current.Len() > 0 {
			pieces = append(pieces, current.String())
			current.Reset()
		}
	}
	for _, r := range text {
		punct := isTokenizationPunct(r)
		if current.Len() > 0 && punct != currentPunct {
			flush()
		}
		currentPunct = punct
		current.WriteRune(r)
	}
	flush()
	return pieces
}

// digitsPreTokenizer isolates digit runs from everything else; with individual set,
// every digit becomes a piece of its own.
type digitsPreTokenizer struct {
	individual bool
}

func (p digitsPreTokenizer) preTokenize(text string) []string {
	var pieces []string
	var current strings.Builder
	currentDigit := false
	flush := func() {
		if current.Len() > 0 {
			pieces = append(pieces, current.String())
			current.Reset()
		}
	}
	for _, r := range text {
		digit := unicode.IsDigit(r)
		if current.Len() > 0 && (digit != currentDigit || (digit && p.individual)) {
			flush()
		}
		currentDigit = digit
		current.WriteRune(r)
	}
	flush()
	return pieces
}

// splitPreTokenizer splits on a regex pattern. With behavior "Removed" the separators
// are dropped; with "Isolated" they become pieces of their own. With invert set, the
// pattern matches the pieces instead of the separators.
type splitPreTokenizer struct {
	re       *regexp.Regexp
	behavior string
	invert   bool
}

func (p *splitPreTokenizer) preTokenize(text string) []string {
	if p.invert {
		return p.re.FindAllString(text, -1)
	}
	var pieces []string
	last := 0
	for _, m := range p.re.FindAllStringIndex(text, -1) {
		if m[0] > last {
			pieces = append(pieces, text[last:m[0]])
		}
		if p.behavior == "Isolated" && m[1] > m[0] {
			pieces = append(pieces, text[m[0]:m[1]])
		}
		last = m[1]
	}
	if last < len(text) {
		pieces = append(pieces, text[last:])
	}
	return pieces
}

// sequencePreTokenizer chains pre-tokenizers; each stage's output list becomes the next
// stage's input list, flattened.
type sequencePreTokenizer struct{ children []preTokenizer }

func (p sequencePreTokenizer) preTokenize(text string) []string {
	pieces := []string{text}
	for _, child := range p.children {
		next := make([]string, 0, len(pieces))
		for _, piece := range pieces {
			next = append(next, child.preTokenize(piece)...)
		}
		pieces = next
	}
	return pieces
}
