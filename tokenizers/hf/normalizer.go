package hf

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"golang.org/x/text/unicode/norm"
)

// normalizer is the text -> text transform applied before pre-tokenization.
// Implementations are pure and safe for concurrent use.
type normalizer interface {
	normalize(text string) string
}

// newNormalizer builds the normalizer described by the spec. Unknown type strings are a
// construction-time error, never silently defaulted.
func newNormalizer(spec *normalizerSpec) (normalizer, error) {
	if spec == nil {
		return nil, nil
	}
	switch spec.Type {
	case "BertNormalizer":
		stripAccents := spec.Lowercase
		if spec.StripAccents != nil {
			stripAccents = *spec.StripAccents
		}
		cleanText := true
		if spec.CleanText != nil {
			cleanText = *spec.CleanText
		}
		handleChineseChars := true
		if spec.HandleChineseChars != nil {
			handleChineseChars = *spec.HandleChineseChars
		}
		return &bertNormalizer{
			cleanText:          cleanText,
			handleChineseChars: handleChineseChars,
			lowercase:          spec.Lowercase,
			stripAccents:       stripAccents,
		}, nil
	case "Lowercase":
		return lowercaseNormalizer{}, nil
	case "NFD":
		return unicodeNormalizer{form: norm.NFD}, nil
	case "NFC":
		return unicodeNormalizer{form: norm.NFC}, nil
	case "NFKD":
		return unicodeNormalizer{form: norm.NFKD}, nil
	case "NFKC":
		return unicodeNormalizer{form: norm.NFKC}, nil
	case "StripAccents":
		return stripAccentsNormalizer{}, nil
	case "Replace":
		if spec.Pattern == nil {
			return nil, errors.Errorf("Replace normalizer requires a pattern")
		}
		if spec.Pattern.Regex != "" {
			re, err := regexp.Compile(spec.Pattern.Regex)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid Replace normalizer pattern %q", spec.Pattern.Regex)
			}
			return &replaceNormalizer{re: re, content: spec.Content}, nil
		}
		return &replaceNormalizer{literal: spec.Pattern.String, content: spec.Content}, nil
	case "Prepend":
		return &prependNormalizer{prefix: spec.Prepend}, nil
	case "Precompiled":
		// SentencePiece precompiled charsmaps are not interpreted; the normalizer behaves
		// as identity. Documented limitation.
		return precompiledNormalizer{}, nil
	case "Sequence":
		children := make([]normalizer, 0, len(spec.Normalizers))
		for i := range spec.Normalizers {
			child, err := newNormalizer(&spec.Normalizers[i])
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		return sequenceNormalizer{children: children}, nil
	default:
		return nil, errors.Errorf("unknown normalizer type %q", spec.Type)
	}
}

// bertNormalizer cleans the text, isolates CJK characters with spaces, optionally strips
// accents and lowercases, following BERT's basic tokenizer.
type bertNormalizer struct {
	cleanText          bool
	handleChineseChars bool
	lowercase          bool
	stripAccents       bool
}

func (n *bertNormalizer) normalize(text string) string {
	if n.cleanText {
		text = cleanText(text)
	}
	if n.handleChineseChars {
		text = padChineseChars(text)
	}
	if n.stripAccents {
		text = stripAccents(text)
	}
	if n.lowercase {
		text = strings.ToLower(text)
	}
	return text
}

// cleanText drops U+0000, the replacement character and control characters, and maps all
// whitespace to a plain space.
func cleanText(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		if r == 0 || r == 0xFFFD || isTokenizationControl(r) {
			continue
		}
		if isTokenizationWhitespace(r) {
			sb.WriteRune(' ')
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// padChineseChars surrounds every CJK codepoint with spaces so the pre-tokenizer splits
// them into single-character tokens. The padding is unconditional, so re-normalizing CJK
// text keeps widening the gaps: bertNormalizer is idempotent only on CJK-free input.
func padChineseChars(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		if isChineseChar(r) {
			sb.WriteRune(' ')
			sb.WriteRune(r)
			sb.WriteRune(' ')
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// stripAccents applies NFD decomposition and drops combining marks (category Mn). It
// operates on runes, not UTF-16 code units.
func stripAccents(text string) string {
	decomposed := norm.NFD.String(text)
	var sb strings.Builder
	sb.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

type lowercaseNormalizer struct{}

func (lowercaseNormalizer) normalize(text string) string { return strings.ToLower(text) }

type unicodeNormalizer struct{ form norm.Form }

func (n unicodeNormalizer) normalize(text string) string { return n.form.String(text) }

type stripAccentsNormalizer struct{}

func (stripAccentsNormalizer) normalize(text string) string { return stripAccents(text) }

// replaceNormalizer applies a single pattern replacement with a literal replacement
// string. The pattern is either a regular expression or a literal.
type replaceNormalizer struct {
	re      *regexp.Regexp
	literal string
	content string
}

func (n *replaceNormalizer) normalize(text string) string {
	if n.re != nil {
		return n.re.ReplaceAllLiteralString(text, n.content)
	}
	return strings.ReplaceAll(text, n.literal, n.content)
}

type prependNormalizer struct{ prefix string }

func (n *prependNormalizer) normalize(text string) string {
	if text == "" || strings.HasPrefix(text, n.prefix) {
		return text
	}
	return n.prefix + text
}

type precompiledNormalizer struct{}

func (precompiledNormalizer) normalize(text string) string { return text }

// sequenceNormalizer applies child normalizers in listed order, left to right.
type sequenceNormalizer struct{ children []normalizer }

func (n sequenceNormalizer) normalize(text string) string {
	for _, child := range n.children {
		text = child.normalize(text)
	}
	return text
}

func isTokenizationWhitespace(r rune) bool {
	if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

func isTokenizationControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return unicode.IsControl(r)
}

func isTokenizationPunct(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) || (r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

// isChineseChar reports whether r is in one of the CJK unicode blocks BERT isolates.
func isChineseChar(r rune) bool {
	switch {
	case r >= 0x4E00 && r <= 0x9FFF,
		r >= 0x3400 && r <= 0x4DBF,
		r >= 0x20000 && r <= 0x2A6DF,
		r >= 0x2A700 && r <= 0x2B73F,
		r >= 0x2B740 && r <= 0x2B81F,
		r >= 0x2B820 && r <= 0x2CEAF,
		r >= 0xF900 && r <= 0xFAFF,
		r >= 0x2F800 && r <= 0x2FA1F:
		return true
	}
	return false
}
