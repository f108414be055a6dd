package hf

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// decoder converts token strings back to text, the inverse of pre-tokenizer + model
// where one exists. Decoding never fails: malformed byte sequences degrade to the
// unicode replacement character.
type decoder interface {
	decode(tokens []string) string
}

// newDecoder builds the decoder described by the spec. Unknown type strings are a
// construction-time error.
func newDecoder(spec *decoderSpec) (decoder, error) {
	if spec == nil {
		return nil, nil
	}
	switch spec.Type {
	case "WordPiece":
		prefix := spec.Prefix
		if prefix == "" {
			prefix = "##"
		}
		return &wordPieceDecoder{prefix: prefix}, nil
	case "ByteLevel":
		return byteLevelDecoder{}, nil
	case "Metaspace":
		replacement := spec.Replacement
		if replacement == "" {
			replacement = defaultMetaspace
		}
		addPrefix := spec.AddPrefixSpace
		if spec.PrependScheme != "" {
			addPrefix = spec.PrependScheme != "never"
		}
		return &metaspaceDecoder{replacement: replacement, addPrefixSpace: addPrefix}, nil
	case "BPEDecoder":
		suffix := spec.Suffix
		if suffix == "" {
			suffix = "</w>"
		}
		return &bpeSuffixDecoder{suffix: suffix}, nil
	case "Sequence":
		steps := make([]sequenceDecodeStep, 0, len(spec.Decoders))
		for i := range spec.Decoders {
			step, err := newSequenceDecodeStep(&spec.Decoders[i])
			if err != nil {
				return nil, err
			}
			steps = append(steps, step)
		}
		return &sequenceDecoder{steps: steps}, nil
	default:
		return nil, errors.Errorf("unknown decoder type %q", spec.Type)
	}
}

// wordPieceDecoder joins tokens with spaces, then removes the continuing-subword marker
// (space + prefix) everywhere it occurs.
type wordPieceDecoder struct {
	prefix string
}

func (d *wordPieceDecoder) decode(tokens []string) string {
	joined := strings.Join(tokens, " ")
	joined = strings.ReplaceAll(joined, " "+d.prefix, "")
	return strings.TrimSpace(joined)
}

// byteLevelDecoder joins tokens, maps each rune back through the inverse byte table and
// decodes the byte buffer as UTF-8; invalid sequences become the replacement character,
// never an error.
type byteLevelDecoder struct{}

func (byteLevelDecoder) decode(tokens []string) string {
	raw := unicodeToBytes(strings.Join(tokens, ""))
	return strings.ToValidUTF8(string(raw), "�")
}

// metaspaceDecoder rewrites the metaspace glyph back to spaces; when the pre-tokenizer
// added a prefix glyph, exactly one leading space is stripped again.
type metaspaceDecoder struct {
	replacement    string
	addPrefixSpace bool
}

func (d *metaspaceDecoder) decode(tokens []string) string {
	text := strings.ReplaceAll(strings.Join(tokens, ""), d.replacement, " ")
	if d.addPrefixSpace {
		text = strings.TrimPrefix(text, " ")
	}
	return text
}

// bpeSuffixDecoder handles end-of-word-suffix BPE vocabularies: the suffix marks word
// boundaries and becomes a space.
type bpeSuffixDecoder struct {
	suffix string
}

func (d *bpeSuffixDecoder) decode(tokens []string) string {
	joined := strings.Join(tokens, "")
	joined = strings.ReplaceAll(joined, d.suffix, " ")
	return strings.TrimRight(joined, " ")
}

// sequenceDecoder applies a chain of token-list rewriting steps, then joins.
type sequenceDecoder struct {
	steps []sequenceDecodeStep
}

func (d *sequenceDecoder) decode(tokens []string) string {
	tokens = append([]string{}, tokens...)
	for _, step := range d.steps {
		tokens = step.apply(tokens)
	}
	return strings.Join(tokens, "")
}

type sequenceDecodeStep interface {
	apply(tokens []string) []string
}

func newSequenceDecodeStep(spec *decoderSpec) (sequenceDecodeStep, error) {
	switch spec.Type {
	case "Replace":
		if spec.Pattern == nil {
			return nil, errors.Errorf("Replace decoder step requires a pattern")
		}
		if spec.Pattern.Regex != "" {
			re, err := regexp.Compile(spec.Pattern.Regex)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid Replace decoder pattern %q", spec.Pattern.Regex)
			}
			return &replaceStep{re: re, content: spec.Content}, nil
		}
		return &replaceStep{literal: spec.Pattern.String, content: spec.Content}, nil
	case "Strip":
		return &stripStep{content: spec.Content, start: spec.Start, stop: spec.Stop}, nil
	case "ByteFallback":
		return byteFallbackStep{}, nil
	case "Fuse":
		return fuseStep{}, nil
	default:
		return nil, errors.Errorf("unknown decoder step type %q", spec.Type)
	}
}

type replaceStep struct {
	re      *regexp.Regexp
	literal string
	content string
}

func (s *replaceStep) apply(tokens []string) []string {
	for i, token := range tokens {
		if s.re != nil {
			tokens[i] = s.re.ReplaceAllLiteralString(token, s.content)
		} else {
			tokens[i] = strings.ReplaceAll(token, s.literal, s.content)
		}
	}
	return tokens
}

// stripStep removes up to start copies of content from the head of each token and up to
// stop copies from its tail.
type stripStep struct {
	content     string
	start, stop int
}

func (s *stripStep) apply(tokens []string) []string {
	for i, token := range tokens {
		for n := 0; n < s.start && strings.HasPrefix(token, s.content); n++ {
			token = token[len(s.content):]
		}
		for n := 0; n < s.stop && strings.HasSuffix(token, s.content); n++ {
			token = token[:len(token)-len(s.content)]
		}
		tokens[i] = token
	}
	return tokens
}

// byteFallbackStep folds runs of "<0xNN>" byte tokens into the characters they encode;
// runs that do not form valid UTF-8 become replacement characters.
type byteFallbackStep struct{}

func (byteFallbackStep) apply(tokens []string) []string {
	var out []string
	var pending []byte
	flush := func() {
		if len(pending) > 0 {
			out = append(out, strings.ToValidUTF8(string(pending), "�"))
			pending = nil
		}
	}
	for _, token := range tokens {
		if b, ok := parseByteToken(token); ok {
			pending = append(pending, b)
			continue
		}
		flush()
		out = append(out, token)
	}
	flush()
	return out
}

func parseByteToken(token string) (byte, bool) {
	if len(token) != 6 || !strings.HasPrefix(token, "<0x") || !strings.HasSuffix(token, ">") {
		return 0, false
	}
	v, err := strconv.ParseUint(token[3:5], 16, 8)
	if err != nil {
		return 0, false
	}
	return byte(v), true
}

// fuseStep joins all tokens into one.
type fuseStep struct{}

func (fuseStep) apply(tokens []string) []string {
	if len(tokens) <= 1 {
		return tokens
	}
	return []string{strings.Join(tokens, "")}
}
