package hf

import "github.com/pkg/errors"

// postProcessor injects special tokens around one or two already-tokenized sequences.
// It returns the final token strings plus one segment type id per token.
type postProcessor interface {
	postProcess(tokens, tokensPair []string) ([]string, []int)
}

// newPostProcessor builds the post-processor described by the spec. Unknown type
// strings are a construction-time error.
func newPostProcessor(spec *postProcessorSpec) (postProcessor, error) {
	if spec == nil {
		return nil, nil
	}
	switch spec.Type {
	case "TemplateProcessing":
		return &templateProcessor{single: spec.Single, pair: spec.Pair}, nil
	case "RobertaProcessing":
		if spec.Cls == nil || spec.Sep == nil {
			return nil, errors.Errorf("RobertaProcessing requires cls and sep tokens")
		}
		return &robertaProcessor{cls: spec.Cls.Token, sep: spec.Sep.Token}, nil
	case "BertProcessing":
		if spec.Cls == nil || spec.Sep == nil {
			return nil, errors.Errorf("BertProcessing requires cls and sep tokens")
		}
		return &bertProcessor{cls: spec.Cls.Token, sep: spec.Sep.Token}, nil
	case "ByteLevel":
		// Special tokens are handled entirely upstream.
		return byteLevelProcessor{}, nil
	default:
		return nil, errors.Errorf("unknown post-processor type %q", spec.Type)
	}
}

// templateProcessor substitutes sequences and special tokens into the declarative
// template, choosing the pair template when a second sequence is present.
type templateProcessor struct {
	single, pair []templateEntry
}

func (p *templateProcessor) postProcess(tokens, tokensPair []string) ([]string, []int) {
	template := p.single
	if tokensPair != nil {
		template = p.pair
	}
	var out []string
	var typeIDs []int
	for _, entry := range template {
		switch {
		case entry.SpecialToken != nil:
			out = append(out, entry.SpecialToken.ID)
			typeIDs = append(typeIDs, entry.SpecialToken.TypeID)
		case entry.Sequence != nil:
			seq := tokens
			if entry.Sequence.ID == "B" {
				seq = tokensPair
			}
			out = append(out, seq...)
			for range seq {
				typeIDs = append(typeIDs, entry.Sequence.TypeID)
			}
		}
	}
	return out, typeIDs
}

// robertaProcessor wraps single input as [CLS ... SEP] and paired input as
// [CLS ... SEP SEP ... SEP]. The doubled separator between the segments is a quirk of
// the RoBERTa specification and is preserved exactly. Segment type ids stay 0
// throughout, as RoBERTa does not use them.
type robertaProcessor struct {
	cls, sep string
}

func (p *robertaProcessor) postProcess(tokens, tokensPair []string) ([]string, []int) {
	out := make([]string, 0, len(tokens)+len(tokensPair)+4)
	out = append(out, p.cls)
	out = append(out, tokens...)
	out = append(out, p.sep)
	if tokensPair != nil {
		out = append(out, p.sep)
		out = append(out, tokensPair...)
		out = append(out, p.sep)
	}
	return out, make([]int, len(out))
}

// bertProcessor wraps single input as [CLS ... SEP] and paired input as
// [CLS ... SEP ... SEP], with type id 1 over the second segment and its separator.
type bertProcessor struct {
	cls, sep string
}

func (p *bertProcessor) postProcess(tokens, tokensPair []string) ([]string, []int) {
	out := make([]string, 0, len(tokens)+len(tokensPair)+3)
	out = append(out, p.cls)
	out = append(out, tokens...)
	out = append(out, p.sep)
	typeIDs := make([]int, len(out), cap(out))
	if tokensPair != nil {
		out = append(out, tokensPair...)
		out = append(out, p.sep)
		for len(typeIDs) < len(out) {
			typeIDs = append(typeIDs, 1)
		}
	}
	return out, typeIDs
}

// byteLevelProcessor returns tokens unchanged.
type byteLevelProcessor struct{}

func (byteLevelProcessor) postProcess(tokens, tokensPair []string) ([]string, []int) {
	out := append(append([]string{}, tokens...), tokensPair...)
	return out, make([]int, len(out))
}
