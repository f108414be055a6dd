package hf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateProcessor(t *testing.T) {
	p, err := newPostProcessor(&postProcessorSpec{
		Type: "TemplateProcessing",
		Single: []templateEntry{
			{SpecialToken: &templateRef{ID: "[CLS]"}},
			{Sequence: &templateRef{ID: "A"}},
			{SpecialToken: &templateRef{ID: "[SEP]"}},
		},
		Pair: []templateEntry{
			{SpecialToken: &templateRef{ID: "[CLS]"}},
			{Sequence: &templateRef{ID: "A"}},
			{SpecialToken: &templateRef{ID: "[SEP]"}},
			{Sequence: &templateRef{ID: "B", TypeID: 1}},
			{SpecialToken: &templateRef{ID: "[SEP]", TypeID: 1}},
		},
	})
	require.NoError(t, err)

	tokens, typeIDs := p.postProcess([]string{"hello"}, nil)
	assert.Equal(t, []string{"[CLS]", "hello", "[SEP]"}, tokens)
	assert.Equal(t, []int{0, 0, 0}, typeIDs)

	tokens, typeIDs = p.postProcess([]string{"hello"}, []string{"hi", "there"})
	assert.Equal(t, []string{"[CLS]", "hello", "[SEP]", "hi", "there", "[SEP]"}, tokens)
	assert.Equal(t, []int{0, 0, 0, 1, 1, 1}, typeIDs)
}

func TestRobertaProcessorDoublesSeparator(t *testing.T) {
	p, err := newPostProcessor(&postProcessorSpec{
		Type: "RobertaProcessing",
		Cls:  &tokenRef{Token: "<s>", ID: 0},
		Sep:  &tokenRef{Token: "</s>", ID: 2},
	})
	require.NoError(t, err)

	tokens, typeIDs := p.postProcess([]string{"a"}, nil)
	assert.Equal(t, []string{"<s>", "a", "</s>"}, tokens)
	assert.Equal(t, []int{0, 0, 0}, typeIDs)

	// Paired input gets the doubled separator between the segments, and segment type
	// ids stay zero throughout.
	tokens, typeIDs = p.postProcess([]string{"a"}, []string{"b"})
	assert.Equal(t, []string{"<s>", "a", "</s>", "</s>", "b", "</s>"}, tokens)
	assert.Equal(t, []int{0, 0, 0, 0, 0, 0}, typeIDs)
}

func TestBertProcessor(t *testing.T) {
	p, err := newPostProcessor(&postProcessorSpec{
		Type: "BertProcessing",
		Cls:  &tokenRef{Token: "[CLS]", ID: 101},
		Sep:  &tokenRef{Token: "[SEP]", ID: 102},
	})
	require.NoError(t, err)

	tokens, typeIDs := p.postProcess([]string{"a", "b"}, []string{"c"})
	assert.Equal(t, []string{"[CLS]", "a", "b", "[SEP]", "c", "[SEP]"}, tokens)
	assert.Equal(t, []int{0, 0, 0, 0, 1, 1}, typeIDs)
}

func TestByteLevelProcessor(t *testing.T) {
	p, err := newPostProcessor(&postProcessorSpec{Type: "ByteLevel"})
	require.NoError(t, err)
	tokens, typeIDs := p.postProcess([]string{"a"}, []string{"b"})
	assert.Equal(t, []string{"a", "b"}, tokens)
	assert.Equal(t, []int{0, 0}, typeIDs)
}

func TestUnknownPostProcessorType(t *testing.T) {
	_, err := newPostProcessor(&postProcessorSpec{Type: "NoSuchProcessor"})
	require.ErrorContains(t, err, "NoSuchProcessor")
}
