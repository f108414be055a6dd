package hf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWordPieceDecoder(t *testing.T) {
	d, err := newDecoder(&decoderSpec{Type: "WordPiece", Prefix: "##"})
	require.NoError(t, err)
	assert.Equal(t, "unaffable test", d.decode([]string{"un", "##aff", "##able", "test"}))
	assert.Equal(t, "", d.decode(nil))
}

func TestByteLevelDecoder(t *testing.T) {
	d, err := newDecoder(&decoderSpec{Type: "ByteLevel"})
	require.NoError(t, err)
	assert.Equal(t, "Hello world", d.decode([]string{"Hello", "Ġworld"}))
	// Byte tokens that split a multi-byte character still decode, the pieces fuse
	// back into valid UTF-8.
	mapped := bytesToUnicode("中")
	assert.Equal(t, "中", d.decode([]string{mapped[:len(mapped)/3], mapped[len(mapped)/3:]}))
}

func TestMetaspaceDecoder(t *testing.T) {
	d, err := newDecoder(&decoderSpec{Type: "Metaspace", Replacement: "▁", AddPrefixSpace: true})
	require.NoError(t, err)
	assert.Equal(t, "Hello world", d.decode([]string{"▁Hello", "▁world"}))

	d, err = newDecoder(&decoderSpec{Type: "Metaspace", Replacement: "▁", PrependScheme: "never"})
	require.NoError(t, err)
	assert.Equal(t, " Hello", d.decode([]string{"▁Hello"}))
}

func TestBPESuffixDecoder(t *testing.T) {
	d, err := newDecoder(&decoderSpec{Type: "BPEDecoder", Suffix: "</w>"})
	require.NoError(t, err)
	assert.Equal(t, "hello world", d.decode([]string{"hello</w>", "world</w>"}))
}

func TestSequenceDecoder(t *testing.T) {
	// Llama-style chain: fold byte tokens, fuse, rewrite the metaspace glyph and strip
	// the leading space.
	d, err := newDecoder(&decoderSpec{
		Type: "Sequence",
		Decoders: []decoderSpec{
			{Type: "Replace", Pattern: &patternSpec{String: "▁"}, Content: " "},
			{Type: "ByteFallback"},
			{Type: "Fuse"},
			{Type: "Strip", Content: " ", Start: 1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "hi there", d.decode([]string{"▁hi", "▁the", "<0x72>", "<0x65>"}))
}

func TestByteFallbackStep(t *testing.T) {
	step := byteFallbackStep{}
	assert.Equal(t, []string{"hi"}, step.apply([]string{"<0x68>", "<0x69>"}))
	// An invalid UTF-8 run degrades to the replacement character.
	assert.Equal(t, []string{"�", "ok"}, step.apply([]string{"<0xFF>", "ok"}))
	// Non-byte tokens break runs.
	assert.Equal(t, []string{"h", "x", "i"}, step.apply([]string{"<0x68>", "x", "<0x69>"}))
}

func TestStripStep(t *testing.T) {
	step := &stripStep{content: " ", start: 1, stop: 2}
	assert.Equal(t, []string{" a  "}, step.apply([]string{"  a    "}))
}

func TestUnknownDecoderType(t *testing.T) {
	_, err := newDecoder(&decoderSpec{Type: "NoSuchDecoder"})
	require.ErrorContains(t, err, "NoSuchDecoder")
}
