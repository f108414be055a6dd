package hf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestBertNormalizer(t *testing.T) {
	n, err := newNormalizer(&normalizerSpec{Type: "BertNormalizer", Lowercase: true})
	require.NoError(t, err)

	// Lowercasing also strips accents when strip_accents is absent.
	assert.Equal(t, "hello world", n.normalize("Héllo\tWorld"))
	// Control characters are dropped, all whitespace becomes plain spaces.
	assert.Equal(t, "a b", n.normalize("a\u0000\u007F\nb"))
	// CJK codepoints get isolated with surrounding spaces.
	assert.Equal(t, "ab 中 c", n.normalize("ab中c"))

	// With strip_accents explicitly off, accents survive lowercasing.
	n, err = newNormalizer(&normalizerSpec{Type: "BertNormalizer", Lowercase: true, StripAccents: boolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, "héllo", n.normalize("Héllo"))
}

func TestUnicodeNormalizers(t *testing.T) {
	nfkc, err := newNormalizer(&normalizerSpec{Type: "NFKC"})
	require.NoError(t, err)
	assert.Equal(t, "fi", nfkc.normalize("ﬁ")) // Ligature fi decomposes.

	nfc, err := newNormalizer(&normalizerSpec{Type: "NFC"})
	require.NoError(t, err)
	assert.Equal(t, "é", nfc.normalize("é"))
}

func TestReplaceAndPrependNormalizers(t *testing.T) {
	replace, err := newNormalizer(&normalizerSpec{
		Type:    "Replace",
		Pattern: &patternSpec{String: " "},
		Content: "▁",
	})
	require.NoError(t, err)
	assert.Equal(t, "a▁b▁c", replace.normalize("a b c"))

	prepend, err := newNormalizer(&normalizerSpec{Type: "Prepend", Prepend: "▁"})
	require.NoError(t, err)
	assert.Equal(t, "▁abc", prepend.normalize("abc"))
	assert.Equal(t, "▁abc", prepend.normalize("▁abc"))
	assert.Equal(t, "", prepend.normalize(""))
}

func TestSequenceNormalizer(t *testing.T) {
	n, err := newNormalizer(&normalizerSpec{
		Type: "Sequence",
		Normalizers: []normalizerSpec{
			{Type: "Lowercase"},
			{Type: "Replace", Pattern: &patternSpec{String: " "}, Content: "_"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello_world", n.normalize("Hello World"))
}

func TestNormalizerIdempotence(t *testing.T) {
	// Normalizing an already-normalized string is a no-op. The one exception is
	// bertNormalizer on CJK input, where the space padding widens on every pass; that
	// variant is asserted on CJK-free input only.
	inputs := []string{"", "Héllo  World!", "ﬁnir tôt", "a\tb\nc", "déjà vu?"}
	specs := []normalizerSpec{
		{Type: "BertNormalizer", Lowercase: true},
		{Type: "BertNormalizer"},
		{Type: "Lowercase"},
		{Type: "NFD"},
		{Type: "NFC"},
		{Type: "NFKD"},
		{Type: "NFKC"},
		{Type: "StripAccents"},
		{Type: "Replace", Pattern: &patternSpec{String: " "}, Content: "▁"},
		{Type: "Prepend", Prepend: "▁"},
		{Type: "Sequence", Normalizers: []normalizerSpec{{Type: "Lowercase"}, {Type: "StripAccents"}}},
	}
	for i := range specs {
		n, err := newNormalizer(&specs[i])
		require.NoError(t, err, "normalizer %s", specs[i].Type)
		for _, input := range inputs {
			once := n.normalize(input)
			assert.Equal(t, once, n.normalize(once), "normalizer %s on %q", specs[i].Type, input)
		}
	}
}

func TestBertNormalizerNotIdempotentOnCJK(t *testing.T) {
	n, err := newNormalizer(&normalizerSpec{Type: "BertNormalizer"})
	require.NoError(t, err)
	once := n.normalize("ab中c")
	assert.Equal(t, "ab 中 c", once)
	// The CJK padding is re-applied on every pass.
	assert.Equal(t, "ab  中  c", n.normalize(once))
}

func TestUnknownNormalizerType(t *testing.T) {
	_, err := newNormalizer(&normalizerSpec{Type: "NoSuchNormalizer"})
	require.ErrorContains(t, err, "NoSuchNormalizer")
}

func TestNilNormalizerSpec(t *testing.T) {
	n, err := newNormalizer(nil)
	require.NoError(t, err)
	assert.Nil(t, n)
}
