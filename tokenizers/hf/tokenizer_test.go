package hf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gomlx/go-transformers/tokenizers/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bertTokenizerJSON is a miniature BERT-style tokenizer.json: BertNormalizer +
// BertPreTokenizer + WordPiece + TemplateProcessing.
const bertTokenizerJSON = `{
  "version": "1.0",
  "added_tokens": [
    {"id": 0, "content": "[PAD]", "special": true},
    {"id": 1, "content": "[UNK]", "special": true},
    {"id": 2, "content": "[CLS]", "special": true},
    {"id": 3, "content": "[SEP]", "special": true}
  ],
  "normalizer": {"type": "BertNormalizer", "lowercase": true},
  "pre_tokenizer": {"type": "BertPreTokenizer"},
  "model": {
    "type": "WordPiece",
    "unk_token": "[UNK]",
    "continuing_subword_prefix": "##",
    "vocab": {
      "[PAD]": 0, "[UNK]": 1, "[CLS]": 2, "[SEP]": 3,
      "how": 4, "are": 5, "you": 6, "doing": 7, "?": 8, "do": 9, "##ing": 10
    }
  },
  "post_processor": {
    "type": "TemplateProcessing",
    "single": [
      {"SpecialToken": {"id": "[CLS]", "type_id": 0}},
      {"Sequence": {"id": "A", "type_id": 0}},
      {"SpecialToken": {"id": "[SEP]", "type_id": 0}}
    ],
    "pair": [
      {"SpecialToken": {"id": "[CLS]", "type_id": 0}},
      {"Sequence": {"id": "A", "type_id": 0}},
      {"SpecialToken": {"id": "[SEP]", "type_id": 0}},
      {"Sequence": {"id": "B", "type_id": 1}},
      {"SpecialToken": {"id": "[SEP]", "type_id": 1}}
    ]
  },
  "decoder": {"type": "WordPiece", "prefix": "##"}
}`

func newBertTestTokenizer(t *testing.T) *Tokenizer {
	config := &api.Config{
		TokenizerClass:            "BertTokenizer",
		UnkToken:                  "[UNK]",
		PadToken:                  "[PAD]",
		ClsToken:                  "[CLS]",
		SepToken:                  "[SEP]",
		ModelMaxLength:            512,
		CleanUpTokenizationSpaces: true,
	}
	tok, err := FromContent(config, []byte(bertTokenizerJSON))
	require.NoError(t, err)
	return tok
}

func TestBertEncode(t *testing.T) {
	tok := newBertTestTokenizer(t)
	assert.Equal(t, []string{"how", "are", "you", "doing", "?"}, tok.Tokenize("How are you doing?"))
	assert.Equal(t, []int{2, 4, 5, 6, 7, 8, 3}, tok.Encode("How are you doing?"))
	// Out-of-vocabulary words map to the unknown token id.
	assert.Equal(t, []int{2, 4, 5, 6, 1, 8, 3}, tok.Encode("How are you zorping?"))
}

func TestBertEncodePair(t *testing.T) {
	tok := newBertTestTokenizer(t)
	assert.Equal(t, []int{2, 4, 5, 6, 3, 7, 3}, tok.EncodePair("how are you", "doing"))
}

func TestBertDecode(t *testing.T) {
	tok := newBertTestTokenizer(t)
	skip := &api.DecodeOptions{SkipSpecialTokens: true}
	assert.Equal(t, "how are you doing?", tok.DecodeWithOptions([]int{2, 4, 5, 6, 7, 8, 3}, skip))
	// Without skipping, the wrapping special tokens come back out.
	assert.Equal(t, "[CLS] how are you doing? [SEP]", tok.Decode([]int{2, 4, 5, 6, 7, 8, 3}))
}

func TestBertEncodeBatchPadding(t *testing.T) {
	tok := newBertTestTokenizer(t)
	batch, err := tok.EncodeBatch(
		[]string{"How are you doing?", "How are you"},
		&api.EncodeOptions{Padding: true})
	require.NoError(t, err)

	assert.Equal(t, [][]int{
		{2, 4, 5, 6, 7, 8, 3},
		{2, 4, 5, 6, 3, 0, 0},
	}, batch.InputIDs)
	assert.Equal(t, [][]int{
		{1, 1, 1, 1, 1, 1, 1},
		{1, 1, 1, 1, 1, 0, 0},
	}, batch.AttentionMask)
	// BERT-family tokenizers return segment type ids.
	require.NotNil(t, batch.TokenTypeIDs)
	assert.Equal(t, []int{0, 0, 0, 0, 0, 0, 0}, batch.TokenTypeIDs[0])
}

func TestBertEncodeBatchTruncation(t *testing.T) {
	tok := newBertTestTokenizer(t)
	batch, err := tok.EncodeBatch(
		[]string{"How are you doing?"},
		&api.EncodeOptions{Truncation: true, MaxLength: 3})
	require.NoError(t, err)
	assert.Equal(t, [][]int{{2, 4, 5}}, batch.InputIDs)
	assert.Equal(t, [][]int{{1, 1, 1}}, batch.AttentionMask)
}

func TestBertEncodeBatchWithPairs(t *testing.T) {
	tok := newBertTestTokenizer(t)
	batch, err := tok.EncodeBatch(
		[]string{"how are you"},
		&api.EncodeOptions{TextPairs: []string{"doing"}})
	require.NoError(t, err)
	assert.Equal(t, [][]int{{2, 4, 5, 6, 3, 7, 3}}, batch.InputIDs)
	require.NotNil(t, batch.TokenTypeIDs)
	assert.Equal(t, []int{0, 0, 0, 0, 0, 1, 1}, batch.TokenTypeIDs[0])
}

func TestEncodeBatchErrors(t *testing.T) {
	tok := newBertTestTokenizer(t)
	_, err := tok.EncodeBatch(nil, nil)
	require.Error(t, err)
	_, err = tok.EncodeBatch([]string{"a", "b"}, &api.EncodeOptions{TextPairs: []string{"c"}})
	require.ErrorContains(t, err, "must match")
}

func TestBertSpecialTokenIDs(t *testing.T) {
	tok := newBertTestTokenizer(t)
	for token, expected := range map[api.SpecialToken]int{
		api.TokPad:            0,
		api.TokUnknown:        1,
		api.TokClassification: 2,
		api.TokSeparator:      3,
		// BERT has no dedicated sentence boundary tokens; CLS and SEP stand in.
		api.TokBeginningOfSentence: 2,
		api.TokEndOfSentence:       3,
	} {
		id, err := tok.SpecialTokenID(token)
		require.NoError(t, err, "token %s", token)
		assert.Equal(t, expected, id, "token %s", token)
	}
	_, err := tok.SpecialTokenID(api.TokMask)
	require.Error(t, err)
}

// gpt2TokenizerJSON is a miniature GPT-2-style tokenizer.json with a byte-level
// alphabet and a tiny merge table.
const gpt2TokenizerJSON = `{
  "added_tokens": [{"id": 16, "content": "<|endoftext|>", "special": true}],
  "normalizer": null,
  "pre_tokenizer": {"type": "ByteLevel", "add_prefix_space": false},
  "model": {
    "type": "BPE",
    "vocab": {
      "Y": 0, "o": 1, "u": 2, "Ġ": 3, "s": 4, "h": 5, "l": 6, "d": 7,
      "'": 8, "v": 9, "e": 10, "n": 11, "t": 12, "i": 13,
      "Yo": 14, "You": 15, "<|endoftext|>": 16
    },
    "merges": ["Y o", "Yo u"]
  },
  "post_processor": {"type": "ByteLevel"},
  "decoder": {"type": "ByteLevel"}
}`

func newGPT2TestTokenizer(t *testing.T) *Tokenizer {
	config := &api.Config{
		TokenizerClass: "GPT2Tokenizer",
		UnkToken:       "<|endoftext|>",
		BosToken:       "<|endoftext|>",
		EosToken:       "<|endoftext|>",
		ModelMaxLength: 1024,
	}
	tok, err := FromContent(config, []byte(gpt2TokenizerJSON))
	require.NoError(t, err)
	return tok
}

func TestGPT2RoundTrip(t *testing.T) {
	tok := newGPT2TestTokenizer(t)
	text := "You should've done this"
	ids := tok.Encode(text)
	// "You" is fully merged; everything else falls back to single symbols.
	assert.Equal(t, 15, ids[0])
	assert.Equal(t, text, tok.Decode(ids))
}

func TestGPT2AddedTokenBypass(t *testing.T) {
	tok := newGPT2TestTokenizer(t)
	// The added literal never goes through the byte-level pipeline.
	assert.Equal(t, []int{15, 16, 15}, tok.Encode("You<|endoftext|>You"))
	assert.Equal(t, "YouYou",
		tok.DecodeWithOptions([]int{15, 16, 15}, &api.DecodeOptions{SkipSpecialTokens: true}))
}

func TestConfigOnlyAddedTokenBypass(t *testing.T) {
	// Tokens declared only in tokenizer_config.json's added_tokens_decoder must bypass
	// the pipeline exactly like the ones listed in tokenizer.json.
	config := &api.Config{
		TokenizerClass: "GPT2Tokenizer",
		AddedTokensDecoder: map[int]api.AddedTokenInfo{
			99: {Content: "<|custom|>", Special: true},
		},
	}
	tok, err := FromContent(config, []byte(gpt2TokenizerJSON))
	require.NoError(t, err)
	assert.Equal(t, []int{15, 99, 15}, tok.Encode("You<|custom|>You"))
	assert.Equal(t, "YouYou",
		tok.DecodeWithOptions([]int{15, 99, 15}, &api.DecodeOptions{SkipSpecialTokens: true}))
}

// t5TokenizerJSON is a miniature T5-style tokenizer.json: Metaspace + Unigram.
const t5TokenizerJSON = `{
  "added_tokens": [
    {"id": 0, "content": "<pad>", "special": true},
    {"id": 1, "content": "</s>", "special": true},
    {"id": 2, "content": "<unk>", "special": true}
  ],
  "normalizer": {"type": "Precompiled", "precompiled_charsmap": ""},
  "pre_tokenizer": {"type": "Metaspace", "replacement": "▁", "add_prefix_space": true},
  "model": {
    "type": "Unigram",
    "unk_id": 2,
    "vocab": [
      ["<pad>", 0.0], ["</s>", 0.0], ["<unk>", 0.0],
      ["▁How", -3.0], ["▁are", -3.1], ["▁you", -3.2],
      ["▁doing", -3.3], ["?", -2.5]
    ]
  },
  "post_processor": {
    "type": "TemplateProcessing",
    "single": [
      {"Sequence": {"id": "A", "type_id": 0}},
      {"SpecialToken": {"id": "</s>", "type_id": 0}}
    ],
    "pair": [
      {"Sequence": {"id": "A", "type_id": 0}},
      {"SpecialToken": {"id": "</s>", "type_id": 0}},
      {"Sequence": {"id": "B", "type_id": 0}},
      {"SpecialToken": {"id": "</s>", "type_id": 0}}
    ]
  },
  "decoder": {"type": "Metaspace", "replacement": "▁", "add_prefix_space": true}
}`

func newT5TestTokenizer(t *testing.T) *Tokenizer {
	config := &api.Config{
		TokenizerClass:            "T5Tokenizer",
		UnkToken:                  "<unk>",
		PadToken:                  "<pad>",
		EosToken:                  "</s>",
		ModelMaxLength:            512,
		CleanUpTokenizationSpaces: true,
	}
	tok, err := FromContent(config, []byte(t5TokenizerJSON))
	require.NoError(t, err)
	return tok
}

func TestT5Encode(t *testing.T) {
	tok := newT5TestTokenizer(t)
	assert.Equal(t, []int{3, 4, 5, 6, 7, 1}, tok.Encode("How are you doing?"))
}

func TestT5Decode(t *testing.T) {
	tok := newT5TestTokenizer(t)
	got := tok.DecodeWithOptions([]int{3, 4, 5, 6, 7, 1}, &api.DecodeOptions{SkipSpecialTokens: true})
	assert.Equal(t, "How are you doing?", got)
}

func TestT5EncodeBatch(t *testing.T) {
	tok := newT5TestTokenizer(t)
	batch, err := tok.EncodeBatch(
		[]string{"How are you doing?", "How are you"},
		&api.EncodeOptions{Padding: true})
	require.NoError(t, err)
	assert.Equal(t, [][]int{
		{3, 4, 5, 6, 7, 1},
		{3, 4, 5, 1, 0, 0},
	}, batch.InputIDs)
	assert.Equal(t, [][]int{
		{1, 1, 1, 1, 1, 1},
		{1, 1, 1, 1, 0, 0},
	}, batch.AttentionMask)
	// Non-BERT classes don't produce segment type ids.
	assert.Nil(t, batch.TokenTypeIDs)
}

func TestDecoderCleanupPreferenceWins(t *testing.T) {
	// The decoder declares cleanup=false; a caller asking for clean-up is overridden.
	content := `{
      "model": {"type": "WordPiece", "unk_token": "[UNK]", "vocab": {"[UNK]": 0, "hi": 1, "?": 2}},
      "pre_tokenizer": {"type": "BertPreTokenizer"},
      "decoder": {"type": "WordPiece", "prefix": "##", "cleanup": false}
    }`
	tok, err := FromContent(nil, []byte(content))
	require.NoError(t, err)
	wantCleanup := true
	got := tok.DecodeWithOptions([]int{1, 2}, &api.DecodeOptions{CleanUpTokenizationSpaces: &wantCleanup})
	assert.Equal(t, "hi ?", got)
}

func TestFromFiles(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "tokenizer_config.json")
	tokenizerPath := filepath.Join(dir, "tokenizer.json")
	require.NoError(t, os.WriteFile(configPath,
		[]byte(`{"tokenizer_class": "BertTokenizer", "pad_token": "[PAD]"}`), 0644))
	require.NoError(t, os.WriteFile(tokenizerPath, []byte(bertTokenizerJSON), 0644))

	tok, err := FromFiles(configPath, tokenizerPath)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4, 5, 6, 7, 8, 3}, tok.Encode("How are you doing?"))
}

func TestUnknownModelType(t *testing.T) {
	_, err := FromContent(nil, []byte(`{"model": {"type": "NoSuchModel", "vocab": {}}}`))
	require.ErrorContains(t, err, "NoSuchModel")
}
