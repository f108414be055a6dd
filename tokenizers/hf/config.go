package hf

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// tokenizerJSON mirrors the serialized "tokenizer.json" file of HuggingFace's fast
// tokenizers: one spec section per pipeline stage, plus the model vocabulary and the
// added (special) tokens.
type tokenizerJSON struct {
	Version       string             `json:"version"`
	AddedTokens   []addedTokenSpec   `json:"added_tokens"`
	Normalizer    *normalizerSpec    `json:"normalizer"`
	PreTokenizer  *preTokenizerSpec  `json:"pre_tokenizer"`
	Model         modelSpec          `json:"model"`
	PostProcessor *postProcessorSpec `json:"post_processor"`
	Decoder       *decoderSpec       `json:"decoder"`
}

// addedTokenSpec is one entry of "added_tokens": a literal string that bypasses the
// normal pipeline and is inserted/matched verbatim.
type addedTokenSpec struct {
	ID         int    `json:"id"`
	Content    string `json:"content"`
	SingleWord bool   `json:"single_word"`
	Lstrip     bool   `json:"lstrip"`
	Rstrip     bool   `json:"rstrip"`
	Normalized bool   `json:"normalized"`
	Special    bool   `json:"special"`
}

// patternSpec is the polymorphic "pattern" object used by Replace normalizers and Split
// pre-tokenizers: either a regular expression or a literal string.
type patternSpec struct {
	Regex  string `json:"Regex,omitempty"`
	String string `json:"String,omitempty"`
}

type normalizerSpec struct {
	Type string `json:"type"`

	// BertNormalizer fields. Lowercase/StripAccents are pointers since strip_accents
	// defaults to the lowercase flag when absent.
	CleanText          *bool `json:"clean_text"`
	HandleChineseChars *bool `json:"handle_chinese_chars"`
	Lowercase          bool  `json:"lowercase"`
	StripAccents       *bool `json:"strip_accents"`

	// Replace fields.
	Pattern *patternSpec `json:"pattern"`
	Content string       `json:"content"`

	// Prepend fields.
	Prepend string `json:"prepend"`

	// Precompiled fields (SentencePiece charsmap, kept only for identification).
	PrecompiledCharsmap string `json:"precompiled_charsmap"`

	// Sequence fields.
	Normalizers []normalizerSpec `json:"normalizers"`
}

type preTokenizerSpec struct {
	Type string `json:"type"`

	// ByteLevel / Metaspace fields.
	AddPrefixSpace bool   `json:"add_prefix_space"`
	TrimOffsets    bool   `json:"trim_offsets"`
	UseRegex       *bool  `json:"use_regex"`
	Replacement    string `json:"replacement"`
	PrependScheme  string `json:"prepend_scheme"`

	// Split / Punctuation fields.
	Pattern  *patternSpec `json:"pattern"`
	Behavior string       `json:"behavior"`
	Invert   bool         `json:"invert"`

	// Digits fields.
	IndividualDigits bool `json:"individual_digits"`

	// Sequence fields.
	PreTokenizers []preTokenizerSpec `json:"pretokenizers"`
}

// mergesList accepts both serializations of BPE merges: the legacy `"left right"`
// strings and the newer `["left", "right"]` pairs.
type mergesList [][2]string

func (m *mergesList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = make(mergesList, 0, len(raw))
	for _, entry := range raw {
		var pair [2]string
		if err := json.Unmarshal(entry, &pair); err == nil {
			*m = append(*m, pair)
			continue
		}
		var joined string
		if err := json.Unmarshal(entry, &joined); err != nil {
			return errors.Wrapf(err, "BPE merge entry %s is neither a string nor a pair", entry)
		}
		left, right, ok := cutMerge(joined)
		if !ok {
			return errors.Errorf("BPE merge entry %q is not of the form \"left right\"", joined)
		}
		*m = append(*m, [2]string{left, right})
	}
	return nil
}

func cutMerge(joined string) (left, right string, ok bool) {
	for i := 0; i < len(joined); i++ {
		if joined[i] == ' ' {
			return joined[:i], joined[i+1:], true
		}
	}
	return "", "", false
}

type modelSpec struct {
	Type string `json:"type"`

	// Vocab maps token string to id. The wire format is either an object (WordPiece, BPE)
	// or an array of [token, score] pairs (Unigram), handled by UnmarshalJSON; in the array
	// form the id is the array index and Scores is filled in.
	Vocab  map[string]int `json:"-"`
	Scores []float64      `json:"-"`

	Merges                  mergesList `json:"merges"`
	UnkToken                string     `json:"unk_token"`
	UnkID                   *int       `json:"unk_id"`
	ContinuingSubwordPrefix string     `json:"continuing_subword_prefix"`
	EndOfWordSuffix         string     `json:"end_of_word_suffix"`
	MaxInputCharsPerWord    *int       `json:"max_input_chars_per_word"`
	FuseUnk                 bool       `json:"fuse_unk"`
	ByteFallback            bool       `json:"byte_fallback"`
	Dropout                 *float64   `json:"dropout"`
}

func (m *modelSpec) UnmarshalJSON(data []byte) error {
	type modelAlias modelSpec
	var raw struct {
		modelAlias
		Vocab json.RawMessage `json:"vocab"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = modelSpec(raw.modelAlias)
	if len(raw.Vocab) == 0 {
		m.Vocab = make(map[string]int)
		return nil
	}

	// Object form: {"token": id}.
	var vocabMap map[string]int
	if err := json.Unmarshal(raw.Vocab, &vocabMap); err == nil {
		m.Vocab = vocabMap
		return nil
	}

	// Array form: [["token", score], ...], id is the index.
	var vocabArray []vocabScoredEntry
	if err := json.Unmarshal(raw.Vocab, &vocabArray); err != nil {
		return errors.Wrapf(err, "model vocab is neither an object nor an array of [token, score] pairs")
	}
	m.Vocab = make(map[string]int, len(vocabArray))
	m.Scores = make([]float64, len(vocabArray))
	for id, entry := range vocabArray {
		m.Vocab[entry.Token] = id
		m.Scores[id] = entry.Score
	}
	return nil
}

// vocabScoredEntry decodes one ["token", score] pair.
type vocabScoredEntry struct {
	Token string
	Score float64
}

func (e *vocabScoredEntry) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if err := json.Unmarshal(pair[0], &e.Token); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &e.Score)
}

// tokenRef decodes the ["</s>", 2] form used by the sep/cls fields of
// RobertaProcessing and BertProcessing.
type tokenRef struct {
	Token string
	ID    int
}

func (t *tokenRef) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if err := json.Unmarshal(pair[0], &t.Token); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &t.ID)
}

// templateEntry is one entry of a TemplateProcessing single/pair template: either a
// literal special token or a placeholder for sequence A or B.
type templateEntry struct {
	SpecialToken *templateRef `json:"SpecialToken,omitempty"`
	Sequence     *templateRef `json:"Sequence,omitempty"`
}

type templateRef struct {
	ID     string `json:"id"`
	TypeID int    `json:"type_id"`
}

type postProcessorSpec struct {
	Type string `json:"type"`

	// TemplateProcessing fields.
	Single []templateEntry `json:"single"`
	Pair   []templateEntry `json:"pair"`

	// RobertaProcessing / BertProcessing fields.
	Sep            *tokenRef `json:"sep"`
	Cls            *tokenRef `json:"cls"`
	TrimOffsets    *bool     `json:"trim_offsets"`
	AddPrefixSpace *bool     `json:"add_prefix_space"`
}

type decoderSpec struct {
	Type string `json:"type"`

	// WordPiece fields.
	Prefix  string `json:"prefix"`
	Cleanup *bool  `json:"cleanup"`

	// Metaspace fields.
	Replacement    string `json:"replacement"`
	AddPrefixSpace bool   `json:"add_prefix_space"`
	PrependScheme  string `json:"prepend_scheme"`

	// Replace / Strip fields.
	Pattern *patternSpec `json:"pattern"`
	Content string       `json:"content"`
	Start   int          `json:"start"`
	Stop    int          `json:"stop"`

	// BPEDecoder fields.
	Suffix string `json:"suffix"`

	// Sequence fields.
	Decoders []decoderSpec `json:"decoders"`
}

// parseTokenizerJSON parses a tokenizer.json document.
func parseTokenizerJSON(content []byte) (*tokenizerJSON, error) {
	tj := &tokenizerJSON{}
	if err := json.Unmarshal(content, tj); err != nil {
		return nil, errors.Wrapf(err, "failed to parse tokenizer.json content")
	}
	return tj, nil
}
