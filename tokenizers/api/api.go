// Package api defines the Tokenizer API.
// It's just a hack to break the cyclic dependency, and allow the users to import `tokenizers` and get the
// default implementations.
package api

import "fmt"

// Tokenizer interface allows one convert text to "tokens" (integer ids) and back.
//
// It also allows mapping of special tokens: tokens with a common semantic (like padding) but that
// may map to different ids (int) for different tokenizers.
type Tokenizer interface {
	Encode(text string) []int
	Decode([]int) string

	// SpecialTokenID returns ID for given special token if registered, or an error if not.
	SpecialTokenID(token SpecialToken) (int, error)
}

// BatchTokenizer is implemented by tokenizers that support batched encoding with padding,
// truncation and attention-mask construction, mirroring the transformers `__call__` API.
type BatchTokenizer interface {
	Tokenizer

	// EncodeBatch converts one-or-many texts into model inputs. See EncodeOptions for the
	// padding/truncation behavior.
	EncodeBatch(texts []string, opts *EncodeOptions) (*BatchEncoding, error)

	// DecodeBatch converts many id sequences back to text.
	DecodeBatch(idsBatch [][]int, opts *DecodeOptions) []string
}

// EncodeOptions configures BatchTokenizer.EncodeBatch.
type EncodeOptions struct {
	// TextPairs, if set, must have the same length as the texts being encoded; each pair is
	// encoded as a second segment of the corresponding text.
	TextPairs []string

	// Padding pads every sequence shorter than the batch max length with the pad token, with
	// zeros in the corresponding attention-mask positions. If false, short sequences are left
	// ragged with all-ones masks.
	Padding bool

	// Truncation cuts sequences longer than the max length. If false, over-length sequences
	// are left as-is.
	Truncation bool

	// MaxLength of the encoded sequences. If 0, it defaults to the longest sequence in the
	// batch, clamped to the tokenizer's configured model maximum length.
	MaxLength int
}

// DecodeOptions configures BatchTokenizer.DecodeBatch and the extended Decode methods.
type DecodeOptions struct {
	// SkipSpecialTokens drops tokens registered as special before decoding.
	SkipSpecialTokens bool

	// CleanUpTokenizationSpaces removes the extra whitespace the decoders leave before
	// punctuation and contractions. Defaults to true when nil. The tokenizer's own decoder
	// configuration takes precedence when it disagrees.
	CleanUpTokenizationSpaces *bool
}

// BatchEncoding is the output of BatchTokenizer.EncodeBatch, the model inputs.
type BatchEncoding struct {
	// InputIDs has one row of token ids per input text.
	InputIDs [][]int

	// AttentionMask rows hold 1 for real tokens and 0 for padding; always the same shape
	// as InputIDs.
	AttentionMask [][]int

	// TokenTypeIDs is only set by tokenizer classes that produce segment ids (BERT family);
	// 0 for the first segment and special tokens, 1 for the second segment.
	TokenTypeIDs [][]int
}

// SpecialToken is an enum of commonly used special tokens.
type SpecialToken int

const (
	TokBeginningOfSentence SpecialToken = iota
	TokEndOfSentence
	TokUnknown
	TokPad
	TokMask
	TokClassification
	TokSeparator
	TokSpecialTokensCount
)

var specialTokenNames = [TokSpecialTokensCount]string{
	"beginning_of_sentence", "end_of_sentence", "unknown", "pad", "mask", "classification", "separator"}

// String implements fmt.Stringer.
func (t SpecialToken) String() string {
	if t < 0 || t >= TokSpecialTokensCount {
		return fmt.Sprintf("SpecialToken(%d)", int(t))
	}
	return specialTokenNames[t]
}
