// Package hf implements a tokenizer for HuggingFace's tokenizer.json format.
// This format is used by the HuggingFace Tokenizers library (the "fast" tokenizers)
// and supports WordPiece (BERT), byte-level BPE (GPT-2, RoBERTa) and Unigram
// (T5/SentencePiece) models, together with their normalization, pre-tokenization,
// post-processing and decoding rules.
//
// Text flows one direction for encoding (normalize, pre-tokenize, model, ids,
// post-process) and the reverse for decoding. Everything is immutable after
// construction, so one Tokenizer can serve any number of concurrent encode and decode
// calls.
package hf

import (
	"log"
	"os"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/gomlx/go-transformers/hub"
	"github.com/gomlx/go-transformers/internal/xsync"
	"github.com/gomlx/go-transformers/tokenizers/api"
	"github.com/pkg/errors"
)

// Tokenizer converts text into model inputs (token ids plus attention masks) and back,
// driven entirely by a tokenizer.json configuration.
type Tokenizer struct {
	config *api.Config

	vocab         *Vocabulary
	normalizer    normalizer
	preTokenizer  preTokenizer
	model         model
	postProcessor postProcessor
	decoder       decoder

	// decoderCleanup is the decoder's own clean-up preference, when it declares one; it
	// wins over the caller's flag.
	decoderCleanup *bool

	// specialTokens holds the literal strings of added tokens flagged special; they are
	// filtered out by Decode when skipping special tokens.
	specialTokens map[string]bool

	// addedSplitRegex matches any added-token literal; the encoder splits on it before
	// the subword pipeline runs, so these literals bypass normalization entirely.
	addedSplitRegex *regexp.Regexp

	returnTokenTypeIDs bool

	unkToken string
	unkID    int
	padID    int
	clsID    int
	sepID    int
	maskID   int
	bosID    int
	eosID    int

	// encodeSem bounds the goroutines used by EncodeBatch.
	encodeSem *xsync.Semaphore
}

// Compile time assert that Tokenizer implements the api interfaces.
var (
	_ api.Tokenizer      = &Tokenizer{}
	_ api.BatchTokenizer = &Tokenizer{}
)

// New creates a Tokenizer from the repo's "tokenizer.json" file.
//
// It implements the tokenizers.Constructor function signature.
func New(config *api.Config, repo *hub.Repo) (api.Tokenizer, error) {
	if !repo.HasFile("tokenizer.json") {
		return nil, errors.Errorf("\"tokenizer.json\" file not found in repo %q", repo.ID)
	}
	tokenizerFile, err := repo.DownloadFile("tokenizer.json")
	if err != nil {
		return nil, errors.Wrapf(err, "can't download tokenizer.json file")
	}
	return FromFile(config, tokenizerFile)
}

// FromFiles creates a Tokenizer from local tokenizer_config.json and tokenizer.json
// file paths, without touching the hub. Useful for models already on disk.
func FromFiles(configPath, tokenizerPath string) (*Tokenizer, error) {
	config, err := api.ParseConfigFile(configPath)
	if err != nil {
		return nil, err
	}
	return FromFile(config, tokenizerPath)
}

// FromFile creates a Tokenizer from a local tokenizer.json file path.
func FromFile(config *api.Config, filePath string) (*Tokenizer, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read tokenizer.json file %q", filePath)
	}
	return FromContent(config, content)
}

// FromContent creates a Tokenizer from tokenizer.json content. The config (from
// tokenizer_config.json) is optional and provides special-token fallbacks, the model
// maximum length and the tokenizer class.
func FromContent(config *api.Config, content []byte) (*Tokenizer, error) {
	tj, err := parseTokenizerJSON(content)
	if err != nil {
		return nil, err
	}

	t := &Tokenizer{
		config:        config,
		vocab:         newVocabulary(tj.Model.Vocab, tj.Model.Scores),
		specialTokens: make(map[string]bool),
		unkID:         -1,
		padID:         -1,
		clsID:         -1,
		sepID:         -1,
		maskID:        -1,
		bosID:         -1,
		eosID:         -1,
		encodeSem:     xsync.NewSemaphore(runtime.NumCPU()),
	}
	if config != nil {
		t.returnTokenTypeIDs = classReturnsTokenTypeIDs(config.TokenizerClass)
	}

	if t.normalizer, err = newNormalizer(tj.Normalizer); err != nil {
		return nil, err
	}
	if t.preTokenizer, err = newPreTokenizer(tj.PreTokenizer); err != nil {
		return nil, err
	}
	if t.postProcessor, err = newPostProcessor(tj.PostProcessor); err != nil {
		return nil, err
	}
	if t.decoder, err = newDecoder(tj.Decoder); err != nil {
		return nil, err
	}
	if tj.Decoder != nil {
		t.decoderCleanup = tj.Decoder.Cleanup
	}

	switch tj.Model.Type {
	case "WordPiece":
		t.model = newWordPieceModel(&tj.Model, t.vocab)
	case "BPE":
		t.model = newBPEModel(&tj.Model, t.vocab)
	case "Unigram":
		t.model = newUnigramModel(&tj.Model, t.vocab)
	default:
		return nil, errors.Errorf("unknown tokenizer model type %q", tj.Model.Type)
	}

	t.registerAddedTokens(tj.AddedTokens)
	t.resolveSpecialTokens(tj)
	return t, nil
}

// registerAddedTokens overlays the added tokens on the vocabulary and builds the single
// combined regular expression the encoder splits on first.
func (t *Tokenizer) registerAddedTokens(added []addedTokenSpec) {
	literals := make([]string, 0, len(added))
	if t.config != nil {
		for id, info := range t.config.AddedTokensDecoder {
			t.vocab.addToken(info.Content, id)
			if info.Special {
				t.specialTokens[info.Content] = true
			}
			literals = append(literals, info.Content)
		}
	}
	for _, at := range added {
		t.vocab.addToken(at.Content, at.ID)
		if at.Special {
			t.specialTokens[at.Content] = true
		}
		literals = append(literals, at.Content)
	}
	if t.config != nil {
		for _, literal := range t.config.AdditionalSpecialTokens {
			t.specialTokens[literal] = true
			literals = append(literals, literal)
		}
	}
	if len(literals) == 0 {
		return
	}
	// Longest literal first, so overlapping literals resolve deterministically.
	sort.Slice(literals, func(i, j int) bool { return len(literals[i]) > len(literals[j]) })
	quoted := make([]string, 0, len(literals))
	seen := make(map[string]bool, len(literals))
	for _, literal := range literals {
		if literal == "" || seen[literal] {
			continue
		}
		seen[literal] = true
		quoted = append(quoted, regexp.QuoteMeta(literal))
	}
	t.addedSplitRegex = regexp.MustCompile(strings.Join(quoted, "|"))
}

// resolveSpecialTokens maps the conventional special tokens to ids, using the model's
// unk_token, the added tokens and the tokenizer_config fallbacks.
func (t *Tokenizer) resolveSpecialTokens(tj *tokenizerJSON) {
	t.unkToken = tj.Model.UnkToken
	if t.unkToken != "" {
		if id, ok := t.vocab.TokenToID(t.unkToken); ok {
			t.unkID = id
		}
	}
	resolve := func(target *int, literal string) {
		if *target >= 0 || literal == "" {
			return
		}
		if id, ok := t.vocab.TokenToID(literal); ok {
			*target = id
		}
	}
	if t.config != nil {
		resolve(&t.unkID, t.config.UnkToken)
		resolve(&t.padID, t.config.PadTokenOrFallback())
		resolve(&t.clsID, t.config.ClsToken)
		resolve(&t.sepID, t.config.SepToken)
		resolve(&t.maskID, t.config.MaskToken)
		resolve(&t.bosID, t.config.BosToken)
		resolve(&t.eosID, t.config.EosToken)
		if t.unkToken == "" {
			t.unkToken = t.config.UnkToken
		}
	}
	// Common conventions when the config is absent or incomplete.
	resolve(&t.unkID, "[UNK]")
	resolve(&t.unkID, "<unk>")
	resolve(&t.padID, "[PAD]")
	resolve(&t.padID, "<pad>")
	resolve(&t.clsID, "[CLS]")
	resolve(&t.clsID, "<s>")
	resolve(&t.sepID, "[SEP]")
	resolve(&t.sepID, "</s>")
	resolve(&t.maskID, "[MASK]")
	resolve(&t.maskID, "<mask>")
}

// Tokenize converts text to subword token strings: added-token literals pass through
// untouched, every other span runs through normalize, pre-tokenize and the model.
func (t *Tokenizer) Tokenize(text string) []string {
	var tokens []string
	for _, span := range t.splitOnAddedTokens(text) {
		if span.added {
			tokens = append(tokens, span.text)
			continue
		}
		tokens = append(tokens, t.tokenizeSpan(span.text)...)
	}
	return tokens
}

type textSpan struct {
	text  string
	added bool
}

func (t *Tokenizer) splitOnAddedTokens(text string) []textSpan {
	if t.addedSplitRegex == nil {
		return []textSpan{{text: text}}
	}
	var spans []textSpan
	last := 0
	for _, m := range t.addedSplitRegex.FindAllStringIndex(text, -1) {
		if m[0] > last {
			spans = append(spans, textSpan{text: text[last:m[0]]})
		}
		spans = append(spans, textSpan{text: text[m[0]:m[1]], added: true})
		last = m[1]
	}
	if last < len(text) {
		spans = append(spans, textSpan{text: text[last:]})
	}
	return spans
}

func (t *Tokenizer) tokenizeSpan(text string) []string {
	if t.normalizer != nil {
		text = t.normalizer.normalize(text)
	}
	pieces := []string{text}
	if t.preTokenizer != nil {
		pieces = t.preTokenizer.preTokenize(text)
	}
	var tokens []string
	for _, piece := range pieces {
		tokens = append(tokens, t.model.tokenize(piece)...)
	}
	return tokens
}

// ConvertTokensToIDs maps token strings to ids; tokens absent from the vocabulary map
// to the unknown-token id.
func (t *Tokenizer) ConvertTokensToIDs(tokens []string) []int {
	ids := make([]int, len(tokens))
	for i, token := range tokens {
		if id, ok := t.vocab.TokenToID(token); ok {
			ids[i] = id
		} else {
			ids[i] = t.unkID
		}
	}
	return ids
}

// Encode converts text to a sequence of token ids, with the post-processor's special
// tokens included. It implements api.Tokenizer.
func (t *Tokenizer) Encode(text string) []int {
	ids, _ := t.encode(text, "", false)
	return ids
}

// EncodePair encodes a two-segment input (e.g. question and context), with the
// post-processor's pair template applied.
func (t *Tokenizer) EncodePair(text, textPair string) []int {
	ids, _ := t.encode(text, textPair, true)
	return ids
}

// encode runs the full pipeline and returns ids plus per-token segment type ids.
func (t *Tokenizer) encode(text, textPair string, hasPair bool) (ids, typeIDs []int) {
	tokens := t.Tokenize(text)
	var tokensPair []string
	if hasPair {
		tokensPair = t.Tokenize(textPair)
		if tokensPair == nil {
			tokensPair = []string{}
		}
	}
	if t.postProcessor != nil {
		tokens, typeIDs = t.postProcessor.postProcess(tokens, tokensPair)
	} else {
		tokens = append(tokens, tokensPair...)
		typeIDs = make([]int, len(tokens))
	}
	return t.ConvertTokensToIDs(tokens), typeIDs
}

// EncodeBatch converts one-or-many texts into model inputs, handling padding,
// truncation and attention masks. See api.EncodeOptions for the exact policies.
// Batch items are encoded concurrently; the tokenizer itself is immutable, so no
// synchronization beyond the result slots is needed.
func (t *Tokenizer) EncodeBatch(texts []string, opts *api.EncodeOptions) (*api.BatchEncoding, error) {
	if opts == nil {
		opts = &api.EncodeOptions{}
	}
	if len(texts) == 0 {
		return nil, errors.Errorf("EncodeBatch requires at least one text")
	}
	if opts.TextPairs != nil && len(opts.TextPairs) != len(texts) {
		return nil, errors.Errorf("EncodeBatch got %d texts but %d text pairs, they must match",
			len(texts), len(opts.TextPairs))
	}

	batch := &api.BatchEncoding{
		InputIDs:      make([][]int, len(texts)),
		AttentionMask: make([][]int, len(texts)),
	}
	if t.returnTokenTypeIDs {
		batch.TokenTypeIDs = make([][]int, len(texts))
	}

	typeIDs := make([][]int, len(texts))
	var wg sync.WaitGroup
	for i, text := range texts {
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			t.encodeSem.Acquire()
			defer t.encodeSem.Release()
			if opts.TextPairs != nil {
				batch.InputIDs[i], typeIDs[i] = t.encode(text, opts.TextPairs[i], true)
			} else {
				batch.InputIDs[i], typeIDs[i] = t.encode(text, "", false)
			}
		}(i, text)
	}
	wg.Wait()

	maxLength := opts.MaxLength
	if maxLength == 0 {
		for _, ids := range batch.InputIDs {
			maxLength = max(maxLength, len(ids))
		}
	}
	if t.config != nil {
		if limit := t.config.EffectiveModelMaxLength(); limit > 0 && maxLength > limit {
			maxLength = limit
		}
	}

	for i := range batch.InputIDs {
		ids := batch.InputIDs[i]
		rowTypes := typeIDs[i]
		switch {
		case len(ids) > maxLength && opts.Truncation:
			ids = ids[:maxLength]
			rowTypes = rowTypes[:maxLength]
		case len(ids) < maxLength && opts.Padding:
			pad := t.padID
			if pad < 0 {
				pad = 0
			}
			mask := make([]int, maxLength)
			for j := range ids {
				mask[j] = 1
			}
			for len(ids) < maxLength {
				ids = append(ids, pad)
				rowTypes = append(rowTypes, 0)
			}
			batch.InputIDs[i] = ids
			batch.AttentionMask[i] = mask
			if batch.TokenTypeIDs != nil {
				batch.TokenTypeIDs[i] = rowTypes
			}
			continue
		}
		batch.InputIDs[i] = ids
		batch.AttentionMask[i] = onesMask(len(ids))
		if batch.TokenTypeIDs != nil {
			batch.TokenTypeIDs[i] = rowTypes
		}
	}
	return batch, nil
}

func onesMask(length int) []int {
	mask := make([]int, length)
	for i := range mask {
		mask[i] = 1
	}
	return mask
}

// Decode converts a sequence of token ids back to text, keeping special tokens and
// applying the default clean-up. It implements api.Tokenizer.
func (t *Tokenizer) Decode(ids []int) string {
	return t.DecodeWithOptions(ids, nil)
}

// DecodeWithOptions converts token ids back to text. With SkipSpecialTokens set, tokens
// registered as special are dropped before decoding. Clean-up of tokenization spaces
// defaults to the tokenizer_config setting; if the decoder declares its own clean-up
// preference and it disagrees with the caller's, the decoder's preference wins.
func (t *Tokenizer) DecodeWithOptions(ids []int, opts *api.DecodeOptions) string {
	if opts == nil {
		opts = &api.DecodeOptions{}
	}
	tokens := make([]string, 0, len(ids))
	for _, id := range ids {
		token, ok := t.vocab.IDToToken(id)
		if !ok {
			continue
		}
		if opts.SkipSpecialTokens && t.specialTokens[token] {
			continue
		}
		tokens = append(tokens, token)
	}

	var text string
	if t.decoder != nil {
		text = t.decoder.decode(tokens)
	} else {
		text = strings.Join(tokens, " ")
	}

	cleanup := true
	if t.config != nil {
		cleanup = t.config.CleanUpTokenizationSpaces
	}
	if opts.CleanUpTokenizationSpaces != nil {
		cleanup = *opts.CleanUpTokenizationSpaces
	}
	if t.decoderCleanup != nil && *t.decoderCleanup != cleanup {
		log.Printf("Warning: decoder configuration sets clean_up_tokenization_spaces=%v, overriding the requested %v",
			*t.decoderCleanup, cleanup)
		cleanup = *t.decoderCleanup
	}
	if cleanup {
		text = cleanUpTokenizationSpaces(text)
	}
	return text
}

// DecodeBatch converts many id sequences back to text.
func (t *Tokenizer) DecodeBatch(idsBatch [][]int, opts *api.DecodeOptions) []string {
	texts := make([]string, len(idsBatch))
	for i, ids := range idsBatch {
		texts[i] = t.DecodeWithOptions(ids, opts)
	}
	return texts
}

// tokenizationSpaceCleanups is the fixed whitespace-before-punctuation clean-up applied
// after decoding, mirroring transformers' clean_up_tokenization.
var tokenizationSpaceCleanups = [...][2]string{
	{" .", "."}, {" ?", "?"}, {" !", "!"}, {" ,", ","}, {" '", "'"},
	{" n't", "n't"}, {" 'm", "'m"}, {" 've", "'ve"}, {" 're", "'re"}, {" 's", "'s"},
}

func cleanUpTokenizationSpaces(text string) string {
	for _, pair := range tokenizationSpaceCleanups {
		text = strings.ReplaceAll(text, pair[0], pair[1])
	}
	return text
}

// SpecialTokenID returns the id for the given special token, or an error if the
// tokenizer doesn't define it.
func (t *Tokenizer) SpecialTokenID(token api.SpecialToken) (int, error) {
	id := -1
	switch token {
	case api.TokUnknown:
		id = t.unkID
	case api.TokPad:
		id = t.padID
	case api.TokMask:
		id = t.maskID
	case api.TokSeparator:
		id = t.sepID
	case api.TokClassification:
		id = t.clsID
	case api.TokBeginningOfSentence:
		id = t.bosID
		if id < 0 {
			id = t.clsID // BERT-style models use CLS as sentence start.
		}
	case api.TokEndOfSentence:
		id = t.eosID
		if id < 0 {
			id = t.sepID
		}
	}
	if id < 0 {
		return 0, errors.Errorf("special token %s not defined by this tokenizer", token)
	}
	return id, nil
}

// VocabSize returns the number of distinct token strings, including added tokens.
func (t *Tokenizer) VocabSize() int {
	return t.vocab.Size()
}

// TokenToID converts a token string to its id.
func (t *Tokenizer) TokenToID(token string) (int, bool) {
	return t.vocab.TokenToID(token)
}

// IDToToken converts a token id to its string.
func (t *Tokenizer) IDToToken(id int) (string, bool) {
	return t.vocab.IDToToken(id)
}
