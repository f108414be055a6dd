// Package tokenizers creates tokenizers from HuggingFace models.
//
// Given a HuggingFace repository (see hub.New to create one), tokenizers will use its
// "tokenizer_config.json" and "tokenizer.json" to instantiate a Tokenizer, dispatching
// on the "tokenizer_class" declared in the config. Most classes are served by the
// generic tokenizer.json implementation in the hf sub-package; SentencePiece-native
// classes (Gemma) use the sentencepiece sub-package instead.
package tokenizers

import (
	"log"

	"github.com/gomlx/go-transformers/hub"
	"github.com/gomlx/go-transformers/tokenizers/api"
	"github.com/gomlx/go-transformers/tokenizers/hf"
	"github.com/gomlx/go-transformers/tokenizers/sentencepiece"
)

// Tokenizer interface allows one to convert text to "tokens" (integer ids) and back.
//
// It also allows mapping of special tokens: tokens with a common semantic (like padding)
// but that may map to different ids (int) for different tokenizers.
type Tokenizer = api.Tokenizer

// BatchTokenizer is implemented by tokenizers that also support batched encoding with
// padding, truncation and attention masks. The generic hf implementation supports it.
type BatchTokenizer = api.BatchTokenizer

// SpecialToken is an enum of commonly used special tokens.
type SpecialToken = api.SpecialToken

const (
	TokBeginningOfSentence = api.TokBeginningOfSentence
	TokEndOfSentence       = api.TokEndOfSentence
	TokUnknown             = api.TokUnknown
	TokPad                 = api.TokPad
	TokMask                = api.TokMask
	TokClassification      = api.TokClassification
	TokSeparator           = api.TokSeparator
	TokSpecialTokensCount  = api.TokSpecialTokensCount
)

// New creates a new tokenizer from the given HuggingFace repo (see hub.New).
//
// It downloads "tokenizer_config.json" to find the tokenizer class, then dispatches to
// the registered implementation for that class. Classes without a dedicated
// implementation fall back to the generic tokenizer.json implementation, with a logged
// notice.
func New(repo *hub.Repo) (Tokenizer, error) {
	err := repo.DownloadInfo(false)
	if err != nil {
		return nil, err
	}

	config, err := GetConfig(repo)
	if err != nil {
		return nil, err
	}

	constructor, found := registerOfClasses[config.TokenizerClass]
	if !found {
		log.Printf("tokenizers: no dedicated implementation for tokenizer class %q, using the generic tokenizer.json implementation",
			config.TokenizerClass)
		constructor = hf.New
	}
	return constructor(config, repo)
}

// FromPretrained creates a tokenizer from a HuggingFace model name (e.g.
// "google-bert/bert-base-uncased"), downloading the needed files to the default cache.
func FromPretrained(modelID string) (Tokenizer, error) {
	return New(hub.New(modelID))
}

// GetConfig returns the parsed "tokenizer_config.json" Config object for the repo.
func GetConfig(repo *hub.Repo) (*api.Config, error) {
	err := repo.DownloadInfo(false)
	if err != nil {
		return nil, err
	}
	localConfigFile, err := repo.DownloadFile("tokenizer_config.json")
	if err != nil {
		return nil, err
	}
	config, err := api.ParseConfigFile(localConfigFile) // tokenizer_config.json
	if err != nil {
		return nil, err
	}
	return config, nil
}

// Config struct to hold HuggingFace's tokenizer_config.json contents.
// There is no formal schema for this file, but these are some common fields that may be of use.
// Specific tokenizer classes are free to implement additional features as they see fit.
//
// The extra field ConfigFile holds the path to the file with the full config.
type Config = api.Config

// TokenizerConstructor is used by Tokenizer implementations to provide implementations for different
// tokenizer classes.
type TokenizerConstructor func(config *api.Config, repo *hub.Repo) (api.Tokenizer, error)

// RegisterTokenizerClass used by Tokenizer implementations.
func RegisterTokenizerClass(name string, constructor TokenizerConstructor) {
	registerOfClasses[name] = constructor
}

var (
	registerOfClasses = make(map[string]TokenizerConstructor)
)

func init() {
	// SentencePiece-native classes.
	RegisterTokenizerClass("GemmaTokenizer", sentencepiece.New)

	// Classes served by the generic tokenizer.json implementation. Registering them
	// explicitly (instead of relying on the fallback) avoids the fallback notice for
	// the classes known to work.
	for _, className := range []string{
		"BertTokenizer", "BertTokenizerFast",
		"DistilBertTokenizer", "DistilBertTokenizerFast",
		"AlbertTokenizer", "AlbertTokenizerFast",
		"ElectraTokenizer", "ElectraTokenizerFast",
		"MobileBertTokenizer", "MobileBertTokenizerFast",
		"GPT2Tokenizer", "GPT2TokenizerFast",
		"RobertaTokenizer", "RobertaTokenizerFast",
		"BartTokenizer", "BartTokenizerFast",
		"T5Tokenizer", "T5TokenizerFast",
		"WhisperTokenizer", "WhisperTokenizerFast",
		"CLIPTokenizer", "CLIPTokenizerFast",
		"CodeGenTokenizer", "CodeGenTokenizerFast",
		"PreTrainedTokenizer", "PreTrainedTokenizerFast",
	} {
		RegisterTokenizerClass(className, hf.New)
	}
}
