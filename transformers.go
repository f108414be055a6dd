// Package transformers holds the version of a set of tools to run pretrained
// transformer models from Go, starting with their tokenizers.
//
// There are 3 main sub-packages:
//
//   - hub: to download files from HuggingFace Hub, be it model files, tokenizers, data, etc.
//   - tokenizers: to create tokenizers from downloaded HuggingFace models.
//   - internal: support packages, not part of the public API.
package transformers

// Version of the library.
// Manually kept in sync with project releases.
var Version = "v0.0.0-dev"
