package hf

// bertFamilyClasses are the tokenizer classes whose models consume token_type_ids
// (segment ids) alongside the input ids. Everything else (GPT-2, RoBERTa, T5, ...)
// either has no second segment or ignores segment ids.
var bertFamilyClasses = map[string]bool{
	"BertTokenizer":            true,
	"BertTokenizerFast":        true,
	"DistilBertTokenizer":      true,
	"DistilBertTokenizerFast":  true,
	"AlbertTokenizer":          true,
	"AlbertTokenizerFast":      true,
	"ElectraTokenizer":         true,
	"ElectraTokenizerFast":     true,
	"MobileBertTokenizer":      true,
	"MobileBertTokenizerFast":  true,
	"SqueezeBertTokenizer":     true,
	"SqueezeBertTokenizerFast": true,
	"ConvBertTokenizer":        true,
	"ConvBertTokenizerFast":    true,
	"HerbertTokenizer":         true,
	"HerbertTokenizerFast":     true,
}

func classReturnsTokenTypeIDs(class string) bool {
	return bertFamilyClasses[class]
}
