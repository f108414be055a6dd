package hf

import "strings"

// Byte-level BPE represents every input byte as a printable unicode rune, so that raw
// UTF-8 bytes can live inside normal vocabulary strings. The mapping is the fixed
// bijection defined by GPT-2: printable latin-1 ranges map to themselves, the remaining
// byte values are assigned runes from U+0100 up, in order.
var (
	byteToRune [256]rune
	runeToByte map[rune]byte
)

func init() {
	runeToByte = make(map[rune]byte, 256)
	isSelfMapped := func(b int) bool {
		return (b >= '!' && b <= '~') || (b >= 0xA1 && b <= 0xAC) || (b >= 0xAE && b <= 0xFF)
	}
	next := 0
	for b := 0; b < 256; b++ {
		var r rune
		if isSelfMapped(b) {
			r = rune(b)
		} else {
			r = rune(256 + next)
			next++
		}
		byteToRune[b] = r
		runeToByte[r] = byte(b)
	}
}

// bytesToUnicode maps the raw UTF-8 bytes of text through the byte-to-rune table.
func bytesToUnicode(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for i := 0; i < len(text); i++ {
		sb.WriteRune(byteToRune[text[i]])
	}
	return sb.String()
}

// unicodeToBytes is the exact inverse of bytesToUnicode. Runes outside the mapping are
// passed through as their own UTF-8 bytes, so decoding never fails; the result is decoded
// as UTF-8 by the caller, where invalid sequences become the replacement character.
func unicodeToBytes(text string) []byte {
	out := make([]byte, 0, len(text))
	for _, r := range text {
		if b, ok := runeToByte[r]; ok {
			out = append(out, b)
		} else {
			out = append(out, []byte(string(r))...)
		}
	}
	return out
}
