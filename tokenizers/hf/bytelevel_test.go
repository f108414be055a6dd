package hf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestByteUnicodeBijection(t *testing.T) {
	// Every byte value must map to a distinct rune and back.
	seen := make(map[rune]bool, 256)
	for b := 0; b < 256; b++ {
		r := byteToRune[b]
		assert.False(t, seen[r], "rune %q mapped twice", r)
		seen[r] = true
		assert.Equal(t, byte(b), runeToByte[r])
	}
	// Spot checks against the GPT-2 table.
	assert.Equal(t, 'Ġ', byteToRune[' '])
	assert.Equal(t, 'Ċ', byteToRune['\n'])
	assert.Equal(t, 'a', byteToRune['a'])
}

func TestBytesToUnicodeRoundTrip(t *testing.T) {
	for _, text := range []string{"Hello world!", "caffè", "中文", "\x00\xff binary"} {
		mapped := bytesToUnicode(text)
		assert.Equal(t, []byte(text), unicodeToBytes(mapped), "text %q", text)
	}
}
