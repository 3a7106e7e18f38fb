package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashStringDeterministic(t *testing.T) {
	h1 := HashString("out/foo.o")
	h2 := HashString("out/foo.o")
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, HashString("out/bar.o"))
}

// Inputs just past a 48-byte block boundary leave fewer than 16 bytes
// in the remainder; the final mix must reach back into the full key.
func TestHashStringShortBlockRemainder(t *testing.T) {
	for _, n := range []int{49, 50, 63, 97, 111} {
		input := strings.Repeat("p", n)
		assert.Equal(t, HashString(input), HashString(input))
	}
}

func TestHashStringLengths(t *testing.T) {
	// Exercise the small, medium and bulk code paths.
	seen := map[uint64]string{}
	input := ""
	for i := 0; i <= 96; i++ {
		h := HashString(input)
		prev, dup := seen[h]
		assert.False(t, dup, "collision between %q and %q", prev, input)
		seen[h] = input
		input += "x"
	}
}
