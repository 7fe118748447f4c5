package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short", 10))
	assert.Equal(t, "exactly10!", Preview("exactly10!", 10))
	assert.Equal(t, "this is a ...", Preview("this is a long message", 10))
	assert.Equal(t, "", Preview("", 10))
}

func TestPreviewMultibyte(t *testing.T) {
	// Truncation counts runes, never splits a multibyte character.
	assert.Equal(t, "héllo...", Preview("héllo wörld", 5))
}
