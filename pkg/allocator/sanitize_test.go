package allocator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Spaces And Punctuation", "My Concept!", "My_Concept"},
		{"Already Clean", "cat_on_a_mat", "cat_on_a_mat"},
		{"Each Space Maps Once", "a  b", "a__b"},
		{"Tabs And Newlines", "a\tb\nc", "a_b_c"},
		{"Unicode Letters Dropped", "café olé", "caf_ol"},
		{"Only Punctuation", "!!!", ""},
		{"Exactly Twenty", "abcdefghijklmnopqrst", "abcdefghijklmnopqrst"},
		{"Truncated", "a very long concept that keeps going", "a_very_long_concept_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Sanitize(tt.input))
		})
	}
}

func TestSanitize_TruncatesAfterStripping(t *testing.T) {
	// Stripped characters must not count toward the limit.
	input := strings.Repeat("!a", 30)
	got := Sanitize(input)

	assert.Len(t, got, MaxSeedLength)
	assert.Equal(t, strings.Repeat("a", MaxSeedLength), got)
}

func TestBaseName_Untitled(t *testing.T) {
	assert.Equal(t, UntitledBase, BaseName("???"))
	assert.Equal(t, "ok", BaseName("ok"))
}
