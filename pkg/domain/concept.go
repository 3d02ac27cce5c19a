package domain

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxConceptSize is 4KB (conservative default).
	DefaultMaxConceptSize = 4096
	// EnvMaxConceptSize is the environment variable to override the default.
	EnvMaxConceptSize = "PLOTLINE_MAX_CONCEPT_SIZE"
)

// NormalizeConcept validates caller-supplied concept text before a run starts.
// It rejects oversized or invalid UTF-8 input, strips control characters other than
// newline, tab and carriage return, and trims surrounding whitespace.
func NormalizeConcept(concept string) (string, error) {
	limit := maxConceptSize()
	if len(concept) > limit {
		// Rejected rather than truncated so the naming seed stays what the caller sent.
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrConceptTooLarge, len(concept), limit)
	}
	if !utf8.ValidString(concept) {
		return "", ErrInvalidUTF8
	}

	var b strings.Builder
	b.Grow(len(concept))
	for _, r := range concept {
		if !unicode.IsControl(r) || isSafeControl(r) {
			b.WriteRune(r)
		}
	}

	clean := strings.TrimSpace(b.String())
	if clean == "" {
		return "", ErrEmptyConcept
	}
	return clean, nil
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}

func maxConceptSize() int {
	if val := os.Getenv(EnvMaxConceptSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxConceptSize
}
