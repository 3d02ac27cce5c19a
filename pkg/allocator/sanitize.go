package allocator

import (
	"strings"
	"unicode"
)

// MaxSeedLength bounds the sanitized seed before the numeric suffix is appended.
const MaxSeedLength = 20

// UntitledBase names bundles whose seed sanitizes to nothing.
const UntitledBase = "untitled"

// Sanitize maps every whitespace rune to "_", drops anything outside [A-Za-z0-9_] and
// truncates the result to MaxSeedLength.
func Sanitize(seed string) string {
	var b strings.Builder
	b.Grow(len(seed))
	for _, r := range seed {
		switch {
		case unicode.IsSpace(r):
			b.WriteByte('_')
		case r == '_',
			r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9':
			b.WriteRune(r)
		}
		if b.Len() >= MaxSeedLength {
			break
		}
	}
	return b.String()
}

// BaseName returns the sanitized seed, or UntitledBase when nothing survives sanitizing.
func BaseName(seed string) string {
	if s := Sanitize(seed); s != "" {
		return s
	}
	return UntitledBase
}
