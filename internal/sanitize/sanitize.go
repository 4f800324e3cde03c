// Package sanitize turns client-supplied display names into strings that are
// safe to render on public leaderboards.
package sanitize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	// MaxNameLength is the maximum number of runes in a sanitized name
	MaxNameLength = 64
	// Fallback is returned when nothing usable is left of the input
	Fallback = "Unknown"
)

const allowedPunctuation = " -_.()!@#$%&+=,:;"

// Name returns the sanitized form of raw. It never fails: empty input, or input
// that is entirely stripped, yields Fallback.
func Name(raw string) string {
	if raw == "" {
		return Fallback
	}

	n := norm.NFC.String(raw)
	n = strings.Map(dropControl, n)
	n = strings.Join(strings.FieldsFunc(n, unicode.IsSpace), " ")
	n = strings.Map(keepAllowed, n)

	if runes := []rune(n); len(runes) > MaxNameLength {
		n = strings.TrimRightFunc(string(runes[:MaxNameLength]), unicode.IsSpace)
	}

	if n == "" {
		return Fallback
	}
	return n
}

func dropControl(r rune) rune {
	if unicode.In(r, unicode.Cc, unicode.Cf) {
		return -1
	}
	return r
}

func keepAllowed(r rune) rune {
	switch {
	case r >= '0' && r <= '9', r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		return r
	case r >= 0x00C0 && r <= 0xFFFF:
		return r
	case strings.ContainsRune(allowedPunctuation, r):
		return r
	default:
		return -1
	}
}
