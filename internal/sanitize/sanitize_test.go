package sanitize

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty input falls back", "", "Unknown"},
		{"plain name is unchanged", "Ash", "Ash"},
		{"whitespace collapses and trims", "  Ash \t  Ketchum  ", "Ash Ketchum"},
		{"control characters are stripped", "As\x00h\x07", "Ash"},
		{"tab is a control character, not a separator", "Ash\tKetchum", "AshKetchum"},
		{"format characters are stripped", "Ash\u200bKetchum\ufeff", "AshKetchum"},
		{"disallowed punctuation is removed", "<script>Ash</script>", "scriptAshscript"},
		{"allowed punctuation is kept", "Ash-K_(1)!@#$%&+=,:;.", "Ash-K_(1)!@#$%&+=,:;."},
		{"accented latin is kept", "J\u00e9r\u00f4me", "J\u00e9r\u00f4me"},
		{"decomposed input is composed", "Je\u0301ro\u0302me", "J\u00e9r\u00f4me"},
		{"cjk is kept", "\u30b5\u30c8\u30b7", "\u30b5\u30c8\u30b7"},
		{"astral emoji is removed", "Ash\U0001F600", "Ash"},
		{"nothing left falls back", "<<>>", "Unknown"},
		{"only whitespace falls back", "   ", "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Name(tt.raw))
		})
	}
}

func TestNameTruncates(t *testing.T) {
	raw := strings.Repeat("a", 70)
	got := Name(raw)
	assert.Equal(t, MaxNameLength, utf8.RuneCountInString(got))
}

func TestNameTruncationDropsTrailingSpace(t *testing.T) {
	raw := strings.Repeat("a", 63) + " bcd"
	got := Name(raw)
	assert.Equal(t, strings.Repeat("a", 63), got)
}

func TestNameTruncatesByRune(t *testing.T) {
	raw := strings.Repeat("\u00e9", 80)
	got := Name(raw)
	assert.Equal(t, strings.Repeat("\u00e9", MaxNameLength), got)
}
