package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FoldDiacritics strips combining marks so "Café Müller" becomes "Cafe Muller".
func FoldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Slug lowercases s, collapses every run of characters outside [a-z0-9] into
// a single sep, and trims sep from both ends. It returns fallback when nothing
// remains.
func Slug(s string, sep byte, fallback string) string {
	s = strings.ToLower(FoldDiacritics(s))
	var b strings.Builder
	pending := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if ('a' <= c && c <= 'z') || ('0' <= c && c <= '9') {
			if pending && b.Len() > 0 {
				b.WriteByte(sep)
			}
			pending = false
			b.WriteByte(c)
			continue
		}
		pending = true
	}
	if b.Len() == 0 {
		return fallback
	}
	return b.String()
}

// ReplaceNonAlnum maps every byte outside [A-Za-z0-9] to repl without
// collapsing runs, then lowercases the result.
func ReplaceNonAlnum(s string, repl byte) string {
	buf := []byte(s)
	for i, c := range buf {
		if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') {
			continue
		}
		buf[i] = repl
	}
	return strings.ToLower(string(buf))
}
