// Package slug builds URL-safe identifiers for rooms.
package slug

import (
	"crypto/rand"
	"strings"
	"unicode"
)

const suffixLen = 6

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Make normalizes s into a lowercase, hyphen-separated, URL-safe form.
// Runs of non-alphanumeric characters collapse into a single hyphen.
func Make(s string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) && r < 128, unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// WithSuffix returns Make(s) with a random 6-character suffix appended,
// guaranteeing uniqueness without a lookup-and-retry loop.
func WithSuffix(s string) string {
	base := Make(s)
	if base == "" {
		return randomSuffix()
	}
	return base + "-" + randomSuffix()
}

func randomSuffix() string {
	buf := make([]byte, suffixLen)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform entropy source is broken
		panic(err)
	}
	for i, c := range buf {
		buf[i] = suffixAlphabet[int(c)%len(suffixAlphabet)]
	}
	return string(buf)
}
