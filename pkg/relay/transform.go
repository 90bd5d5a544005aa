package relay

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	boldHash     = regexp.MustCompile(`Transaction hash: \*\*(0x[a-fA-F0-9]+)\*\*`)
	boldPosition = regexp.MustCompile(`Position ID: \*\*([^*\n]+)\*\*`)
)

const (
	hashMarker     = "Transaction hash: **"
	positionMarker = "Position ID: **"
)

// maxHold bounds how much text may be held back waiting for a marker to
// close. Past it the text is forwarded untransformed.
const maxHold = 512

// Transform strips bold emphasis around transaction hashes and position ids.
// The hash substitution always runs first.
func Transform(s string) string {
	if !strings.Contains(s, "**") {
		return s
	}
	s = boldHash.ReplaceAllString(s, "Transaction hash: $1")
	return boldPosition.ReplaceAllString(s, "Position ID: $1")
}

// splitOpen returns the index of the earliest suffix of s that could still
// grow into a transformable marker, or len(s) if none can.
func splitOpen(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] != 'T' && s[i] != 'P' {
			continue
		}
		tail := s[i:]
		if couldOpen(tail, hashMarker, isHashValue) || couldOpen(tail, positionMarker, isPositionValue) {
			return i
		}
	}
	return len(s)
}

// couldOpen reports whether tail is an unfinished prefix of marker + value + "**".
func couldOpen(tail, marker string, value func(string) bool) bool {
	if len(tail) < len(marker) {
		return strings.HasPrefix(marker, tail)
	}
	if !strings.HasPrefix(tail, marker) {
		return false
	}
	return value(tail[len(marker):])
}

func isHashValue(rest string) bool {
	switch {
	case rest == "" || rest == "0":
		return true
	case !strings.HasPrefix(rest, "0x"):
		return false
	}
	digits := strings.TrimLeft(rest[2:], "0123456789abcdefABCDEF")
	return digits == "" || (digits == "*" && len(rest) > 3)
}

// isPositionValue stops at the first line break: a position id never spans lines.
func isPositionValue(rest string) bool {
	i := strings.IndexAny(rest, "*\n")
	if i < 0 {
		return true
	}
	return i > 0 && rest[i:] == "*"
}

// splitRune separates a trailing incomplete UTF-8 sequence from b.
func splitRune(b []byte) (complete, partial []byte) {
	start := len(b) - 1
	for start >= 0 && len(b)-start < utf8.UTFMax && !utf8.RuneStart(b[start]) {
		start--
	}
	if start < 0 || utf8.FullRune(b[start:]) {
		return b, nil
	}
	return b[:start], b[start:]
}
