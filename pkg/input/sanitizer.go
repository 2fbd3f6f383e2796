// Package input cleans inbound chat text before it reaches the flow engine.
package input

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxSize is 4KB, far above any chat message.
const DefaultMaxSize = 4096

var (
	ErrTooLarge    = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8 = errors.New("input contains invalid UTF-8 sequences")
)

// Sanitizer enforces a size limit, validates UTF-8 and strips control characters.
type Sanitizer struct {
	MaxSize int
}

// Sanitize is Sanitizer{}.Clean.
func Sanitize(text string) (string, error) {
	return Sanitizer{}.Clean(text)
}

// Clean returns text without unsafe control characters and surrounding whitespace.
// Oversized input is rejected rather than truncated.
func (s Sanitizer) Clean(text string) (string, error) {
	limit := s.MaxSize
	if limit <= 0 {
		limit = DefaultMaxSize
	}
	if len(text) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrTooLarge, len(text), limit)
	}
	if !utf8.ValidString(text) {
		return "", ErrInvalidUTF8
	}

	clean := true
	for _, r := range text {
		if unicode.IsControl(r) && !isSafeControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return strings.TrimSpace(text), nil
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if !unicode.IsControl(r) || isSafeControl(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// ANSI escapes, NUL and BEL are dropped; line breaks and tabs stay.
func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}
