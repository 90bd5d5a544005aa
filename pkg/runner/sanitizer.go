package runner

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/weave/pkg/domain"
)

// DefaultMaxInputSize bounds each free text metadata field.
const DefaultMaxInputSize = 16 * 1024

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// SanitizeInput rejects text over limit bytes or with invalid UTF-8 and
// drops control characters except newline, tab and carriage return.
// A limit <= 0 uses DefaultMaxInputSize.
func SanitizeInput(input string, limit int) (string, error) {
	if limit <= 0 {
		limit = DefaultMaxInputSize
	}
	switch {
	case len(input) > limit:
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrInputTooLarge, len(input), limit)
	case !utf8.ValidString(input):
		return "", ErrInvalidUTF8
	case strings.IndexFunc(input, unsafeControl) < 0:
		return input, nil
	}
	return strings.Map(func(r rune) rune {
		if unsafeControl(r) {
			return -1
		}
		return r
	}, input), nil
}

func unsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r'
}

// sanitizeMetadata cleans the fields of meta that end up in the prompt
// verbatim. Structured tool input is rendered as JSON and left alone.
func sanitizeMetadata(meta domain.ToolMetadata, limit int) (domain.ToolMetadata, error) {
	var err error
	if meta.Description, err = SanitizeInput(meta.Description, limit); err != nil {
		return meta, domain.NewError(domain.KindValidation, "invalid description", err)
	}
	if meta.NextToCall, err = SanitizeInput(meta.NextToCall, limit); err != nil {
		return meta, domain.NewError(domain.KindValidation, "invalid nextToCall", err)
	}
	if s, ok := meta.ToolInput.(string); ok {
		clean, err := SanitizeInput(s, limit)
		if err != nil {
			return meta, domain.NewError(domain.KindValidation, "invalid toolInput", err)
		}
		meta.ToolInput = clean
	}
	return meta, nil
}
