// Package apperr holds the error taxonomy shared by the codecs, the compiler and the bundler.
package apperr

import (
	"errors"
	"io/fs"
)

var (
	ErrUnserializableValue     = errors.New("unserializable value")
	ErrUnsupportedExpression   = errors.New("unsupported attribute expression")
	ErrFrontmatterParse        = errors.New("frontmatter parse error")
	ErrUnsupportedChildContent = errors.New("unsupported child content")
	ErrDuplicateComponent      = errors.New("duplicate component")
	ErrMalformedTag            = errors.New("malformed tag")

	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Tip returns an actionable hint for filesystem access errors, or "" when
// no hint applies.
func Tip(err error) string {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "Tip: Check that the specified path exists and is accessible."
	case errors.Is(err, fs.ErrPermission):
		return "Tip: Check file permissions for the specified path."
	}
	return ""
}
