package listing

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidListing is matched by every error list returned from Parse and
// Diff.
var ErrInvalidListing = errors.New("invalid listing")

// ParseError describes one bad line in an edited listing.
type ParseError struct {
	// Buffer is the URL of the section the line belongs to, or "" before the
	// first section header
	Buffer string `json:"buffer"`

	// Line is the 1-based line number in the document
	Line int `json:"line"`

	Msg string `json:"message"`
}

func (e *ParseError) Error() string {
	if e.Buffer == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("line %d (%s): %s", e.Line, e.Buffer, e.Msg)
}

// ErrorFilter lets the owner of a buffer drop parse errors it tolerates.
type ErrorFilter interface {
	// FilterError returns false to drop the error.
	FilterError(e *ParseError) bool
}

// Errors is a list of parse errors.
type Errors []*ParseError

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, pe := range e {
		msgs = append(msgs, pe.Error())
	}
	return fmt.Sprintf("%s: %s", ErrInvalidListing, strings.Join(msgs, "; "))
}

// Is reports whether target is ErrInvalidListing.
func (e Errors) Is(target error) bool {
	return target == ErrInvalidListing
}

// Filter keeps the errors f accepts. A nil filter keeps everything.
func (e Errors) Filter(f ErrorFilter) Errors {
	if f == nil {
		return e
	}
	var kept Errors
	for _, pe := range e {
		if f.FilterError(pe) {
			kept = append(kept, pe)
		}
	}
	return kept
}
