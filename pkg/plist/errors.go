package plist

import (
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"
)

// Syntax names one of the two textual grammars the codec reads.
type Syntax string

const (
	SyntaxJSON  Syntax = "json"
	SyntaxPlist Syntax = "plist"
)

var (
	// ErrSyntax matches every error caused by malformed input text.
	ErrSyntax = errors.New("malformed input")

	// ErrEncoding matches errors for well-formed input holding a value the
	// target grammar cannot express, such as an object key that is not a
	// valid keyword name or an infinite float headed for JSON.
	ErrEncoding = errors.New("value not representable")
)

// SyntaxError describes why and where a conversion failed. Use errors.Is
// with ErrSyntax or ErrEncoding to tell the two apart.
type SyntaxError struct {
	// Syntax is the grammar of the input being scanned.
	Syntax Syntax

	// Offset is the byte offset into the input where the failure was
	// detected.
	Offset int

	// Reason describes what was expected or what is wrong.
	Reason string

	// Found describes the input at Offset: a quoted character, or
	// "end of input".
	Found string

	kind error
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("plist: %s %s at offset %d: %s (found %s)",
		e.Syntax, e.kind, e.Offset, e.Reason, e.Found)
}

// Unwrap returns ErrSyntax or ErrEncoding.
func (e *SyntaxError) Unwrap() error { return e.kind }

func newError(kind error, syntax Syntax, src []byte, offset int, reason string) *SyntaxError {
	return &SyntaxError{
		Syntax: syntax,
		Offset: offset,
		Reason: reason,
		Found:  describe(src, offset),
		kind:   kind,
	}
}

// describe renders the input at offset for error messages.
func describe(src []byte, offset int) string {
	if offset >= len(src) {
		return "end of input"
	}
	r, size := utf8.DecodeRune(src[offset:])
	if r == utf8.RuneError && size <= 1 {
		return fmt.Sprintf("byte 0x%02x", src[offset])
	}
	return strconv.QuoteRune(r)
}
