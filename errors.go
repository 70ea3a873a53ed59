package ical

import (
	"fmt"
)

// EncodingError is returned by Parse when the input is not valid UTF-8, or
// is in an encoding the parser cannot convert. It stops processing of the
// stream.
type EncodingError struct {
	Line   int
	Reason string
}

func (e *EncodingError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("ical: line %d: %s", e.Line, e.Reason)
	}
	return "ical: " + e.Reason
}

// SyntaxError is returned by Parse in strict mode for tokenization failures
// that lenient mode would have recovered from.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("ical: line %d: %s", e.Line, e.Msg)
}

// DecodeError describes a property value that does not match the grammar
// of its value type.
type DecodeError struct {
	Type ValueType
	Raw  string
	Err  error
}

func (e *DecodeError) Error() string {
	raw := e.Raw
	if len(raw) > 40 {
		raw = raw[:40] + "..."
	}
	return fmt.Sprintf("cannot decode %q as %s: %v", raw, e.Type, e.Err)
}

// Cause returns the underlying error, for github.com/pkg/errors.
func (e *DecodeError) Cause() error { return e.Err }

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error { return e.Err }
