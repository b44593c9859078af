package ir

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrParse matches any *ParseError.
	ErrParse = errors.New("parse error")
	// ErrInvalidSchema matches any *ValidationError.
	ErrInvalidSchema = errors.New("invalid schema")
)

// ParseError reports a type name that is neither a known scalar nor a known
// parametric form in the given dialect.
type ParseError struct {
	Dialect Dialect
	Input   string
	Reason  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %s type %q: %s", e.Dialect, e.Input, e.Reason)
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// ValidationError collects every structural problem found in a schema.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid schema: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid schema: %d problems:\n  - %s", len(e.Problems), strings.Join(e.Problems, "\n  - "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidSchema
}
