package errors

import (
	"errors"
	"fmt"
)

// CompilationError reports one diagnostic at a single token. Where is
// pre-formatted by the caller (" at 'x'", " at end", or "" for a token
// the scanner already flagged) so Error can stay a single format string.
type CompilationError struct {
	Line   int
	Where  string
	Reason string
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("[line %d] Error%s: %s", e.Line, e.Where, e.Reason)
}

type RuntimeError struct {
	Line   int
	Reason string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s\n[line %d] in script", e.Reason, e.Line)
}

var Unreachable = errors.New("internal error: entered unreachable code")
