// Package tvm implements the term store, term model, functional operation
// catalogue, function/CFG layer, module, and recursive/apply machinery of
// the target virtual machine IR: a hash-consed DAG of typed values with an
// SSA discipline enforced at construction time.
package tvm

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind is the closed set of error categories the IR core can raise.
type ErrorKind int

const (
	// BadType: operand types do not satisfy an operation's typing rule.
	BadType ErrorKind = iota
	// BadWidth: integer operation with mismatched widths or zero width.
	BadWidth
	// DivideByZero: integer division by a value known to be zero.
	DivideByZero
	// SourceMismatch: operands share no common source, or a source does
	// not dominate its use site.
	SourceMismatch
	// UnresolvedRecursive: a term still references an unresolved
	// recursive type where a concrete operation requires otherwise.
	UnresolvedRecursive
	// UnsupportedType: a back-end-opaque blob type reached an operation
	// that requires a register or split type.
	UnsupportedType
	// Internal: an invariant violation detected by an assertion; not
	// recoverable.
	Internal
	// User: malformed input from the textual surface or a client API;
	// wraps one of the above kinds with a source Location.
	User
)

func (k ErrorKind) String() string {
	switch k {
	case BadType:
		return "bad-type"
	case BadWidth:
		return "bad-width"
	case DivideByZero:
		return "divide-by-zero"
	case SourceMismatch:
		return "source-mismatch"
	case UnresolvedRecursive:
		return "unresolved-recursive"
	case UnsupportedType:
		return "unsupported-type"
	case Internal:
		return "internal"
	case User:
		return "user"
	default:
		return "unknown-error-kind"
	}
}

// Location names where a user-facing error was reported from: a textual
// surface position, or simply a description of the API call site.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	if l.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Error is the concrete error type every failure in this package returns.
// It carries a closed Kind, a human message, and (via github.com/pkg/errors)
// a stack trace captured at the point of first failure.
type Error struct {
	Kind     ErrorKind
	Message  string
	Location Location
	cause    error
}

func (e *Error) Error() string {
	if loc := e.Location.String(); loc != "" {
		return fmt.Sprintf("%s: %s (at %s)", e.Kind, e.Message, loc)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

// Newf constructs a new Error of the given kind with a stack trace attached.
func Newf(kind ErrorKind, format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{Kind: kind, Message: msg, cause: errors.New(msg)}
}

// Wrap turns an arbitrary error into a User error carrying the given
// location, the way the textual assembler surface reports malformed input.
func Wrap(err error, loc Location) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		wrapped := *e
		wrapped.Kind = User
		wrapped.Location = loc
		wrapped.cause = errors.WithStack(err)
		return &wrapped
	}
	return &Error{Kind: User, Message: err.Error(), Location: loc, cause: errors.WithStack(err)}
}

func badType(format string, args ...interface{}) *Error  { return Newf(BadType, format, args...) }
func badWidth(format string, args ...interface{}) *Error { return Newf(BadWidth, format, args...) }
func sourceMismatch(format string, args ...interface{}) *Error {
	return Newf(SourceMismatch, format, args...)
}
func internalErr(format string, args ...interface{}) *Error { return Newf(Internal, format, args...) }
