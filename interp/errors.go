package interp

import (
	"errors"
	"fmt"
	"strings"
)

// Standard errors
var (
	// ErrUnknownIdentifier is returned when a name is neither a variable, a
	// tool, nor a built-in.
	ErrUnknownIdentifier = errors.New("unknown identifier")

	// ErrUnsupportedNode is returned for AST nodes the engine cannot run in
	// the position they appear.
	ErrUnsupportedNode = errors.New("unsupported node")

	// ErrNotATool is returned when a call names a namespace or a tool path
	// that does not exist.
	ErrNotATool = errors.New("not a tool")
)

// RuntimeError is a structural failure. It aborts the tick and the frame
// tree is restored to its state before the tick began.
type RuntimeError struct {
	Trace      string
	Err        error
	Detail     string
	Suggestion string
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString("runtime error")
	if e.Trace != "" {
		b.WriteString(" at ")
		b.WriteString(e.Trace)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, " (did you mean %s?)", e.Suggestion)
	}
	return b.String()
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// frameError is a failure local to one frame: a type error, a schema
// mismatch or a handler failure. It is stored in the frame and propagates to
// every enclosing frame.
type frameError struct {
	msg string
}

func (e *frameError) Error() string { return e.msg }

// errAwait signals that a descendant call is awaiting an event.
var errAwait = errors.New("awaiting event")

// errStopped signals that the controller ended the tick early.
var errStopped = errors.New("stopped by controller")
