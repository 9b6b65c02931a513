package jit

import (
	"errors"
	"fmt"
)

var (
	ErrDivisionByZero = errors.New("integer division by zero")
	ErrStackOverflow  = errors.New("call depth exceeded")
	ErrCancelled      = errors.New("execution cancelled")
	ErrNotFinalized   = errors.New("engine not finalized")
	ErrNoSuchFunction = errors.New("no such function")
)

// RuntimeErrorKind classifies failures raised while executing compiled code.
type RuntimeErrorKind int

const (
	DivisionByZero RuntimeErrorKind = iota
	StackOverflow
	Cancelled
)

func (k RuntimeErrorKind) String() string {
	switch k {
	case DivisionByZero:
		return "DivisionByZero"
	case StackOverflow:
		return "StackOverflow"
	case Cancelled:
		return "Cancelled"
	default:
		return fmt.Sprintf("RuntimeErrorKind(%d)", int(k))
	}
}

// RuntimeError reports a failure inside Function together with the call chain
// that led there, innermost first.
type RuntimeError struct {
	Kind     RuntimeErrorKind
	Function string
	Trace    []string
	err      error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s in %s: %v", e.Kind, e.Function, e.err)
}

func (e *RuntimeError) Unwrap() error {
	return e.err
}

func newRuntimeError(kind RuntimeErrorKind, fn string, err error) *RuntimeError {
	return &RuntimeError{Kind: kind, Function: fn, Trace: []string{fn}, err: err}
}

func appendTrace(err error, fn string) error {
	var rtErr *RuntimeError
	if errors.As(err, &rtErr) && len(rtErr.Trace) > 0 && len(rtErr.Trace) < 64 {
		rtErr.Trace = append(rtErr.Trace, fn)
	}
	return err
}
