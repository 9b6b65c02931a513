package codegen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/NewProggie/Toco/pkg/ast"
	"github.com/NewProggie/Toco/pkg/ir"
)

// ErrorKind classifies a lowering failure.
type ErrorKind int

const (
	UndeclaredVariable ErrorKind = iota
	UndeclaredFunction
	UnsupportedOperator
	UnsupportedType
	UnsupportedConstruct
	TypeMismatch
	ArityMismatch
	Redefinition
	Internal
)

var (
	ErrUndeclaredVariable   = errors.New("undeclared variable")
	ErrUndeclaredFunction   = errors.New("no such function")
	ErrUnsupportedOperator  = errors.New("unsupported operator")
	ErrUnsupportedType      = errors.New("unsupported type")
	ErrUnsupportedConstruct = errors.New("unsupported construct")
	ErrTypeMismatch         = errors.New("type mismatch")
	ErrArityMismatch        = errors.New("argument count mismatch")
	ErrRedefinition         = errors.New("redefinition")
	ErrInternal             = errors.New("internal error")
)

var kindSentinels = map[ErrorKind]error{
	UndeclaredVariable:   ErrUndeclaredVariable,
	UndeclaredFunction:   ErrUndeclaredFunction,
	UnsupportedOperator:  ErrUnsupportedOperator,
	UnsupportedType:      ErrUnsupportedType,
	UnsupportedConstruct: ErrUnsupportedConstruct,
	TypeMismatch:         ErrTypeMismatch,
	ArityMismatch:        ErrArityMismatch,
	Redefinition:         ErrRedefinition,
	Internal:             ErrInternal,
}

func (k ErrorKind) String() string {
	switch k {
	case UndeclaredVariable:
		return "UndeclaredVariable"
	case UndeclaredFunction:
		return "UndeclaredFunction"
	case UnsupportedOperator:
		return "UnsupportedOperator"
	case UnsupportedType:
		return "UnsupportedType"
	case UnsupportedConstruct:
		return "UnsupportedConstruct"
	case TypeMismatch:
		return "TypeMismatch"
	case ArityMismatch:
		return "ArityMismatch"
	case Redefinition:
		return "Redefinition"
	case Internal:
		return "Internal"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is one classified lowering failure, positioned at the node that caused it.
type Error struct {
	Kind    ErrorKind
	Message string
	Node    ast.NodeType
	Span    ast.Span
	cause   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%v: %s", kindSentinels[e.Kind], e.Message)
	if e.Span.IsZero() {
		return msg
	}
	return e.Span.String() + ": " + msg
}

func (e *Error) Unwrap() []error {
	errs := []error{kindSentinels[e.Kind]}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

func lowerError(kind ErrorKind, node ast.Node, format string, args ...any) *Error {
	err := &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
	if node != nil {
		err.Node = node.NodeType()
		err.Span = node.Span()
	}
	return err
}

// substrateError classifies an error returned by an ir constructor.
func substrateError(node ast.Node, err error) *Error {
	kind := Internal
	switch {
	case errors.Is(err, ir.ErrTypeMismatch):
		kind = TypeMismatch
	case errors.Is(err, ir.ErrArity):
		kind = ArityMismatch
	case errors.Is(err, ir.ErrDuplicateSymbol):
		kind = Redefinition
	case errors.Is(err, ir.ErrInvalidOperand):
		kind = TypeMismatch
	}
	lerr := lowerError(kind, node, "%s", strings.TrimPrefix(err.Error(), "ir: "))
	lerr.cause = err
	return lerr
}

// LoweringErrors aggregates every failure reported while generating a program.
type LoweringErrors struct {
	Errors []*Error
}

func (e *LoweringErrors) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d lowering errors:", len(e.Errors))
	for _, err := range e.Errors {
		b.WriteString("\n- ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e *LoweringErrors) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, err := range e.Errors {
		errs[i] = err
	}
	return errs
}

// Kinds lists the kind of every failure in report order.
func (e *LoweringErrors) Kinds() []ErrorKind {
	kinds := make([]ErrorKind, len(e.Errors))
	for i, err := range e.Errors {
		kinds[i] = err.Kind
	}
	return kinds
}
