package ast

import "fmt"

// Position is a 1-based line/column pair.
type Position struct {
	Line   int
	Column int
}

// Span covers the source text a node was parsed from.
type Span struct {
	Start Position
	End   Position
}

// IsZero reports whether the span carries no location.
func (s Span) IsZero() bool {
	return s == Span{}
}

func (s Span) String() string {
	if s.IsZero() {
		return "<unknown>"
	}
	return fmt.Sprintf("%d:%d", s.Start.Line, s.Start.Column)
}

// SetSpan annotates the node with the provided span.
func SetSpan(node Node, span Span) {
	if node == nil {
		return
	}
	if setter, ok := node.(interface{ setSpan(Span) }); ok {
		setter.setSpan(span)
	}
}

// ZeroSpan returns an empty span value.
func ZeroSpan() Span {
	return Span{}
}
