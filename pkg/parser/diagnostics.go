package parser

import (
	"errors"
	"fmt"

	"github.com/NewProggie/Toco/pkg/ast"
)

// SourceLocation captures a source span for parser diagnostics.
type SourceLocation struct {
	Path      string
	Line      int
	Column    int
	EndLine   int
	EndColumn int
}

func (l SourceLocation) String() string {
	if l.Path == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d:%d", l.Path, l.Line, l.Column)
}

// ParseError includes a message plus a best-effort source location.
type ParseError struct {
	Message  string
	Location SourceLocation
	// Incomplete is set when the input ended while more tokens were expected.
	Incomplete bool
}

func (e *ParseError) Error() string {
	if e.Location.Line == 0 {
		return e.Message
	}
	return e.Location.String() + ": " + e.Message
}

func newParseError(start, end ast.Position, format string, args ...any) *ParseError {
	return &ParseError{
		Message: fmt.Sprintf(format, args...),
		Location: SourceLocation{
			Line:      start.Line,
			Column:    start.Column,
			EndLine:   end.Line,
			EndColumn: end.Column,
		},
	}
}

func expectedError(tok Token, what string) *ParseError {
	found := tok.Type.String()
	if tok.Type != TokenEOF && tok.Text != "" {
		found = fmt.Sprintf("%q", tok.Text)
	}
	err := newParseError(tok.Start, tok.End, "parser: syntax error: expected %s, found %s", what, found)
	err.Incomplete = tok.Type == TokenEOF
	return err
}

// IsIncomplete reports whether err means the source stopped short, so that
// reading more input could complete it.
func IsIncomplete(err error) bool {
	var parseErr *ParseError
	return errors.As(err, &parseErr) && parseErr.Incomplete
}
