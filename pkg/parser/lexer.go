package parser

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/NewProggie/Toco/pkg/ast"
)

type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdent
	TokenInt
	TokenDouble
	TokenPlus
	TokenMinus
	TokenStar
	TokenSlash
	TokenAssign
	TokenLParen
	TokenRParen
	TokenLBrace
	TokenRBrace
	TokenComma
	TokenSemicolon
	TokenExtern
	TokenReturn
)

var tokenNames = map[TokenType]string{
	TokenEOF:       "end of input",
	TokenIdent:     "identifier",
	TokenInt:       "integer",
	TokenDouble:    "double",
	TokenPlus:      "'+'",
	TokenMinus:     "'-'",
	TokenStar:      "'*'",
	TokenSlash:     "'/'",
	TokenAssign:    "'='",
	TokenLParen:    "'('",
	TokenRParen:    "')'",
	TokenLBrace:    "'{'",
	TokenRBrace:    "'}'",
	TokenComma:     "','",
	TokenSemicolon: "';'",
	TokenExtern:    "'extern'",
	TokenReturn:    "'return'",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

var keywords = map[string]TokenType{
	"extern": TokenExtern,
	"return": TokenReturn,
}

var punctuation = map[rune]TokenType{
	'+': TokenPlus,
	'-': TokenMinus,
	'*': TokenStar,
	'/': TokenSlash,
	'=': TokenAssign,
	'(': TokenLParen,
	')': TokenRParen,
	'{': TokenLBrace,
	'}': TokenRBrace,
	',': TokenComma,
	';': TokenSemicolon,
}

type Token struct {
	Type  TokenType
	Text  string
	Start ast.Position
	End   ast.Position
}

type lexer struct {
	src    []byte
	offset int
	line   int
	column int
}

func newLexer(src []byte) *lexer {
	return &lexer{src: src, line: 1, column: 1}
}

func (l *lexer) position() ast.Position {
	return ast.Position{Line: l.line, Column: l.column}
}

func (l *lexer) peekRune() (rune, int) {
	if l.offset >= len(l.src) {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRune(l.src[l.offset:])
}

func (l *lexer) advance() rune {
	r, size := l.peekRune()
	if size == 0 {
		return r
	}
	l.offset += size
	if r == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return r
}

func (l *lexer) skipSpaceAndComments() {
	for l.offset < len(l.src) {
		r, _ := l.peekRune()
		switch {
		case unicode.IsSpace(r):
			l.advance()
		case r == '/' && l.offset+1 < len(l.src) && l.src[l.offset+1] == '/':
			for l.offset < len(l.src) && l.src[l.offset] != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

// tokenize scans the whole source up front; the grammar needs two tokens of
// lookahead to tell declarations from expressions.
func tokenize(src []byte) ([]Token, error) {
	l := newLexer(src)
	var tokens []Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}

func (l *lexer) next() (Token, error) {
	l.skipSpaceAndComments()
	start := l.position()
	begin := l.offset
	if l.offset >= len(l.src) {
		return Token{Type: TokenEOF, Start: start, End: start}, nil
	}
	r := l.advance()
	typ := TokenEOF
	switch {
	case r == '_' || unicode.IsLetter(r):
		for {
			next, size := l.peekRune()
			if size == 0 || !(next == '_' || unicode.IsLetter(next) || unicode.IsDigit(next)) {
				break
			}
			l.advance()
		}
		typ = TokenIdent
		if kw, ok := keywords[string(l.src[begin:l.offset])]; ok {
			typ = kw
		}
	case r >= '0' && r <= '9', r == '.':
		var err error
		typ, err = l.number(r, start)
		if err != nil {
			return Token{}, err
		}
	default:
		t, ok := punctuation[r]
		if !ok {
			return Token{}, newParseError(start, l.position(), "parser: unexpected character %q", r)
		}
		typ = t
	}
	return Token{Type: typ, Text: string(l.src[begin:l.offset]), Start: start, End: l.position()}, nil
}

// number scans digits with an optional fraction and exponent. A literal with
// either is a double.
func (l *lexer) number(first rune, start ast.Position) (TokenType, error) {
	typ := TokenInt
	sawDigit := first != '.'
	if first == '.' {
		typ = TokenDouble
	}
	digits := func() {
		for {
			r, size := l.peekRune()
			if size == 0 || r < '0' || r > '9' {
				return
			}
			sawDigit = true
			l.advance()
		}
	}
	digits()
	if r, _ := l.peekRune(); r == '.' && typ == TokenInt {
		typ = TokenDouble
		l.advance()
		digits()
	}
	if !sawDigit {
		return 0, newParseError(start, l.position(), "parser: malformed number")
	}
	if r, _ := l.peekRune(); r == 'e' || r == 'E' {
		typ = TokenDouble
		l.advance()
		if sign, _ := l.peekRune(); sign == '+' || sign == '-' {
			l.advance()
		}
		if r, _ := l.peekRune(); r < '0' || r > '9' {
			return 0, newParseError(start, l.position(), "parser: malformed exponent")
		}
		digits()
	}
	return typ, nil
}
