// Package parser turns toco source text into the AST consumed by codegen.
package parser

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/NewProggie/Toco/pkg/ast"
	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
)

// T traces to the global syntax tracer.
func T() tracing.Trace {
	return gtrace.SyntaxTracer
}

// ParseProgram parses a whole source text into its root block.
func ParseProgram(source []byte) (*ast.Block, error) {
	tokens, err := tokenize(source)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	root, err := p.parseProgram()
	if err != nil {
		return nil, err
	}
	T().Debugf("parser: parsed %d top-level statements", len(root.Statements))
	return root, nil
}

// ParseReader parses everything r yields. Parse errors carry name as their
// path.
func ParseReader(r io.Reader, name string) (*ast.Block, error) {
	source, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("parser: read %s: %w", name, err)
	}
	root, err := ParseProgram(source)
	if err != nil {
		var parseErr *ParseError
		if errors.As(err, &parseErr) {
			parseErr.Location.Path = name
		}
		return nil, err
	}
	return root, nil
}

// ParseFile parses the file at path. Parse errors carry the path in their location.
func ParseFile(path string) (*ast.Block, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("parser: %w", err)
	}
	root, err := ParseProgram(source)
	if err != nil {
		var parseErr *ParseError
		if errors.As(err, &parseErr) {
			parseErr.Location.Path = path
		}
		return nil, err
	}
	return root, nil
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) peek() Token {
	return p.peekAt(0)
}

func (p *parser) peekAt(offset int) Token {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[idx]
}

func (p *parser) advance() Token {
	tok := p.peek()
	if tok.Type != TokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) expect(typ TokenType) (Token, error) {
	tok := p.peek()
	if tok.Type != typ {
		return tok, expectedError(tok, typ.String())
	}
	return p.advance(), nil
}

func (p *parser) skipSeparators() {
	for p.peek().Type == TokenSemicolon {
		p.advance()
	}
}

func spanOf(start Token, end Token) ast.Span {
	return ast.Span{Start: start.Start, End: end.End}
}

func (p *parser) previous() Token {
	if p.pos == 0 {
		return p.tokens[0]
	}
	return p.tokens[p.pos-1]
}

func (p *parser) parseProgram() (*ast.Block, error) {
	start := p.peek()
	stmts, err := p.parseStatements(TokenEOF)
	if err != nil {
		return nil, err
	}
	root := ast.NewBlock(stmts)
	ast.SetSpan(root, spanOf(start, p.peek()))
	return root, nil
}

// parseStatements reads statements until the terminator token, which is left
// unconsumed.
func (p *parser) parseStatements(terminator TokenType) ([]ast.Statement, error) {
	var stmts []ast.Statement
	for {
		p.skipSeparators()
		tok := p.peek()
		if tok.Type == terminator {
			return stmts, nil
		}
		if tok.Type == TokenEOF {
			return nil, expectedError(tok, terminator.String())
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
}

func (p *parser) parseStatement() (ast.Statement, error) {
	start := p.peek()
	switch {
	case start.Type == TokenExtern:
		return p.parseExtern()
	case start.Type == TokenReturn:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		stmt := ast.NewReturnStatement(expr)
		ast.SetSpan(stmt, spanOf(start, p.previous()))
		return stmt, nil
	case start.Type == TokenIdent && p.peekAt(1).Type == TokenIdent:
		if p.peekAt(2).Type == TokenLParen {
			return p.parseFunction()
		}
		return p.parseVariable()
	}
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	stmt := ast.NewExpressionStatement(expr)
	ast.SetSpan(stmt, expr.Span())
	return stmt, nil
}

func (p *parser) parseIdentifier() (*ast.Identifier, error) {
	tok, err := p.expect(TokenIdent)
	if err != nil {
		return nil, err
	}
	id := ast.NewIdentifier(tok.Text)
	ast.SetSpan(id, spanOf(tok, tok))
	return id, nil
}

// parseVariable reads `type name` with an optional initializer.
func (p *parser) parseVariable() (*ast.VariableDeclaration, error) {
	start := p.peek()
	typ, err := p.parseIdentifier()
	if err != nil {
		return nil, err
	}
	id, err := p.parseIdentifier()
	if err != nil {
		return nil, err
	}
	var init ast.Expression
	if p.peek().Type == TokenAssign {
		p.advance()
		if init, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	decl := ast.NewVariableDeclaration(typ, id, init)
	ast.SetSpan(decl, spanOf(start, p.previous()))
	return decl, nil
}

func (p *parser) parseParameters() ([]*ast.VariableDeclaration, error) {
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}
	var params []*ast.VariableDeclaration
	if p.peek().Type == TokenRParen {
		p.advance()
		return params, nil
	}
	for {
		param, err := p.parseVariable()
		if err != nil {
			return nil, err
		}
		if param.Initializer != nil {
			return nil, newParseError(param.Span().Start, param.Span().End,
				"parser: parameter %s cannot have a default value", param.ID.Name)
		}
		params = append(params, param)
		tok := p.advance()
		switch tok.Type {
		case TokenComma:
			continue
		case TokenRParen:
			return params, nil
		default:
			return nil, expectedError(tok, "',' or ')'")
		}
	}
}

func (p *parser) parseFunction() (*ast.FunctionDeclaration, error) {
	start := p.peek()
	typ, err := p.parseIdentifier()
	if err != nil {
		return nil, err
	}
	id, err := p.parseIdentifier()
	if err != nil {
		return nil, err
	}
	params, err := p.parseParameters()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	fn := ast.NewFunctionDeclaration(typ, id, params, body)
	ast.SetSpan(fn, spanOf(start, p.previous()))
	return fn, nil
}

func (p *parser) parseExtern() (*ast.ExternDeclaration, error) {
	start := p.advance()
	typ, err := p.parseIdentifier()
	if err != nil {
		return nil, err
	}
	id, err := p.parseIdentifier()
	if err != nil {
		return nil, err
	}
	params, err := p.parseParameters()
	if err != nil {
		return nil, err
	}
	decl := ast.NewExternDeclaration(typ, id, params)
	ast.SetSpan(decl, spanOf(start, p.previous()))
	return decl, nil
}

func (p *parser) parseBlock() (*ast.Block, error) {
	start, err := p.expect(TokenLBrace)
	if err != nil {
		return nil, err
	}
	stmts, err := p.parseStatements(TokenRBrace)
	if err != nil {
		return nil, err
	}
	end := p.advance()
	block := ast.NewBlock(stmts)
	ast.SetSpan(block, spanOf(start, end))
	return block, nil
}

func (p *parser) parseExpression() (ast.Expression, error) {
	if p.peek().Type == TokenIdent && p.peekAt(1).Type == TokenAssign {
		start := p.peek()
		target, err := p.parseIdentifier()
		if err != nil {
			return nil, err
		}
		p.advance()
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		assign := ast.NewAssignment(target, value)
		ast.SetSpan(assign, spanOf(start, p.previous()))
		return assign, nil
	}
	return p.parseBinary(0)
}

var precedence = map[TokenType]int{
	TokenPlus:  1,
	TokenMinus: 1,
	TokenStar:  2,
	TokenSlash: 2,
}

var operators = map[TokenType]ast.OperatorKind{
	TokenPlus:  ast.OpPlus,
	TokenMinus: ast.OpMinus,
	TokenStar:  ast.OpMul,
	TokenSlash: ast.OpDiv,
}

// parseBinary is a precedence climber; all operators are left associative.
func (p *parser) parseBinary(minPrec int) (ast.Expression, error) {
	start := p.peek()
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		prec, ok := precedence[tok.Type]
		if !ok || prec <= minPrec {
			return left, nil
		}
		p.advance()
		right, err := p.parseBinary(prec)
		if err != nil {
			return nil, err
		}
		bin := ast.NewBinaryOperator(operators[tok.Type], left, right)
		ast.SetSpan(bin, spanOf(start, p.previous()))
		left = bin
	}
}

func (p *parser) parseFactor() (ast.Expression, error) {
	tok := p.peek()
	switch tok.Type {
	case TokenInt, TokenDouble:
		p.advance()
		return literal(tok, false)
	case TokenMinus:
		p.advance()
		next := p.peek()
		if next.Type != TokenInt && next.Type != TokenDouble {
			return nil, newParseError(tok.Start, next.End, "parser: unary minus applies only to numeric literals")
		}
		p.advance()
		return literal(Token{Type: next.Type, Text: next.Text, Start: tok.Start, End: next.End}, true)
	case TokenLParen:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return expr, nil
	case TokenIdent:
		id, err := p.parseIdentifier()
		if err != nil {
			return nil, err
		}
		if p.peek().Type != TokenLParen {
			return id, nil
		}
		return p.parseCall(tok, id)
	default:
		return nil, expectedError(tok, "expression")
	}
}

func (p *parser) parseCall(start Token, callee *ast.Identifier) (ast.Expression, error) {
	p.advance()
	var args []ast.Expression
	if p.peek().Type != TokenRParen {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().Type != TokenComma {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	call := ast.NewMethodCall(callee, args)
	ast.SetSpan(call, spanOf(start, p.previous()))
	return call, nil
}

func literal(tok Token, negate bool) (ast.Expression, error) {
	text := tok.Text
	if negate {
		text = "-" + text
	}
	var expr ast.Expression
	switch tok.Type {
	case TokenInt:
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, newParseError(tok.Start, tok.End, "parser: integer literal %s out of range", text)
		}
		T().Debugf("parser: integer %d", v)
		expr = ast.NewInteger(v)
	default:
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, newParseError(tok.Start, tok.End, "parser: invalid double literal %s", text)
		}
		expr = ast.NewDouble(v)
	}
	ast.SetSpan(expr, spanOf(tok, tok))
	return expr, nil
}
