package ast

import "fmt"

type NodeType string

const (
	NodeInteger             NodeType = "Integer"
	NodeDouble              NodeType = "Double"
	NodeIdentifier          NodeType = "Identifier"
	NodeAssignment          NodeType = "Assignment"
	NodeBinaryOperator      NodeType = "BinaryOperator"
	NodeMethodCall          NodeType = "MethodCall"
	NodeBlock               NodeType = "Block"
	NodeExpressionStatement NodeType = "ExpressionStatement"
	NodeReturnStatement     NodeType = "ReturnStatement"
	NodeVariableDeclaration NodeType = "VariableDeclaration"
	NodeExternDeclaration   NodeType = "ExternDeclaration"
	NodeFunctionDeclaration NodeType = "FunctionDeclaration"
)

type Node interface {
	NodeType() NodeType
	Span() Span
	isNode()
}

type nodeImpl struct {
	Type NodeType `json:"type"`
	span Span
}

func newNodeImpl(kind NodeType) nodeImpl {
	return nodeImpl{Type: kind}
}

func (n nodeImpl) NodeType() NodeType { return n.Type }
func (n nodeImpl) Span() Span         { return n.span }
func (nodeImpl) isNode()              {}

func (n *nodeImpl) setSpan(span Span) { n.span = span }

// Marker interfaces.

type Expression interface {
	Node
	expressionNode()
	statementNode()
}

type expressionMarker struct{}

func (expressionMarker) expressionNode() {}

type Statement interface {
	Node
	statementNode()
}

type statementMarker struct{}

func (statementMarker) statementNode() {}

// Literals

type Integer struct {
	nodeImpl
	expressionMarker
	statementMarker

	Value int64 `json:"value"`
}

func NewInteger(value int64) *Integer {
	return &Integer{nodeImpl: newNodeImpl(NodeInteger), Value: value}
}

type Double struct {
	nodeImpl
	expressionMarker
	statementMarker

	Value float64 `json:"value"`
}

func NewDouble(value float64) *Double {
	return &Double{nodeImpl: newNodeImpl(NodeDouble), Value: value}
}

// Identifier names a binding, or a type when it appears in a declaration's type slot.
type Identifier struct {
	nodeImpl
	expressionMarker
	statementMarker

	Name string `json:"name"`
}

func NewIdentifier(name string) *Identifier {
	return &Identifier{nodeImpl: newNodeImpl(NodeIdentifier), Name: name}
}

// Expressions

type Assignment struct {
	nodeImpl
	expressionMarker
	statementMarker

	Left  *Identifier `json:"left"`
	Right Expression  `json:"right"`
}

func NewAssignment(left *Identifier, right Expression) *Assignment {
	return &Assignment{nodeImpl: newNodeImpl(NodeAssignment), Left: left, Right: right}
}

// OperatorKind enumerates the arithmetic operators. Values outside the declared
// constants can still be stored; lowering rejects them.
type OperatorKind int

const (
	OpPlus OperatorKind = iota
	OpMinus
	OpMul
	OpDiv
)

func (op OperatorKind) String() string {
	switch op {
	case OpPlus:
		return "+"
	case OpMinus:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	default:
		return fmt.Sprintf("op(%d)", int(op))
	}
}

type BinaryOperator struct {
	nodeImpl
	expressionMarker
	statementMarker

	Operator OperatorKind `json:"operator"`
	Left     Expression   `json:"left"`
	Right    Expression   `json:"right"`
}

func NewBinaryOperator(op OperatorKind, left, right Expression) *BinaryOperator {
	return &BinaryOperator{nodeImpl: newNodeImpl(NodeBinaryOperator), Operator: op, Left: left, Right: right}
}

type MethodCall struct {
	nodeImpl
	expressionMarker
	statementMarker

	Callee    *Identifier  `json:"callee"`
	Arguments []Expression `json:"arguments"`
}

func NewMethodCall(callee *Identifier, args []Expression) *MethodCall {
	return &MethodCall{nodeImpl: newNodeImpl(NodeMethodCall), Callee: callee, Arguments: args}
}

// Block is a statement sequence. Used as an expression its value is the value of
// its last statement.
type Block struct {
	nodeImpl
	expressionMarker
	statementMarker

	Statements []Statement `json:"statements"`
}

func NewBlock(statements []Statement) *Block {
	return &Block{nodeImpl: newNodeImpl(NodeBlock), Statements: statements}
}

// Statements

type ExpressionStatement struct {
	nodeImpl
	statementMarker

	Expression Expression `json:"expression"`
}

func NewExpressionStatement(expr Expression) *ExpressionStatement {
	return &ExpressionStatement{nodeImpl: newNodeImpl(NodeExpressionStatement), Expression: expr}
}

type ReturnStatement struct {
	nodeImpl
	statementMarker

	Expression Expression `json:"expression"`
}

func NewReturnStatement(expr Expression) *ReturnStatement {
	return &ReturnStatement{nodeImpl: newNodeImpl(NodeReturnStatement), Expression: expr}
}

type VariableDeclaration struct {
	nodeImpl
	statementMarker

	Type        *Identifier `json:"varType"`
	ID          *Identifier `json:"id"`
	Initializer Expression  `json:"initializer,omitempty"`
}

func NewVariableDeclaration(typ, id *Identifier, init Expression) *VariableDeclaration {
	return &VariableDeclaration{nodeImpl: newNodeImpl(NodeVariableDeclaration), Type: typ, ID: id, Initializer: init}
}

type ExternDeclaration struct {
	nodeImpl
	statementMarker

	Type      *Identifier            `json:"returnType"`
	ID        *Identifier            `json:"id"`
	Arguments []*VariableDeclaration `json:"arguments"`
}

func NewExternDeclaration(typ, id *Identifier, args []*VariableDeclaration) *ExternDeclaration {
	return &ExternDeclaration{nodeImpl: newNodeImpl(NodeExternDeclaration), Type: typ, ID: id, Arguments: args}
}

type FunctionDeclaration struct {
	nodeImpl
	statementMarker

	Type      *Identifier            `json:"returnType"`
	ID        *Identifier            `json:"id"`
	Arguments []*VariableDeclaration `json:"arguments"`
	Body      *Block                 `json:"body"`
}

func NewFunctionDeclaration(typ, id *Identifier, args []*VariableDeclaration, body *Block) *FunctionDeclaration {
	return &FunctionDeclaration{nodeImpl: newNodeImpl(NodeFunctionDeclaration), Type: typ, ID: id, Arguments: args, Body: body}
}
