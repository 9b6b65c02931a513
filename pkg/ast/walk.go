package ast

// Walk visits node and its children in pre-order. Returning false from fn skips
// the children of the current node.
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	switch n := node.(type) {
	case *Integer, *Double, *Identifier:
	case *Assignment:
		walkIdent(n.Left, fn)
		walkExpr(n.Right, fn)
	case *BinaryOperator:
		walkExpr(n.Left, fn)
		walkExpr(n.Right, fn)
	case *MethodCall:
		walkIdent(n.Callee, fn)
		for _, arg := range n.Arguments {
			walkExpr(arg, fn)
		}
	case *Block:
		for _, stmt := range n.Statements {
			if stmt != nil {
				Walk(stmt, fn)
			}
		}
	case *ExpressionStatement:
		walkExpr(n.Expression, fn)
	case *ReturnStatement:
		walkExpr(n.Expression, fn)
	case *VariableDeclaration:
		walkIdent(n.Type, fn)
		walkIdent(n.ID, fn)
		walkExpr(n.Initializer, fn)
	case *ExternDeclaration:
		walkIdent(n.Type, fn)
		walkIdent(n.ID, fn)
		for _, arg := range n.Arguments {
			if arg != nil {
				Walk(arg, fn)
			}
		}
	case *FunctionDeclaration:
		walkIdent(n.Type, fn)
		walkIdent(n.ID, fn)
		for _, arg := range n.Arguments {
			if arg != nil {
				Walk(arg, fn)
			}
		}
		if n.Body != nil {
			Walk(n.Body, fn)
		}
	}
}

func walkIdent(id *Identifier, fn func(Node) bool) {
	if id != nil {
		Walk(id, fn)
	}
}

func walkExpr(expr Expression, fn func(Node) bool) {
	if expr != nil {
		Walk(expr, fn)
	}
}
