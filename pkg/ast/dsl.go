package ast

// Identifier and literal helpers.

func ID(name string) *Identifier {
	return NewIdentifier(name)
}

func Int(value int64) *Integer {
	return NewInteger(value)
}

func Flt(value float64) *Double {
	return NewDouble(value)
}

// Expression helpers.

func Assign(name string, value Expression) *Assignment {
	return NewAssignment(ID(name), value)
}

func Bin(op OperatorKind, left, right Expression) *BinaryOperator {
	return NewBinaryOperator(op, left, right)
}

func Call(name string, args ...Expression) *MethodCall {
	return NewMethodCall(ID(name), args)
}

func Blk(stmts ...Statement) *Block {
	return NewBlock(stmts)
}

// Statement helpers.

func Expr(expr Expression) *ExpressionStatement {
	return NewExpressionStatement(expr)
}

func Ret(expr Expression) *ReturnStatement {
	return NewReturnStatement(expr)
}

func Var(typeName, name string, init Expression) *VariableDeclaration {
	return NewVariableDeclaration(ID(typeName), ID(name), init)
}

func Param(typeName, name string) *VariableDeclaration {
	return NewVariableDeclaration(ID(typeName), ID(name), nil)
}

func Extern(typeName, name string, params ...*VariableDeclaration) *ExternDeclaration {
	return NewExternDeclaration(ID(typeName), ID(name), params)
}

func Fn(typeName, name string, params []*VariableDeclaration, body ...Statement) *FunctionDeclaration {
	return NewFunctionDeclaration(ID(typeName), ID(name), params, NewBlock(body))
}

func Params(params ...*VariableDeclaration) []*VariableDeclaration {
	return params
}
