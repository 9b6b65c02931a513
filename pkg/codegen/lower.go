package codegen

import (
	"errors"

	"github.com/NewProggie/Toco/pkg/ast"
	"github.com/NewProggie/Toco/pkg/ir"
)

// errBlockFailed is returned by a block that already recorded its failures
// under DiagnosticsCollect, so enclosing blocks do not report them again.
var errBlockFailed = errors.New("block lowering failed")

// Lower translates node at the current insertion point. A nil value with a nil
// error means the node produced no value.
func (c *Context) Lower(node ast.Node) (ir.Value, error) {
	return c.lowerNode(node)
}

func (c *Context) lowerNode(node ast.Node) (ir.Value, error) {
	switch n := node.(type) {
	case nil:
		return nil, lowerError(Internal, nil, "nil node")
	case *ast.Integer:
		T().Debugf("codegen: creating integer %d", n.Value)
		return ir.NewConstInt(n.Value), nil
	case *ast.Double:
		T().Debugf("codegen: creating double %g", n.Value)
		return ir.NewConstFloat(n.Value), nil
	case *ast.Identifier:
		return c.lowerIdentifier(n)
	case *ast.Assignment:
		if n.Left == nil {
			return nil, lowerError(Internal, n, "assignment without a target")
		}
		return c.assign(n, n.Left, n.Right)
	case *ast.BinaryOperator:
		return c.lowerBinaryOperator(n)
	case *ast.MethodCall:
		return c.lowerMethodCall(n)
	case *ast.Block:
		return c.lowerBlock(n)
	case *ast.ExpressionStatement:
		return c.lowerNode(n.Expression)
	case *ast.VariableDeclaration:
		return nil, c.lowerVariableDeclaration(n)
	case *ast.FunctionDeclaration:
		return nil, c.lowerFunctionDeclaration(n)
	case *ast.ReturnStatement:
		return nil, lowerError(UnsupportedConstruct, n, "return statements are not supported; a function returns the value of its last statement")
	case *ast.ExternDeclaration:
		name := "<anonymous>"
		if n.ID != nil {
			name = n.ID.Name
		}
		return nil, lowerError(UnsupportedConstruct, n, "extern declaration of %s is not supported", name)
	default:
		return nil, lowerError(Internal, node, "no lowering rule for %T", node)
	}
}

func (c *Context) lowerBlock(block *ast.Block) (ir.Value, error) {
	if block == nil {
		return nil, nil
	}
	var last ir.Value
	failed := false
	for _, stmt := range block.Statements {
		val, err := c.lowerNode(stmt)
		if err != nil {
			if !c.collecting() {
				return nil, err
			}
			c.record(err)
			failed = true
			last = nil
			continue
		}
		last = val
	}
	if failed {
		return nil, errBlockFailed
	}
	return last, nil
}

func (c *Context) resolve(id *ast.Identifier) (ir.Value, error) {
	storage, err := c.scopes.Resolve(id.Name)
	if err != nil {
		return nil, lowerError(UndeclaredVariable, id, "%v", err)
	}
	return storage, nil
}

func (c *Context) lowerIdentifier(id *ast.Identifier) (ir.Value, error) {
	T().Debugf("codegen: creating identifier reference %s", id.Name)
	storage, err := c.resolve(id)
	if err != nil {
		return nil, err
	}
	load, err := ir.NewLoad(storage, "", c.block())
	if err != nil {
		return nil, substrateError(id, err)
	}
	return load, nil
}

// assign stores the value of rhs into the storage bound to target. The target
// is resolved before rhs is lowered, so nothing is emitted for an unbound name.
func (c *Context) assign(node ast.Node, target *ast.Identifier, rhs ast.Expression) (ir.Value, error) {
	T().Debugf("codegen: creating assignment for %s", target.Name)
	storage, err := c.resolve(target)
	if err != nil {
		return nil, err
	}
	val, err := c.lowerNode(rhs)
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, lowerError(TypeMismatch, node, "right-hand side of assignment to %s has no value", target.Name)
	}
	if _, err := ir.NewStore(val, storage, c.block()); err != nil {
		return nil, substrateError(node, err)
	}
	return val, nil
}

func (c *Context) lowerBinaryOperator(n *ast.BinaryOperator) (ir.Value, error) {
	T().Debugf("codegen: creating binary operation %s", n.Operator)
	if !supportedOperator(n.Operator) {
		return nil, lowerError(UnsupportedOperator, n, "operator %s", n.Operator)
	}
	left, err := c.lowerOperand(n, n.Left)
	if err != nil {
		return nil, err
	}
	right, err := c.lowerOperand(n, n.Right)
	if err != nil {
		return nil, err
	}
	if !left.Type().Equal(right.Type()) {
		return nil, lowerError(TypeMismatch, n, "operands of %s are %s and %s", n.Operator, left.Type(), right.Type())
	}
	op, err := arithmeticOpcode(n, left.Type())
	if err != nil {
		return nil, err
	}
	result, err := ir.NewBinOp(op, left, right, "", c.block())
	if err != nil {
		return nil, substrateError(n, err)
	}
	return result, nil
}

func (c *Context) lowerOperand(parent ast.Node, expr ast.Expression) (ir.Value, error) {
	val, err := c.lowerNode(expr)
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, lowerError(TypeMismatch, parent, "operand has no value")
	}
	return val, nil
}

func supportedOperator(op ast.OperatorKind) bool {
	switch op {
	case ast.OpPlus, ast.OpMinus, ast.OpMul, ast.OpDiv:
		return true
	}
	return false
}

func arithmeticOpcode(n *ast.BinaryOperator, operand ir.Type) (ir.Opcode, error) {
	switch operand.Kind() {
	case ir.KindInt:
		switch n.Operator {
		case ast.OpPlus:
			return ir.OpAdd, nil
		case ast.OpMinus:
			return ir.OpSub, nil
		case ast.OpMul:
			return ir.OpMul, nil
		case ast.OpDiv:
			return ir.OpSDiv, nil
		}
	case ir.KindDouble:
		switch n.Operator {
		case ast.OpPlus:
			return ir.OpFAdd, nil
		case ast.OpMinus:
			return ir.OpFSub, nil
		case ast.OpMul:
			return ir.OpFMul, nil
		case ast.OpDiv:
			return ir.OpFDiv, nil
		}
	default:
		return 0, lowerError(TypeMismatch, n, "operator %s does not apply to %s", n.Operator, operand)
	}
	return 0, lowerError(UnsupportedOperator, n, "operator %s", n.Operator)
}
