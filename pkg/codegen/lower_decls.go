package codegen

import (
	"strconv"

	"github.com/NewProggie/Toco/pkg/ast"
	"github.com/NewProggie/Toco/pkg/ir"
)

// typeFor maps a type-name identifier to an IR type. void is only accepted
// where allowVoid is set (function results).
func typeFor(id *ast.Identifier, allowVoid bool) (ir.Type, error) {
	if id == nil {
		return nil, lowerError(UnsupportedType, nil, "missing type name")
	}
	switch id.Name {
	case "int":
		return ir.I64, nil
	case "double":
		return ir.Double, nil
	case "void":
		if allowVoid {
			return ir.Void, nil
		}
	}
	return nil, lowerError(UnsupportedType, id, "type %q", id.Name)
}

func (c *Context) lowerVariableDeclaration(n *ast.VariableDeclaration) error {
	if n.ID == nil {
		return lowerError(Internal, n, "variable declaration without a name")
	}
	T().Debugf("codegen: creating variable declaration %s %s", typeName(n.Type), n.ID.Name)
	typ, err := typeFor(n.Type, false)
	if err != nil {
		return err
	}
	if err := c.declare(n, n.ID.Name, typ); err != nil {
		return err
	}
	if n.Initializer != nil {
		if _, err := c.assign(n, n.ID, n.Initializer); err != nil {
			return err
		}
	}
	return nil
}

// declare creates fresh storage for name and binds it in the current frame.
// Program-level declarations become module globals under lexical scoping so
// that function bodies can reach them.
func (c *Context) declare(node ast.Node, name string, typ ir.Type) error {
	block := c.block()
	if block == nil {
		return lowerError(Internal, node, "declaration of %s outside any frame", name)
	}
	var storage ir.Value
	if c.opts.Scoping == ScopingLexical && c.atProgramLevel() {
		global, err := c.module.NewGlobal(c.globalName(name), typ)
		if err != nil {
			return substrateError(node, err)
		}
		storage = global
	} else {
		slot, err := ir.NewAlloca(typ, name, block)
		if err != nil {
			return substrateError(node, err)
		}
		storage = slot
	}
	return c.scopes.Bind(name, storage)
}

// globalName picks an unused global symbol for name; a redeclaration gets a
// numbered sibling instead of reusing the earlier storage.
func (c *Context) globalName(name string) string {
	candidate := name
	for i := 1; c.module.Global(candidate) != nil; i++ {
		candidate = name + "." + strconv.Itoa(i)
	}
	return candidate
}

func (c *Context) lowerFunctionDeclaration(n *ast.FunctionDeclaration) (err error) {
	if n.ID == nil {
		return lowerError(Internal, n, "function declaration without a name")
	}
	name := n.ID.Name
	T().Debugf("codegen: creating function %s", name)
	ret, err := typeFor(n.Type, true)
	if err != nil {
		return err
	}
	params := make([]ir.Type, len(n.Arguments))
	for i, arg := range n.Arguments {
		if arg == nil || arg.ID == nil {
			return lowerError(Internal, n, "parameter %d of %s has no name", i, name)
		}
		if arg.Initializer != nil {
			return lowerError(UnsupportedConstruct, arg, "parameter %s of %s has a default value", arg.ID.Name, name)
		}
		typ, err := typeFor(arg.Type, false)
		if err != nil {
			return err
		}
		params[i] = typ
	}
	if c.module.Function(name) != nil {
		return lowerError(Redefinition, n.ID, "function %s is already defined", name)
	}
	fn, err := c.module.NewFunction(name, ir.FuncType(ret, params...))
	if err != nil {
		return substrateError(n, err)
	}
	entry := fn.NewBlock("entry")
	c.scopes.Push(entry)
	defer func() {
		if popErr := c.scopes.Pop(); popErr != nil && err == nil {
			err = popErr
		}
	}()

	for i, arg := range n.Arguments {
		fn.Params[i].SetName(arg.ID.Name)
		if err := c.declare(arg, arg.ID.Name, params[i]); err != nil {
			return err
		}
		storage := c.scopes.CurrentBindings()[arg.ID.Name]
		if _, err := ir.NewStore(fn.Params[i], storage, entry); err != nil {
			return substrateError(arg, err)
		}
	}

	body, err := c.lowerBlock(n.Body)
	if err != nil {
		return err
	}
	if body != nil {
		if err := c.scopes.SetReturnValue(body); err != nil {
			return err
		}
	}
	result := c.scopes.ReturnValue()
	if ret.Kind() == ir.KindVoid {
		result = nil
	} else if result == nil {
		return lowerError(TypeMismatch, n, "function %s must return %s but its body yields no value", name, ret)
	}
	if _, err := ir.NewRet(result, c.block()); err != nil {
		return substrateError(n, err)
	}
	return nil
}

func (c *Context) lowerMethodCall(n *ast.MethodCall) (ir.Value, error) {
	if n.Callee == nil {
		return nil, lowerError(Internal, n, "call without a callee")
	}
	name := n.Callee.Name
	T().Debugf("codegen: creating method call %s", name)
	if name == EntryFunction {
		// its signature is only settled after the whole program is lowered
		return nil, lowerError(UndeclaredFunction, n.Callee, "%s is the program entry and cannot be called", name)
	}
	callee := c.module.Function(name)
	if callee == nil {
		return nil, lowerError(UndeclaredFunction, n.Callee, "%s", name)
	}
	if len(n.Arguments) != len(callee.Sig.Params) {
		return nil, lowerError(ArityMismatch, n, "%s expects %d arguments, got %d", name, len(callee.Sig.Params), len(n.Arguments))
	}
	args := make([]ir.Value, len(n.Arguments))
	for i, expr := range n.Arguments {
		val, err := c.lowerOperand(n, expr)
		if err != nil {
			return nil, err
		}
		if !val.Type().Equal(callee.Sig.Params[i]) {
			return nil, lowerError(TypeMismatch, expr, "argument %d of %s is %s, expected %s", i+1, name, val.Type(), callee.Sig.Params[i])
		}
		args[i] = val
	}
	call, err := ir.NewCall(callee, args, "", c.block())
	if err != nil {
		return nil, substrateError(n, err)
	}
	if callee.Sig.Return.Kind() == ir.KindVoid {
		return nil, nil
	}
	return call, nil
}

func typeName(id *ast.Identifier) string {
	if id == nil {
		return "<missing>"
	}
	return id.Name
}
