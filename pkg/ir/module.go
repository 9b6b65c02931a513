package ir

import (
	"errors"
	"fmt"
)

var (
	ErrTypeMismatch    = errors.New("ir: type mismatch")
	ErrArity           = errors.New("ir: argument count mismatch")
	ErrInvalidOperand  = errors.New("ir: invalid operand")
	ErrBlockTerminated = errors.New("ir: block already terminated")
	ErrDuplicateSymbol = errors.New("ir: duplicate symbol")
)

// Module is the IR root: the functions and globals of one program.
type Module struct {
	Name string

	functions     []*Function
	functionIndex map[string]*Function
	globals       []*Global
	globalIndex   map[string]*Global
}

func NewModule(name string) *Module {
	return &Module{
		Name:          name,
		functionIndex: make(map[string]*Function),
		globalIndex:   make(map[string]*Global),
	}
}

// NewFunction defines a function with one unnamed parameter per signature slot.
func (m *Module) NewFunction(name string, sig *FunctionType) (*Function, error) {
	if sig == nil {
		return nil, fmt.Errorf("%w: function %s has no signature", ErrInvalidOperand, name)
	}
	if sig.Return == nil || (sig.Return.Kind() != KindVoid && !IsFirstClass(sig.Return)) {
		return nil, fmt.Errorf("%w: function %s cannot return %v", ErrInvalidOperand, name, sig.Return)
	}
	if _, exists := m.functionIndex[name]; exists {
		return nil, fmt.Errorf("%w: function %s", ErrDuplicateSymbol, name)
	}
	fn := &Function{name: name, Sig: sig, module: m}
	for i, typ := range sig.Params {
		if !IsFirstClass(typ) {
			return nil, fmt.Errorf("%w: parameter %d of %s has type %s", ErrInvalidOperand, i, name, typ)
		}
		fn.Params = append(fn.Params, &Param{typ: typ, Index: i, parent: fn})
	}
	m.functions = append(m.functions, fn)
	m.functionIndex[name] = fn
	return fn, nil
}

// Function looks up a previously defined function; nil when absent.
func (m *Module) Function(name string) *Function {
	return m.functionIndex[name]
}

// Functions returns the functions in definition order.
func (m *Module) Functions() []*Function {
	return m.functions
}

// NewGlobal defines zero-initialised module storage for a value of elem type.
func (m *Module) NewGlobal(name string, elem Type) (*Global, error) {
	if !IsFirstClass(elem) {
		return nil, fmt.Errorf("%w: global %s has type %s", ErrInvalidOperand, name, elem)
	}
	if _, exists := m.globalIndex[name]; exists {
		return nil, fmt.Errorf("%w: global %s", ErrDuplicateSymbol, name)
	}
	g := &Global{name: name, Elem: elem, ptr: PointerTo(elem)}
	m.globals = append(m.globals, g)
	m.globalIndex[name] = g
	return g, nil
}

// Global looks up a global by name; nil when absent.
func (m *Module) Global(name string) *Global {
	return m.globalIndex[name]
}

// Globals returns the globals in definition order.
func (m *Module) Globals() []*Global {
	return m.globals
}

// Function is a callable with a body of basic blocks; blocks[0] is the entry.
type Function struct {
	name   string
	Sig    *FunctionType
	Params []*Param
	Blocks []*Block
	module *Module
}

func (f *Function) Type() Type      { return f.Sig }
func (f *Function) Name() string    { return f.name }
func (f *Function) Module() *Module { return f.module }
func (f *Function) isValue()        {}

// NewBlock appends a new basic block to the function.
func (f *Function) NewBlock(name string) *Block {
	b := &Block{Name: name, parent: f}
	f.Blocks = append(f.Blocks, b)
	return b
}

// Entry returns the first block, or nil for a declaration without a body.
func (f *Function) Entry() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// Block is a straight-line instruction sequence ending in one terminator.
type Block struct {
	Name   string
	Instrs []Instruction
	parent *Function
}

func (b *Block) Parent() *Function { return b.parent }

// Terminator returns the trailing terminator, if any.
func (b *Block) Terminator() Instruction {
	if len(b.Instrs) == 0 {
		return nil
	}
	last := b.Instrs[len(b.Instrs)-1]
	if last.IsTerminator() {
		return last
	}
	return nil
}

func (b *Block) append(instr Instruction) error {
	if b == nil {
		return fmt.Errorf("%w: nil insertion block", ErrInvalidOperand)
	}
	if b.Terminator() != nil {
		return fmt.Errorf("%w: %s", ErrBlockTerminated, b.Name)
	}
	b.Instrs = append(b.Instrs, instr)
	return nil
}
