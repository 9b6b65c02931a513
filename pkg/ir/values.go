package ir

import (
	"strconv"
)

// Value is anything an instruction can take as an operand.
type Value interface {
	Type() Type
	Name() string
	isValue()
}

// Constant values are immutable and not attached to any block.
type Constant interface {
	Value
	constant()
}

// ConstInt is a 64-bit signed integer constant.
type ConstInt struct {
	Val int64
}

func NewConstInt(v int64) *ConstInt { return &ConstInt{Val: v} }

func (c *ConstInt) Type() Type   { return I64 }
func (c *ConstInt) Name() string { return "" }
func (c *ConstInt) isValue()     {}
func (c *ConstInt) constant()    {}

func (c *ConstInt) String() string { return strconv.FormatInt(c.Val, 10) }

// ConstFloat is a double-precision constant.
type ConstFloat struct {
	Val float64
}

func NewConstFloat(v float64) *ConstFloat { return &ConstFloat{Val: v} }

func (c *ConstFloat) Type() Type   { return Double }
func (c *ConstFloat) Name() string { return "" }
func (c *ConstFloat) isValue()     {}
func (c *ConstFloat) constant()    {}

func (c *ConstFloat) String() string { return strconv.FormatFloat(c.Val, 'e', -1, 64) }

// Param is an incoming function argument.
type Param struct {
	name   string
	typ    Type
	Index  int
	parent *Function
}

func (p *Param) Type() Type          { return p.typ }
func (p *Param) Name() string        { return p.name }
func (p *Param) SetName(name string) { p.name = name }
func (p *Param) Function() *Function { return p.parent }
func (p *Param) isValue()            {}

// Global is module-level storage for a single first-class value, zero initialised.
type Global struct {
	name string
	Elem Type
	ptr  *PointerType
}

func (g *Global) Type() Type   { return g.ptr }
func (g *Global) Name() string { return g.name }
func (g *Global) isValue()     {}

// Opcode selects the arithmetic performed by a BinOp.
type Opcode int

const (
	OpAdd Opcode = iota
	OpSub
	OpMul
	OpSDiv
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv
)

func (op Opcode) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpSDiv:
		return "sdiv"
	case OpFAdd:
		return "fadd"
	case OpFSub:
		return "fsub"
	case OpFMul:
		return "fmul"
	case OpFDiv:
		return "fdiv"
	default:
		return "op" + strconv.Itoa(int(op))
	}
}

// IsFloat reports whether the opcode operates on doubles.
func (op Opcode) IsFloat() bool {
	return op >= OpFAdd && op <= OpFDiv
}
