package jit

import (
	"errors"
	"fmt"

	"github.com/NewProggie/Toco/pkg/ir"
)

var ErrUnsupportedIR = errors.New("unsupported ir")

type opcode int

const (
	opConst opcode = iota
	opLoadSlot
	opLoadGlobal
	opStoreSlot
	opStoreGlobal
	opIAdd
	opISub
	opIMul
	opIDiv
	opFAdd
	opFSub
	opFMul
	opFDiv
	opCall
	opRet
	opRetVoid
)

// instruction is one step of a compiled function. Registers are addressed by
// index into the frame; dst, a and b are interpreted per opcode.
type instruction struct {
	op     opcode
	dst    int
	a      int
	b      int
	imm    cell
	callee *compiledFunction
	args   []int
}

type compiledFunction struct {
	name      string
	fn        *ir.Function
	code      []instruction
	registers int
	slots     int
}

type functionCompiler struct {
	engine    *Engine
	target    *compiledFunction
	registers map[ir.Value]int
	slots     map[*ir.Alloca]int
}

func (e *Engine) compileFunction(target *compiledFunction) error {
	fn := target.fn
	entry := fn.Entry()
	if entry == nil {
		return fmt.Errorf("%w: function %s has no body", ErrUnsupportedIR, fn.Name())
	}
	if len(fn.Blocks) > 1 {
		return fmt.Errorf("%w: function %s has %d blocks", ErrUnsupportedIR, fn.Name(), len(fn.Blocks))
	}
	c := &functionCompiler{
		engine:    e,
		target:    target,
		registers: make(map[ir.Value]int),
		slots:     make(map[*ir.Alloca]int),
	}
	for _, p := range fn.Params {
		c.registers[p] = target.registers
		target.registers++
	}
	for _, instr := range entry.Instrs {
		if err := c.emit(instr); err != nil {
			return fmt.Errorf("compile %s: %w", fn.Name(), err)
		}
	}
	if entry.Terminator() == nil {
		return fmt.Errorf("%w: function %s does not return", ErrUnsupportedIR, fn.Name())
	}
	return nil
}

func (c *functionCompiler) newRegister() int {
	idx := c.target.registers
	c.target.registers++
	return idx
}

func (c *functionCompiler) push(instr instruction) {
	c.target.code = append(c.target.code, instr)
}

// operand returns the register holding v, materialising constants on demand.
func (c *functionCompiler) operand(v ir.Value) (int, error) {
	switch val := v.(type) {
	case *ir.ConstInt:
		reg := c.newRegister()
		c.push(instruction{op: opConst, dst: reg, imm: cell{i: val.Val}})
		return reg, nil
	case *ir.ConstFloat:
		reg := c.newRegister()
		c.push(instruction{op: opConst, dst: reg, imm: cell{f: val.Val}})
		return reg, nil
	}
	reg, ok := c.registers[v]
	if !ok {
		return 0, fmt.Errorf("%w: operand %T is not available", ErrUnsupportedIR, v)
	}
	return reg, nil
}

func (c *functionCompiler) emit(instr ir.Instruction) error {
	switch in := instr.(type) {
	case *ir.Alloca:
		c.slots[in] = c.target.slots
		c.target.slots++
		return nil
	case *ir.Load:
		dst := c.newRegister()
		c.registers[in] = dst
		switch ptr := in.Ptr.(type) {
		case *ir.Alloca:
			slot, ok := c.slots[ptr]
			if !ok {
				return fmt.Errorf("%w: load from unknown slot", ErrUnsupportedIR)
			}
			c.push(instruction{op: opLoadSlot, dst: dst, a: slot})
		case *ir.Global:
			idx, err := c.engine.globalIndex(ptr)
			if err != nil {
				return err
			}
			c.push(instruction{op: opLoadGlobal, dst: dst, a: idx})
		default:
			return fmt.Errorf("%w: load through %T", ErrUnsupportedIR, in.Ptr)
		}
		return nil
	case *ir.Store:
		src, err := c.operand(in.Val)
		if err != nil {
			return err
		}
		switch ptr := in.Ptr.(type) {
		case *ir.Alloca:
			slot, ok := c.slots[ptr]
			if !ok {
				return fmt.Errorf("%w: store to unknown slot", ErrUnsupportedIR)
			}
			c.push(instruction{op: opStoreSlot, a: src, b: slot})
		case *ir.Global:
			idx, err := c.engine.globalIndex(ptr)
			if err != nil {
				return err
			}
			c.push(instruction{op: opStoreGlobal, a: src, b: idx})
		default:
			return fmt.Errorf("%w: store through %T", ErrUnsupportedIR, in.Ptr)
		}
		return nil
	case *ir.BinOp:
		x, err := c.operand(in.X)
		if err != nil {
			return err
		}
		y, err := c.operand(in.Y)
		if err != nil {
			return err
		}
		op, err := arithmeticOpcode(in.Op)
		if err != nil {
			return err
		}
		dst := c.newRegister()
		c.registers[in] = dst
		c.push(instruction{op: op, dst: dst, a: x, b: y})
		return nil
	case *ir.Call:
		callee, ok := c.engine.functions[in.Callee]
		if !ok {
			return fmt.Errorf("%w: call to undefined function %s", ErrNoSuchFunction, in.Callee.Name())
		}
		args := make([]int, len(in.Args))
		for i, arg := range in.Args {
			reg, err := c.operand(arg)
			if err != nil {
				return err
			}
			args[i] = reg
		}
		dst := c.newRegister()
		c.registers[in] = dst
		c.push(instruction{op: opCall, dst: dst, callee: callee, args: args})
		return nil
	case *ir.Ret:
		if in.Val == nil {
			c.push(instruction{op: opRetVoid})
			return nil
		}
		src, err := c.operand(in.Val)
		if err != nil {
			return err
		}
		c.push(instruction{op: opRet, a: src})
		return nil
	default:
		return fmt.Errorf("%w: instruction %T", ErrUnsupportedIR, instr)
	}
}

func arithmeticOpcode(op ir.Opcode) (opcode, error) {
	switch op {
	case ir.OpAdd:
		return opIAdd, nil
	case ir.OpSub:
		return opISub, nil
	case ir.OpMul:
		return opIMul, nil
	case ir.OpSDiv:
		return opIDiv, nil
	case ir.OpFAdd:
		return opFAdd, nil
	case ir.OpFSub:
		return opFSub, nil
	case ir.OpFMul:
		return opFMul, nil
	case ir.OpFDiv:
		return opFDiv, nil
	default:
		return 0, fmt.Errorf("%w: opcode %s", ErrUnsupportedIR, op)
	}
}
