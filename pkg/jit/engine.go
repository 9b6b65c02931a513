// Package jit compiles IR modules into register code and executes them in
// process.
package jit

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/NewProggie/Toco/pkg/ir"
	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
)

// T traces to the global engine tracer.
func T() tracing.Trace {
	return gtrace.EngineTracer
}

const DefaultMaxCallDepth = 10000

type Options struct {
	// MaxCallDepth bounds nested calls; zero selects DefaultMaxCallDepth.
	MaxCallDepth int
}

// Engine owns a module and the storage of its globals. Globals keep their
// values across RunFunction calls.
type Engine struct {
	module    *ir.Module
	maxDepth  int
	functions map[*ir.Function]*compiledFunction
	globals   map[*ir.Global]int
	memory    []cell
	finalized bool
	mu        sync.Mutex
}

func NewEngine(m *ir.Module, opts Options) (*Engine, error) {
	if m == nil {
		return nil, fmt.Errorf("jit: nil module")
	}
	depth := opts.MaxCallDepth
	if depth <= 0 {
		depth = DefaultMaxCallDepth
	}
	return &Engine{
		module:    m,
		maxDepth:  depth,
		functions: make(map[*ir.Function]*compiledFunction),
		globals:   make(map[*ir.Global]int),
	}, nil
}

// Finalize compiles every function of the module. It must succeed before
// RunFunction is used.
func (e *Engine) Finalize() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finalized {
		return nil
	}
	for _, g := range e.module.Globals() {
		if _, err := e.globalIndex(g); err != nil {
			return err
		}
	}
	for _, fn := range e.module.Functions() {
		if fn.Entry() == nil {
			continue
		}
		e.functions[fn] = &compiledFunction{name: fn.Name(), fn: fn}
	}
	for _, target := range e.functions {
		if err := e.compileFunction(target); err != nil {
			e.functions = make(map[*ir.Function]*compiledFunction)
			return err
		}
		T().Debugf("jit: compiled %s (%d instructions, %d registers, %d slots)",
			target.name, len(target.code), target.registers, target.slots)
	}
	e.finalized = true
	return nil
}

func (e *Engine) globalIndex(g *ir.Global) (int, error) {
	if idx, ok := e.globals[g]; ok {
		return idx, nil
	}
	if e.module.Global(g.Name()) != g {
		return 0, fmt.Errorf("%w: global %s is not part of module %s", ErrUnsupportedIR, g.Name(), e.module.Name)
	}
	idx := len(e.memory)
	e.memory = append(e.memory, cell{})
	e.globals[g] = idx
	return idx, nil
}

// RunFunction executes the named function with args and returns its result.
func (e *Engine) RunFunction(ctx context.Context, name string, args ...GenericValue) (GenericValue, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.finalized {
		return GenericValue{}, ErrNotFinalized
	}
	fn := e.module.Function(name)
	if fn == nil {
		return GenericValue{}, fmt.Errorf("%w: %s", ErrNoSuchFunction, name)
	}
	target, ok := e.functions[fn]
	if !ok {
		return GenericValue{}, fmt.Errorf("%w: %s has no body", ErrNoSuchFunction, name)
	}
	if len(args) != len(fn.Sig.Params) {
		return GenericValue{}, fmt.Errorf("%s expects %d arguments, got %d", name, len(fn.Sig.Params), len(args))
	}
	cells := make([]cell, len(args))
	for i, arg := range args {
		if arg.Type == nil || !arg.Type.Equal(fn.Sig.Params[i]) {
			return GenericValue{}, fmt.Errorf("argument %d of %s must be %s", i, name, fn.Sig.Params[i])
		}
		cells[i] = cellFromGeneric(arg)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	T().Debugf("jit: run %s", name)
	result, err := e.invoke(ctx, target, cells, 1)
	if err != nil {
		return GenericValue{}, err
	}
	return genericFromCell(fn.Sig.Return, result), nil
}

// ResetGlobals zeroes every module global. Globals otherwise keep their
// values across RunFunction calls.
func (e *Engine) ResetGlobals() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.memory {
		e.memory[i] = cell{}
	}
}

// ReadGlobal returns the current value of a module global.
func (e *Engine) ReadGlobal(name string) (GenericValue, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	g := e.module.Global(name)
	if g == nil {
		return GenericValue{}, fmt.Errorf("jit: no global %s", name)
	}
	idx, err := e.globalIndex(g)
	if err != nil {
		return GenericValue{}, err
	}
	return genericFromCell(g.Elem, e.memory[idx]), nil
}

func (e *Engine) invoke(ctx context.Context, fn *compiledFunction, args []cell, depth int) (cell, error) {
	if depth > e.maxDepth {
		return cell{}, newRuntimeError(StackOverflow, fn.name,
			fmt.Errorf("%w: limit %d", ErrStackOverflow, e.maxDepth))
	}
	if err := ctx.Err(); err != nil {
		return cell{}, newRuntimeError(Cancelled, fn.name, fmt.Errorf("%w: %w", ErrCancelled, err))
	}
	regs := make([]cell, fn.registers)
	copy(regs, args)
	slots := make([]cell, fn.slots)

	for ip := 0; ip < len(fn.code); ip++ {
		instr := &fn.code[ip]
		switch instr.op {
		case opConst:
			regs[instr.dst] = instr.imm
		case opLoadSlot:
			regs[instr.dst] = slots[instr.a]
		case opLoadGlobal:
			regs[instr.dst] = e.memory[instr.a]
		case opStoreSlot:
			slots[instr.b] = regs[instr.a]
		case opStoreGlobal:
			e.memory[instr.b] = regs[instr.a]
		case opIAdd:
			regs[instr.dst] = cell{i: regs[instr.a].i + regs[instr.b].i}
		case opISub:
			regs[instr.dst] = cell{i: regs[instr.a].i - regs[instr.b].i}
		case opIMul:
			regs[instr.dst] = cell{i: regs[instr.a].i * regs[instr.b].i}
		case opIDiv:
			divisor := regs[instr.b].i
			if divisor == 0 {
				return cell{}, newRuntimeError(DivisionByZero, fn.name, ErrDivisionByZero)
			}
			dividend := regs[instr.a].i
			if dividend == math.MinInt64 && divisor == -1 {
				// wraps like two's complement hardware instead of trapping
				regs[instr.dst] = cell{i: math.MinInt64}
				continue
			}
			regs[instr.dst] = cell{i: dividend / divisor}
		case opFAdd:
			regs[instr.dst] = cell{f: regs[instr.a].f + regs[instr.b].f}
		case opFSub:
			regs[instr.dst] = cell{f: regs[instr.a].f - regs[instr.b].f}
		case opFMul:
			regs[instr.dst] = cell{f: regs[instr.a].f * regs[instr.b].f}
		case opFDiv:
			regs[instr.dst] = cell{f: regs[instr.a].f / regs[instr.b].f}
		case opCall:
			callArgs := make([]cell, len(instr.args))
			for i, reg := range instr.args {
				callArgs[i] = regs[reg]
			}
			result, err := e.invoke(ctx, instr.callee, callArgs, depth+1)
			if err != nil {
				return cell{}, appendTrace(err, fn.name)
			}
			regs[instr.dst] = result
		case opRet:
			return regs[instr.a], nil
		case opRetVoid:
			return cell{}, nil
		default:
			return cell{}, fmt.Errorf("jit: unknown opcode %d in %s", instr.op, fn.name)
		}
	}
	return cell{}, fmt.Errorf("jit: %s fell off the end of its code", fn.name)
}
