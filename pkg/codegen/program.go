package codegen

import (
	"context"
	"errors"
	"fmt"

	"github.com/NewProggie/Toco/pkg/ast"
	"github.com/NewProggie/Toco/pkg/ir"
	"github.com/NewProggie/Toco/pkg/jit"
)

// EntryFunction is the name of the synthesized zero-argument function that
// holds the program's top-level statements.
const EntryFunction = "main"

var (
	ErrNotGenerated     = errors.New("codegen: program has not been generated")
	ErrAlreadyGenerated = errors.New("codegen: program already generated")
)

// Program drives one lowering and execution run over a fresh module.
type Program struct {
	opts    Options
	module  *ir.Module
	ctx     *Context
	entry   *ir.Function
	engine  *jit.Engine
	done    bool
	lowered error
}

func NewProgram(opts Options) *Program {
	module := ir.NewModule("main")
	return &Program{
		opts:   opts,
		module: module,
		ctx:    NewContext(module, opts),
	}
}

func (p *Program) Module() *ir.Module  { return p.module }
func (p *Program) Context() *Context   { return p.ctx }
func (p *Program) Engine() *jit.Engine { return p.engine }
func (p *Program) Entry() *ir.Function { return p.entry }

// Generate lowers root into the entry function. When the root's last
// statement yields a value the entry function returns it; otherwise it
// returns void. Any lowering failure is reported as *LoweringErrors.
func (p *Program) Generate(root *ast.Block) error {
	if p.done {
		return ErrAlreadyGenerated
	}
	p.done = true
	p.lowered = p.generate(root)
	return p.lowered
}

func (p *Program) generate(root *ast.Block) error {
	if root == nil {
		return &LoweringErrors{Errors: []*Error{lowerError(Internal, nil, "nil root block")}}
	}
	entry, err := p.module.NewFunction(EntryFunction, ir.FuncType(ir.Void))
	if err != nil {
		return fmt.Errorf("codegen: %w", err)
	}
	p.entry = entry
	block := entry.NewBlock("entry")
	scopes := p.ctx.Scopes()
	scopes.Push(block)

	val, lowerErr := p.ctx.lowerBlock(root)
	p.ctx.record(lowerErr)
	if lowerErr == nil && val != nil {
		if err := scopes.SetReturnValue(val); err != nil {
			p.ctx.record(err)
		}
	}
	result := scopes.ReturnValue()
	p.ctx.record(scopes.Pop())

	if failures := p.ctx.Failures(); len(failures) > 0 {
		return &LoweringErrors{Errors: failures}
	}
	if result != nil {
		// the entry signature is settled once the trailing value is known
		entry.Sig = ir.FuncType(result.Type())
	}
	if _, err := ir.NewRet(result, block); err != nil {
		return &LoweringErrors{Errors: []*Error{substrateError(root, err)}}
	}
	if err := ir.Verify(p.module); err != nil {
		return fmt.Errorf("codegen: %w", err)
	}
	T().Infof("codegen: generated module %s with %d functions", p.module.Name, len(p.module.Functions()))
	return nil
}

// Run compiles the generated module and executes the entry function. Every
// run starts with zeroed globals, the same way stack slots start fresh. It
// refuses to run a program whose lowering failed.
func (p *Program) Run(ctx context.Context) (jit.GenericValue, error) {
	if !p.done {
		return jit.GenericValue{}, ErrNotGenerated
	}
	if p.lowered != nil {
		return jit.GenericValue{}, p.lowered
	}
	if p.engine == nil {
		engine, err := jit.NewEngine(p.module, jit.Options{MaxCallDepth: p.opts.MaxCallDepth})
		if err != nil {
			return jit.GenericValue{}, err
		}
		if err := engine.Finalize(); err != nil {
			return jit.GenericValue{}, fmt.Errorf("codegen: compile: %w", err)
		}
		p.engine = engine
	}
	p.engine.ResetGlobals()
	return p.engine.RunFunction(ctx, EntryFunction)
}
