package codegen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/NewProggie/Toco/pkg/ir"
	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
)

// T traces to the global core tracer.
func T() tracing.Trace {
	return gtrace.CoreTracer
}

// Diagnostics selects what happens after the first lowering failure.
type Diagnostics int

const (
	// DiagnosticsFailFast aborts lowering at the first failure.
	DiagnosticsFailFast Diagnostics = iota
	// DiagnosticsCollect records the failing statement and continues with the next one.
	DiagnosticsCollect
)

func (d Diagnostics) String() string {
	switch d {
	case DiagnosticsFailFast:
		return "fail-fast"
	case DiagnosticsCollect:
		return "collect"
	default:
		return fmt.Sprintf("Diagnostics(%d)", int(d))
	}
}

func ParseDiagnostics(value string) (Diagnostics, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "fail-fast", "failfast":
		return DiagnosticsFailFast, nil
	case "collect", "keep-going":
		return DiagnosticsCollect, nil
	default:
		return DiagnosticsFailFast, fmt.Errorf("unknown diagnostics mode %q (expected fail-fast or collect)", value)
	}
}

type Options struct {
	Scoping     Scoping
	Diagnostics Diagnostics
	// MaxCallDepth is handed to the jit engine; zero keeps its default.
	MaxCallDepth int
}

// Context carries everything one lowering pass mutates: the output module,
// the scope stack and the failures recorded so far.
type Context struct {
	module   *ir.Module
	scopes   *ScopeStack
	opts     Options
	failures []*Error
}

func NewContext(module *ir.Module, opts Options) *Context {
	return &Context{
		module: module,
		scopes: NewScopeStack(opts.Scoping),
		opts:   opts,
	}
}

func (c *Context) Module() *ir.Module   { return c.module }
func (c *Context) Scopes() *ScopeStack  { return c.scopes }
func (c *Context) Options() Options     { return c.opts }
func (c *Context) Failures() []*Error   { return c.failures }
func (c *Context) collecting() bool     { return c.opts.Diagnostics == DiagnosticsCollect }
func (c *Context) block() *ir.Block     { return c.scopes.CurrentInsertionPoint() }
func (c *Context) atProgramLevel() bool { return c.scopes.Depth() == 1 }

func (c *Context) record(err error) {
	if err == nil || errors.Is(err, errBlockFailed) {
		return
	}
	var lerr *Error
	if !errors.As(err, &lerr) {
		lerr = &Error{Kind: Internal, Message: err.Error(), cause: err}
	}
	T().Errorf("codegen: %v", lerr)
	c.failures = append(c.failures, lerr)
}
