package main

import (
	"fmt"

	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
)

var tracersInstalled bool

// setupTracing routes the global tracers to stderr at the given level.
// Without a level, tracing stays muted.
func setupTracing(level string) error {
	if level == "" {
		return nil
	}
	if !tracersInstalled {
		if err := gtrace.CreateTracers(gologadapter.GetAdapter()); err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		tracersInstalled = true
	}
	tl := tracing.TraceLevelFromString(level)
	for _, t := range []tracing.Trace{
		gtrace.SyntaxTracer,
		gtrace.CoreTracer,
		gtrace.EngineTracer,
		gtrace.CommandTracer,
	} {
		t.SetTraceLevel(tl)
	}
	return nil
}

func T() tracing.Trace {
	return gtrace.CommandTracer
}
