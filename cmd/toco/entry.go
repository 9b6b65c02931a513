package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/NewProggie/Toco/pkg/ast"
	"github.com/NewProggie/Toco/pkg/codegen"
	"github.com/NewProggie/Toco/pkg/driver"
	"github.com/NewProggie/Toco/pkg/ir"
	"github.com/NewProggie/Toco/pkg/jit"
	"github.com/NewProggie/Toco/pkg/parser"
)

// stdinArg names standard input as the entry target.
const stdinArg = "-"

// entryTarget is what a run, check or ir invocation operates on: a project
// rooted at a toco.yml, a lone source file, or standard input.
type entryTarget struct {
	project *driver.Project
	file    string
	stdin   bool
}

func (t *entryTarget) manifest() *driver.Manifest {
	if t.project == nil {
		return nil
	}
	return t.project.Manifest
}

func (t *entryTarget) load() (*ast.Block, error) {
	if t.project != nil {
		return t.project.Load()
	}
	if t.stdin {
		return parser.ParseReader(os.Stdin, "<stdin>")
	}
	return parser.ParseFile(t.file)
}

// stdinIsPiped reports whether standard input is a file or pipe rather than a
// terminal or null device.
func stdinIsPiped() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice == 0
}

func resolveEntryTarget(arg string) (*entryTarget, error) {
	if arg == stdinArg {
		return &entryTarget{stdin: true}, nil
	}
	if arg == "" {
		arg = "."
	}
	info, err := os.Stat(arg)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() && filepath.Base(arg) != driver.ManifestName {
		return &entryTarget{file: arg}, nil
	}
	project, err := driver.OpenProject(arg)
	if err != nil {
		return nil, err
	}
	return &entryTarget{project: project}, nil
}

func runEntry(args []string, flags commonFlags, mode executionMode) int {
	if len(args) > 1 {
		fmt.Fprintf(os.Stderr, "unexpected arguments: %s\n", strings.Join(args[1:], " "))
		return 1
	}
	arg := ""
	if len(args) == 1 {
		arg = args[0]
	}
	target, err := resolveEntryTarget(arg)
	if err != nil && arg == "" && errors.Is(err, driver.ErrManifestNotFound) && stdinIsPiped() {
		T().Debugf("%s: no %s, reading standard input", modeCommandLabel(mode), driver.ManifestName)
		target, err = &entryTarget{stdin: true}, nil
	}
	if err != nil {
		if errors.Is(err, driver.ErrManifestNotFound) {
			fmt.Fprintf(os.Stderr, "%s requires a project directory or source file (%s not found)\n", modeCommandLabel(mode), driver.ManifestName)
			return 1
		}
		fmt.Fprintf(os.Stderr, "%s: %v\n", modeCommandLabel(mode), err)
		return 1
	}
	s := resolveSettings(target.manifest(), flags)
	if err := setupTracing(s.trace); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	root, err := target.load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return executeProgram(root, s, mode)
}

func executeProgram(root *ast.Block, s settings, mode executionMode) int {
	program := codegen.NewProgram(s.options)
	if err := program.Generate(root); err != nil {
		reportError(err)
		return 1
	}
	T().Infof("%s: lowered %d top-level statements", modeCommandLabel(mode), len(root.Statements))
	if mode == modeIR || s.emitIR {
		if err := ir.WriteModule(os.Stdout, program.Module()); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}
	switch mode {
	case modeIR:
		return 0
	case modeCheck:
		fmt.Fprintln(os.Stdout, "ok")
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	result, err := program.Run(ctx)
	if err != nil {
		reportError(err)
		return 1
	}
	if !result.IsVoid() {
		fmt.Fprintln(os.Stdout, result)
	}
	return 0
}

func reportError(err error) {
	fmt.Fprintln(os.Stderr, err)
	var rtErr *jit.RuntimeError
	if errors.As(err, &rtErr) && len(rtErr.Trace) > 1 {
		fmt.Fprintf(os.Stderr, "call trace: %s\n", strings.Join(rtErr.Trace, " <- "))
	}
}
