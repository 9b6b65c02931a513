package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/NewProggie/Toco/pkg/codegen"
	"github.com/NewProggie/Toco/pkg/ir"
	"github.com/NewProggie/Toco/pkg/parser"
	"github.com/peterh/liner"
)

const (
	historyFile = ".toco_history"
	promptMain  = "toco> "
	promptCont  = "....> "
)

// replSession accumulates accepted entries. Every entry re-lowers and reruns
// the whole program, so later entries see earlier declarations.
type replSession struct {
	options codegen.Options
	entries []string
	program *codegen.Program
}

func newReplSession(options codegen.Options) *replSession {
	return &replSession{options: options}
}

// eval runs the accumulated program extended by src and returns the printed
// result. Entries that fail to parse, lower or run are not kept.
func (s *replSession) eval(ctx context.Context, src string) (string, error) {
	candidate := append(append([]string(nil), s.entries...), src)
	root, err := parser.ParseProgram([]byte(strings.Join(candidate, "\n")))
	if err != nil {
		return "", err
	}
	program := codegen.NewProgram(s.options)
	if err := program.Generate(root); err != nil {
		return "", err
	}
	result, err := program.Run(ctx)
	if err != nil {
		return "", err
	}
	s.entries = candidate
	s.program = program
	if result.IsVoid() {
		return "", nil
	}
	return result.String(), nil
}

func (s *replSession) reset() {
	s.entries = nil
	s.program = nil
}

func (s *replSession) module() string {
	if s.program == nil {
		return ""
	}
	return ir.Format(s.program.Module())
}

// command handles ":"-prefixed input; it reports false when the session should end.
func (s *replSession) command(out io.Writer, cmd string) bool {
	switch strings.ToLower(strings.TrimSpace(cmd)) {
	case ":quit", ":q":
		return false
	case ":reset":
		s.reset()
		fmt.Fprintln(out, "program cleared")
	case ":ir":
		fmt.Fprint(out, s.module())
	default:
		fmt.Fprintln(out, "unknown command. Commands: :ir, :reset, :quit")
	}
	return true
}

func runRepl(args []string, flags commonFlags) int {
	if len(args) > 0 {
		fmt.Fprintf(os.Stderr, "toco repl does not take arguments (received %s)\n", strings.Join(args, " "))
		return 1
	}
	s := resolveSettings(nil, flags)
	if err := setupTracing(s.trace); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Fprintln(os.Stdout, cliToolVersion+" (:quit to exit)")

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	session := newReplSession(s.options)
	for {
		src, ok := readEntry(ln)
		if !ok {
			fmt.Fprintln(os.Stdout)
			return 0
		}
		trimmed := strings.TrimSpace(src)
		if trimmed == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))
		if strings.HasPrefix(trimmed, ":") {
			if !session.command(os.Stdout, trimmed) {
				return 0
			}
			continue
		}
		out, err := session.eval(context.Background(), src)
		if err != nil {
			reportError(err)
			continue
		}
		if out != "" {
			fmt.Fprintln(os.Stdout, out)
		}
	}
}

// readEntry reads lines until they parse or fail for a reason other than
// running out of input.
func readEntry(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", false
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		if _, err := parser.ParseProgram([]byte(src)); parser.IsIncomplete(err) {
			continue
		}
		return src, true
	}
}
