package main

import (
	"fmt"
	"os"
)

func modeCommandLabel(mode executionMode) string {
	switch mode {
	case modeCheck:
		return "toco check"
	case modeIR:
		return "toco ir"
	default:
		return "toco run"
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  toco [flags] run [project-dir | file.toco | -]")
	fmt.Fprintln(os.Stderr, "  toco [flags] <file.toco>")
	fmt.Fprintln(os.Stderr, "  toco [flags] [run | check | ir] -   read the program from standard input")
	fmt.Fprintln(os.Stderr, "  toco [flags] < file.toco           same as `toco run -`")
	fmt.Fprintln(os.Stderr, "  toco [flags] check [project-dir | file.toco]")
	fmt.Fprintln(os.Stderr, "  toco [flags] ir [project-dir | file.toco]")
	fmt.Fprintln(os.Stderr, "  toco [flags] repl")
	fmt.Fprintln(os.Stderr, "  toco deps install")
	fmt.Fprintln(os.Stderr, "  toco version")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Flags:")
	fmt.Fprintln(os.Stderr, "  --scoping=flat|lexical         variable visibility inside function bodies")
	fmt.Fprintln(os.Stderr, "  --diagnostics=fail-fast|collect")
	fmt.Fprintln(os.Stderr, "  --keep-going                   same as --diagnostics=collect")
	fmt.Fprintln(os.Stderr, "  --trace=error|info|debug       trace level written to stderr")
	fmt.Fprintln(os.Stderr, "  --emit-ir                      print the generated module before running")
	fmt.Fprintln(os.Stderr, "  --max-call-depth=N             bound on nested calls at run time")
}
