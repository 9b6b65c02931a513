package main

import (
	"fmt"
	"os"
)

const cliToolVersion = "toco 0.1.0-dev"

type executionMode int

const (
	modeRun executionMode = iota
	modeCheck
	modeIR
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags, remaining, err := parseCommonFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if len(remaining) == 0 {
		if stdinIsPiped() {
			return runEntry([]string{stdinArg}, flags, modeRun)
		}
		printUsage()
		return 1
	}

	switch remaining[0] {
	case "--help", "-h", "help":
		printUsage()
		return 0
	case "--version", "-V", "version":
		fmt.Fprintln(os.Stdout, cliToolVersion)
		return 0
	case "run":
		return runEntry(remaining[1:], flags, modeRun)
	case "check":
		return runEntry(remaining[1:], flags, modeCheck)
	case "ir":
		return runEntry(remaining[1:], flags, modeIR)
	case "repl":
		return runRepl(remaining[1:], flags)
	case "deps":
		return runDeps(remaining[1:], flags)
	default:
		return runEntry(remaining, flags, modeRun)
	}
}
