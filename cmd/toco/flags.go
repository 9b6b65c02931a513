package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/NewProggie/Toco/pkg/codegen"
	"github.com/NewProggie/Toco/pkg/driver"
)

// commonFlags holds command line overrides; nil fields leave the manifest
// setting (or the default) in place.
type commonFlags struct {
	scoping      *codegen.Scoping
	diagnostics  *codegen.Diagnostics
	trace        string
	emitIR       bool
	maxCallDepth *int
}

func parseCommonFlags(args []string) (commonFlags, []string, error) {
	var flags commonFlags
	remaining := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			remaining = append(remaining, args[i+1:]...)
			break
		}
		name, value, hasValue := strings.Cut(arg, "=")
		switch name {
		case "--scoping", "--diagnostics", "--trace", "--max-call-depth":
		case "--keep-going":
			mode := codegen.DiagnosticsCollect
			flags.diagnostics = &mode
			continue
		case "--emit-ir":
			flags.emitIR = true
			continue
		default:
			remaining = append(remaining, arg)
			continue
		}
		if !hasValue {
			if i+1 >= len(args) {
				return flags, nil, fmt.Errorf("%s expects a value", name)
			}
			i++
			value = args[i]
		}
		if err := flags.set(name, value); err != nil {
			return flags, nil, err
		}
	}
	return flags, remaining, nil
}

func (f *commonFlags) set(name, value string) error {
	switch name {
	case "--scoping":
		scoping, err := codegen.ParseScoping(value)
		if err != nil {
			return fmt.Errorf("--scoping: %w", err)
		}
		f.scoping = &scoping
	case "--diagnostics":
		mode, err := codegen.ParseDiagnostics(value)
		if err != nil {
			return fmt.Errorf("--diagnostics: %w", err)
		}
		f.diagnostics = &mode
	case "--trace":
		level := strings.ToLower(strings.TrimSpace(value))
		switch level {
		case "error", "info", "debug":
			f.trace = level
		default:
			return fmt.Errorf("unknown --trace value '%s' (expected error, info or debug)", value)
		}
	case "--max-call-depth":
		depth, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || depth < 0 {
			return fmt.Errorf("--max-call-depth expects a non-negative integer, got '%s'", value)
		}
		f.maxCallDepth = &depth
	}
	return nil
}

// settings is the effective configuration of one invocation.
type settings struct {
	options codegen.Options
	trace   string
	emitIR  bool
}

// resolveSettings layers the flags over the manifest, if any.
func resolveSettings(manifest *driver.Manifest, flags commonFlags) settings {
	var s settings
	if manifest != nil {
		s.options = manifest.Options()
		s.trace = manifest.Trace
		s.emitIR = manifest.EmitIR
	}
	if flags.scoping != nil {
		s.options.Scoping = *flags.scoping
	}
	if flags.diagnostics != nil {
		s.options.Diagnostics = *flags.diagnostics
	}
	if flags.maxCallDepth != nil {
		s.options.MaxCallDepth = *flags.maxCallDepth
	}
	if flags.trace != "" {
		s.trace = flags.trace
	}
	s.emitIR = s.emitIR || flags.emitIR
	return s
}
