package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/NewProggie/Toco/pkg/codegen"
	"github.com/NewProggie/Toco/pkg/driver"
)

// captureCLI runs the CLI with os.Stdout and os.Stderr redirected.
func captureCLI(t *testing.T, args []string) (int, string, string) {
	t.Helper()
	oldOut, oldErr := os.Stdout, os.Stderr
	outR, outW, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout, os.Stderr = outW, errW
	defer func() { os.Stdout, os.Stderr = oldOut, oldErr }()

	var stdout, stderr bytes.Buffer
	done := make(chan struct{}, 2)
	go func() { _, _ = io.Copy(&stdout, outR); done <- struct{}{} }()
	go func() { _, _ = io.Copy(&stderr, errR); done <- struct{}{} }()

	code := run(args)
	_ = outW.Close()
	_ = errW.Close()
	<-done
	<-done
	return code, stdout.String(), stderr.String()
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// withStdin points os.Stdin at the file at path until the test ends.
func withStdin(t *testing.T, path string) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	old := os.Stdin
	os.Stdin = f
	t.Cleanup(func() {
		os.Stdin = old
		_ = f.Close()
	})
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(oldWD); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}

func TestParseCommonFlags(t *testing.T) {
	flags, remaining, err := parseCommonFlags([]string{"--scoping", "lexical", "run", "--keep-going", "--trace=debug", "--max-call-depth=50", "--emit-ir", "main.toco"})
	if err != nil {
		t.Fatalf("parseCommonFlags: %v", err)
	}
	if len(remaining) != 2 || remaining[0] != "run" || remaining[1] != "main.toco" {
		t.Fatalf("remaining %v", remaining)
	}
	if flags.scoping == nil || *flags.scoping != codegen.ScopingLexical {
		t.Fatalf("scoping not parsed")
	}
	if flags.diagnostics == nil || *flags.diagnostics != codegen.DiagnosticsCollect {
		t.Fatalf("keep-going not parsed")
	}
	if flags.trace != "debug" || !flags.emitIR || flags.maxCallDepth == nil || *flags.maxCallDepth != 50 {
		t.Fatalf("unexpected flags %+v", flags)
	}

	_, remaining, err = parseCommonFlags([]string{"run", "--", "--emit-ir"})
	if err != nil || len(remaining) != 2 || remaining[1] != "--emit-ir" {
		t.Fatalf("arguments after -- must pass through, got %v (%v)", remaining, err)
	}
}

func TestParseCommonFlagsErrors(t *testing.T) {
	cases := [][]string{
		{"--scoping"},
		{"--scoping=dynamic"},
		{"--diagnostics", "maybe"},
		{"--trace=loud"},
		{"--max-call-depth=-1"},
		{"--max-call-depth", "many"},
	}
	for _, args := range cases {
		if _, _, err := parseCommonFlags(args); err == nil {
			t.Fatalf("%v: expected an error", args)
		}
	}
}

func TestResolveSettingsLayersFlagsOverManifest(t *testing.T) {
	manifest := &driver.Manifest{
		Scoping:      codegen.ScopingLexical,
		Diagnostics:  codegen.DiagnosticsCollect,
		Trace:        "info",
		MaxCallDepth: 10,
	}
	s := resolveSettings(manifest, commonFlags{})
	if s.options.Scoping != codegen.ScopingLexical || s.options.MaxCallDepth != 10 || s.trace != "info" || s.emitIR {
		t.Fatalf("manifest settings lost: %+v", s)
	}
	flat := codegen.ScopingFlat
	depth := 3
	s = resolveSettings(manifest, commonFlags{scoping: &flat, maxCallDepth: &depth, emitIR: true})
	if s.options.Scoping != codegen.ScopingFlat || s.options.MaxCallDepth != 3 || !s.emitIR {
		t.Fatalf("flags did not override: %+v", s)
	}
	if s.options.Diagnostics != codegen.DiagnosticsCollect {
		t.Fatalf("unset flag overrode the manifest")
	}
}

func TestRunSourceFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.toco")
	writeFile(t, path, "int f(int a, int b) { a + b }\nf(2, 3)\n")
	code, stdout, stderr := captureCLI(t, []string{"run", path})
	if code != 0 {
		t.Fatalf("exit code %d (stderr=%q)", code, stderr)
	}
	if strings.TrimSpace(stdout) != "5" {
		t.Fatalf("stdout %q", stdout)
	}

	code, stdout, _ = captureCLI(t, []string{path})
	if code != 0 || strings.TrimSpace(stdout) != "5" {
		t.Fatalf("bare file invocation: code %d stdout %q", code, stdout)
	}
}

func TestRunDoubleResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.toco")
	writeFile(t, path, "double x = 1.5\nx * 3.0\n")
	code, stdout, stderr := captureCLI(t, []string{"run", path})
	if code != 0 || strings.TrimSpace(stdout) != "4.5" {
		t.Fatalf("code %d stdout %q stderr %q", code, stdout, stderr)
	}
}

func TestCheckReportsLoweringErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.toco")
	writeFile(t, path, "int x = 1\ny = 2\nz\n")

	code, stdout, stderr := captureCLI(t, []string{"check", path})
	if code != 1 || stdout != "" {
		t.Fatalf("code %d stdout %q", code, stdout)
	}
	if !strings.Contains(stderr, "undeclared variable") || !strings.Contains(stderr, "2:1") {
		t.Fatalf("stderr %q", stderr)
	}

	code, _, stderr = captureCLI(t, []string{"--keep-going", "check", path})
	if code != 1 || !strings.Contains(stderr, "2 lowering errors") {
		t.Fatalf("collect mode: code %d stderr %q", code, stderr)
	}
}

func TestCheckAcceptsValidProgram(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.toco")
	writeFile(t, path, "int x = 1\nx + 1\n")
	code, stdout, stderr := captureCLI(t, []string{"check", path})
	if code != 0 || strings.TrimSpace(stdout) != "ok" {
		t.Fatalf("code %d stdout %q stderr %q", code, stdout, stderr)
	}
}

func TestIRPrintsModule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.toco")
	writeFile(t, path, "int f(int a, int b) { a + b }\nf(2, 3)\n")
	code, stdout, stderr := captureCLI(t, []string{"ir", path})
	if code != 0 {
		t.Fatalf("code %d stderr %q", code, stderr)
	}
	if !strings.Contains(stdout, "define i64 @f(i64 %a, i64 %b)") || !strings.Contains(stdout, "define i64 @main()") {
		t.Fatalf("unexpected module:\n%s", stdout)
	}

	code, stdout, _ = captureCLI(t, []string{"--emit-ir", "run", path})
	if code != 0 || !strings.Contains(stdout, "define i64 @main()") || !strings.HasSuffix(strings.TrimSpace(stdout), "5") {
		t.Fatalf("--emit-ir run: code %d stdout %q", code, stdout)
	}
}

func TestRunReportsRuntimeErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.toco")
	writeFile(t, path, "int d(int a) { a / 0 }\nint g(int a) { d(a) }\ng(1)\n")
	code, _, stderr := captureCLI(t, []string{"run", path})
	if code != 1 {
		t.Fatalf("exit code %d", code)
	}
	if !strings.Contains(stderr, "DivisionByZero") || !strings.Contains(stderr, "call trace: d <- g <- main") {
		t.Fatalf("stderr %q", stderr)
	}
}

func TestRunScopingFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.toco")
	writeFile(t, path, "int a = 2\nint f(int b) { a + b }\nf(3)\n")
	if code, _, stderr := captureCLI(t, []string{"run", path}); code != 1 || !strings.Contains(stderr, "undeclared variable") {
		t.Fatalf("flat scoping: code %d stderr %q", code, stderr)
	}
	code, stdout, stderr := captureCLI(t, []string{"--scoping=lexical", "run", path})
	if code != 0 || strings.TrimSpace(stdout) != "5" {
		t.Fatalf("lexical scoping: code %d stdout %q stderr %q", code, stdout, stderr)
	}
}

func TestRunProjectDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, driver.ManifestName), "name: demo\nscoping: lexical\ndependencies:\n  lib:\n    path: lib\n")
	writeFile(t, filepath.Join(dir, "main.toco"), "int base = 40\nint add(int n) { base + n }\nadd(two())\n")
	writeFile(t, filepath.Join(dir, "lib", "two.toco"), "int two() { 2 }\n")

	code, stdout, stderr := captureCLI(t, []string{"run", dir})
	if code != 0 || strings.TrimSpace(stdout) != "42" {
		t.Fatalf("code %d stdout %q stderr %q", code, stdout, stderr)
	}

	chdir(t, dir)
	code, stdout, stderr = captureCLI(t, []string{"run"})
	if code != 0 || strings.TrimSpace(stdout) != "42" {
		t.Fatalf("run from project dir: code %d stdout %q stderr %q", code, stdout, stderr)
	}
}

func TestRunWithoutTarget(t *testing.T) {
	withStdin(t, os.DevNull)
	chdir(t, t.TempDir())
	code, _, stderr := captureCLI(t, []string{"run"})
	if code != 1 || !strings.Contains(stderr, "requires a project directory or source file") {
		t.Fatalf("code %d stderr %q", code, stderr)
	}
}

func TestRunReadsStandardInput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stdin.toco")
	writeFile(t, path, "int x = 2; int y = 3; x = x + y")
	chdir(t, dir)

	for _, args := range [][]string{nil, {"run"}, {"-"}, {"run", "-"}, {"--scoping=lexical"}} {
		withStdin(t, path)
		code, stdout, stderr := captureCLI(t, args)
		if code != 0 || strings.TrimSpace(stdout) != "5" {
			t.Fatalf("%v: code %d stdout %q stderr %q", args, code, stdout, stderr)
		}
	}

	withStdin(t, path)
	code, stdout, stderr := captureCLI(t, []string{"check", "-"})
	if code != 0 || strings.TrimSpace(stdout) != "ok" {
		t.Fatalf("check -: code %d stdout %q stderr %q", code, stdout, stderr)
	}

	writeFile(t, path, "int x = ")
	withStdin(t, path)
	code, _, stderr = captureCLI(t, []string{"-"})
	if code != 1 || !strings.Contains(stderr, "<stdin>:") {
		t.Fatalf("parse error: code %d stderr %q", code, stderr)
	}
}

func TestDepsInstallWritesLockfile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TOCO_HOME", filepath.Join(dir, "cache"))
	writeFile(t, filepath.Join(dir, driver.ManifestName), "name: demo\ndependencies:\n  lib:\n    path: lib\n")
	writeFile(t, filepath.Join(dir, "lib", "two.toco"), "int two() { 2 }\n")
	chdir(t, dir)

	code, stdout, stderr := captureCLI(t, []string{"deps", "install"})
	if code != 0 {
		t.Fatalf("code %d stderr %q", code, stderr)
	}
	if !strings.Contains(stdout, "locked lib path") {
		t.Fatalf("stdout %q", stdout)
	}
	lock, err := driver.LoadLockfile(filepath.Join(dir, driver.LockfileName))
	if err != nil {
		t.Fatalf("LoadLockfile: %v", err)
	}
	if pkg := lock.Package("lib"); pkg == nil || pkg.Checksum == "" {
		t.Fatalf("lib not locked: %+v", lock.Packages)
	}

	if code, _, _ := captureCLI(t, []string{"deps", "update"}); code != 1 {
		t.Fatalf("unknown deps subcommand should fail")
	}
}

func TestVersionAndUsage(t *testing.T) {
	withStdin(t, os.DevNull)
	code, stdout, _ := captureCLI(t, []string{"version"})
	if code != 0 || strings.TrimSpace(stdout) != cliToolVersion {
		t.Fatalf("code %d stdout %q", code, stdout)
	}
	code, _, stderr := captureCLI(t, nil)
	if code != 1 || !strings.Contains(stderr, "Usage:") {
		t.Fatalf("code %d stderr %q", code, stderr)
	}
	code, _, stderr = captureCLI(t, []string{"--trace"})
	if code != 1 || !strings.Contains(stderr, "--trace expects a value") {
		t.Fatalf("code %d stderr %q", code, stderr)
	}
}
