package driver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/NewProggie/Toco/pkg/codegen"
	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
	"gopkg.in/yaml.v3"
)

// T traces to the global core tracer.
func T() tracing.Trace {
	return gtrace.CoreTracer
}

const (
	ManifestName = "toco.yml"
	LockfileName = "toco.lock"
	SourceExt    = ".toco"
)

// Manifest represents the parsed contents of toco.yml.
type Manifest struct {
	Path         string
	Name         string
	Version      string
	Main         string
	Scoping      codegen.Scoping
	Diagnostics  codegen.Diagnostics
	EmitIR       bool
	Trace        string
	MaxCallDepth int
	Dependencies map[string]*DependencySpec
}

// DependencySpec describes where a dependency's sources come from: a local
// directory, or a git repository pinned by rev, tag or branch.
type DependencySpec struct {
	Path   string
	Git    string
	Rev    string
	Tag    string
	Branch string
}

// ValidationError aggregates manifest validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "manifest: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("manifest validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

var ErrManifestNotFound = errors.New("manifest: toco.yml not found")

// FindManifest walks from start towards the filesystem root looking for toco.yml.
func FindManifest(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("manifest: resolve %s: %w", start, err)
	}
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrManifestNotFound
		}
		dir = parent
	}
}

// LoadManifest parses toco.yml from disk, returning a validated manifest.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return nil, fmt.Errorf("manifest: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", absPath, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var raw manifestFile
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("manifest: %s is empty", absPath)
		}
		return nil, fmt.Errorf("manifest: parse %s: %w", absPath, err)
	}
	return raw.toManifest(absPath)
}

// Dir is the directory holding the manifest; relative paths resolve against it.
func (m *Manifest) Dir() string {
	return filepath.Dir(m.Path)
}

// MainPath is the absolute path of the entry source file.
func (m *Manifest) MainPath() string {
	return m.resolve(m.Main)
}

func (m *Manifest) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(m.Dir(), path)
}

// Options returns the lowering options the manifest selects.
func (m *Manifest) Options() codegen.Options {
	return codegen.Options{
		Scoping:      m.Scoping,
		Diagnostics:  m.Diagnostics,
		MaxCallDepth: m.MaxCallDepth,
	}
}

// DependencyNames lists dependencies in the order their sources are loaded.
func (m *Manifest) DependencyNames() []string {
	names := make([]string, 0, len(m.Dependencies))
	for name := range m.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *DependencySpec) validate() []string {
	var issues []string
	if d.Path != "" && d.Git != "" {
		issues = append(issues, "path and git are mutually exclusive")
	}
	if d.Path == "" && d.Git == "" {
		issues = append(issues, "must specify path or git")
	}
	pins := 0
	for _, pin := range []string{d.Rev, d.Tag, d.Branch} {
		if pin != "" {
			pins++
		}
	}
	if d.Git != "" && pins == 0 {
		issues = append(issues, "git dependencies require rev, tag, or branch")
	}
	if pins > 1 {
		issues = append(issues, "rev, tag and branch are mutually exclusive")
	}
	if d.Path != "" && pins > 0 {
		issues = append(issues, "path dependencies cannot be pinned")
	}
	return issues
}

type manifestFile struct {
	Name         string                    `yaml:"name"`
	Version      string                    `yaml:"version"`
	Main         string                    `yaml:"main"`
	Scoping      string                    `yaml:"scoping"`
	Diagnostics  string                    `yaml:"diagnostics"`
	EmitIR       bool                      `yaml:"emit_ir"`
	Trace        string                    `yaml:"trace"`
	MaxCallDepth int                       `yaml:"max_call_depth"`
	Dependencies map[string]dependencyYAML `yaml:"dependencies"`
}

type dependencyYAML struct {
	Path   string `yaml:"path"`
	Git    string `yaml:"git"`
	Rev    string `yaml:"rev"`
	Tag    string `yaml:"tag"`
	Branch string `yaml:"branch"`
}

func (mf manifestFile) toManifest(path string) (*Manifest, error) {
	var errs ValidationError
	m := &Manifest{
		Path:         path,
		Name:         sanitizeSegment(mf.Name),
		Version:      strings.TrimSpace(mf.Version),
		Main:         strings.TrimSpace(mf.Main),
		EmitIR:       mf.EmitIR,
		Trace:        strings.ToLower(strings.TrimSpace(mf.Trace)),
		MaxCallDepth: mf.MaxCallDepth,
		Dependencies: make(map[string]*DependencySpec, len(mf.Dependencies)),
	}
	if strings.TrimSpace(mf.Name) == "" {
		errs.Issues = append(errs.Issues, "name must be provided")
	}
	if m.Main == "" {
		m.Main = "main" + SourceExt
	}
	var err error
	if m.Scoping, err = codegen.ParseScoping(mf.Scoping); err != nil {
		errs.Issues = append(errs.Issues, err.Error())
	}
	if m.Diagnostics, err = codegen.ParseDiagnostics(mf.Diagnostics); err != nil {
		errs.Issues = append(errs.Issues, err.Error())
	}
	switch m.Trace {
	case "", "error", "info", "debug":
	default:
		errs.Issues = append(errs.Issues, fmt.Sprintf("trace must be error, info or debug, got %q", mf.Trace))
	}
	if m.MaxCallDepth < 0 {
		errs.Issues = append(errs.Issues, "max_call_depth must not be negative")
	}
	rawNames := make(map[string]string, len(mf.Dependencies))
	for rawName, dep := range mf.Dependencies {
		name := sanitizeSegment(rawName)
		if name == "" {
			errs.Issues = append(errs.Issues, "dependency names must be non-empty")
			continue
		}
		if other, seen := rawNames[name]; seen {
			first, second := other, rawName
			if second < first {
				first, second = second, first
			}
			errs.Issues = append(errs.Issues, fmt.Sprintf("dependencies: %q and %q both map to %s", first, second, name))
			continue
		}
		rawNames[name] = rawName
		spec := &DependencySpec{
			Path:   strings.TrimSpace(dep.Path),
			Git:    strings.TrimSpace(dep.Git),
			Rev:    strings.TrimSpace(dep.Rev),
			Tag:    strings.TrimSpace(dep.Tag),
			Branch: strings.TrimSpace(dep.Branch),
		}
		for _, issue := range spec.validate() {
			errs.Issues = append(errs.Issues, fmt.Sprintf("dependencies.%s: %s", rawName, issue))
		}
		m.Dependencies[name] = spec
	}
	if len(errs.Issues) > 0 {
		sort.Strings(errs.Issues)
		return nil, &errs
	}
	return m, nil
}

// sanitizeSegment maps a name onto characters safe for paths and lockfiles.
func sanitizeSegment(segment string) string {
	segment = strings.TrimSpace(segment)
	var b strings.Builder
	for _, r := range segment {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
