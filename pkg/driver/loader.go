package driver

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/NewProggie/Toco/pkg/ast"
	"github.com/NewProggie/Toco/pkg/parser"
)

var (
	ErrNotInstalled      = errors.New("dependency is not installed; run `toco deps install`")
	ErrChecksumMismatch  = errors.New("dependency sources changed since they were locked")
	ErrDuplicateFunction = errors.New("function defined in more than one file")
)

// Project is a loaded manifest with its lockfile, if one exists.
type Project struct {
	Manifest *Manifest
	Lock     *Lockfile
}

// OpenProject loads the manifest at path (a toco.yml or a directory below
// one) together with its toco.lock.
func OpenProject(path string) (*Project, error) {
	manifestPath := path
	if filepath.Base(path) != ManifestName {
		found, err := FindManifest(path)
		if err != nil {
			return nil, err
		}
		manifestPath = found
	}
	manifest, err := LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	project := &Project{Manifest: manifest}
	lock, err := LoadLockfile(filepath.Join(manifest.Dir(), LockfileName))
	switch {
	case err == nil:
		project.Lock = lock
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}
	return project, nil
}

// Load parses every dependency, in name order, then the entry file and
// returns one root block holding all their statements.
func (p *Project) Load() (*ast.Block, error) {
	var stmts []ast.Statement
	defs := definitions{}
	for _, name := range p.Manifest.DependencyNames() {
		dir, err := p.dependencyDir(name)
		if err != nil {
			return nil, fmt.Errorf("deps: %s: %w", name, err)
		}
		files, err := sourceFiles(dir)
		if err != nil {
			return nil, fmt.Errorf("deps: %s: %w", name, err)
		}
		for _, file := range files {
			block, err := parser.ParseFile(file)
			if err != nil {
				return nil, err
			}
			if err := defs.add(file, block); err != nil {
				return nil, err
			}
			stmts = append(stmts, block.Statements...)
		}
		T().Debugf("loader: %s contributed %d files", name, len(files))
	}
	entry, err := parser.ParseFile(p.Manifest.MainPath())
	if err != nil {
		return nil, err
	}
	if err := defs.add(p.Manifest.MainPath(), entry); err != nil {
		return nil, err
	}
	root := ast.NewBlock(append(stmts, entry.Statements...))
	ast.SetSpan(root, entry.Span())
	return root, nil
}

func (p *Project) dependencyDir(name string) (string, error) {
	spec := p.Manifest.Dependencies[name]
	if spec.Path != "" {
		return p.Manifest.resolve(spec.Path), nil
	}
	locked := p.Lock.Package(name)
	if locked == nil || locked.Dir == "" {
		return "", ErrNotInstalled
	}
	if _, err := os.Stat(locked.Dir); err != nil {
		return "", ErrNotInstalled
	}
	sum, err := dirChecksum(locked.Dir)
	if err != nil {
		return "", err
	}
	if sum != locked.Checksum {
		return "", fmt.Errorf("%w: %s", ErrChecksumMismatch, locked.Dir)
	}
	return locked.Dir, nil
}

// definitions maps each function name to the file declaring it. Redefinition
// within one file is left to the lowering pass, which reports it with a span.
type definitions map[string]string

func (d definitions) add(file string, block *ast.Block) error {
	var err error
	ast.Walk(block, func(n ast.Node) bool {
		if err != nil {
			return false
		}
		fn, ok := n.(*ast.FunctionDeclaration)
		if !ok || fn.ID == nil {
			return true
		}
		if prev, seen := d[fn.ID.Name]; seen && prev != file {
			err = fmt.Errorf("%w: %s in %s and %s", ErrDuplicateFunction, fn.ID.Name, prev, file)
			return false
		}
		d[fn.ID.Name] = file
		return true
	})
	return err
}

// sourceFiles lists the .toco files below dir in lexical order.
func sourceFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), SourceExt) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
