package driver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// DefaultCacheDir returns $TOCO_HOME, falling back to ~/.toco.
func DefaultCacheDir() (string, error) {
	if home := strings.TrimSpace(os.Getenv("TOCO_HOME")); home != "" {
		return home, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("deps: locate home directory: %w", err)
	}
	return filepath.Join(userHome, ".toco"), nil
}

// Installer resolves manifest dependencies into a lockfile, cloning git
// dependencies into its cache.
type Installer struct {
	CacheDir string
	Tool     string
}

func NewInstaller(cacheDir, tool string) *Installer {
	return &Installer{CacheDir: cacheDir, Tool: tool}
}

// Install resolves every dependency of m and returns the resulting lockfile.
// The lockfile is not written.
func (i *Installer) Install(ctx context.Context, m *Manifest) (*Lockfile, error) {
	lock := NewLockfile(m.Name, i.Tool)
	lock.Path = filepath.Join(m.Dir(), LockfileName)
	for _, name := range m.DependencyNames() {
		spec := m.Dependencies[name]
		var (
			pkg *LockedPackage
			err error
		)
		if spec.Git != "" {
			pkg, err = i.fetchGit(ctx, name, spec)
		} else {
			pkg, err = resolvePath(m, name, spec)
		}
		if err != nil {
			return nil, fmt.Errorf("deps: %s: %w", name, err)
		}
		T().Infof("deps: locked %s %s (%s)", pkg.Name, pkg.Version, pkg.Source)
		lock.Put(pkg)
	}
	return lock, nil
}

func resolvePath(m *Manifest, name string, spec *DependencySpec) (*LockedPackage, error) {
	dir := m.resolve(spec.Path)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	checksum, err := dirChecksum(dir)
	if err != nil {
		return nil, fmt.Errorf("checksum %s: %w", dir, err)
	}
	return &LockedPackage{
		Name:     sanitizeSegment(name),
		Version:  "path",
		Source:   "path:" + spec.Path,
		Dir:      dir,
		Checksum: checksum,
	}, nil
}

func (i *Installer) fetchGit(ctx context.Context, name string, spec *DependencySpec) (*LockedPackage, error) {
	if i.CacheDir == "" {
		return nil, errors.New("git dependencies need a cache directory")
	}
	baseDir := filepath.Join(i.CacheDir, "pkg", "src", sanitizeSegment(name))
	version, commit, err := ensureGitCheckout(ctx, baseDir, spec)
	if err != nil {
		return nil, err
	}
	checkoutDir := filepath.Join(baseDir, sanitizePathSegment(version))
	checksum, err := dirChecksum(checkoutDir)
	if err != nil {
		return nil, err
	}
	return &LockedPackage{
		Name:     sanitizeSegment(name),
		Version:  version,
		Source:   fmt.Sprintf("git+%s@%s", spec.Git, commit),
		Dir:      checkoutDir,
		Checksum: checksum,
	}, nil
}

// ensureGitCheckout clones spec.Git into a scratch directory, checks out the
// pinned revision and renames the result to its version directory. A rev
// that is already checked out is reused without touching the network.
func ensureGitCheckout(ctx context.Context, baseDir string, spec *DependencySpec) (string, string, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", "", err
	}
	revision, descriptor, err := gitRevisionFromSpec(spec)
	if err != nil {
		return "", "", err
	}
	if spec.Rev != "" {
		if version, commit, ok := cachedCheckout(baseDir, spec.Rev); ok {
			T().Debugf("deps: reusing %s", version)
			return version, commit, nil
		}
	}

	tmpDir, err := os.MkdirTemp(baseDir, "git-fetch-*")
	if err != nil {
		return "", "", err
	}
	if err := os.RemoveAll(tmpDir); err != nil {
		return "", "", err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }

	T().Debugf("deps: cloning %s", spec.Git)
	repo, err := git.PlainCloneContext(ctx, tmpDir, false, &git.CloneOptions{
		URL:               spec.Git,
		RecurseSubmodules: git.DefaultSubmoduleRecursionDepth,
	})
	if err != nil {
		cleanup()
		return "", "", fmt.Errorf("git clone %s: %w", spec.Git, err)
	}
	hash, err := repo.ResolveRevision(revision)
	if err != nil {
		cleanup()
		return "", "", fmt.Errorf("resolve revision %s: %w", revision, err)
	}

	version := gitPinnedVersion(descriptor, hash.String())
	targetDir := filepath.Join(baseDir, sanitizePathSegment(version))
	if _, err := os.Stat(targetDir); err == nil {
		cleanup()
		return version, hash.String(), nil
	}
	worktree, err := repo.Worktree()
	if err != nil {
		cleanup()
		return "", "", err
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		cleanup()
		return "", "", fmt.Errorf("git checkout %s: %w", revision, err)
	}
	if err := os.Rename(tmpDir, targetDir); err != nil {
		cleanup()
		return "", "", err
	}
	return version, hash.String(), nil
}

// cachedCheckout finds the version directory an earlier install of rev left
// behind. A full hash is stored under its own name, anything shorter under
// rev@<commit>.
func cachedCheckout(baseDir, rev string) (string, string, bool) {
	if plumbing.IsHash(rev) {
		if _, err := os.Stat(filepath.Join(baseDir, sanitizePathSegment(rev))); err == nil {
			return rev, rev, true
		}
	}
	prefix := sanitizePathSegment(rev) + "_"
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return "", "", false
	}
	for _, entry := range entries {
		commit, found := strings.CutPrefix(entry.Name(), prefix)
		if !found || !entry.IsDir() || !plumbing.IsHash(commit) {
			continue
		}
		return gitPinnedVersion(rev, commit), commit, true
	}
	return "", "", false
}

func gitPinnedVersion(descriptor, commit string) string {
	if commit == "" {
		return descriptor
	}
	if descriptor == "" || descriptor == commit {
		return commit
	}
	return descriptor + "@" + commit
}

func gitRevisionFromSpec(spec *DependencySpec) (plumbing.Revision, string, error) {
	switch {
	case spec.Rev != "":
		return plumbing.Revision(spec.Rev), spec.Rev, nil
	case spec.Tag != "":
		return plumbing.Revision("refs/tags/" + spec.Tag), spec.Tag, nil
	case spec.Branch != "":
		return plumbing.Revision("refs/heads/" + spec.Branch), spec.Branch, nil
	}
	return "", "", errors.New("git dependencies require rev, tag, or branch")
}

func sanitizePathSegment(segment string) string {
	if result := sanitizeSegment(segment); result != "" {
		return result
	}
	return "head"
}

// dirChecksum hashes the relative path and contents of every file below
// path, ignoring git metadata.
func dirChecksum(path string) (string, error) {
	h := sha256.New()
	err := filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(path, p)
		if err != nil {
			return err
		}
		h.Write([]byte(filepath.ToSlash(rel)))
		h.Write(data)
		return nil
	})
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
