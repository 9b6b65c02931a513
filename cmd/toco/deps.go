package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/NewProggie/Toco/pkg/driver"
)

func runDeps(args []string, flags commonFlags) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "toco deps expects a subcommand (install)")
		return 1
	}
	switch args[0] {
	case "install":
		if len(args) > 1 {
			fmt.Fprintf(os.Stderr, "toco deps install does not take arguments (received %s)\n", strings.Join(args[1:], " "))
			return 1
		}
		return runDepsInstall(flags)
	default:
		fmt.Fprintf(os.Stderr, "unknown deps subcommand %q\n", args[0])
		return 1
	}
}

func runDepsInstall(flags commonFlags) int {
	project, err := driver.OpenProject(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load manifest: %v\n", err)
		return 1
	}
	if err := setupTracing(resolveSettings(project.Manifest, flags).trace); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	cacheDir, err := driver.DefaultCacheDir()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	lock, err := driver.NewInstaller(cacheDir, cliToolVersion).Install(context.Background(), project.Manifest)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := driver.WriteLockfile(lock, ""); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	for _, pkg := range lock.Packages {
		fmt.Fprintf(os.Stdout, "locked %s %s\n", pkg.Name, pkg.Version)
	}
	fmt.Fprintf(os.Stdout, "wrote %s (%d packages)\n", lock.Path, len(lock.Packages))
	return 0
}
