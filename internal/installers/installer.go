// Package installers holds one installer type per provider. Each turns a
// configuration entry into the shell commands that install it on an
// executor.Executor.
package installers

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/pirakansa/kitup/internal/executor"
	"github.com/pirakansa/kitup/internal/logutil"
	"github.com/pirakansa/kitup/pkg/manifest"
)

// LatestVersion is reported by every installer; versions are not pinned.
const LatestVersion = "latest"

// Installer installs one named tool. The set of implementations is closed
// to this package.
type Installer interface {
	Name() string
	Version() string
	Provider() manifest.Provider
	// Dependencies names the tools that must be installed first.
	Dependencies() []string
	Status(ctx context.Context) (Status, error)
	Install(ctx context.Context) error

	sealed()
}

type Status int

const (
	// StatusUnknown means no check is configured; the tool is installed.
	StatusUnknown Status = iota
	StatusInstalled
	StatusNotInstalled
)

func (s Status) String() string {
	switch s {
	case StatusInstalled:
		return "installed"
	case StatusNotInstalled:
		return "not installed"
	default:
		return "unknown"
	}
}

// base carries what every installer shares: identity, dependencies, the
// executor, hooks and the status check.
type base struct {
	name         string
	dependencies []string
	exec         executor.Executor

	preinstall   string
	postinstall  string
	versionCheck string
	checkEnv     map[string]string
	// hookPrefix is prepended to every hook line.
	hookPrefix string
}

func newBase(name string, exec executor.Executor, dependencies ...[]string) base {
	var deps []string
	for _, list := range dependencies {
		for _, dep := range list {
			if dep != "" && !slices.Contains(deps, dep) {
				deps = append(deps, dep)
			}
		}
	}
	return base{name: name, dependencies: deps, exec: exec}
}

func (b *base) Name() string           { return b.name }
func (b *base) Version() string        { return LatestVersion }
func (b *base) Dependencies() []string { return slices.Clone(b.dependencies) }
func (b *base) sealed()                {}

func (b *base) Status(ctx context.Context) (Status, error) {
	if strings.TrimSpace(b.versionCheck) == "" {
		return StatusUnknown, nil
	}
	out, err := b.exec.Output(ctx, executor.Command{Script: b.versionCheck, Env: b.checkEnv})
	switch {
	case err == nil:
		logutil.FromContext(ctx).Debug("version check passed",
			zap.String("tool", b.name), zap.String("output", strings.TrimSpace(out)))
		return StatusInstalled, nil
	case executor.IsExitError(err):
		return StatusNotInstalled, nil
	default:
		return StatusUnknown, fmt.Errorf("%s: version check: %w", b.name, err)
	}
}

// run executes one command and names the tool in the error.
func (b *base) run(ctx context.Context, cmd executor.Command) error {
	if err := b.exec.Run(ctx, cmd); err != nil {
		return fmt.Errorf("%s: %w", b.name, err)
	}
	return nil
}

func (b *base) sh(ctx context.Context, script string) error {
	return b.run(ctx, executor.Command{Script: script})
}

// hookShell runs user supplied scripts: hooks and apt setup_repository.
const hookShell = "bash"

// hook runs script line by line under bash and stops at the first failing
// line.
func (b *base) hook(ctx context.Context, phase, script string) error {
	lines := manifest.ScriptLines(script)
	if len(lines) == 0 {
		return nil
	}
	logutil.FromContext(ctx).Info("running "+phase, zap.String("tool", b.name))
	for _, line := range lines {
		if err := b.exec.Run(ctx, executor.Command{Shell: hookShell, Script: b.hookPrefix + line}); err != nil {
			return fmt.Errorf("%s %s: %w", b.name, phase, err)
		}
	}
	return nil
}

func (b *base) logInstall(ctx context.Context, provider manifest.Provider) {
	logutil.FromContext(ctx).Info("installing",
		zap.String("tool", b.name), zap.Stringer("provider", provider))
}

func packagesOrName(packages []string, name string) []string {
	if len(packages) == 0 {
		return []string{name}
	}
	return packages
}

func str(p *string) string {
	return manifest.Value(p, "")
}
