package installers

import (
	"context"
	"strings"

	"github.com/pirakansa/kitup/internal/executor"
	"github.com/pirakansa/kitup/pkg/manifest"
)

// system installs packages with a distribution package manager whose
// only per-provider difference is the install command line.
type system struct {
	base
	provider manifest.Provider
	packages []string
	deps     []string
	// command installs the main packages; depsCommand installs deps.
	command     string
	depsCommand string
}

func newSystem(provider manifest.Provider, pkg manifest.SystemPackage, exec executor.Executor, command, depsCommand string) system {
	s := system{
		base:        newBase(pkg.Name, exec),
		provider:    provider,
		packages:    packagesOrName(pkg.Packages, pkg.Name),
		deps:        pkg.DependsOn,
		command:     command,
		depsCommand: depsCommand,
	}
	s.preinstall = str(pkg.Preinstall)
	s.postinstall = str(pkg.Postinstall)
	s.versionCheck = str(pkg.VersionCheck)
	return s
}

func (s *system) Provider() manifest.Provider { return s.provider }

func (s *system) Install(ctx context.Context) error {
	s.logInstall(ctx, s.provider)
	if len(s.deps) > 0 {
		if err := s.sh(ctx, s.depsCommand+" "+strings.Join(s.deps, " ")); err != nil {
			return err
		}
	}
	if err := s.hook(ctx, "preinstall", s.preinstall); err != nil {
		return err
	}
	if err := s.sh(ctx, s.command+" "+strings.Join(s.packages, " ")); err != nil {
		return err
	}
	return s.hook(ctx, "postinstall", s.postinstall)
}

type YumInstaller struct{ system }

func NewYumInstaller(pkg manifest.SystemPackage, exec executor.Executor) *YumInstaller {
	const cmd = "sudo yum install -y"
	return &YumInstaller{newSystem(manifest.ProviderYum, pkg, exec, cmd, cmd)}
}

type DnfInstaller struct{ system }

func NewDnfInstaller(pkg manifest.SystemPackage, exec executor.Executor) *DnfInstaller {
	const cmd = "sudo dnf install -y"
	return &DnfInstaller{newSystem(manifest.ProviderDnf, pkg, exec, cmd, cmd)}
}

type ZypperInstaller struct{ system }

// NewZypperInstaller installs with zypper. NonInteractive defaults to true;
// dependencies are always installed non-interactively.
func NewZypperInstaller(pkg manifest.SystemPackage, exec executor.Executor) *ZypperInstaller {
	cmd := "sudo zypper install"
	if manifest.Value(pkg.NonInteractive, true) {
		cmd = "sudo zypper --non-interactive install"
	}
	return &ZypperInstaller{newSystem(manifest.ProviderZypper, pkg, exec, cmd, "sudo zypper --non-interactive install")}
}

type ApkInstaller struct{ system }

func NewApkInstaller(pkg manifest.SystemPackage, exec executor.Executor) *ApkInstaller {
	cmd := "sudo apk add"
	if manifest.Value(pkg.Interactive, false) {
		cmd += " --interactive"
	}
	return &ApkInstaller{newSystem(manifest.ProviderApk, pkg, exec, cmd, "sudo apk add")}
}

type PacmanInstaller struct{ system }

// NewPacmanInstaller installs with pacman. NonInteractive defaults to true.
func NewPacmanInstaller(pkg manifest.SystemPackage, exec executor.Executor) *PacmanInstaller {
	cmd := "sudo pacman -S"
	if manifest.Value(pkg.NonInteractive, true) {
		cmd += " --noconfirm"
	}
	return &PacmanInstaller{newSystem(manifest.ProviderPacman, pkg, exec, cmd, cmd)}
}

type EmergeInstaller struct{ system }

func NewEmergeInstaller(pkg manifest.SystemPackage, exec executor.Executor) *EmergeInstaller {
	cmd := "sudo emerge"
	if manifest.Value(pkg.Ask, false) {
		cmd += " --ask"
	}
	if manifest.Value(pkg.Verbose, false) {
		cmd += " --verbose"
	}
	return &EmergeInstaller{newSystem(manifest.ProviderEmerge, pkg, exec, cmd, cmd)}
}

type SlackpkgInstaller struct{ system }

func NewSlackpkgInstaller(pkg manifest.SystemPackage, exec executor.Executor) *SlackpkgInstaller {
	const cmd = "sudo slackpkg install"
	return &SlackpkgInstaller{newSystem(manifest.ProviderSlackpkg, pkg, exec, cmd, cmd)}
}

// NewSystemInstaller returns the installer for a distribution package
// manager, or nil when provider is not one.
func NewSystemInstaller(provider manifest.Provider, pkg manifest.SystemPackage, exec executor.Executor) Installer {
	switch provider {
	case manifest.ProviderYum:
		return NewYumInstaller(pkg, exec)
	case manifest.ProviderDnf:
		return NewDnfInstaller(pkg, exec)
	case manifest.ProviderZypper:
		return NewZypperInstaller(pkg, exec)
	case manifest.ProviderApk:
		return NewApkInstaller(pkg, exec)
	case manifest.ProviderPacman:
		return NewPacmanInstaller(pkg, exec)
	case manifest.ProviderEmerge:
		return NewEmergeInstaller(pkg, exec)
	case manifest.ProviderSlackpkg:
		return NewSlackpkgInstaller(pkg, exec)
	}
	return nil
}
