package installers

import (
	"context"
	"strings"

	"github.com/pirakansa/kitup/internal/executor"
	"github.com/pirakansa/kitup/pkg/manifest"
)

// nixEnv sources the nix daemon profile so nix is on PATH.
const nixEnv = ". " + manifest.NixDaemonProfile + " && "

type NixInstaller struct {
	base
	pkg manifest.NixPackage
}

func NewNixInstaller(pkg manifest.NixPackage, exec executor.Executor) *NixInstaller {
	i := &NixInstaller{
		base: newBase(pkg.Name, exec, []string{manifest.NixToolName}, pkg.DependsOn),
		pkg:  pkg,
	}
	i.preinstall = str(pkg.Preinstall)
	i.postinstall = str(pkg.Postinstall)
	i.versionCheck = str(pkg.VersionCheck)
	i.hookPrefix = nixEnv
	return i
}

func (i *NixInstaller) Provider() manifest.Provider { return manifest.ProviderNix }

func (i *NixInstaller) Install(ctx context.Context) error {
	i.logInstall(ctx, manifest.ProviderNix)
	if err := i.hook(ctx, "preinstall", i.preinstall); err != nil {
		return err
	}
	if err := i.run(ctx, executor.Command{Shell: "bash", Script: i.command()}); err != nil {
		return err
	}
	return i.hook(ctx, "postinstall", i.postinstall)
}

func (i *NixInstaller) command() string {
	args := []string{"nix", "profile", "install"}
	if manifest.Value(i.pkg.Impure, false) {
		args = append(args, "--impure")
	}
	if features := str(i.pkg.ExperimentalFeatures); features != "" {
		args = append(args, "--experimental-features", `"`+features+`"`)
	}
	if manifest.Value(i.pkg.AcceptFlakeConfig, false) {
		args = append(args, "--accept-flake-config")
	}
	args = append(args, executor.Quote(i.pkg.Flake))
	return nixEnv + strings.Join(args, " ")
}
