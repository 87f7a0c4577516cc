package installers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pirakansa/kitup/internal/executor"
	"github.com/pirakansa/kitup/pkg/manifest"
)

const fleekRun = nixEnv + "nix run github:ublue-os/fleek -- "

// ErrFleekNotInitialized is returned when ~/.fleek.yml is missing.
var ErrFleekNotInitialized = errors.New("fleek is not initialized, run `nix run github:ublue-os/fleek -- init` first")

type FleekInstaller struct {
	base
	pkg manifest.ProfilePackage
}

func NewFleekInstaller(pkg manifest.ProfilePackage, exec executor.Executor) *FleekInstaller {
	i := &FleekInstaller{base: newBase(pkg.Name, exec, []string{manifest.NixToolName}), pkg: pkg}
	i.postinstall = str(pkg.Postinstall)
	i.versionCheck = str(pkg.VersionCheck)
	return i
}

func (i *FleekInstaller) Provider() manifest.Provider { return manifest.ProviderFleek }

func (i *FleekInstaller) Install(ctx context.Context) error {
	i.logInstall(ctx, manifest.ProviderFleek)
	if err := i.exec.Run(ctx, executor.Command{Script: `test -f "$HOME/.fleek.yml"`}); err != nil {
		if executor.IsExitError(err) {
			return fmt.Errorf("%s: %w", i.name, ErrFleekNotInitialized)
		}
		return fmt.Errorf("%s: %w", i.name, err)
	}
	if len(i.pkg.DependsOn) > 0 {
		if err := i.run(ctx, executor.Command{Shell: "bash", Script: fleekRun + "add --apply " + strings.Join(i.pkg.DependsOn, " ")}); err != nil {
			return err
		}
	}
	add := "add "
	if manifest.Value(i.pkg.Apply, true) {
		add += "--apply "
	}
	script := fleekRun + add + strings.Join(packagesOrName(i.pkg.Packages, i.name), " ")
	if err := i.run(ctx, executor.Command{Shell: "bash", Script: script}); err != nil {
		return err
	}
	return i.hook(ctx, "postinstall", i.postinstall)
}
