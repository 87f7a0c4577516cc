package installers

import (
	"context"

	"github.com/pirakansa/kitup/internal/executor"
	"github.com/pirakansa/kitup/pkg/manifest"
)

type BrewInstaller struct {
	base
	cask bool
}

func NewBrewInstaller(pkg manifest.BrewPackage, exec executor.Executor) *BrewInstaller {
	i := &BrewInstaller{
		base: newBase(pkg.Name, exec, []string{manifest.HomebrewToolName}, pkg.DependsOn),
		cask: manifest.Value(pkg.Cask, false),
	}
	i.preinstall = str(pkg.Preinstall)
	i.postinstall = str(pkg.Postinstall)
	if check := str(pkg.VersionCheck); check != "" {
		i.versionCheck = manifest.BrewEnv + check
	}
	i.hookPrefix = manifest.BrewEnv
	return i
}

func (i *BrewInstaller) Provider() manifest.Provider { return manifest.ProviderBrew }

func (i *BrewInstaller) Install(ctx context.Context) error {
	i.logInstall(ctx, manifest.ProviderBrew)
	if err := i.hook(ctx, "preinstall", i.preinstall); err != nil {
		return err
	}
	if err := i.run(ctx, executor.Command{Script: manifest.BrewEnv + i.command()}); err != nil {
		return err
	}
	return i.hook(ctx, "postinstall", i.postinstall)
}

func (i *BrewInstaller) command() string {
	if i.cask {
		return "brew install --cask " + i.name
	}
	return "brew install " + i.name
}
