package installers

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pirakansa/kitup/internal/executor"
	"github.com/pirakansa/kitup/internal/logutil"
	"github.com/pirakansa/kitup/pkg/manifest"
)

const (
	homeNixPath = `"$HOME/.config/home-manager/home.nix"`
	// heredocMarker terminates the home.nix heredoc written back to the host.
	heredocMarker = "KITUP_HOME_NIX"
)

type HomeManagerInstaller struct {
	base
	pkg manifest.ProfilePackage
}

func NewHomeManagerInstaller(pkg manifest.ProfilePackage, exec executor.Executor) *HomeManagerInstaller {
	i := &HomeManagerInstaller{base: newBase(pkg.Name, exec, []string{manifest.NixToolName}), pkg: pkg}
	i.postinstall = str(pkg.Postinstall)
	i.versionCheck = str(pkg.VersionCheck)
	return i
}

func (i *HomeManagerInstaller) Provider() manifest.Provider { return manifest.ProviderHomeManager }

// Install adds the dependencies and packages to home.packages in one edit
// and applies the profile with home-manager switch.
func (i *HomeManagerInstaller) Install(ctx context.Context) error {
	i.logInstall(ctx, manifest.ProviderHomeManager)
	if err := i.ensureHomeNix(ctx); err != nil {
		return err
	}

	content, err := i.exec.Output(ctx, executor.Command{Script: "cat " + homeNixPath})
	if err != nil {
		return fmt.Errorf("%s: read home.nix: %w", i.name, err)
	}
	pkgs := append(append([]string{}, i.pkg.DependsOn...), packagesOrName(i.pkg.Packages, i.name)...)
	updated, changed, err := AddHomePackages(content, pkgs)
	if err != nil {
		return fmt.Errorf("%s: %w", i.name, err)
	}
	if changed {
		logutil.FromContext(ctx).Info("updating home.nix", zap.String("tool", i.name), zap.Strings("packages", pkgs))
		if err := i.sh(ctx, writeFileScript(homeNixPath, updated)); err != nil {
			return err
		}
	}

	if manifest.Value(i.pkg.Apply, true) {
		if err := i.run(ctx, executor.Command{Shell: "bash", Script: nixEnv + "home-manager switch"}); err != nil {
			return err
		}
	}
	return i.hook(ctx, "postinstall", i.postinstall)
}

func (i *HomeManagerInstaller) ensureHomeNix(ctx context.Context) error {
	err := i.exec.Run(ctx, executor.Command{Script: "test -f " + homeNixPath})
	if err == nil {
		return nil
	}
	if !executor.IsExitError(err) {
		return fmt.Errorf("%s: %w", i.name, err)
	}
	return i.run(ctx, executor.Command{Shell: "bash", Script: nixEnv + "nix run home-manager/master -- init"})
}

func writeFileScript(path, content string) string {
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return "cat > " + path + " <<'" + heredocMarker + "'\n" + content + heredocMarker
}
