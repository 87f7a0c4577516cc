package installers

import (
	"context"
	"path"
	"strings"

	"github.com/pirakansa/kitup/internal/executor"
	"github.com/pirakansa/kitup/pkg/manifest"
)

type AptInstaller struct {
	base
	pkg manifest.AptPackage
}

func NewAptInstaller(pkg manifest.AptPackage, exec executor.Executor) *AptInstaller {
	i := &AptInstaller{base: newBase(pkg.Name, exec), pkg: pkg}
	i.preinstall = str(pkg.Preinstall)
	i.postinstall = str(pkg.Postinstall)
	i.versionCheck = str(pkg.VersionCheck)
	return i
}

func (i *AptInstaller) Provider() manifest.Provider { return manifest.ProviderApt }

func (i *AptInstaller) Install(ctx context.Context) error {
	i.logInstall(ctx, manifest.ProviderApt)
	if i.pkg.GPGKey != nil && i.pkg.GPGPath != nil {
		if err := i.installKey(ctx, *i.pkg.GPGKey, *i.pkg.GPGPath); err != nil {
			return err
		}
	}
	if setup := str(i.pkg.SetupRepository); strings.TrimSpace(setup) != "" {
		if err := i.run(ctx, executor.Command{Shell: hookShell, Script: setup}); err != nil {
			return err
		}
	}
	if manifest.Value(i.pkg.AptUpdate, false) {
		if err := i.sh(ctx, "sudo apt-get update"); err != nil {
			return err
		}
	}
	if len(i.pkg.DependsOn) > 0 {
		if err := i.sh(ctx, "sudo apt-get install -y "+strings.Join(i.pkg.DependsOn, " ")); err != nil {
			return err
		}
	}
	if err := i.hook(ctx, "preinstall", i.preinstall); err != nil {
		return err
	}
	if url := str(i.pkg.URL); url != "" {
		if err := i.installDeb(ctx, url); err != nil {
			return err
		}
	} else if err := i.sh(ctx, "sudo apt-get install -y "+strings.Join(packagesOrName(i.pkg.Packages, i.name), " ")); err != nil {
		return err
	}
	return i.hook(ctx, "postinstall", i.postinstall)
}

// installKey stores the dearmored key at dest, creating the keyring
// directory first.
func (i *AptInstaller) installKey(ctx context.Context, url, dest string) error {
	for _, script := range []string{
		"sudo install -m 0755 -d " + executor.Quote(path.Dir(dest)),
		"curl -fsSL " + executor.Quote(url) + " | sudo gpg --dearmor --yes -o " + executor.Quote(dest),
		"sudo chmod a+r " + executor.Quote(dest),
	} {
		if err := i.sh(ctx, script); err != nil {
			return err
		}
	}
	return nil
}

func (i *AptInstaller) installDeb(ctx context.Context, url string) error {
	deb := executor.Quote(i.name + ".deb")
	for _, script := range []string{
		"wget -c " + executor.Quote(url) + " -O " + deb,
		"sudo apt-get install -y ./" + deb,
		"rm -f " + deb,
	} {
		if err := i.sh(ctx, script); err != nil {
			return err
		}
	}
	return nil
}
