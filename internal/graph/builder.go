package graph

import (
	"context"

	"github.com/pirakansa/kitup/internal/executor"
	"github.com/pirakansa/kitup/internal/installers"
	"github.com/pirakansa/kitup/internal/osinfo"
	"github.com/pirakansa/kitup/pkg/manifest"
)

// Build turns the install sections of cfg into a wired graph whose
// installers run on exec. The generic install section is resolved with
// the provider of the OS reported by id. cfg is not modified.
func Build(ctx context.Context, cfg *manifest.Configuration, exec executor.Executor, id osinfo.Identifier) (*InstallerGraph, []installers.Installer, error) {
	generic, err := materialize(ctx, cfg, id)
	if err != nil {
		return nil, nil, err
	}

	g := New()
	add := func(inst installers.Installer) {
		g.AddVertex(NewVertex(inst))
	}

	for _, script := range BootstrapScripts(cfg, generic) {
		add(installers.NewCurlInstaller(script, exec))
	}

	explicitApt := cfg.AptPackages()
	for _, pkg := range generic.Apt {
		if !explicitApt.Has(pkg.Name) {
			add(installers.NewAptInstaller(pkg, exec))
		}
	}
	for _, pkg := range explicitApt {
		add(installers.NewAptInstaller(pkg, exec))
	}
	for _, script := range cfg.CurlScripts() {
		add(installers.NewCurlInstaller(script, exec))
	}
	for _, repo := range cfg.GitRepositories() {
		add(installers.NewGitInstaller(repo, exec))
	}
	for _, pkg := range cfg.NixPackages() {
		add(installers.NewNixInstaller(pkg, exec))
	}
	for _, provider := range manifest.SystemProviders {
		explicit := cfg.SystemPackages(provider)
		if generic.Provider == provider {
			for _, pkg := range generic.System {
				if !explicit.Has(pkg.Name) {
					add(installers.NewSystemInstaller(provider, pkg, exec))
				}
			}
		}
		for _, pkg := range explicit {
			add(installers.NewSystemInstaller(provider, pkg, exec))
		}
	}
	for _, pkg := range cfg.FleekPackages() {
		add(installers.NewFleekInstaller(pkg, exec))
	}
	for _, pkg := range cfg.HomeManagerPackages() {
		add(installers.NewHomeManagerInstaller(pkg, exec))
	}
	explicitBrew := cfg.BrewPackages()
	for _, pkg := range generic.Brew {
		if !explicitBrew.Has(pkg.Name) {
			add(installers.NewBrewInstaller(pkg, exec))
		}
	}
	for _, pkg := range explicitBrew {
		add(installers.NewBrewInstaller(pkg, exec))
	}
	for _, name := range cfg.Packages {
		add(installers.NewHomeManagerInstaller(manifest.ProfilePackage{Name: name, Packages: []string{name}}, exec))
	}

	g.Wire()
	return g, g.Installers(), nil
}

func materialize(ctx context.Context, cfg *manifest.Configuration, id osinfo.Identifier) (manifest.Materialized, error) {
	if cfg.Install == nil || len(cfg.Install.Pkg)+len(cfg.Install.Packages) == 0 {
		return manifest.Materialized{}, nil
	}
	osID, err := id.Identify(ctx)
	if err != nil {
		return manifest.Materialized{}, err
	}
	provider, err := osinfo.ProviderFor(osID)
	if err != nil {
		return manifest.Materialized{}, err
	}
	return cfg.Install.Materialize(provider), nil
}

// BootstrapScripts returns the curl scripts that install nix and homebrew
// when cfg needs them and does not declare its own.
func BootstrapScripts(cfg *manifest.Configuration, generic manifest.Materialized) []manifest.CurlScript {
	var out []manifest.CurlScript
	declared := cfg.CurlScripts()
	if cfg.NeedsNix() && !declared.Has(manifest.NixToolName) {
		out = append(out, manifest.DefaultNixInstaller())
	}
	needsBrew := cfg.NeedsHomebrew() || len(generic.Brew) > 0
	if needsBrew && !declared.Has(manifest.HomebrewToolName) && !declared.Has("brew") {
		out = append(out, manifest.DefaultHomebrewInstaller())
	}
	return out
}
