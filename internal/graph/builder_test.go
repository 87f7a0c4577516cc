package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pirakansa/kitup/internal/executor/executortest"
	"github.com/pirakansa/kitup/internal/installers"
	"github.com/pirakansa/kitup/internal/osinfo"
	"github.com/pirakansa/kitup/pkg/manifest"
)

func names(g *InstallerGraph) []string {
	var out []string
	for _, v := range g.Vertices() {
		out = append(out, v.Name)
	}
	return out
}

func install[T any](entries ...T) manifest.Entries[T] {
	return entries
}

func TestBuildInjectsNixFirst(t *testing.T) {
	cfg := &manifest.Configuration{
		Nix: install(manifest.NixConfiguration{Name: manifest.InstallLabel, Pkg: install(
			manifest.NixPackage{Name: "devenv", Flake: "github:cachix/devenv/latest", DependsOn: []string{"cachix"}},
			manifest.NixPackage{Name: "cachix", Flake: "github:cachix/cachix"},
		)}),
	}
	g, insts, err := Build(context.Background(), cfg, executortest.New(), osinfo.Static("ubuntu"))
	require.NoError(t, err)

	assert.Equal(t, []string{"nix", "devenv", "cachix"}, names(g))
	assert.Len(t, insts, 3)
	assert.IsType(t, &installers.CurlInstaller{}, insts[0])
	assert.ElementsMatch(t, []Edge{{From: 1, To: 0}, {From: 1, To: 2}, {From: 2, To: 0}}, g.Edges())
}

func TestBuildDoesNotDuplicateDeclaredBootstrap(t *testing.T) {
	declared := manifest.DefaultNixInstaller()
	declared.Args = manifest.Ptr("install linux --no-confirm")
	cfg := &manifest.Configuration{
		Packages: []string{"hello"},
		Curl:     install(manifest.CurlConfiguration{Name: manifest.InstallLabel, Script: install(declared)}),
	}

	g, _, err := Build(context.Background(), cfg, executortest.New(), osinfo.Static("ubuntu"))
	require.NoError(t, err)
	assert.Equal(t, []string{"nix", "hello"}, names(g))

	again, _, err := Build(context.Background(), cfg, executortest.New(), osinfo.Static("ubuntu"))
	require.NoError(t, err)
	assert.Equal(t, names(g), names(again))
}

func TestBuildInjectsHomebrewForBrewPackages(t *testing.T) {
	cfg := &manifest.Configuration{
		Brew: install(manifest.BrewConfiguration{
			Name: manifest.InstallLabel,
			Pkg: install(manifest.BrewPackage{
				Name:         "kubernetes-cli",
				VersionCheck: manifest.Ptr("kubectl version --client"),
			}),
		}),
	}
	g, _, err := Build(context.Background(), cfg, executortest.New(), osinfo.Static("darwin"))
	require.NoError(t, err)
	assert.Equal(t, []string{"homebrew", "kubernetes-cli"}, names(g))
	assert.Equal(t, []Edge{{From: 1, To: 0}}, g.Edges())
}

func TestBuildResolvesGenericSectionForOS(t *testing.T) {
	cfg := &manifest.Configuration{
		Install: &manifest.InstallConfiguration{
			Packages: []string{"git", "tmux"},
			Pkg:      install(manifest.GenericPackage{Name: "vim"}),
		},
		Apt: install(manifest.AptConfiguration{Name: manifest.InstallLabel, Pkg: install(
			manifest.AptPackage{Name: "git", Packages: []string{"git", "git-lfs"}},
		)}),
	}
	rec := executortest.New()

	g, _, err := Build(context.Background(), cfg, rec, osinfo.Static("ubuntu"))
	require.NoError(t, err)
	assert.Equal(t, []string{"vim", "tmux", "git"}, names(g))
	for _, v := range g.Vertices() {
		assert.Equal(t, manifest.ProviderApt, v.Provider)
	}
	assert.Equal(t, "apt-get install git git-lfs", installers.Describe(g.Vertices()[2].Installer))

	g, _, err = Build(context.Background(), cfg, rec, osinfo.Static("fedora"))
	require.NoError(t, err)
	assert.Equal(t, []string{"git", "vim", "git", "tmux"}, names(g))
	assert.Equal(t, manifest.ProviderDnf, g.Vertices()[1].Provider)

	g, _, err = Build(context.Background(), cfg, rec, osinfo.Static("darwin"))
	require.NoError(t, err)
	assert.Equal(t, []string{"homebrew", "git", "vim", "git", "tmux"}, names(g))
	assert.Equal(t, manifest.ProviderBrew, g.Vertices()[2].Provider)
}

func TestBuildUnsupportedOS(t *testing.T) {
	cfg := &manifest.Configuration{Install: &manifest.InstallConfiguration{Packages: []string{"git"}}}
	_, _, err := Build(context.Background(), cfg, executortest.New(), osinfo.Static("plan9"))

	var unsupported *manifest.UnsupportedOSError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "plan9", unsupported.ID)
}

func TestBuildSkipsOSDetectionWithoutGenericSection(t *testing.T) {
	cfg := &manifest.Configuration{Install: &manifest.InstallConfiguration{}}
	g, _, err := Build(context.Background(), cfg, executortest.New(), osinfo.Static("plan9"))
	require.NoError(t, err)
	assert.Zero(t, g.Len())
}

func TestBuildFlatPackagesUseHomeManager(t *testing.T) {
	cfg := &manifest.Configuration{Packages: []string{"ripgrep", "fd"}}
	g, _, err := Build(context.Background(), cfg, executortest.New(), osinfo.Static("ubuntu"))
	require.NoError(t, err)

	assert.Equal(t, []string{"nix", "ripgrep", "fd"}, names(g))
	assert.Equal(t, manifest.ProviderHomeManager, g.Vertices()[1].Provider)
	assert.Equal(t, []Edge{{From: 1, To: 0}, {From: 2, To: 0}}, g.Edges())
}

func TestBuildProviderOrder(t *testing.T) {
	system := func(name string) manifest.Entries[manifest.SystemConfiguration] {
		return install(manifest.SystemConfiguration{Name: manifest.InstallLabel, Pkg: install(manifest.SystemPackage{Name: name})})
	}
	profile := func(name string) manifest.Entries[manifest.ProfileConfiguration] {
		return install(manifest.ProfileConfiguration{Name: manifest.InstallLabel, Pkg: install(manifest.ProfilePackage{Name: name})})
	}
	cfg := &manifest.Configuration{
		Brew:        install(manifest.BrewConfiguration{Name: manifest.InstallLabel, Pkgs: []string{"jq"}}),
		Apt:         install(manifest.AptConfiguration{Name: manifest.InstallLabel, Pkg: install(manifest.AptPackage{Name: "build-essential"})}),
		Curl:        install(manifest.CurlConfiguration{Name: manifest.InstallLabel, Script: install(tool("atuin"))}),
		Git:         install(manifest.GitConfiguration{Name: manifest.InstallLabel, Repo: install(manifest.GitRepository{Name: "blesh", URL: "u", Install: "i"})}),
		Nix:         install(manifest.NixConfiguration{Name: manifest.InstallLabel, Pkg: install(manifest.NixPackage{Name: "devbox", Flake: "f"})}),
		Yum:         system("yum-tool"),
		Dnf:         system("dnf-tool"),
		Zypper:      system("zypper-tool"),
		Apk:         system("apk-tool"),
		Pacman:      system("pacman-tool"),
		Emerge:      system("emerge-tool"),
		Slackpkg:    system("slackpkg-tool"),
		Fleek:       profile("fleek-tool"),
		HomeManager: profile("hm-tool"),
		Packages:    []string{"hello"},
	}
	g, _, err := Build(context.Background(), cfg, executortest.New(), osinfo.Static("ubuntu"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"nix", "homebrew",
		"build-essential", "atuin", "blesh", "devbox",
		"yum-tool", "dnf-tool", "zypper-tool", "apk-tool", "pacman-tool", "emerge-tool", "slackpkg-tool",
		"fleek-tool", "hm-tool", "jq", "hello",
	}, names(g))
}

func TestBuildDoesNotModifyConfiguration(t *testing.T) {
	cfg := &manifest.Configuration{
		Packages: []string{"hello"},
		Install:  &manifest.InstallConfiguration{Packages: []string{"git"}},
		Brew:     install(manifest.BrewConfiguration{Name: manifest.InstallLabel, Pkgs: []string{"jq"}}),
	}
	before := cfg.Clone()

	_, _, err := Build(context.Background(), cfg, executortest.New(), osinfo.Static("ubuntu"))
	require.NoError(t, err)
	assert.Equal(t, before, cfg)
	assert.Nil(t, cfg.Curl)
}

func TestBuildIgnoresSectionsWithOtherLabels(t *testing.T) {
	cfg := &manifest.Configuration{
		Brew: install(manifest.BrewConfiguration{Name: "later", Pkgs: []string{"jq"}}),
	}
	g, _, err := Build(context.Background(), cfg, executortest.New(), osinfo.Static("ubuntu"))
	require.NoError(t, err)
	assert.Zero(t, g.Len())
}
