package manifest

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/mattn/go-shellwords"
)

// InstallLabel is the section label the installer reads.
const InstallLabel = "install"

// ConfigBaseName and InventoryBaseName are the file stems searched in the
// working directory, in the order of ConfigExtensions.
const (
	ConfigBaseName    = "Kitfile"
	InventoryBaseName = "Inventory"
)

var ConfigExtensions = []string{".hcl", ".toml", ".yaml", ".yml"}

func IsRemoteConfigLocation(value string) bool {
	parsed, err := url.Parse(strings.TrimSpace(value))
	if err != nil {
		return false
	}
	return parsed.Scheme == "http" || parsed.Scheme == "https"
}

// Clone returns a copy whose section lists can be changed without
// affecting c. Entry values are shared and treated as read-only.
func (c *Configuration) Clone() *Configuration {
	if c == nil {
		return nil
	}
	out := *c
	out.Packages = slices.Clone(c.Packages)
	if c.Install != nil {
		install := *c.Install
		install.Packages = slices.Clone(c.Install.Packages)
		install.Pkg = slices.Clone(c.Install.Pkg)
		out.Install = &install
	}
	out.Apt = slices.Clone(c.Apt)
	out.Brew = slices.Clone(c.Brew)
	out.Curl = slices.Clone(c.Curl)
	out.Git = slices.Clone(c.Git)
	out.Nix = slices.Clone(c.Nix)
	out.Yum = slices.Clone(c.Yum)
	out.Dnf = slices.Clone(c.Dnf)
	out.Zypper = slices.Clone(c.Zypper)
	out.Apk = slices.Clone(c.Apk)
	out.Pacman = slices.Clone(c.Pacman)
	out.Emerge = slices.Clone(c.Emerge)
	out.Slackpkg = slices.Clone(c.Slackpkg)
	out.Fleek = slices.Clone(c.Fleek)
	out.HomeManager = slices.Clone(c.HomeManager)
	return &out
}

// Section returns the entries of the section labeled InstallLabel, or nil.
func Section[S any, T any](sections Entries[S], entries func(S) Entries[T]) Entries[T] {
	section, ok := sections.Get(InstallLabel)
	if !ok {
		return nil
	}
	return entries(section)
}

func (c *Configuration) AptPackages() Entries[AptPackage] {
	return Section(c.Apt, func(s AptConfiguration) Entries[AptPackage] { return s.Pkg })
}

func (c *Configuration) BrewPackages() Entries[BrewPackage] {
	section, ok := c.Brew.Get(InstallLabel)
	if !ok {
		return nil
	}
	out := slices.Clone(section.Pkg)
	for _, name := range section.Pkgs {
		if !out.Has(name) {
			out = append(out, BrewPackage{Name: name})
		}
	}
	return out
}

func (c *Configuration) CurlScripts() Entries[CurlScript] {
	return Section(c.Curl, func(s CurlConfiguration) Entries[CurlScript] { return s.Script })
}

func (c *Configuration) GitRepositories() Entries[GitRepository] {
	return Section(c.Git, func(s GitConfiguration) Entries[GitRepository] { return s.Repo })
}

func (c *Configuration) NixPackages() Entries[NixPackage] {
	return Section(c.Nix, func(s NixConfiguration) Entries[NixPackage] { return s.Pkg })
}

func (c *Configuration) FleekPackages() Entries[ProfilePackage] {
	return Section(c.Fleek, profileEntries)
}

func (c *Configuration) HomeManagerPackages() Entries[ProfilePackage] {
	return Section(c.HomeManager, profileEntries)
}

func profileEntries(s ProfileConfiguration) Entries[ProfilePackage] { return s.Pkg }

// SystemPackages returns the install section of a distribution package
// manager that has no dedicated section type.
func (c *Configuration) SystemPackages(provider Provider) Entries[SystemPackage] {
	var sections Entries[SystemConfiguration]
	switch provider {
	case ProviderYum:
		sections = c.Yum
	case ProviderDnf:
		sections = c.Dnf
	case ProviderZypper:
		sections = c.Zypper
	case ProviderApk:
		sections = c.Apk
	case ProviderPacman:
		sections = c.Pacman
	case ProviderEmerge:
		sections = c.Emerge
	case ProviderSlackpkg:
		sections = c.Slackpkg
	default:
		return nil
	}
	return Section(sections, func(s SystemConfiguration) Entries[SystemPackage] { return s.Pkg })
}

// SystemProviders lists the providers served by SystemPackages, in plan
// order.
var SystemProviders = []Provider{
	ProviderYum, ProviderDnf, ProviderZypper, ProviderApk, ProviderPacman, ProviderEmerge, ProviderSlackpkg,
}

// NeedsNix reports whether any install entry relies on a nix installation.
func (c *Configuration) NeedsNix() bool {
	return len(c.Packages) > 0 ||
		len(c.NixPackages()) > 0 ||
		len(c.FleekPackages()) > 0 ||
		len(c.HomeManagerPackages()) > 0
}

// NeedsHomebrew reports whether any install entry relies on brew.
func (c *Configuration) NeedsHomebrew() bool {
	return len(c.BrewPackages()) > 0
}

func ValidateConfiguration(cfg *Configuration) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}
	hooks := func(kind, name string, scripts ...*string) {
		for _, script := range scripts {
			if err := validateScript(script); err != nil {
				add("%s %q: %v", kind, name, err)
			}
		}
	}
	setup := func(kind, name string, script *string) {
		if script == nil {
			return
		}
		joined := strings.ReplaceAll(*script, "\\\n", " ")
		if err := validateScript(&joined); err != nil {
			add("%s %q: setup_repository: %v", kind, name, err)
		}
	}

	if cfg.Install != nil {
		checkUnique("install.pkg", cfg.Install.Pkg.Names(), add)
		for _, pkg := range cfg.Install.Pkg {
			setup("install.pkg", pkg.Name, pkg.SetupRepository)
			hooks("install.pkg", pkg.Name, pkg.Preinstall, pkg.Postinstall, pkg.VersionCheck)
		}
	}
	checkUnique("apt.pkg", cfg.AptPackages().Names(), add)
	for _, pkg := range cfg.AptPackages() {
		if (pkg.GPGKey == nil) != (pkg.GPGPath == nil) {
			add("apt.pkg %q: gpg_key and gpg_path must be set together", pkg.Name)
		}
		setup("apt.pkg", pkg.Name, pkg.SetupRepository)
		hooks("apt.pkg", pkg.Name, pkg.Preinstall, pkg.Postinstall, pkg.VersionCheck)
	}
	checkUnique("brew.pkg", cfg.BrewPackages().Names(), add)
	for _, pkg := range cfg.BrewPackages() {
		hooks("brew.pkg", pkg.Name, pkg.Preinstall, pkg.Postinstall, pkg.VersionCheck)
	}
	checkUnique("curl.script", cfg.CurlScripts().Names(), add)
	for _, script := range cfg.CurlScripts() {
		if strings.TrimSpace(script.URL) == "" {
			add("curl.script %q: url is required", script.Name)
		}
		hooks("curl.script", script.Name, script.Postinstall, script.VersionCheck)
	}
	checkUnique("git.repo", cfg.GitRepositories().Names(), add)
	for _, repo := range cfg.GitRepositories() {
		if strings.TrimSpace(repo.URL) == "" {
			add("git.repo %q: url is required", repo.Name)
		}
		if strings.TrimSpace(repo.Install) == "" {
			add("git.repo %q: install is required", repo.Name)
		}
		if repo.Depth != nil && *repo.Depth < 1 {
			add("git.repo %q: depth must be positive", repo.Name)
		}
		hooks("git.repo", repo.Name, &repo.Install, repo.Preinstall, repo.Postinstall)
	}
	checkUnique("nix.pkg", cfg.NixPackages().Names(), add)
	for _, pkg := range cfg.NixPackages() {
		if strings.TrimSpace(pkg.Flake) == "" {
			add("nix.pkg %q: flake is required", pkg.Name)
		}
		hooks("nix.pkg", pkg.Name, pkg.Preinstall, pkg.Postinstall, pkg.VersionCheck)
	}
	for _, provider := range SystemProviders {
		kind := string(provider) + ".pkg"
		checkUnique(kind, cfg.SystemPackages(provider).Names(), add)
		for _, pkg := range cfg.SystemPackages(provider) {
			hooks(kind, pkg.Name, pkg.Preinstall, pkg.Postinstall, pkg.VersionCheck)
		}
	}
	for kind, entries := range map[string]Entries[ProfilePackage]{
		"fleek.pkg":        cfg.FleekPackages(),
		"home_manager.pkg": cfg.HomeManagerPackages(),
	} {
		checkUnique(kind, entries.Names(), add)
		for _, pkg := range entries {
			hooks(kind, pkg.Name, pkg.Postinstall, pkg.VersionCheck)
		}
	}

	if len(problems) == 0 {
		return nil
	}
	slices.Sort(problems)
	return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
}

func checkUnique(kind string, names []string, add func(string, ...any)) {
	seen := map[string]bool{}
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			add("%s: entry name must not be empty", kind)
			continue
		}
		if seen[name] {
			add("%s %q: declared more than once", kind, name)
		}
		seen[name] = true
	}
}

// validateScript checks that every non-blank line of a hook parses as a
// shell command line.
func validateScript(script *string) error {
	if script == nil {
		return nil
	}
	for _, line := range ScriptLines(*script) {
		if _, err := shellwords.Parse(line); err != nil {
			return fmt.Errorf("cannot parse %q: %w", line, err)
		}
	}
	return nil
}

// ScriptLines splits a hook into its non-blank lines.
func ScriptLines(script string) []string {
	var lines []string
	for _, line := range strings.Split(script, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, strings.TrimSpace(line))
	}
	return lines
}

func ValidateInventory(inv *Inventory) error {
	if len(inv.Server) == 0 {
		return fmt.Errorf("inventory has no servers")
	}
	seen := map[string]bool{}
	for _, server := range inv.Server {
		if seen[server.Name] {
			return fmt.Errorf("server %q declared more than once", server.Name)
		}
		seen[server.Name] = true
		if strings.TrimSpace(server.Host) == "" {
			return fmt.Errorf("server %q: host is required", server.Name)
		}
		if strings.TrimSpace(server.Username) == "" {
			return fmt.Errorf("server %q: username is required", server.Name)
		}
		if server.Port != nil && (*server.Port < 1 || *server.Port > 65535) {
			return fmt.Errorf("server %q: port %d out of range", server.Name, *server.Port)
		}
	}
	return nil
}
