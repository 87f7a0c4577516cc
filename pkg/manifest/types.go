package manifest

// Configuration is the declarative tool set read from a Kitfile.
//
// Every provider section is keyed by a label; only the section labeled
// InstallLabel contributes vertices to an install plan.
type Configuration struct {
	Packages    []string                      `hcl:"packages,optional" yaml:"packages" toml:"packages"`
	Install     *InstallConfiguration         `hcl:"install,block" yaml:"install" toml:"install"`
	Apt         Entries[AptConfiguration]     `hcl:"apt,block" yaml:"apt" toml:"apt"`
	Brew        Entries[BrewConfiguration]    `hcl:"brew,block" yaml:"brew" toml:"brew"`
	Curl        Entries[CurlConfiguration]    `hcl:"curl,block" yaml:"curl" toml:"curl"`
	Git         Entries[GitConfiguration]     `hcl:"git,block" yaml:"git" toml:"git"`
	Nix         Entries[NixConfiguration]     `hcl:"nix,block" yaml:"nix" toml:"nix"`
	Yum         Entries[SystemConfiguration]  `hcl:"yum,block" yaml:"yum" toml:"yum"`
	Dnf         Entries[SystemConfiguration]  `hcl:"dnf,block" yaml:"dnf" toml:"dnf"`
	Zypper      Entries[SystemConfiguration]  `hcl:"zypper,block" yaml:"zypper" toml:"zypper"`
	Apk         Entries[SystemConfiguration]  `hcl:"apk,block" yaml:"apk" toml:"apk"`
	Pacman      Entries[SystemConfiguration]  `hcl:"pacman,block" yaml:"pacman" toml:"pacman"`
	Emerge      Entries[SystemConfiguration]  `hcl:"emerge,block" yaml:"emerge" toml:"emerge"`
	Slackpkg    Entries[SystemConfiguration]  `hcl:"slackpkg,block" yaml:"slackpkg" toml:"slackpkg"`
	Fleek       Entries[ProfileConfiguration] `hcl:"fleek,block" yaml:"fleek" toml:"fleek"`
	HomeManager Entries[ProfileConfiguration] `hcl:"home_manager,block" yaml:"home_manager" toml:"home_manager"`
}

// InstallConfiguration holds provider-agnostic packages resolved against
// the target operating system.
type InstallConfiguration struct {
	Packages []string                `hcl:"packages,optional" yaml:"packages" toml:"packages"`
	Pkg      Entries[GenericPackage] `hcl:"pkg,block" yaml:"pkg" toml:"pkg"`
}

// GenericPackage is a package entry that is not tied to a provider.
type GenericPackage struct {
	Name            string   `hcl:"name,label" yaml:"-" toml:"-"`
	URL             *string  `hcl:"url,optional" yaml:"url" toml:"url"`
	GPGKey          *string  `hcl:"gpg_key,optional" yaml:"gpg_key" toml:"gpg_key"`
	GPGPath         *string  `hcl:"gpg_path,optional" yaml:"gpg_path" toml:"gpg_path"`
	SetupRepository *string  `hcl:"setup_repository,optional" yaml:"setup_repository" toml:"setup_repository"`
	AptUpdate       *bool    `hcl:"apt_update,optional" yaml:"apt_update" toml:"apt_update"`
	Packages        []string `hcl:"packages,optional" yaml:"packages" toml:"packages"`
	DependsOn       []string `hcl:"depends_on,optional" yaml:"depends_on" toml:"depends_on"`
	Preinstall      *string  `hcl:"preinstall,optional" yaml:"preinstall" toml:"preinstall"`
	Postinstall     *string  `hcl:"postinstall,optional" yaml:"postinstall" toml:"postinstall"`
	VersionCheck    *string  `hcl:"version_check,optional" yaml:"version_check" toml:"version_check"`
	NonInteractive  *bool    `hcl:"non_interactive,optional" yaml:"non_interactive" toml:"non_interactive"`
	Interactive     *bool    `hcl:"interactive,optional" yaml:"interactive" toml:"interactive"`
	Ask             *bool    `hcl:"ask,optional" yaml:"ask" toml:"ask"`
	Verbose         *bool    `hcl:"verbose,optional" yaml:"verbose" toml:"verbose"`
	Cask            *bool    `hcl:"cask,optional" yaml:"cask" toml:"cask"`
}

type AptConfiguration struct {
	Name string              `hcl:"name,label" yaml:"-" toml:"-"`
	Pkg  Entries[AptPackage] `hcl:"pkg,block" yaml:"pkg" toml:"pkg"`
}

// AptPackage installs one or more Debian packages, optionally from a
// third-party repository or a downloaded .deb.
//
// DependsOn lists apt packages installed ahead of Packages.
type AptPackage struct {
	Name            string   `hcl:"name,label" yaml:"-" toml:"-"`
	URL             *string  `hcl:"url,optional" yaml:"url" toml:"url"`
	GPGKey          *string  `hcl:"gpg_key,optional" yaml:"gpg_key" toml:"gpg_key"`
	GPGPath         *string  `hcl:"gpg_path,optional" yaml:"gpg_path" toml:"gpg_path"`
	SetupRepository *string  `hcl:"setup_repository,optional" yaml:"setup_repository" toml:"setup_repository"`
	AptUpdate       *bool    `hcl:"apt_update,optional" yaml:"apt_update" toml:"apt_update"`
	Packages        []string `hcl:"packages,optional" yaml:"packages" toml:"packages"`
	DependsOn       []string `hcl:"depends_on,optional" yaml:"depends_on" toml:"depends_on"`
	Preinstall      *string  `hcl:"preinstall,optional" yaml:"preinstall" toml:"preinstall"`
	Postinstall     *string  `hcl:"postinstall,optional" yaml:"postinstall" toml:"postinstall"`
	VersionCheck    *string  `hcl:"version_check,optional" yaml:"version_check" toml:"version_check"`
}

type BrewConfiguration struct {
	Name string               `hcl:"name,label" yaml:"-" toml:"-"`
	Pkgs []string             `hcl:"pkgs,optional" yaml:"pkgs" toml:"pkgs"`
	Pkg  Entries[BrewPackage] `hcl:"pkg,block" yaml:"pkg" toml:"pkg"`
}

type BrewPackage struct {
	Name         string   `hcl:"name,label" yaml:"-" toml:"-"`
	Cask         *bool    `hcl:"cask,optional" yaml:"cask" toml:"cask"`
	DependsOn    []string `hcl:"depends_on,optional" yaml:"depends_on" toml:"depends_on"`
	Preinstall   *string  `hcl:"preinstall,optional" yaml:"preinstall" toml:"preinstall"`
	Postinstall  *string  `hcl:"postinstall,optional" yaml:"postinstall" toml:"postinstall"`
	VersionCheck *string  `hcl:"version_check,optional" yaml:"version_check" toml:"version_check"`
}

type CurlConfiguration struct {
	Name   string              `hcl:"name,label" yaml:"-" toml:"-"`
	Script Entries[CurlScript] `hcl:"script,block" yaml:"script" toml:"script"`
}

// CurlScript pipes a downloaded script into a shell.
type CurlScript struct {
	Name         string            `hcl:"name,label" yaml:"-" toml:"-"`
	URL          string            `hcl:"url" yaml:"url" toml:"url"`
	Shell        *string           `hcl:"shell,optional" yaml:"shell" toml:"shell"`
	EnableSudo   *bool             `hcl:"enable_sudo,optional" yaml:"enable_sudo" toml:"enable_sudo"`
	Args         *string           `hcl:"args,optional" yaml:"args" toml:"args"`
	Env          map[string]string `hcl:"env,optional" yaml:"env" toml:"env"`
	DependsOn    []string          `hcl:"depends_on,optional" yaml:"depends_on" toml:"depends_on"`
	Postinstall  *string           `hcl:"postinstall,optional" yaml:"postinstall" toml:"postinstall"`
	VersionCheck *string           `hcl:"version_check,optional" yaml:"version_check" toml:"version_check"`
}

type GitConfiguration struct {
	Name string                 `hcl:"name,label" yaml:"-" toml:"-"`
	Repo Entries[GitRepository] `hcl:"repo,block" yaml:"repo" toml:"repo"`
}

// GitRepository clones a repository and runs an install command from it.
type GitRepository struct {
	Name              string   `hcl:"name,label" yaml:"-" toml:"-"`
	URL               string   `hcl:"url" yaml:"url" toml:"url"`
	Install           string   `hcl:"install" yaml:"install" toml:"install"`
	InstallCheck      *string  `hcl:"install_check,optional" yaml:"install_check" toml:"install_check"`
	Recursive         *bool    `hcl:"recursive,optional" yaml:"recursive" toml:"recursive"`
	Depth             *int     `hcl:"depth,optional" yaml:"depth" toml:"depth"`
	ShallowSubmodules *bool    `hcl:"shallow_submodules,optional" yaml:"shallow_submodules" toml:"shallow_submodules"`
	DependsOn         []string `hcl:"depends_on,optional" yaml:"depends_on" toml:"depends_on"`
	Preinstall        *string  `hcl:"preinstall,optional" yaml:"preinstall" toml:"preinstall"`
	Postinstall       *string  `hcl:"postinstall,optional" yaml:"postinstall" toml:"postinstall"`
}

type NixConfiguration struct {
	Name string              `hcl:"name,label" yaml:"-" toml:"-"`
	Pkg  Entries[NixPackage] `hcl:"pkg,block" yaml:"pkg" toml:"pkg"`
}

// NixPackage installs a flake into the default nix profile.
type NixPackage struct {
	Name                 string   `hcl:"name,label" yaml:"-" toml:"-"`
	Flake                string   `hcl:"flake" yaml:"flake" toml:"flake"`
	Impure               *bool    `hcl:"impure,optional" yaml:"impure" toml:"impure"`
	ExperimentalFeatures *string  `hcl:"experimental_features,optional" yaml:"experimental_features" toml:"experimental_features"`
	AcceptFlakeConfig    *bool    `hcl:"accept_flake_config,optional" yaml:"accept_flake_config" toml:"accept_flake_config"`
	DependsOn            []string `hcl:"depends_on,optional" yaml:"depends_on" toml:"depends_on"`
	Preinstall           *string  `hcl:"preinstall,optional" yaml:"preinstall" toml:"preinstall"`
	Postinstall          *string  `hcl:"postinstall,optional" yaml:"postinstall" toml:"postinstall"`
	VersionCheck         *string  `hcl:"version_check,optional" yaml:"version_check" toml:"version_check"`
}

// SystemConfiguration is a section of a distribution package manager
// without provider-specific fields (yum, dnf, zypper, apk, pacman,
// emerge, slackpkg).
type SystemConfiguration struct {
	Name string                 `hcl:"name,label" yaml:"-" toml:"-"`
	Pkg  Entries[SystemPackage] `hcl:"pkg,block" yaml:"pkg" toml:"pkg"`
}

// SystemPackage is a package for a distribution package manager. Each
// manager reads only the flags it understands: NonInteractive for zypper
// and pacman, Interactive for apk, Ask and Verbose for emerge.
//
// DependsOn lists packages of the same manager installed ahead of
// Packages.
type SystemPackage struct {
	Name           string   `hcl:"name,label" yaml:"-" toml:"-"`
	Packages       []string `hcl:"packages,optional" yaml:"packages" toml:"packages"`
	DependsOn      []string `hcl:"depends_on,optional" yaml:"depends_on" toml:"depends_on"`
	Preinstall     *string  `hcl:"preinstall,optional" yaml:"preinstall" toml:"preinstall"`
	Postinstall    *string  `hcl:"postinstall,optional" yaml:"postinstall" toml:"postinstall"`
	VersionCheck   *string  `hcl:"version_check,optional" yaml:"version_check" toml:"version_check"`
	NonInteractive *bool    `hcl:"non_interactive,optional" yaml:"non_interactive" toml:"non_interactive"`
	Interactive    *bool    `hcl:"interactive,optional" yaml:"interactive" toml:"interactive"`
	Ask            *bool    `hcl:"ask,optional" yaml:"ask" toml:"ask"`
	Verbose        *bool    `hcl:"verbose,optional" yaml:"verbose" toml:"verbose"`
}

// ProfileConfiguration is a fleek or home-manager section.
type ProfileConfiguration struct {
	Name string                  `hcl:"name,label" yaml:"-" toml:"-"`
	Pkg  Entries[ProfilePackage] `hcl:"pkg,block" yaml:"pkg" toml:"pkg"`
}

// ProfilePackage adds nix packages to a declarative user profile.
//
// DependsOn lists profile packages added ahead of Packages. Apply
// defaults to true.
type ProfilePackage struct {
	Name         string   `hcl:"name,label" yaml:"-" toml:"-"`
	Packages     []string `hcl:"packages,optional" yaml:"packages" toml:"packages"`
	DependsOn    []string `hcl:"depends_on,optional" yaml:"depends_on" toml:"depends_on"`
	Apply        *bool    `hcl:"apply,optional" yaml:"apply" toml:"apply"`
	Postinstall  *string  `hcl:"postinstall,optional" yaml:"postinstall" toml:"postinstall"`
	VersionCheck *string  `hcl:"version_check,optional" yaml:"version_check" toml:"version_check"`
}

// Inventory lists the remote machines a configuration is applied to.
type Inventory struct {
	Server Entries[Server] `hcl:"server,block" yaml:"server" toml:"server"`
}

type Server struct {
	Name     string `hcl:"name,label" yaml:"-" toml:"-"`
	Host     string `hcl:"host" yaml:"host" toml:"host"`
	Port     *int   `hcl:"port,optional" yaml:"port" toml:"port"`
	Username string `hcl:"username" yaml:"username" toml:"username"`
}
