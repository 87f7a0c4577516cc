package manifest

const (
	NixToolName      = "nix"
	HomebrewToolName = "homebrew"

	// NixDaemonProfile is sourced before every nix invocation so that nix is
	// on PATH in non-login shells.
	NixDaemonProfile = "/nix/var/nix/profiles/default/etc/profile.d/nix-daemon.sh"

	// BrewDirs are the Homebrew bin directories on Apple Silicon, Linux and
	// Intel macs.
	BrewDirs = "/opt/homebrew/bin:/home/linuxbrew/.linuxbrew/bin:/usr/local/bin"

	// BrewEnv prefixes brew invocations, hooks and version checks so that
	// brew and the tools it installs are found ahead of the inherited PATH.
	BrewEnv = `export PATH="` + BrewDirs + `:$PATH" && `
)

// DefaultNixInstaller returns the curl script injected when a configuration
// needs nix and does not install it itself.
func DefaultNixInstaller() CurlScript {
	return CurlScript{
		Name:         NixToolName,
		URL:          "https://install.determinate.systems/nix",
		EnableSudo:   Ptr(true),
		Args:         Ptr("install --no-confirm"),
		VersionCheck: Ptr(". " + NixDaemonProfile + " && nix --version"),
	}
}

// DefaultHomebrewInstaller returns the curl script injected when a
// configuration has brew packages and does not install brew itself.
func DefaultHomebrewInstaller() CurlScript {
	return CurlScript{
		Name:         HomebrewToolName,
		URL:          "https://raw.githubusercontent.com/Homebrew/install/HEAD/install.sh",
		Shell:        Ptr("bash"),
		Env:          map[string]string{"NONINTERACTIVE": "true"},
		Postinstall:  Ptr(BrewEnv + `echo "eval \"\$($(command -v brew) shellenv)\"" >> ~/.bashrc`),
		VersionCheck: Ptr(BrewEnv + "brew --version"),
	}
}

func Ptr[T any](v T) *T {
	return &v
}

// Value dereferences p, returning fallback when p is nil.
func Value[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
