package manifest

// Provider names the mechanism that installs a tool.
type Provider string

const (
	ProviderApt         Provider = "apt"
	ProviderBrew        Provider = "brew"
	ProviderCurl        Provider = "curl"
	ProviderGit         Provider = "git"
	ProviderNix         Provider = "nix"
	ProviderYum         Provider = "yum"
	ProviderDnf         Provider = "dnf"
	ProviderZypper      Provider = "zypper"
	ProviderApk         Provider = "apk"
	ProviderPacman      Provider = "pacman"
	ProviderEmerge      Provider = "emerge"
	ProviderSlackpkg    Provider = "slackpkg"
	ProviderFleek       Provider = "fleek"
	ProviderHomeManager Provider = "home-manager"
)

func (p Provider) String() string {
	return string(p)
}
