package installers

import (
	"strings"
)

// Describe summarizes what installer i will install.
func Describe(i Installer) string {
	switch v := i.(type) {
	case *AptInstaller:
		if url := str(v.pkg.URL); url != "" {
			return url
		}
		return "apt-get install " + strings.Join(packagesOrName(v.pkg.Packages, v.name), " ")
	case *BrewInstaller:
		return v.command()
	case *CurlInstaller:
		return v.script.URL
	case *GitInstaller:
		return v.repo.URL
	case *NixInstaller:
		return v.pkg.Flake
	case *YumInstaller:
		return v.summary()
	case *DnfInstaller:
		return v.summary()
	case *ZypperInstaller:
		return v.summary()
	case *ApkInstaller:
		return v.summary()
	case *PacmanInstaller:
		return v.summary()
	case *EmergeInstaller:
		return v.summary()
	case *SlackpkgInstaller:
		return v.summary()
	case *FleekInstaller:
		return "fleek add " + strings.Join(packagesOrName(v.pkg.Packages, v.name), " ")
	case *HomeManagerInstaller:
		return "home.packages += " + strings.Join(packagesOrName(v.pkg.Packages, v.name), " ")
	}
	return ""
}

func (s *system) summary() string {
	return strings.TrimPrefix(s.command, "sudo ") + " " + strings.Join(s.packages, " ")
}
