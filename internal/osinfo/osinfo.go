// Package osinfo identifies the operating system of a target and maps it to
// the package manager used for generic install entries.
package osinfo

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/pirakansa/kitup/internal/executor"
	"github.com/pirakansa/kitup/pkg/manifest"
)

// Identifier returns the lower-case OS identifier of a target, e.g.
// "ubuntu", "fedora" or "darwin".
type Identifier interface {
	Identify(ctx context.Context) (string, error)
}

// Local identifies the current host.
type Local struct{}

func (Local) Identify(ctx context.Context) (string, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return "", fmt.Errorf("read host info: %w", err)
	}
	if runtime.GOOS == "darwin" {
		return "darwin", nil
	}
	if info.Platform == "" {
		return strings.ToLower(info.OS), nil
	}
	return strings.ToLower(info.Platform), nil
}

// identifyScript prints the os-release ID, or the kernel name when the file
// is missing.
const identifyScript = `if [ -r /etc/os-release ]; then . /etc/os-release; echo "$ID"; else uname -s; fi`

// Remote identifies the host behind an executor.
type Remote struct {
	Exec executor.Executor
}

func (r Remote) Identify(ctx context.Context) (string, error) {
	out, err := r.Exec.Output(ctx, executor.Command{Script: identifyScript})
	if err != nil {
		return "", fmt.Errorf("identify %s: %w", r.Exec.Target(), err)
	}
	id := strings.ToLower(strings.TrimSpace(out))
	if id == "" {
		return "", fmt.Errorf("identify %s: empty os identifier", r.Exec.Target())
	}
	return id, nil
}

// Static always reports ID.
type Static string

func (s Static) Identify(context.Context) (string, error) {
	return string(s), nil
}

// For returns the identifier for exec: the local host or the remote host
// exec is connected to.
func For(exec executor.Executor) Identifier {
	if exec.Target().IsRemote() {
		return Remote{Exec: exec}
	}
	return Local{}
}

var providers = map[string]manifest.Provider{
	"ubuntu":     manifest.ProviderApt,
	"debian":     manifest.ProviderApt,
	"linuxmint":  manifest.ProviderApt,
	"pop":        manifest.ProviderApt,
	"elementary": manifest.ProviderApt,
	"zorin":      manifest.ProviderApt,
	"raspbian":   manifest.ProviderApt,
	"fedora":     manifest.ProviderDnf,
	"centos":     manifest.ProviderDnf,
	"rhel":       manifest.ProviderDnf,
	"redhat":     manifest.ProviderDnf,
	"rocky":      manifest.ProviderDnf,
	"almalinux":  manifest.ProviderDnf,
	"amazon":     manifest.ProviderDnf,
	"amzn":       manifest.ProviderDnf,
	"opensuse":   manifest.ProviderZypper,
	"sles":       manifest.ProviderZypper,
	"suse":       manifest.ProviderZypper,
	"arch":       manifest.ProviderPacman,
	"manjaro":    manifest.ProviderPacman,
	"gentoo":     manifest.ProviderEmerge,
	"alpine":     manifest.ProviderApk,
	"slackware":  manifest.ProviderSlackpkg,
	"darwin":     manifest.ProviderBrew,
	"macos":      manifest.ProviderBrew,
}

// ProviderFor maps an OS identifier to its package manager.
func ProviderFor(id string) (manifest.Provider, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if provider, ok := providers[id]; ok {
		return provider, nil
	}
	// opensuse-leap, opensuse-tumbleweed
	if base, _, ok := strings.Cut(id, "-"); ok {
		if provider, ok := providers[base]; ok {
			return provider, nil
		}
	}
	return "", &manifest.UnsupportedOSError{ID: id}
}
