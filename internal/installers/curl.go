package installers

import (
	"context"
	"maps"

	"github.com/pirakansa/kitup/internal/executor"
	"github.com/pirakansa/kitup/pkg/manifest"
)

type CurlInstaller struct {
	base
	script manifest.CurlScript
}

func NewCurlInstaller(script manifest.CurlScript, exec executor.Executor) *CurlInstaller {
	i := &CurlInstaller{base: newBase(script.Name, exec, script.DependsOn), script: script}
	i.postinstall = str(script.Postinstall)
	i.versionCheck = str(script.VersionCheck)
	i.checkEnv = maps.Clone(script.Env)
	return i
}

func (i *CurlInstaller) Provider() manifest.Provider { return manifest.ProviderCurl }

func (i *CurlInstaller) Install(ctx context.Context) error {
	i.logInstall(ctx, manifest.ProviderCurl)
	cmd := executor.Command{
		Shell:  i.shell(),
		Script: i.command(),
		Env:    maps.Clone(i.script.Env),
	}
	if err := i.run(ctx, cmd); err != nil {
		return err
	}
	return i.hook(ctx, "postinstall", i.postinstall)
}

func (i *CurlInstaller) shell() string {
	return manifest.Value(i.script.Shell, executor.DefaultShell)
}

func (i *CurlInstaller) command() string {
	pipe := i.shell()
	if manifest.Value(i.script.EnableSudo, false) {
		pipe = "sudo " + pipe
	}
	script := "curl --proto '=https' --tlsv1.2 -sSf -L " + executor.Quote(i.script.URL) + " | " + pipe
	if args := str(i.script.Args); args != "" {
		script += " -s -- " + args
	}
	return script
}
