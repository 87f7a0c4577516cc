package installers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pirakansa/kitup/internal/executor"
	"github.com/pirakansa/kitup/internal/logutil"
	"github.com/pirakansa/kitup/pkg/manifest"
)

type GitInstaller struct {
	base
	repo manifest.GitRepository
}

func NewGitInstaller(repo manifest.GitRepository, exec executor.Executor) *GitInstaller {
	i := &GitInstaller{base: newBase(repo.Name, exec, repo.DependsOn), repo: repo}
	i.preinstall = str(repo.Preinstall)
	i.postinstall = str(repo.Postinstall)
	if check := str(repo.InstallCheck); check != "" {
		i.versionCheck = "test -e " + shellPath(check)
	}
	return i
}

func (i *GitInstaller) Provider() manifest.Provider { return manifest.ProviderGit }

func (i *GitInstaller) Install(ctx context.Context) error {
	i.logInstall(ctx, manifest.ProviderGit)
	if err := i.hook(ctx, "preinstall", i.preinstall); err != nil {
		return err
	}

	dir := RepositoryDir(i.repo.URL)
	err := i.exec.Run(ctx, executor.Command{Script: "test -d " + executor.Quote(dir)})
	switch {
	case err == nil:
		logutil.FromContext(ctx).Info("repository already cloned, skipping clone",
			zap.String("tool", i.name), zap.String("dir", dir))
	case executor.IsExitError(err):
		if err := i.sh(ctx, i.cloneCommand()); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%s: %w", i.name, err)
	}

	if err := i.hook(ctx, "install", i.repo.Install); err != nil {
		return err
	}
	return i.hook(ctx, "postinstall", i.postinstall)
}

func (i *GitInstaller) cloneCommand() string {
	args := []string{"git", "clone"}
	if manifest.Value(i.repo.Recursive, false) {
		args = append(args, "--recursive")
	}
	if i.repo.Depth != nil {
		args = append(args, "--depth", strconv.Itoa(*i.repo.Depth))
	}
	if manifest.Value(i.repo.ShallowSubmodules, false) {
		args = append(args, "--shallow-submodules")
	}
	args = append(args, executor.Quote(i.repo.URL))
	return strings.Join(args, " ")
}

// RepositoryDir is the directory git clone creates for url.
func RepositoryDir(url string) string {
	trimmed := strings.TrimRight(url, "/")
	if idx := strings.LastIndexAny(trimmed, "/:"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	return strings.TrimSuffix(trimmed, ".git")
}

// shellPath quotes path for sh while keeping a leading ~/ expandable.
func shellPath(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		return `"$HOME"/` + executor.Quote(rest)
	}
	return executor.Quote(path)
}
