package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"

	"github.com/pirakansa/kitup/internal/cli/manifest"
	"github.com/pirakansa/kitup/internal/cli/shared"
	"github.com/pirakansa/kitup/internal/executor"
	"github.com/pirakansa/kitup/internal/fleet"
	"github.com/pirakansa/kitup/internal/graph"
	"github.com/pirakansa/kitup/internal/logutil"
	"github.com/pirakansa/kitup/internal/osinfo"
	"github.com/pirakansa/kitup/internal/sshsession"
	pkgmanifest "github.com/pirakansa/kitup/pkg/manifest"
)

type appContext struct {
	configPath string
	repo       string
	checksum   string
	logLevel   string
	logFormat  string

	newLocal func() executor.Executor
	identify func(executor.Executor) osinfo.Identifier
	connect  func(ctx context.Context, insecure bool) (fleet.Connector, io.Closer, error)
	stdin    io.Reader
	now      func() time.Time
}

func defaultAppContext() *appContext {
	return &appContext{
		newLocal: func() executor.Executor { return executor.NewLocal() },
		identify: osinfo.For,
		connect:  connectSSH,
		stdin:    os.Stdin,
		now:      time.Now,
	}
}

func NewRootCmd(version string) *cobra.Command {
	return newRootCmd(defaultAppContext(), version)
}

func newRootCmd(app *appContext, version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kitup",
		Short: "Install developer tools on this machine or on remote machines over SSH",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.New(logutil.Config{Level: app.logLevel, Format: app.logFormat}, cmd.ErrOrStderr())
			if err != nil {
				return newExitCodeError(shared.ExitUsage, err)
			}
			logger = logger.With(zap.String("run_id", uuid.NewString()))
			cmd.SetContext(logutil.WithLogger(cmd.Context(), logger))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := cmd.PersistentFlags()
	flags.StringVarP(&app.configPath, "config", "c", "", "path or URL of the Kitfile (default: Kitfile.{hcl,toml,yaml} in the current directory)")
	flags.StringVarP(&app.repo, "from", "f", "", "GitHub repository holding the Kitfile, e.g. owner/name or owner/name@ref")
	flags.StringVar(&app.checksum, "config-checksum", "", "expected digest of the fetched Kitfile, e.g. sha256:<hex>")
	flags.StringVar(&app.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.StringVar(&app.logFormat, "log-format", "console", "log format (console, json)")

	cmd.AddCommand(newInstallCmd(app))
	cmd.AddCommand(newPlanCmd(app))
	cmd.AddCommand(newInitCmd(app))
	cmd.AddCommand(newVersionCmd(version))

	return cmd
}

func Execute(version string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := NewRootCmd(version).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return mapExitCode(err)
	}
	return shared.ExitOK
}

func mapExitCode(err error) int {
	var codeErr *exitCodeError
	if errors.As(err, &codeErr) {
		return codeErr.code
	}
	if code, ok := classify(err); ok {
		return code
	}
	return shared.ExitFailed
}

// classify maps the typed errors of the install pipeline to exit codes.
func classify(err error) (int, bool) {
	var cfgErr *pkgmanifest.ConfigError
	var osErr *pkgmanifest.UnsupportedOSError
	var notFound *graph.ToolNotFoundError
	var cyclic *graph.CyclicDependencyError
	switch {
	case errors.As(err, &cfgErr), errors.As(err, &osErr):
		return shared.ExitConfigError, true
	case errors.As(err, &notFound):
		return shared.ExitToolNotFound, true
	case errors.As(err, &cyclic):
		return shared.ExitCyclicDependency, true
	default:
		return 0, false
	}
}

// load reads the Kitfile named by the global flags.
func (app *appContext) load(ctx context.Context) (*manifest.Loaded, error) {
	opts := manifest.LoadOptions{Checksum: app.checksum}
	var (
		loaded *manifest.Loaded
		err    error
	)
	switch {
	case app.repo != "":
		loaded, err = manifest.LoadRepository(ctx, app.repo, opts)
	case app.configPath != "":
		loaded, err = manifest.LoadConfiguration(ctx, app.configPath, opts)
	default:
		var path string
		path, err = manifest.FindConfiguration(".")
		if err == nil {
			loaded, err = manifest.LoadConfiguration(ctx, path, opts)
		}
	}
	if err != nil {
		return nil, newExitCodeError(shared.ExitConfigError, err)
	}
	logutil.FromContext(ctx).Debug("configuration loaded", zap.String("location", loaded.Location), zap.String("digest", loaded.Digest))
	return loaded, nil
}

func connectSSH(ctx context.Context, insecure bool) (fleet.Connector, io.Closer, error) {
	callback, err := sshsession.HostKeyCallback(insecure)
	if err != nil {
		return nil, nil, err
	}
	agent, err := sshsession.ConnectAgent(ctx)
	if err != nil {
		return nil, nil, err
	}
	connector := &sshsession.Connector{Dialer: &sshsession.Dialer{
		Auth:            []ssh.AuthMethod{agent.AuthMethod()},
		HostKeyCallback: callback,
	}}
	return fleet.ConnectorFunc(func(ctx context.Context, server pkgmanifest.Server) (fleet.Session, error) {
		session, err := connector.Connect(ctx, server)
		if err != nil {
			return nil, err
		}
		return session, nil
	}), agent, nil
}

type exitCodeError struct {
	code int
	err  error
}

func newExitCodeError(code int, err error) *exitCodeError {
	return &exitCodeError{code: code, err: err}
}

func (e *exitCodeError) Error() string {
	return e.err.Error()
}

func (e *exitCodeError) Unwrap() error {
	return e.err
}
