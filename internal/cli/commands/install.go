package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pirakansa/kitup/internal/cli/manifest"
	"github.com/pirakansa/kitup/internal/cli/shared"
	"github.com/pirakansa/kitup/internal/fleet"
	"github.com/pirakansa/kitup/internal/graph"
	"github.com/pirakansa/kitup/internal/logutil"
	"github.com/pirakansa/kitup/internal/metrics"
	"github.com/pirakansa/kitup/internal/sshsession"
	pkgmanifest "github.com/pirakansa/kitup/pkg/manifest"
)

// useInventory is the value of --remote when it is given without a host.
const useInventory = "@inventory"

type installOptions struct {
	ask         bool
	remote      string
	port        int
	username    string
	inventory   string
	parallel    int
	metricsFile string
	stateFile   string
	insecure    bool
}

func newInstallCmd(app *appContext) *cobra.Command {
	opts := installOptions{}
	cmd := &cobra.Command{
		Use:   "install [tool[,tool...]]...",
		Short: "Install developer tools, e.g. nix, homebrew, devenv, blesh",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd, app, opts, parseTools(args))
		},
	}
	flags := cmd.Flags()
	flags.BoolVarP(&opts.ask, "ask", "a", false, "ask for confirmation before installing tools")
	flags.StringVarP(&opts.remote, "remote", "r", "", "install on a remote machine (--remote=HOST); without a value, on every server of the inventory")
	flags.Lookup("remote").NoOptDefVal = useInventory
	flags.IntVarP(&opts.port, "port", "p", sshsession.DefaultPort, "SSH port of the remote machine")
	flags.StringVarP(&opts.username, "username", "u", "", "SSH user on the remote machine")
	flags.StringVarP(&opts.inventory, "inventory", "i", "", "path or URL of the inventory (default: Inventory.{hcl,toml,yaml} in the current directory)")
	flags.IntVar(&opts.parallel, "parallel", 0, "maximum number of machines provisioned at once (0: all)")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "write install metrics to this file in the Prometheus text format")
	flags.StringVar(&opts.stateFile, "state-file", manifest.StateFileName, "record outcomes in this state file (empty to disable)")
	flags.BoolVar(&opts.insecure, "insecure-ignore-host-key", false, "do not verify remote host keys against known_hosts")
	return cmd
}

// parseTools splits comma-separated tool arguments.
func parseTools(args []string) []string {
	var tools []string
	for _, arg := range args {
		for _, tool := range strings.Split(strings.ReplaceAll(arg, " ", ""), ",") {
			switch tool {
			case "":
				continue
			case "ble.sh":
				tool = "blesh"
			}
			tools = append(tools, tool)
		}
	}
	return tools
}

func runInstall(cmd *cobra.Command, app *appContext, opts installOptions, tools []string) error {
	ctx := cmd.Context()
	printer := shared.NewPrinter(cmd.OutOrStdout())

	servers, err := opts.servers(ctx)
	if err != nil {
		return err
	}
	loaded, err := app.load(ctx)
	if err != nil {
		return err
	}
	job := fleet.Job{Config: loaded.Config, Tools: tools}

	if opts.ask {
		ok, err := app.confirm(ctx, cmd.OutOrStdout(), printer, job)
		if err != nil {
			return failure(err, shared.ExitFailed)
		}
		if !ok {
			printer.Warn("installation cancelled")
			return nil
		}
	}

	recorder := metrics.NewRecorder()
	var (
		reports []fleet.Report
		runErr  error
	)
	if len(servers) == 0 {
		exec := app.newLocal()
		report := job.Run(ctx, exec, app.identify(exec), recorder.ForHost(exec.Target().String()), progress(printer, ""))
		reports, runErr = []fleet.Report{report}, report.Err
	} else {
		printer.Step("", "Installing tools on %s", shared.Plural(len(servers), "machine", "machines"))
		connector, closer, err := app.connect(ctx, opts.insecure)
		if err != nil {
			return newExitCodeError(shared.ExitFailed, err)
		}
		defer closer.Close()
		reports, runErr = fleet.Run(ctx, job, servers, connector, fleet.Options{
			Parallel: opts.parallel,
			Observers: func(host string) []graph.Observer {
				return []graph.Observer{recorder.ForHost(host), progress(printer, host)}
			},
		})
	}

	for _, r := range reports {
		recorder.HostDone(r.Host, r.Err)
	}
	app.persist(ctx, printer, opts, loaded.Digest, reports, recorder)
	summarize(printer, reports, len(servers) > 0)

	if runErr != nil {
		return failure(runErr, shared.ExitInstallFailed)
	}
	return nil
}

// servers returns the remote machines selected by the flags, or nil for a
// local install.
func (o installOptions) servers(ctx context.Context) ([]pkgmanifest.Server, error) {
	switch {
	case o.remote == "" && o.inventory == "":
		return nil, nil
	case o.remote != "" && o.remote != useInventory:
		if o.username == "" {
			return nil, newExitCodeError(shared.ExitUsage, errors.New("username is required, please use -u or --username"))
		}
		return []pkgmanifest.Server{{Name: o.remote, Host: o.remote, Port: pkgmanifest.Ptr(o.port), Username: o.username}}, nil
	}

	location := o.inventory
	if location == "" {
		var err error
		if location, err = manifest.FindInventory("."); err != nil {
			return nil, newExitCodeError(shared.ExitConfigError, err)
		}
	}
	inv, err := manifest.LoadInventory(ctx, location)
	if err != nil {
		return nil, newExitCodeError(shared.ExitConfigError, err)
	}
	if len(inv.Server) == 0 {
		return nil, newExitCodeError(shared.ExitConfigError, &manifest.ConfigError{Path: location, Err: errors.New("no servers defined")})
	}
	return inv.Server, nil
}

// confirm lists the tools the job would install on this machine and reads
// the answer from stdin.
func (app *appContext) confirm(ctx context.Context, out io.Writer, printer *shared.Printer, job fleet.Job) (bool, error) {
	exec := app.newLocal()
	vertices, err := job.Plan(ctx, exec, app.identify(exec))
	if err != nil {
		return false, err
	}
	printer.Step("", "The following tools will be installed:")
	for _, v := range vertices {
		fmt.Fprintf(out, "  - %s\n", v.Name)
	}
	printer.Step("", "Are you sure you want to install these %s? [y/N]", shared.Plural(len(vertices), "tool", "tools"))

	answer, err := bufio.NewReader(app.stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.TrimSpace(answer) {
	case "y", "Y":
		return true, nil
	default:
		return false, nil
	}
}

func progress(printer *shared.Printer, host string) graph.Observer {
	return graph.ObserverFunc(func(v graph.Vertex, outcome graph.Outcome, elapsed time.Duration) {
		switch outcome {
		case graph.OutcomeInstalled:
			printer.Installed(host, v.Name, v.Provider.String(), elapsed)
		case graph.OutcomeSkipped:
			printer.Skipped(host, v.Name)
		case graph.OutcomeFailed:
			printer.ToolFailed(host, v.Name, v.Provider.String())
		}
	})
}

// persist writes the state file and the metrics textfile. Neither failure
// fails the install.
func (app *appContext) persist(ctx context.Context, printer *shared.Printer, opts installOptions, digest string, reports []fleet.Report, recorder *metrics.Recorder) {
	logger := logutil.FromContext(ctx)
	if opts.stateFile != "" {
		if err := recordState(opts.stateFile, digest, reports, app.now()); err != nil {
			logger.Warn("state file not written", zap.String("path", opts.stateFile), zap.Error(err))
			printer.Warn("could not write %s: %v", opts.stateFile, err)
		}
	}
	if opts.metricsFile != "" {
		if err := recorder.WriteTextfile(opts.metricsFile); err != nil {
			logger.Warn("metrics file not written", zap.String("path", opts.metricsFile), zap.Error(err))
			printer.Warn("could not write %s: %v", opts.metricsFile, err)
		}
	}
}

func recordState(path, digest string, reports []fleet.Report, now time.Time) error {
	state, err := manifest.LoadState(path)
	if err != nil {
		return err
	}
	for _, r := range reports {
		if len(r.Tools) == 0 {
			continue
		}
		tools := make(map[string]manifest.ToolState, len(r.Tools))
		for _, t := range r.Tools {
			tools[t.Name] = manifest.ToolState{Provider: t.Provider.String(), Outcome: string(t.Outcome)}
		}
		state.Record(r.Host, digest, tools, now)
	}
	return manifest.SaveState(path, state)
}

func summarize(printer *shared.Printer, reports []fleet.Report, remote bool) {
	for _, r := range reports {
		host := ""
		if remote {
			host = r.Host
		}
		if r.Err != nil {
			printer.Failed(host, r.Err)
		}
		printer.Step(host, "%s installed, %d already present, %d failed in %s",
			shared.Plural(r.Count(graph.OutcomeInstalled), "tool", "tools"),
			r.Count(graph.OutcomeSkipped),
			r.Count(graph.OutcomeFailed),
			r.Duration.Round(time.Millisecond))
	}
}

// failure attaches the exit code of err's class, or fallback.
func failure(err error, fallback int) error {
	if code, ok := classify(err); ok {
		return newExitCodeError(code, err)
	}
	return newExitCodeError(fallback, err)
}
