package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pirakansa/kitup/internal/cli/manifest"
	"github.com/pirakansa/kitup/internal/cli/shared"
	"github.com/pirakansa/kitup/internal/fleet"
	"github.com/pirakansa/kitup/internal/installers"
	"github.com/pirakansa/kitup/internal/osinfo"
)

type planOptions struct {
	osID      string
	stateFile string
}

func newPlanCmd(app *appContext) *cobra.Command {
	opts := planOptions{}
	cmd := &cobra.Command{
		Use:   "plan [tool[,tool...]]...",
		Short: "Show the install order without installing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, app, opts, parseTools(args))
		},
	}
	cmd.Flags().StringVar(&opts.osID, "os", "", "plan for this operating system ID (e.g. ubuntu, fedora, darwin) instead of the local one")
	cmd.Flags().StringVar(&opts.stateFile, "state-file", manifest.StateFileName, "state file holding the outcomes of previous runs")
	return cmd
}

func runPlan(cmd *cobra.Command, app *appContext, opts planOptions, tools []string) error {
	ctx := cmd.Context()
	loaded, err := app.load(ctx)
	if err != nil {
		return err
	}

	exec := app.newLocal()
	id := app.identify(exec)
	if opts.osID != "" {
		id = osinfo.Static(opts.osID)
	}
	vertices, err := fleet.Job{Config: loaded.Config, Tools: tools}.Plan(ctx, exec, id)
	if err != nil {
		return failure(err, shared.ExitFailed)
	}

	host := exec.Target().String()
	var last manifest.HostState
	if opts.stateFile != "" {
		state, err := manifest.LoadState(opts.stateFile)
		if err != nil {
			return newExitCodeError(shared.ExitFailed, err)
		}
		last = state.Hosts[host]
	}

	out := cmd.OutOrStdout()
	printer := shared.NewPrinter(out)
	printer.Step("", "Install plan: %s", shared.Plural(len(vertices), "tool", "tools"))
	if last.UpdatedAt != "" {
		changed := ""
		if last.ConfigDigest != loaded.Digest {
			changed = ", configuration changed since"
		}
		printer.Step("", "Last run on %s %s%s", host, shared.Ago(last.UpdatedAt), changed)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for i, v := range vertices {
		outcome := "-"
		if tool, ok := last.Tools[v.Name]; ok {
			outcome = tool.Outcome
		}
		fmt.Fprintf(tw, "%3d.\t%s\t%s\t%s\t%s\n", i+1, v.Name, v.Provider, outcome, installers.Describe(v.Installer))
	}
	return tw.Flush()
}
