package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pirakansa/kitup/internal/cli/manifest"
	"github.com/pirakansa/kitup/internal/cli/shared"
	"github.com/pirakansa/kitup/internal/logutil"
	pkgmanifest "github.com/pirakansa/kitup/pkg/manifest"
)

type initOptions struct {
	toml      bool
	yaml      bool
	inventory bool
	force     bool
}

func newInitCmd(app *appContext) *cobra.Command {
	opts := initOptions{}
	cmd := &cobra.Command{
		Use:   "init [packages]...",
		Short: "Create a default Kitfile or Inventory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, app, opts, args)
		},
	}
	cmd.Flags().BoolVar(&opts.toml, "toml", false, "write the file in TOML")
	cmd.Flags().BoolVar(&opts.yaml, "yaml", false, "write the file in YAML")
	cmd.Flags().BoolVarP(&opts.inventory, "inventory", "i", false, "write an Inventory instead of a Kitfile")
	cmd.Flags().BoolVar(&opts.force, "force", false, "overwrite an existing file after backing it up")
	cmd.MarkFlagsMutuallyExclusive("toml", "yaml")
	return cmd
}

func runInit(cmd *cobra.Command, app *appContext, opts initOptions, packages []string) error {
	format := manifest.FormatHCL
	switch {
	case opts.toml:
		format = manifest.FormatTOML
	case opts.yaml:
		format = manifest.FormatYAML
	}

	var (
		name    string
		content []byte
		err     error
	)
	if opts.inventory {
		name = pkgmanifest.InventoryBaseName + "." + format
		content, err = renderInventory(format)
	} else {
		name = pkgmanifest.ConfigBaseName + "." + format
		var osID string
		exec := app.newLocal()
		if osID, err = app.identify(exec).Identify(cmd.Context()); err != nil {
			logutil.FromContext(cmd.Context()).Debug("operating system not identified", zap.Error(err))
		}
		content, err = renderKitfile(format, osID, packages)
	}
	if err != nil {
		return err
	}

	backup, err := prepareTarget(name, opts.force, app)
	if err != nil {
		return err
	}
	if err := os.WriteFile(name, content, 0o644); err != nil {
		return err
	}

	printer := shared.NewPrinter(cmd.OutOrStdout())
	if backup != "" {
		printer.Step("", "Backed up %s to %s", name, backup)
	}
	printer.Heading("[ok] Created %s", name)
	if !opts.inventory {
		printer.Step("", "Run `kitup install` to install packages")
	}
	return nil
}

// prepareTarget fails when path exists, unless force is set, in which
// case the existing file is backed up first.
func prepareTarget(path string, force bool, app *appContext) (string, error) {
	_, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return "", nil
	case err != nil:
		return "", err
	case !force:
		return "", newExitCodeError(shared.ExitUsage, fmt.Errorf("%s already exists, use --force to overwrite it", path))
	}
	return shared.BackupFile(path, shared.BackupTimestamp, app.now())
}
