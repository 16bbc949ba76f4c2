// Package rootcmd wires the root cobra.Command for the silsilah CLI binary.
package rootcmd

import (
	"github.com/spf13/cobra"

	addcmd "github.com/go-ports/silsilah/cmd/silsilah/add"
	backupcmd "github.com/go-ports/silsilah/cmd/silsilah/backup"
	configcmd "github.com/go-ports/silsilah/cmd/silsilah/config"
	deletecmd "github.com/go-ports/silsilah/cmd/silsilah/delete"
	doctorcmd "github.com/go-ports/silsilah/cmd/silsilah/doctor"
	exportcmd "github.com/go-ports/silsilah/cmd/silsilah/export"
	generationcmd "github.com/go-ports/silsilah/cmd/silsilah/generation"
	importcmd "github.com/go-ports/silsilah/cmd/silsilah/import"
	initcmd "github.com/go-ports/silsilah/cmd/silsilah/init"
	listcmd "github.com/go-ports/silsilah/cmd/silsilah/list"
	mcpcmd "github.com/go-ports/silsilah/cmd/silsilah/mcp"
	restorecmd "github.com/go-ports/silsilah/cmd/silsilah/restore"
	servecmd "github.com/go-ports/silsilah/cmd/silsilah/serve"
	"github.com/go-ports/silsilah/cmd/silsilah/shared"
	treecmd "github.com/go-ports/silsilah/cmd/silsilah/tree"
	updatecmd "github.com/go-ports/silsilah/cmd/silsilah/update"
	versioncmd "github.com/go-ports/silsilah/cmd/silsilah/version"
)

// New creates and returns the root cobra.Command for the silsilah CLI.
func New() *cobra.Command {
	ctx := &shared.Context{}

	root := &cobra.Command{
		Use:           "silsilah",
		Short:         "Silsilah: family tree records in your terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			ctx.SetupLogging(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, _ []string) error { return cmd.Help() },
	}

	pf := root.PersistentFlags()
	pf.StringVar(&ctx.Home, "home", "",
		"Override home directory (default: $SILSILAH_HOME env → persisted config → ~/.silsilah)")
	pf.StringVar(&ctx.Lang, "lang", "", "Output language: en or ms (default: config language)")
	pf.BoolVarP(&ctx.Verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(
		initcmd.New(ctx).Cmd(),
		addcmd.New(ctx).Cmd(),
		updatecmd.New(ctx).Cmd(),
		deletecmd.New(ctx).Cmd(),
		listcmd.New(ctx).Cmd(),
		treecmd.New(ctx).Cmd(),
		generationcmd.New(ctx).Cmd(),
		importcmd.New(ctx).Cmd(),
		exportcmd.New(ctx).Cmd(),
		backupcmd.New(ctx).Cmd(),
		restorecmd.New(ctx).Cmd(),
		doctorcmd.New(ctx).Cmd(),
		configcmd.New(ctx).Cmd(),
		servecmd.New(ctx).Cmd(),
		mcpcmd.New(ctx).Cmd(),
		versioncmd.New(ctx).Cmd(),
	)

	return root
}
