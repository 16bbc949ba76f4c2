// Package exportcmd implements the `silsilah export` command.
package exportcmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/go-ports/silsilah/cmd/silsilah/shared"
	"github.com/go-ports/silsilah/internal/service"
)

// Command implements `silsilah export`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	format string
}

// New creates the export command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "export [file|-]",
		Short: "Write all members to a JSON, YAML or markdown file",
		Long: `Write all members to a file. JSON and YAML output can be imported again; markdown
writes the family tree as a readable register. Without a file (or with -) output goes to stdout.`,
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.run,
	}
	c.cmd.Flags().StringVar(&c.format, "format", "", "json, yaml or markdown (default: from file extension, json for stdout)")
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, args []string) error {
	path := "-"
	if len(args) == 1 {
		path = args[0]
	}
	format := service.FormatForPath(path)
	if c.format != "" {
		f, err := service.ParseFormat(c.format)
		if err != nil {
			return err
		}
		format = f
	}

	svc, err := c.ctx.OpenService(cmd.Context())
	if err != nil {
		return err
	}
	defer svc.Close()

	if path == "-" {
		_, err := svc.Export(cmd.Context(), cmd.OutOrStdout(), format)
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	n, err := svc.Export(cmd.Context(), f, format)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), svc.Translator().T("export.done", "count", n, "path", path))
	return nil
}
