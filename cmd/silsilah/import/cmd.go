// Package importcmd implements the `silsilah import` command.
package importcmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/go-ports/silsilah/cmd/silsilah/shared"
	"github.com/go-ports/silsilah/internal/service"
)

// Command implements `silsilah import`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	format string
}

// New creates the import command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "import <file|->",
		Short: "Add members from a JSON or YAML file",
		Long: `Add every member listed in a JSON or YAML file, in file order.
Import stops at the first invalid record; members added before it are kept.`,
		Args: cobra.ExactArgs(1),
		RunE: c.run,
	}
	c.cmd.Flags().StringVar(&c.format, "format", "", "json or yaml (default: from file extension, json for stdin)")
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, args []string) error {
	path := args[0]
	format := service.FormatForPath(path)
	if c.format != "" {
		f, err := service.ParseFormat(c.format)
		if err != nil {
			return err
		}
		format = f
	}

	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("import: %w", err)
		}
		defer f.Close()
		r = f
	}

	svc, err := c.ctx.OpenService(cmd.Context())
	if err != nil {
		return err
	}
	defer svc.Close()

	tr := svc.Translator()
	res, err := svc.ImportFrom(cmd.Context(), r, format)
	if err != nil {
		if res != nil && res.Count > 0 {
			fmt.Fprintln(cmd.OutOrStdout(), tr.T("import.partial", "count", res.Count))
		}
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tr.T("import.done", "count", res.Count))
	return nil
}
