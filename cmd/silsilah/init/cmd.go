// Package initcmd implements the `silsilah init` command.
package initcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/silsilah/cmd/silsilah/shared"
)

// Command implements `silsilah init`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the init command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "init",
		Short: "Create the family home and its member store",
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, _ []string) error {
	svc, err := c.ctx.OpenService(cmd.Context())
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer svc.Close()

	fmt.Fprintln(cmd.OutOrStdout(), svc.Translator().T("init.done", "path", svc.Home))
	return nil
}
