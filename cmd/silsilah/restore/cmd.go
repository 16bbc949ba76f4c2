// Package restorecmd implements the `silsilah restore` command.
package restorecmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/silsilah/cmd/silsilah/shared"
)

// Command implements `silsilah restore`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the restore command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "restore [key]",
		Short: "Load a backup snapshot into an empty store",
		Long:  "Load a snapshot written by backup. Without a key the newest snapshot is used. The store must be empty.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.run,
	}
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, args []string) error {
	var key string
	if len(args) == 1 {
		key = args[0]
	}

	svc, err := c.ctx.OpenService(cmd.Context())
	if err != nil {
		return err
	}
	defer svc.Close()

	res, key, err := svc.Restore(cmd.Context(), key)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), svc.Translator().T("restore.done", "count", res.Count, "key", key))
	return nil
}
