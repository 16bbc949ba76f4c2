// Package treecmd implements the `silsilah tree` command.
package treecmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/go-ports/silsilah/cmd/silsilah/shared"
)

// Command implements `silsilah tree`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	asJSON bool
}

// New creates the tree command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "tree",
		Short: "Print the family tree",
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}
	c.cmd.Flags().BoolVar(&c.asJSON, "json", false, "Print the forest and build report as JSON")
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, _ []string) error {
	svc, err := c.ctx.OpenService(cmd.Context())
	if err != nil {
		return err
	}
	defer svc.Close()

	forest, err := svc.Tree(cmd.Context())
	if err != nil {
		return err
	}

	if c.asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(forest)
	}

	r := c.ctx.Renderer(cmd.OutOrStdout(), svc)
	if err := r.Forest(forest.Roots); err != nil {
		return err
	}
	if len(forest.Roots) == 0 {
		return nil
	}
	return r.Summary(forest.Report, forest.Members)
}
