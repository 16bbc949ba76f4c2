// Package generationcmd implements the `silsilah generation` command.
package generationcmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/silsilah/cmd/silsilah/shared"
	"github.com/go-ports/silsilah/internal/family"
)

// Command implements `silsilah generation`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the generation command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "generation <doc-id|member-id>",
		Short: "Show how many generations a member is below the oldest ancestor",
		Args:  cobra.ExactArgs(1),
		RunE:  c.run,
	}
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, args []string) error {
	svc, err := c.ctx.OpenService(cmd.Context())
	if err != nil {
		return err
	}
	defer svc.Close()

	tr := svc.Translator()
	m, level, err := svc.Generation(cmd.Context(), args[0])
	if errors.Is(err, family.ErrParentCycle) {
		fmt.Fprintln(cmd.OutOrStdout(), tr.T("member.generation_cycle", "id", m.ID, "err", err))
		return err
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tr.T("member.generation", "name", m.Name, "id", m.ID, "level", level))
	return nil
}
