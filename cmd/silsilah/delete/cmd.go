// Package deletecmd implements the `silsilah delete` command.
package deletecmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/silsilah/cmd/silsilah/shared"
)

// Command implements `silsilah delete`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the delete command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "delete <doc-id|member-id>",
		Short: "Delete a family member",
		Long: `Delete a family member by document id or member id.
References to the member from other records are left in place; run doctor to find them.`,
		Args: cobra.ExactArgs(1),
		RunE: c.run,
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

	m, err := svc.ResolveMember(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := svc.DeleteMember(cmd.Context(), m.DocID); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), svc.Translator().T("member.deleted", "doc_id", m.DocID))
	return nil
}
