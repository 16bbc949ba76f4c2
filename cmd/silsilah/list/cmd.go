// Package listcmd implements the `silsilah list` command.
package listcmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/go-ports/silsilah/cmd/silsilah/shared"
	"github.com/go-ports/silsilah/internal/models"
)

// Command implements `silsilah list`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	asJSON bool
	search string
	limit  int
}

// New creates the list command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List family members by name",
		Args:    cobra.NoArgs,
		RunE:    c.run,
	}
	f := c.cmd.Flags()
	f.BoolVar(&c.asJSON, "json", false, "Print members as JSON")
	f.StringVarP(&c.search, "search", "s", "", "Only members whose name contains this text")
	f.IntVar(&c.limit, "limit", 50, "Maximum results with --search")
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

	var members []models.Member
	if c.search != "" {
		members, err = svc.Search(cmd.Context(), c.search, c.limit)
	} else {
		members, err = svc.ListMembers(cmd.Context())
	}
	if err != nil {
		return err
	}

	if c.asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(members)
	}
	return c.ctx.Renderer(cmd.OutOrStdout(), svc).List(members)
}
