// Package addcmd implements the `silsilah add` command.
package addcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/silsilah/cmd/silsilah/shared"
	"github.com/go-ports/silsilah/internal/models"
)

// Command implements `silsilah add`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	in        models.MemberInput
	birthYear int
	deathYear int
}

// New creates the add command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "add",
		Short: "Add a family member",
		Long: `Add a family member. The member id is allocated (M1, M2, ...) unless --id is given.
Parents and spouses are referenced by member id and need not exist yet.`,
		Args: cobra.NoArgs,
		RunE: c.run,
	}
	f := c.cmd.Flags()
	f.StringVar(&c.in.ID, "id", "", "Member id (default: next free M<n>)")
	f.StringVar(&c.in.Name, "name", "", "Full name (required)")
	f.StringVar(&c.in.Gender, "gender", "male", "Gender: male or female")
	f.IntVar(&c.birthYear, "birth-year", 0, "Year of birth")
	f.IntVar(&c.deathYear, "death-year", 0, "Year of death")
	f.BoolVar(&c.in.IsDeceased, "deceased", false, "Mark the member as deceased")
	f.StringVar(&c.in.FatherID, "father", "", "Father's member id")
	f.StringVar(&c.in.MotherID, "mother", "", "Mother's member id")
	f.StringSliceVar(&c.in.SpouseIDs, "spouse", nil, "Spouse member id (repeatable or comma-separated)")
	_ = c.cmd.MarkFlagRequired("name")
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, _ []string) error {
	in := c.in
	if cmd.Flags().Changed("birth-year") {
		in.BirthYear = &c.birthYear
	}
	if cmd.Flags().Changed("death-year") {
		in.DeathYear = &c.deathYear
	}

	svc, err := c.ctx.OpenService(cmd.Context())
	if err != nil {
		return err
	}
	defer svc.Close()

	res, err := svc.AddMember(cmd.Context(), &in)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), svc.Translator().T("member.added", "name", in.Name, "id", res.ID, "doc_id", res.DocID))
	return nil
}
