// Package updatecmd implements the `silsilah update` command.
package updatecmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/silsilah/cmd/silsilah/shared"
	"github.com/go-ports/silsilah/internal/models"
)

// Command implements `silsilah update`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	id, name, gender       string
	father, mother         string
	spouses                []string
	birthYear, deathYear   int
	deceased               bool
	clearBirth, clearDeath bool
}

// New creates the update command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "update <doc-id|member-id>",
		Short: "Update fields of a family member",
		Long:  "Update a family member. Only the flags given are changed.",
		Args:  cobra.ExactArgs(1),
		RunE:  c.run,
	}
	f := c.cmd.Flags()
	f.StringVar(&c.id, "id", "", "New member id")
	f.StringVar(&c.name, "name", "", "New full name")
	f.StringVar(&c.gender, "gender", "", "Gender: male or female")
	f.IntVar(&c.birthYear, "birth-year", 0, "Year of birth")
	f.IntVar(&c.deathYear, "death-year", 0, "Year of death")
	f.BoolVar(&c.clearBirth, "clear-birth-year", false, "Remove the birth year")
	f.BoolVar(&c.clearDeath, "clear-death-year", false, "Remove the death year")
	f.BoolVar(&c.deceased, "deceased", false, "Mark the member as deceased (--deceased=false to unmark)")
	f.StringVar(&c.father, "father", "", "Father's member id (empty string to clear)")
	f.StringVar(&c.mother, "mother", "", "Mother's member id (empty string to clear)")
	f.StringSliceVar(&c.spouses, "spouse", nil, "Replace spouse ids (repeatable or comma-separated)")
	c.cmd.MarkFlagsMutuallyExclusive("birth-year", "clear-birth-year")
	c.cmd.MarkFlagsMutuallyExclusive("death-year", "clear-death-year")
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

// patch builds a MemberPatch from the flags the user actually set.
func (c *Command) patch(cmd *cobra.Command) *models.MemberPatch {
	changed := cmd.Flags().Changed
	p := &models.MemberPatch{
		ClearBirthYear: c.clearBirth,
		ClearDeathYear: c.clearDeath,
	}
	if changed("id") {
		p.ID = &c.id
	}
	if changed("name") {
		p.Name = &c.name
	}
	if changed("gender") {
		p.Gender = &c.gender
	}
	if changed("birth-year") {
		p.BirthYear = &c.birthYear
	}
	if changed("death-year") {
		p.DeathYear = &c.deathYear
	}
	if changed("deceased") {
		p.IsDeceased = &c.deceased
	}
	if changed("father") {
		p.FatherID = &c.father
	}
	if changed("mother") {
		p.MotherID = &c.mother
	}
	if changed("spouse") {
		spouses := append([]string{}, c.spouses...)
		p.SpouseIDs = &spouses
	}
	return p
}

func (c *Command) run(cmd *cobra.Command, args []string) error {
	p := c.patch(cmd)
	if p.Empty() {
		return errors.New("update: nothing to change (see --help for flags)")
	}

	svc, err := c.ctx.OpenService(cmd.Context())
	if err != nil {
		return err
	}
	defer svc.Close()

	m, err := svc.ResolveMember(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if _, err := svc.UpdateMember(cmd.Context(), m.DocID, p); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), svc.Translator().T("member.updated", "doc_id", m.DocID))
	return nil
}
