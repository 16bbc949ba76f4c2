// Package doctorcmd implements the `silsilah doctor` command.
package doctorcmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/silsilah/cmd/silsilah/shared"
)

// Command implements `silsilah doctor`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	asJSON bool
}

// New creates the doctor command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "doctor",
		Short: "Report dangling references, duplicate ids and parent cycles",
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}
	c.cmd.Flags().BoolVar(&c.asJSON, "json", false, "Print the report as JSON")
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

	d, err := svc.Diagnose(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if c.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	}

	tr := svc.Translator()
	if len(d.Issues) == 0 {
		fmt.Fprintln(out, tr.T("doctor.clean", "count", d.Members))
		return nil
	}
	fmt.Fprintln(out, tr.T("doctor.found", "count", len(d.Issues)))
	for _, is := range d.Issues {
		fmt.Fprintf(out, "  [%s] %s: %s\n", is.Kind, is.MemberID, is.Message)
	}
	return nil
}
