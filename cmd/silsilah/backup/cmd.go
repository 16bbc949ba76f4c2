// Package backupcmd implements the `silsilah backup` command.
package backupcmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-ports/silsilah/cmd/silsilah/shared"
)

// Command implements `silsilah backup`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	list bool
}

// New creates the backup command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "backup",
		Short: "Write a snapshot of all members to the backup store",
		Long: `Write a JSON snapshot of all members to the configured backup store
(backup.driver: fs, memory or s3). With --list, print the stored snapshots, newest first.`,
		Args: cobra.NoArgs,
		RunE: c.run,
	}
	c.cmd.Flags().BoolVar(&c.list, "list", false, "List stored snapshots instead of writing one")
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

	out := cmd.OutOrStdout()
	tr := svc.Translator()

	if c.list {
		infos, err := svc.ListBackups(cmd.Context())
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Fprintln(out, tr.T("backup.none"))
			return nil
		}
		for _, info := range infos {
			fmt.Fprintf(out, "%s  %d  %s\n", info.Key, info.Size, info.LastModified.Format(time.RFC3339))
		}
		return nil
	}

	res, err := svc.Backup(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintln(out, tr.T("backup.done", "key", res.Key, "count", res.Members, "size", res.Size))
	return nil
}
