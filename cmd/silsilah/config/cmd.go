// Package configcmd implements the `silsilah config` command group.
package configcmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/go-ports/silsilah/cmd/silsilah/shared"
	"github.com/go-ports/silsilah/internal/config"
)

const configTemplate = `# Silsilah configuration

# Output language: en | ms
language: en

# Member store. sqlite3 (cgo) and sqlite (pure Go) keep family.db in the home
# directory unless dsn is set; pgx needs a postgres:// dsn.
store:
  driver: sqlite3               # sqlite3 | sqlite | pgx
  # dsn: postgres://localhost/family

# Terminal colours for tree and list.
render:
  theme: auto                   # auto | light | dark

# silsilah serve
server:
  addr: 127.0.0.1:8080
  # admin_token: change-me      # or $SILSILAH_ADMIN_TOKEN

# Where backup snapshots are written.
backup:
  driver: fs                    # fs | memory | s3
  # fs_root: /path/to/backups   # default: <home>/backups
  # s3:
  #   bucket: family-backups
  #   region: ap-southeast-1
  #   endpoint: http://localhost:9000
  #   path_style: true
`

// Command implements `silsilah config`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the config command group.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "config",
		Short: "Show or manage configuration",
		RunE:  c.runShow,
	}
	c.cmd.AddCommand(
		newConfigInit(ctx),
		newSetHome(),
		newClearHome(),
	)
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) runShow(cmd *cobra.Command, _ []string) error {
	home, source := c.ctx.ResolveHome()
	cfg, err := config.Load(filepath.Join(home, config.FileName))
	if err != nil {
		return err
	}
	data := map[string]any{
		"language": cfg.Language,
		"store": map[string]any{
			"driver": cfg.Store.Driver,
			"dsn":    cfg.StoreDSN(home),
		},
		"render": map[string]any{
			"theme": cfg.Render.Theme,
		},
		"server": map[string]any{
			"addr":        cfg.Server.Addr,
			"admin_token": redactToken(cfg.AdminToken()),
		},
		"backup": map[string]any{
			"driver":  cfg.Backup.Driver,
			"fs_root": cfg.BackupRoot(home),
			"s3":      cfg.Backup.S3,
		},
		"home":        home,
		"home_source": source,
	}
	b, err := yaml.Marshal(data)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(b))
	return nil
}

// redactToken hides all but the last four characters of a token.
func redactToken(token string) string {
	switch {
	case token == "":
		return ""
	case len(token) <= 4:
		return "****"
	default:
		return "****" + token[len(token)-4:]
	}
}

// ---------------------------------------------------------------------------
// config init
// ---------------------------------------------------------------------------

func newConfigInit(ctx *shared.Context) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a starter config.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			home, _ := ctx.ResolveHome()
			cfgPath := filepath.Join(home, config.FileName)
			out := cmd.OutOrStdout()
			if _, err := os.Stat(cfgPath); err == nil && !force {
				fmt.Fprintf(out, "Config already exists at %s\n", cfgPath)
				fmt.Fprintln(out, "Use --force to overwrite.")
				return nil
			}
			if err := os.MkdirAll(home, 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(cfgPath, []byte(configTemplate), 0o600); err != nil {
				return err
			}
			fmt.Fprintf(out, "Created %s\n", cfgPath)
			fmt.Fprintln(out, "Edit the file to choose a store driver, language or backup target.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config")
	return cmd
}

// ---------------------------------------------------------------------------
// config set-home / clear-home
// ---------------------------------------------------------------------------

func newSetHome() *cobra.Command {
	return &cobra.Command{
		Use:   "set-home <path>",
		Short: "Persist the family home location (used when SILSILAH_HOME is unset)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := config.SetPersistedHome(args[0])
			if err != nil {
				return err
			}
			if err := os.MkdirAll(resolved, 0o755); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Persisted family home: %s\n", resolved)
			fmt.Fprintf(out, "Override anytime with %s.\n", config.HomeEnv)
			return nil
		},
	}
}

func newClearHome() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-home",
		Short: "Remove the persisted family home location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			changed, err := config.ClearPersistedHome()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if changed {
				fmt.Fprintln(out, "Cleared persisted family home.")
			} else {
				fmt.Fprintln(out, "No persisted family home was set.")
			}
			return nil
		},
	}
}
