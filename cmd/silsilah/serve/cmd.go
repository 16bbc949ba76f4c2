// Package servecmd implements the `silsilah serve` command.
package servecmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/go-ports/silsilah/cmd/silsilah/shared"
	"github.com/go-ports/silsilah/internal/auth"
	"github.com/go-ports/silsilah/internal/httpapi"
)

const shutdownTimeout = 5 * time.Second

// Command implements `silsilah serve`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	addr string
}

// New creates the serve command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the family tree over HTTP",
		Long: `Serve the JSON API and Prometheus metrics.
Mutating routes require the admin token (server.admin_token or $SILSILAH_ADMIN_TOKEN)
when one is configured.`,
		Args: cobra.NoArgs,
		RunE: c.run,
	}
	c.cmd.Flags().StringVar(&c.addr, "addr", "", "Listen address (default: server.addr from config)")
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	svc, err := c.ctx.OpenService(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	addr := c.addr
	if addr == "" {
		addr = svc.Config.Server.Addr
	}
	authn := auth.New(svc.Config.AdminToken())
	if !authn.Enabled() {
		slog.Warn("no admin token configured, mutating routes are open")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	srv := &http.Server{
		Handler:           httpapi.New(svc, authn, httpapi.NewMetrics(), slog.Default()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	fmt.Fprintln(cmd.OutOrStdout(), svc.Translator().T("serve.listening", "addr", ln.Addr().String()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
