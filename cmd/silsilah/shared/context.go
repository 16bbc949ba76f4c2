// Package shared holds the context passed to all CLI commands.
package shared

import (
	"context"
	"io"
	"log/slog"

	"github.com/go-ports/silsilah/internal/config"
	"github.com/go-ports/silsilah/internal/i18n"
	"github.com/go-ports/silsilah/internal/render"
	"github.com/go-ports/silsilah/internal/service"
)

// Context carries global CLI state (flags set on the root command).
type Context struct {
	// Home overrides the silsilah home directory.
	// When empty, resolution falls through to SILSILAH_HOME env → persisted config → ~/.silsilah.
	Home string
	// Lang overrides the configured language (en, ms, or a locale such as ms_MY).
	Lang string
	// Verbose enables debug logging on stderr.
	Verbose bool
}

// ResolveHome returns the home directory and where it came from.
func (c *Context) ResolveHome() (path, source string) {
	if c.Home != "" {
		return c.Home, "flag"
	}
	return config.ResolveHome()
}

// OpenService opens the family service for the resolved home.
func (c *Context) OpenService(ctx context.Context) (*service.Service, error) {
	home, _ := c.ResolveHome()
	var opts []service.Option
	if c.Lang != "" {
		opts = append(opts, service.WithLanguage(i18n.Negotiate(c.Lang)))
	}
	return service.New(ctx, home, opts...)
}

// Renderer returns a renderer for w using the service's theme and language.
func (c *Context) Renderer(w io.Writer, svc *service.Service) *render.Renderer {
	return render.New(w, render.ParseTheme(svc.Config.Render.Theme), svc.Translator())
}

// SetupLogging installs the default slog handler on w: warnings and errors
// only, or everything with --verbose.
func (c *Context) SetupLogging(w io.Writer) {
	level := slog.LevelWarn
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}
