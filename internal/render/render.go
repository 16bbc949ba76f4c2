// Package render draws family forests and member lists for the terminal.
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/go-ports/silsilah/internal/family"
	"github.com/go-ports/silsilah/internal/i18n"
	"github.com/go-ports/silsilah/internal/models"
)

// Theme selects the colour palette.
type Theme string

const (
	ThemeAuto  Theme = "auto"
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme maps a config value to a Theme. Unknown values are ThemeAuto.
func ParseTheme(s string) Theme {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case ThemeLight:
		return ThemeLight
	case ThemeDark:
		return ThemeDark
	default:
		return ThemeAuto
	}
}

type palette struct {
	name     lipgloss.Color
	meta     lipgloss.Color
	deceased lipgloss.Color
	branch   lipgloss.Color
}

var (
	lightPalette = palette{
		name:     lipgloss.Color("#101F38"),
		meta:     lipgloss.Color("#5C6370"),
		deceased: lipgloss.Color("#9E9E9E"),
		branch:   lipgloss.Color("#558B2F"),
	}
	darkPalette = palette{
		name:     lipgloss.Color("#F2F2F2"),
		meta:     lipgloss.Color("#A0A8B8"),
		deceased: lipgloss.Color("#757575"),
		branch:   lipgloss.Color("#8BC34A"),
	}
)

// Renderer writes localized, themed output to a single writer. Colour is
// dropped automatically when the writer is not a terminal.
type Renderer struct {
	out  io.Writer
	tr   *i18n.Translator
	dark bool

	name     lipgloss.Style
	meta     lipgloss.Style
	deceased lipgloss.Style
	branch   lipgloss.Style
}

// New returns a Renderer for w. ThemeAuto asks the terminal for its
// background colour.
func New(w io.Writer, theme Theme, tr *i18n.Translator) *Renderer {
	lr := lipgloss.NewRenderer(w)
	switch theme {
	case ThemeDark:
		lr.SetHasDarkBackground(true)
	case ThemeLight:
		lr.SetHasDarkBackground(false)
	}

	r := &Renderer{out: w, tr: tr, dark: lr.HasDarkBackground()}
	p := lightPalette
	if r.dark {
		p = darkPalette
	}
	r.name = lr.NewStyle().Bold(true).Foreground(p.name)
	r.meta = lr.NewStyle().Foreground(p.meta)
	r.deceased = lr.NewStyle().Italic(true).Foreground(p.deceased)
	r.branch = lr.NewStyle().Foreground(p.branch)
	return r
}

// Dark reports whether the dark palette is in use.
func (r *Renderer) Dark() bool { return r.dark }

// Label formats one member on a single line, e.g.
//
//	Ahmad (M1) · Male · b. 1920 · d. 1990 · deceased · spouse: M2
func (r *Renderer) Label(m *models.Member) string {
	parts := []string{r.name.Render(m.Name) + " " + r.meta.Render("("+m.ID+")")}
	parts = append(parts, r.meta.Render(r.tr.T("gender."+string(m.Gender))))
	if m.BirthYear != nil {
		parts = append(parts, r.meta.Render(r.tr.T("member.born", "year", strconv.Itoa(*m.BirthYear))))
	}
	if m.DeathYear != nil {
		parts = append(parts, r.meta.Render(r.tr.T("member.died", "year", strconv.Itoa(*m.DeathYear))))
	}
	if m.IsDeceased {
		parts = append(parts, r.deceased.Render(r.tr.T("member.deceased")))
	}
	if len(m.SpouseIDs) > 0 {
		parts = append(parts, r.meta.Render(r.tr.T("member.spouses", "ids", strings.Join(m.SpouseIDs, ", "))))
	}
	return strings.Join(parts, " · ")
}

// Forest writes every root of the forest as its own tree, separated by a
// blank line. An empty forest writes the localized "no members" line.
func (r *Renderer) Forest(roots []*models.TreeNode) error {
	if len(roots) == 0 {
		_, err := fmt.Fprintln(r.out, r.tr.T("tree.empty"))
		return err
	}
	for i, root := range roots {
		if i > 0 {
			if _, err := fmt.Fprintln(r.out); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(r.out, r.subtree(root).String()); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) subtree(n *models.TreeNode) *tree.Tree {
	t := tree.Root(r.Label(&n.Member)).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(r.branch)
	for _, child := range n.Children {
		if len(child.Children) == 0 {
			t.Child(r.Label(&child.Member))
			continue
		}
		t.Child(r.subtree(child))
	}
	return t
}

// Summary writes a one-line description of how the forest was built, plus
// the ids of any members the forest could not place.
func (r *Renderer) Summary(rep family.Report, members int) error {
	line := r.tr.T("tree.summary", "roots", rep.Roots, "strategy", string(rep.Strategy), "members", members)
	if _, err := fmt.Fprintln(r.out, r.meta.Render(line)); err != nil {
		return err
	}
	if len(rep.Unplaced) > 0 {
		line = r.tr.T("tree.unplaced", "ids", strings.Join(rep.Unplaced, ", "))
		if _, err := fmt.Fprintln(r.out, r.deceased.Render(line)); err != nil {
			return err
		}
	}
	return nil
}

// List writes one labelled line per member followed by a count, or the
// localized empty line.
func (r *Renderer) List(members []models.Member) error {
	if len(members) == 0 {
		_, err := fmt.Fprintln(r.out, r.tr.T("list.empty"))
		return err
	}
	for i := range members {
		if _, err := fmt.Fprintf(r.out, "%s  %s\n", r.Label(&members[i]), r.meta.Render(members[i].DocID)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(r.out, r.meta.Render(r.tr.T("list.count", "count", len(members))))
	return err
}
