// Package markdown renders the family forest as an Obsidian-compatible
// markdown register.
package markdown

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-ports/silsilah/internal/family"
	"github.com/go-ports/silsilah/internal/i18n"
	"github.com/go-ports/silsilah/internal/models"
)

// escaper neutralises the inline markdown characters that can appear in names.
var escaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"[", `\[`,
	"]", `\]`,
)

// RenderMember produces the single-line list item text for a member, e.g.
//
//	**Ahmad** (M1) · Male · b. 1920 · spouse: M2
func RenderMember(m *models.Member, tr *i18n.Translator) string {
	var sb strings.Builder
	sb.WriteString("**")
	sb.WriteString(escaper.Replace(m.Name))
	sb.WriteString("** (")
	sb.WriteString(escaper.Replace(m.ID))
	sb.WriteString(") · ")
	sb.WriteString(tr.T("gender." + string(m.Gender)))
	if m.BirthYear != nil {
		sb.WriteString(" · ")
		sb.WriteString(tr.T("member.born", "year", strconv.Itoa(*m.BirthYear)))
	}
	if m.DeathYear != nil {
		sb.WriteString(" · ")
		sb.WriteString(tr.T("member.died", "year", strconv.Itoa(*m.DeathYear)))
	}
	if m.IsDeceased {
		sb.WriteString(" · _")
		sb.WriteString(tr.T("member.deceased"))
		sb.WriteString("_")
	}
	if len(m.SpouseIDs) > 0 {
		sb.WriteString(" · ")
		sb.WriteString(escaper.Replace(tr.T("member.spouses", "ids", strings.Join(m.SpouseIDs, ", "))))
	}
	return sb.String()
}

// Render produces a complete register: YAML front-matter describing the
// build, a title, and the forest as nested bullet lists.
func Render(roots []*models.TreeNode, rep family.Report, members int, tr *i18n.Translator, generated time.Time) string {
	title := tr.T("app.title")

	var sb strings.Builder
	sb.WriteString("---\n")
	sb.WriteString("title: ")
	sb.WriteString(title)
	sb.WriteString("\nlanguage: ")
	sb.WriteString(tr.Lang())
	sb.WriteString("\nmembers: ")
	sb.WriteString(strconv.Itoa(members))
	sb.WriteString("\nroots: ")
	sb.WriteString(strconv.Itoa(rep.Roots))
	sb.WriteString("\nstrategy: ")
	sb.WriteString(string(rep.Strategy))
	sb.WriteString("\ngenerated: ")
	sb.WriteString(generated.UTC().Format(time.RFC3339))
	sb.WriteString("\n---\n\n# ")
	sb.WriteString(title)
	sb.WriteString("\n\n")

	if len(roots) == 0 {
		sb.WriteString("_")
		sb.WriteString(tr.T("tree.empty"))
		sb.WriteString("_\n")
		return sb.String()
	}

	for _, root := range roots {
		writeNode(&sb, root, 0, tr)
	}

	if len(rep.Unplaced) > 0 {
		sb.WriteString("\n> ")
		sb.WriteString(escaper.Replace(tr.T("tree.unplaced", "ids", strings.Join(rep.Unplaced, ", "))))
		sb.WriteString("\n")
	}
	return sb.String()
}

func writeNode(sb *strings.Builder, n *models.TreeNode, depth int, tr *i18n.Translator) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString("- ")
	sb.WriteString(RenderMember(&n.Member, tr))
	sb.WriteString("\n")
	for _, child := range n.Children {
		writeNode(sb, child, depth+1, tr)
	}
}
