// Package family assembles flat member records into a renderable forest and
// answers structural questions about the family (generation depth, next id,
// data-quality issues). Everything here is a pure function over an in-memory
// snapshot; nothing performs I/O or mutates the caller's records.
package family

import (
	"log/slog"

	"github.com/go-ports/silsilah/internal/models"
)

// Strategy names the rule that produced the root set of a forest.
type Strategy string

const (
	// StrategyNone is reported for an empty member set.
	StrategyNone Strategy = "none"
	// StrategyPrimary: members with no declared parents, spouse groups merged.
	StrategyPrimary Strategy = "primary"
	// StrategyStructural: members none of whose declared parents exist.
	StrategyStructural Strategy = "structural"
	// StrategyEarliestBirthYear: members sharing the smallest birth year.
	StrategyEarliestBirthYear Strategy = "earliest_birth_year"
	// StrategyFirstMember: the first member of the input.
	StrategyFirstMember Strategy = "first_member"
)

// Report describes how a forest was assembled.
type Report struct {
	Strategy      Strategy `json:"strategy"`
	Roots         int      `json:"roots"`
	MergedSpouses int      `json:"merged_spouses"`
	// Unplaced lists members that are neither in the forest nor folded into
	// a spouse, e.g. a child of a missing parent when other roots exist.
	Unplaced []string `json:"unplaced,omitempty"`
}

type buildOptions struct {
	logger *slog.Logger
}

// BuildOption configures BuildTree.
type BuildOption func(*buildOptions)

// WithLogger routes the builder's diagnostic record to l.
func WithLogger(l *slog.Logger) BuildOption {
	return func(o *buildOptions) { o.logger = l }
}

// BuildTree converts members into a forest of nested nodes and returns the
// roots. See BuildTreeWithReport.
func BuildTree(members []models.Member, opts ...BuildOption) []*models.TreeNode {
	roots, _ := BuildTreeWithReport(members, opts...)
	return roots
}

// BuildTreeWithReport converts members into a forest and reports which root
// rule was applied.
//
// Children attach to their father when the father exists in the set, else to
// their mother; each member is attached at most once. Roots are chosen by the
// first rule of the following ladder that yields any:
//
//  1. members with no declared parent (spouse groups among them merged)
//  2. members none of whose declared parents exist
//  3. members sharing the earliest birth year
//  4. the first member
//
// Malformed input (duplicate ids, parent cycles) is not validated; use
// Diagnose for that. The output is still guaranteed acyclic.
func BuildTreeWithReport(members []models.Member, opts ...BuildOption) ([]*models.TreeNode, Report) {
	o := buildOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	if len(members) == 0 {
		return make([]*models.TreeNode, 0), Report{Strategy: StrategyNone}
	}

	index := make(map[string]*models.TreeNode, len(members))
	for i := range members {
		index[members[i].ID] = models.NewTreeNode(&members[i])
	}

	attached := attachChildren(members, index)

	roots, folded, report := pickRoots(members, index, attached)
	report.Roots = len(roots)
	report.MergedSpouses = len(folded)
	report.Unplaced = unplaced(members, roots, folded)

	o.logger.Debug("family tree built",
		"members", len(members),
		"strategy", string(report.Strategy),
		"roots", report.Roots,
		"merged_spouses", report.MergedSpouses,
		"unplaced", len(report.Unplaced),
	)
	return roots, report
}

// ---------------------------------------------------------------------------
// Attachment
// ---------------------------------------------------------------------------

// attachChildren places every member under its father (or, failing that, its
// mother) and returns the child → parent placement map.
func attachChildren(members []models.Member, index map[string]*models.TreeNode) map[string]string {
	attached := make(map[string]string, len(members))

	for i := range members {
		m := &members[i]
		node := index[m.ID]

		var parentID string
		switch {
		case m.FatherID != "" && index[m.FatherID] != nil:
			parentID = m.FatherID
		case m.MotherID != "" && index[m.MotherID] != nil:
			parentID = m.MotherID
		default:
			continue
		}
		if _, done := attached[m.ID]; done {
			continue
		}
		if wouldCycle(attached, parentID, m.ID) {
			continue
		}
		index[parentID].Children = append(index[parentID].Children, node)
		attached[m.ID] = parentID
	}
	return attached
}

// wouldCycle reports whether placing childID under parentID would make the
// child its own ancestor.
func wouldCycle(attached map[string]string, parentID, childID string) bool {
	seen := make(map[string]bool)
	for cur := parentID; cur != ""; {
		if cur == childID {
			return true
		}
		if seen[cur] {
			return true
		}
		seen[cur] = true
		next, ok := attached[cur]
		if !ok {
			return false
		}
		cur = next
	}
	return false
}

// ---------------------------------------------------------------------------
// Root selection
// ---------------------------------------------------------------------------

func pickRoots(members []models.Member, index map[string]*models.TreeNode, attached map[string]string) ([]*models.TreeNode, []string, Report) {
	if roots := primaryRoots(members, index, attached); len(roots) > 0 {
		if len(roots) == 1 {
			return roots, nil, Report{Strategy: StrategyPrimary}
		}
		merged, folded := mergeSpouseGroups(roots)
		return merged, folded, Report{Strategy: StrategyPrimary}
	}
	if roots := structuralRoots(members, index, attached); len(roots) > 0 {
		return roots, nil, Report{Strategy: StrategyStructural}
	}
	if roots := earliestBornRoots(members, index); len(roots) > 0 {
		return pruneNested(liftToTop(roots, index, attached)), nil, Report{Strategy: StrategyEarliestBirthYear}
	}
	first := []*models.TreeNode{index[members[0].ID]}
	return liftToTop(first, index, attached), nil, Report{Strategy: StrategyFirstMember}
}

// liftToTop replaces each fallback root with the unattached top of its
// placement chain, so a root never hides the member it was attached under.
// Duplicates keep their first position.
func liftToTop(roots []*models.TreeNode, index map[string]*models.TreeNode, attached map[string]string) []*models.TreeNode {
	out := make([]*models.TreeNode, 0, len(roots))
	seen := make(map[*models.TreeNode]bool, len(roots))
	for _, r := range roots {
		top := r
		for hops := 0; hops < len(attached); hops++ {
			parentID, ok := attached[top.ID]
			if !ok {
				break
			}
			top = index[parentID]
		}
		if seen[top] {
			continue
		}
		seen[top] = true
		out = append(out, top)
	}
	return out
}

func primaryRoots(members []models.Member, index map[string]*models.TreeNode, attached map[string]string) []*models.TreeNode {
	var roots []*models.TreeNode
	for i := range members {
		m := &members[i]
		if m.HasParents() {
			continue
		}
		if _, ok := attached[m.ID]; ok {
			continue
		}
		roots = append(roots, index[m.ID])
	}
	return roots
}

func structuralRoots(members []models.Member, index map[string]*models.TreeNode, attached map[string]string) []*models.TreeNode {
	var roots []*models.TreeNode
	for i := range members {
		m := &members[i]
		fatherKnown := m.FatherID != "" && index[m.FatherID] != nil
		motherKnown := m.MotherID != "" && index[m.MotherID] != nil
		if fatherKnown || motherKnown {
			continue
		}
		if _, ok := attached[m.ID]; ok {
			continue
		}
		roots = append(roots, index[m.ID])
	}
	return roots
}

// earliestBornRoots returns every member sharing the minimum birth year.
// A zero year counts as unknown.
func earliestBornRoots(members []models.Member, index map[string]*models.TreeNode) []*models.TreeNode {
	oldest, found := 0, false
	for i := range members {
		y := members[i].BirthYear
		if y == nil || *y == 0 {
			continue
		}
		if !found || *y < oldest {
			oldest, found = *y, true
		}
	}
	if !found {
		return nil
	}

	var roots []*models.TreeNode
	for i := range members {
		if y := members[i].BirthYear; y != nil && *y == oldest {
			roots = append(roots, index[members[i].ID])
		}
	}
	return roots
}

// mergeSpouseGroups folds spouses found among roots into the first-seen
// partner. Only the first-seen root's spouse list is consulted; the relation
// is not symmetrised. Returns the surviving roots and the ids folded away.
func mergeSpouseGroups(roots []*models.TreeNode) ([]*models.TreeNode, []string) {
	processed := make(map[string]bool, len(roots))
	merged := make([]*models.TreeNode, 0, len(roots))
	var folded []string

	for _, root := range roots {
		if processed[root.ID] {
			continue
		}
		processed[root.ID] = true
		group := []*models.TreeNode{root}

		for _, spouseID := range root.SpouseIDs {
			spouse := findRoot(roots, spouseID)
			if spouse == nil || processed[spouse.ID] {
				continue
			}
			group = append(group, spouse)
			processed[spouse.ID] = true
		}

		survivor := group[0]
		for _, spouse := range group[1:] {
			for _, child := range spouse.Children {
				if !hasChild(survivor, child.ID) {
					survivor.Children = append(survivor.Children, child)
				}
			}
			folded = append(folded, spouse.ID)
		}
		merged = append(merged, survivor)
	}
	return merged, folded
}

// pruneNested drops roots already reachable from another root.
func pruneNested(roots []*models.TreeNode) []*models.TreeNode {
	inside := make(map[*models.TreeNode]bool)
	for _, r := range roots {
		Walk(r.Children, func(n *models.TreeNode, _ int) { inside[n] = true })
	}
	out := make([]*models.TreeNode, 0, len(roots))
	kept := make(map[*models.TreeNode]bool, len(roots))
	for _, r := range roots {
		if inside[r] || kept[r] {
			continue
		}
		kept[r] = true
		out = append(out, r)
	}
	return out
}

func unplaced(members []models.Member, roots []*models.TreeNode, folded []string) []string {
	placed := make(map[string]bool, len(members))
	for _, id := range folded {
		placed[id] = true
	}
	Walk(roots, func(n *models.TreeNode, _ int) { placed[n.ID] = true })

	var out []string
	for i := range members {
		id := members[i].ID
		if placed[id] {
			continue
		}
		placed[id] = true
		out = append(out, id)
	}
	return out
}

func findRoot(roots []*models.TreeNode, id string) *models.TreeNode {
	for _, r := range roots {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func hasChild(n *models.TreeNode, id string) bool {
	for _, c := range n.Children {
		if c.ID == id {
			return true
		}
	}
	return false
}

// Walk visits every node of the forest depth-first, parents before children.
// depth is 0 for roots.
func Walk(roots []*models.TreeNode, fn func(n *models.TreeNode, depth int)) {
	var visit func(n *models.TreeNode, depth int)
	visit = func(n *models.TreeNode, depth int) {
		fn(n, depth)
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	for _, r := range roots {
		visit(r, 0)
	}
}
