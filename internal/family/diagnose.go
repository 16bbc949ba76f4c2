package family

import (
	"fmt"
	"slices"

	"github.com/go-ports/silsilah/internal/models"
)

// IssueKind classifies a data-quality problem found by Diagnose.
type IssueKind string

const (
	IssueEmptyID          IssueKind = "empty_id"
	IssueDuplicateID      IssueKind = "duplicate_id"
	IssueSelfParent       IssueKind = "self_parent"
	IssueDanglingFather   IssueKind = "dangling_father"
	IssueDanglingMother   IssueKind = "dangling_mother"
	IssueParentCycle      IssueKind = "parent_cycle"
	IssueDanglingSpouse   IssueKind = "dangling_spouse"
	IssueAsymmetricSpouse IssueKind = "asymmetric_spouse"
)

// Issue is a single problem attached to a member.
type Issue struct {
	Kind     IssueKind `json:"kind"`
	MemberID string    `json:"member_id"`
	Ref      string    `json:"ref,omitempty"`
	Message  string    `json:"message"`
}

// Diagnose reports the malformed-input conditions that BuildTree tolerates
// silently. Issues are ordered by member (input order) and then by kind.
// Dangling references are reported even though the tree builder handles them,
// since they usually mean a record was deleted or mistyped.
func Diagnose(members []models.Member) []Issue {
	byID := make(map[string]*models.Member, len(members))
	for i := range members {
		if _, dup := byID[members[i].ID]; !dup {
			byID[members[i].ID] = &members[i]
		}
	}
	cyclic := membersOnParentCycle(members, byID)

	var issues []Issue
	seen := make(map[string]bool, len(members))
	for i := range members {
		m := &members[i]
		add := func(kind IssueKind, ref, format string, args ...any) {
			issues = append(issues, Issue{Kind: kind, MemberID: m.ID, Ref: ref, Message: fmt.Sprintf(format, args...)})
		}

		if m.ID == "" {
			add(IssueEmptyID, "", "member %q has no id", m.Name)
		}
		if seen[m.ID] && m.ID != "" {
			add(IssueDuplicateID, "", "id %s is used by more than one member", m.ID)
		}
		seen[m.ID] = true

		if m.ID != "" && (m.FatherID == m.ID || m.MotherID == m.ID) {
			add(IssueSelfParent, m.ID, "%s is listed as its own parent", m.ID)
		}
		if m.FatherID != "" && byID[m.FatherID] == nil {
			add(IssueDanglingFather, m.FatherID, "father %s of %s does not exist", m.FatherID, m.ID)
		}
		if m.MotherID != "" && byID[m.MotherID] == nil {
			add(IssueDanglingMother, m.MotherID, "mother %s of %s does not exist", m.MotherID, m.ID)
		}
		if cyclic[m.ID] {
			add(IssueParentCycle, "", "%s is its own ancestor", m.ID)
		}
		for _, sid := range m.SpouseIDs {
			spouse := byID[sid]
			switch {
			case spouse == nil:
				add(IssueDanglingSpouse, sid, "spouse %s of %s does not exist", sid, m.ID)
			case !slices.Contains(spouse.SpouseIDs, m.ID):
				add(IssueAsymmetricSpouse, sid, "%s lists %s as spouse but not the other way round", m.ID, sid)
			}
		}
	}
	return issues
}

// membersOnParentCycle returns the ids that can reach themselves by following
// father or mother links. Self links are excluded; they are reported as
// IssueSelfParent instead.
func membersOnParentCycle(members []models.Member, byID map[string]*models.Member) map[string]bool {
	parents := func(m *models.Member) []string {
		var out []string
		for _, p := range []string{m.FatherID, m.MotherID} {
			if p != "" && p != m.ID && byID[p] != nil {
				out = append(out, p)
			}
		}
		return out
	}

	cyclic := make(map[string]bool)
	for i := range members {
		start := members[i].ID
		if start == "" || cyclic[start] {
			continue
		}
		visited := make(map[string]bool)
		stack := parents(byID[start])
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if id == start {
				cyclic[start] = true
				break
			}
			if visited[id] {
				continue
			}
			visited[id] = true
			stack = append(stack, parents(byID[id])...)
		}
	}
	return cyclic
}
